// api/util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
)

type NotificationService struct {
	// You might want to add dependencies here, such as a message queue client
	// or the SMS/WhatsApp gateway clients.
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// DeliverOneTimeCode routes a verification code to the user over the
// requested channel. Delivery is fire-and-forget; verification happens
// against the stored copy, never against what was delivered.
func (n *NotificationService) DeliverOneTimeCode(ctx context.Context, user model.User, channel string) error {
	switch channel {
	case model.ChannelSMS, model.ChannelWhatsApp:
		if user.Phone == "" {
			return fmt.Errorf("user %s has no phone number on file", user.ID)
		}
		logger.Info("Delivering one-time code",
			zap.String("userID", user.ID),
			zap.String("channel", channel))
	case model.ChannelEmail:
		logger.Info("Delivering one-time code",
			zap.String("userID", user.ID),
			zap.String("channel", channel))
	case model.ChannelAuthenticator:
		// Authenticator codes are generated on-device; nothing to deliver.
		return nil
	default:
		return fmt.Errorf("unknown channel: %s", channel)
	}

	// Here you would implement the actual delivery logic: SMS gateway,
	// WhatsApp Business API, or the transactional email provider.

	return nil
}

// NotifyAccountAction informs the affected user that a sensitive action was
// applied to their account, when the operator requested notification.
func (n *NotificationService) NotifyAccountAction(ctx context.Context, kind model.ActionKind, user model.User) error {
	logger.Info("NOTIFICATION: Account action applied",
		zap.String("kind", string(kind)),
		zap.String("userID", user.ID))

	// Here you would implement the actual notification logic. This could
	// involve sending messages to a queue, calling an external API, etc.

	return nil
}

func (n *NotificationService) SendEmail(ctx context.Context, recipient, subject, body string) error {
	// Mock email sending
	logger.Info("Sending email",
		zap.String("recipient", recipient),
		zap.String("subject", subject))

	// Here you would implement the actual email sending logic
	// This could involve calling an email service API, using an SMTP client, etc.

	return nil
}

func (n *NotificationService) NotifyUserChange(ctx context.Context, changeType string, user model.User) error {
	logger.Info("Notifying user change",
		zap.String("changeType", changeType),
		zap.String("userID", user.ID))
	return nil
}

func (n *NotificationService) NotifyAppChange(ctx context.Context, changeType string, app model.App) error {
	logger.Info("Notifying app change",
		zap.String("changeType", changeType),
		zap.String("appID", app.ID),
		zap.String("appName", app.Name))
	return nil
}

func (n *NotificationService) NotifyWalletChange(ctx context.Context, changeType string, wallet model.Wallet) error {
	logger.Info("Notifying wallet change",
		zap.String("changeType", changeType),
		zap.String("walletID", wallet.ID),
		zap.String("ownerID", wallet.OwnerID))
	return nil
}

func (n *NotificationService) NotifyKYCReviewed(ctx context.Context, submission model.KYCSubmission) error {
	logger.Info("Notifying KYC review outcome",
		zap.String("submissionID", submission.ID),
		zap.String("userID", submission.UserID),
		zap.String("status", submission.Status))
	return nil
}
