// api/service/kyc_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evzone/myaccounts/api/dao"
	accounts_errors "github.com/evzone/myaccounts/api/errors"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/util"
)

// IKYCService defines the interface for KYC submission and review
type IKYCService interface {
	SubmitKYC(ctx context.Context, submission model.KYCSubmission) (*model.KYCSubmission, error)
	GetSubmission(ctx context.Context, submissionID string) (*model.KYCSubmission, error)
	ListSubmissions(ctx context.Context, status, userID string) ([]*model.KYCSubmission, error)
	ReviewSubmission(ctx context.Context, submissionID, decision, reviewerID, note string) (*model.KYCSubmission, error)
}

// KYCService handles document submission and back-office review. Approval
// activates the user's account and any pending wallets.
type KYCService struct {
	kycDAO          *dao.KYCDAO
	userDAO         *dao.UserDAO
	walletDAO       *dao.WalletDAO
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
}

var _ IKYCService = &KYCService{}

func NewKYCService(kycDAO *dao.KYCDAO, userDAO *dao.UserDAO, walletDAO *dao.WalletDAO, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService) *KYCService {
	return &KYCService{
		kycDAO:          kycDAO,
		userDAO:         userDAO,
		walletDAO:       walletDAO,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
	}
}

// SubmitKYC files a new submission for review
func (s *KYCService) SubmitKYC(ctx context.Context, submission model.KYCSubmission) (*model.KYCSubmission, error) {
	if err := s.validationUtil.ValidateKYCSubmission(submission); err != nil {
		return nil, fmt.Errorf("invalid kyc submission: %w", err)
	}

	submission.SubmittedAt = time.Now()

	submissionID, err := s.kycDAO.CreateSubmission(ctx, submission)
	if err != nil {
		logger.Error("Error creating KYC submission", zap.Error(err), zap.String("userID", submission.UserID))
		return nil, err
	}

	return s.kycDAO.GetSubmission(ctx, submissionID)
}

// GetSubmission retrieves one submission
func (s *KYCService) GetSubmission(ctx context.Context, submissionID string) (*model.KYCSubmission, error) {
	return s.kycDAO.GetSubmission(ctx, submissionID)
}

// ListSubmissions lists submissions for the review queue
func (s *KYCService) ListSubmissions(ctx context.Context, status, userID string) ([]*model.KYCSubmission, error) {
	submissions, err := s.kycDAO.ListSubmissions(ctx, status, userID)
	if err != nil {
		logger.Error("Error listing KYC submissions", zap.Error(err))
		return nil, fmt.Errorf("failed to list kyc submissions: %w", err)
	}

	return submissions, nil
}

// ReviewSubmission applies an approve or reject decision. On approval a
// PendingKYC account goes Active and its pending wallets are activated.
func (s *KYCService) ReviewSubmission(ctx context.Context, submissionID, decision, reviewerID, note string) (*model.KYCSubmission, error) {
	if decision != model.KYCStatusApproved && decision != model.KYCStatusRejected {
		return nil, accounts_errors.ErrInvalidKYCData
	}

	submission, err := s.kycDAO.ReviewSubmission(ctx, submissionID, decision, reviewerID, note)
	if err != nil {
		return nil, err
	}

	if decision == model.KYCStatusApproved {
		if err := s.activateAccount(ctx, submission.UserID); err != nil {
			logger.Error("Failed to activate account after KYC approval",
				zap.Error(err), zap.String("userID", submission.UserID))
		}
	}

	if err := s.notificationSvc.NotifyKYCReviewed(ctx, *submission); err != nil {
		logger.Warn("Failed to send KYC review notification", zap.Error(err), zap.String("submissionID", submissionID))
	}

	logger.Info("KYC submission reviewed",
		zap.String("submissionID", submissionID),
		zap.String("decision", decision),
		zap.String("reviewerID", reviewerID))

	return submission, nil
}

func (s *KYCService) activateAccount(ctx context.Context, userID string) error {
	user, err := s.userDAO.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.Status == model.UserStatusPendingKYC {
		if _, err := s.userDAO.SetUserStatus(ctx, userID, model.UserStatusActive, "kyc approved"); err != nil {
			return err
		}
		if err := s.cacheService.DeleteUser(ctx, userID); err != nil {
			logger.Warn("Failed to invalidate user cache", zap.Error(err), zap.String("userID", userID))
		}
	}

	wallets, err := s.walletDAO.ListWallets(ctx, userID, 100, 0)
	if err != nil {
		return err
	}
	for _, wallet := range wallets {
		if wallet.Status != model.WalletStatusPending {
			continue
		}
		if _, err := s.walletDAO.SetWalletStatus(ctx, wallet.ID, model.WalletStatusActive, "kyc approved"); err != nil {
			return err
		}
		if err := s.cacheService.DeleteWallet(ctx, wallet.ID); err != nil {
			logger.Warn("Failed to invalidate wallet cache", zap.Error(err), zap.String("walletID", wallet.ID))
		}
	}

	return nil
}
