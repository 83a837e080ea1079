// api/service/wallet_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evzone/myaccounts/api/dao"
	accounts_errors "github.com/evzone/myaccounts/api/errors"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/util"
)

// IWalletService defines the interface for wallet operations
type IWalletService interface {
	CreateWallet(ctx context.Context, wallet model.Wallet, creatorID string) (*model.Wallet, error)
	GetWallet(ctx context.Context, walletID string) (*model.Wallet, error)
	ListWallets(ctx context.Context, ownerID string, limit, offset int) ([]*model.Wallet, error)
	SetWalletStatus(ctx context.Context, walletID, status, reason string) (*model.Wallet, error)
}

// WalletService handles business logic for wallet operations. Balance
// mutation lives in the ledger service; this API reads and freezes.
type WalletService struct {
	walletDAO       *dao.WalletDAO
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IWalletService = &WalletService{}

func NewWalletService(walletDAO *dao.WalletDAO, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *WalletService {
	service := &WalletService{
		walletDAO:       walletDAO,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	eventBus.Subscribe("wallet.status_changed", service.handleWalletChanged)

	return service
}

func (s *WalletService) handleWalletChanged(ctx context.Context, event util.Event) error {
	wallet := event.Payload.(model.Wallet)
	if err := s.notificationSvc.NotifyWalletChange(ctx, event.Type, wallet); err != nil {
		logger.Warn("Failed to send wallet change notification", zap.Error(err), zap.String("walletID", wallet.ID))
	}
	return nil
}

// CreateWallet provisions a wallet for a user. New wallets start Pending
// until KYC approval activates them.
func (s *WalletService) CreateWallet(ctx context.Context, wallet model.Wallet, creatorID string) (*model.Wallet, error) {
	if err := s.validationUtil.ValidateWallet(wallet); err != nil {
		return nil, fmt.Errorf("invalid wallet: %w", err)
	}

	wallet.Status = model.WalletStatusPending
	wallet.CreatedAt = time.Now()
	wallet.UpdatedAt = time.Now()

	walletID, err := s.walletDAO.CreateWallet(ctx, wallet)
	if err != nil {
		logger.Error("Error creating wallet", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	wallet.ID = walletID

	if err := s.cacheService.SetWallet(ctx, wallet); err != nil {
		logger.Warn("Failed to cache wallet", zap.Error(err), zap.String("walletID", walletID))
	}

	logger.Info("Wallet created successfully", zap.String("walletID", walletID), zap.String("ownerID", wallet.OwnerID))
	return &wallet, nil
}

// GetWallet retrieves a wallet by its ID
func (s *WalletService) GetWallet(ctx context.Context, walletID string) (*model.Wallet, error) {
	cachedWallet, err := s.cacheService.GetWallet(ctx, walletID)
	if err == nil && cachedWallet != nil {
		return cachedWallet, nil
	}

	wallet, err := s.walletDAO.GetWallet(ctx, walletID)
	if err != nil {
		if errors.Is(err, accounts_errors.ErrWalletNotFound) {
			return nil, accounts_errors.ErrWalletNotFound
		}
		logger.Error("Error retrieving wallet", zap.Error(err), zap.String("walletID", walletID))
		return nil, accounts_errors.ErrInternalServer
	}

	if err := s.cacheService.SetWallet(ctx, *wallet); err != nil {
		logger.Warn("Failed to cache wallet", zap.Error(err), zap.String("walletID", walletID))
	}

	return wallet, nil
}

// ListWallets lists wallets, optionally scoped to one owner
func (s *WalletService) ListWallets(ctx context.Context, ownerID string, limit, offset int) ([]*model.Wallet, error) {
	wallets, err := s.walletDAO.ListWallets(ctx, ownerID, limit, offset)
	if err != nil {
		logger.Error("Error listing wallets", zap.Error(err), zap.String("ownerID", ownerID))
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	return wallets, nil
}

// SetWalletStatus freezes, unfreezes or activates a wallet
func (s *WalletService) SetWalletStatus(ctx context.Context, walletID, status, reason string) (*model.Wallet, error) {
	switch status {
	case model.WalletStatusActive, model.WalletStatusFrozen, model.WalletStatusPending:
	default:
		return nil, accounts_errors.ErrInvalidWalletData
	}

	if _, err := s.walletDAO.SetWalletStatus(ctx, walletID, status, reason); err != nil {
		logger.Error("Error setting wallet status", zap.Error(err), zap.String("walletID", walletID))
		return nil, err
	}

	if err := s.cacheService.DeleteWallet(ctx, walletID); err != nil {
		logger.Warn("Failed to invalidate wallet cache", zap.Error(err), zap.String("walletID", walletID))
	}

	wallet, err := s.walletDAO.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, "wallet.status_changed", *wallet)

	logger.Info("Wallet status changed", zap.String("walletID", walletID), zap.String("status", status))
	return wallet, nil
}
