// api/service/app_service.go
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

// IAppService defines the interface for OAuth client app management
type IAppService interface {
	CreateApp(ctx context.Context, app model.App, creatorID string) (*model.App, string, error)
	GetApp(ctx context.Context, appID string) (*model.App, error)
	ListApps(ctx context.Context, limit int, offset int) ([]*model.App, error)
	SetAppStatus(ctx context.Context, appID, status, reason string) (*model.App, error)
}

// AppService handles business logic for OAuth client apps
type AppService struct {
	appDAO          *dao.AppDAO
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IAppService = &AppService{}

func NewAppService(appDAO *dao.AppDAO, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *AppService {
	service := &AppService{
		appDAO:          appDAO,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	eventBus.Subscribe("app.created", service.handleAppChanged)
	eventBus.Subscribe("app.status_changed", service.handleAppChanged)

	return service
}

func (s *AppService) handleAppChanged(ctx context.Context, event util.Event) error {
	app := event.Payload.(model.App)
	if err := s.notificationSvc.NotifyAppChange(ctx, event.Type, app); err != nil {
		logger.Warn("Failed to send app change notification", zap.Error(err), zap.String("appID", app.ID))
	}
	return nil
}

// CreateApp registers a client and mints its first secret. The plaintext
// secret is returned exactly once; only the hash is stored.
func (s *AppService) CreateApp(ctx context.Context, app model.App, creatorID string) (*model.App, string, error) {
	if err := s.validationUtil.ValidateApp(app); err != nil {
		return nil, "", fmt.Errorf("invalid app: %w", err)
	}

	secret, err := util.GenerateClientSecret()
	if err != nil {
		return nil, "", accounts_errors.ErrInternalServer
	}
	hash, err := util.HashPassword(secret)
	if err != nil {
		return nil, "", accounts_errors.ErrInternalServer
	}

	app.SecretHash = hash
	app.Status = model.AppStatusActive
	app.CreatedAt = time.Now()
	app.UpdatedAt = time.Now()

	appID, err := s.appDAO.CreateApp(ctx, app)
	if err != nil {
		logger.Error("Error creating app", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, "", err
	}

	app.ID = appID

	if err := s.cacheService.SetApp(ctx, app); err != nil {
		logger.Warn("Failed to cache app", zap.Error(err), zap.String("appID", appID))
	}

	s.eventBus.Publish(ctx, "app.created", app)

	logger.Info("App created successfully", zap.String("appID", appID), zap.String("creatorID", creatorID))
	return &app, secret, nil
}

// GetApp retrieves an app by its ID
func (s *AppService) GetApp(ctx context.Context, appID string) (*model.App, error) {
	cachedApp, err := s.cacheService.GetApp(ctx, appID)
	if err == nil && cachedApp != nil {
		return cachedApp, nil
	}

	app, err := s.appDAO.GetApp(ctx, appID)
	if err != nil {
		if errors.Is(err, accounts_errors.ErrAppNotFound) {
			return nil, accounts_errors.ErrAppNotFound
		}
		logger.Error("Error retrieving app", zap.Error(err), zap.String("appID", appID))
		return nil, accounts_errors.ErrInternalServer
	}

	if err := s.cacheService.SetApp(ctx, *app); err != nil {
		logger.Warn("Failed to cache app", zap.Error(err), zap.String("appID", appID))
	}

	return app, nil
}

// ListApps retrieves all apps, possibly with pagination
func (s *AppService) ListApps(ctx context.Context, limit int, offset int) ([]*model.App, error) {
	apps, err := s.appDAO.ListApps(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing apps", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}

	return apps, nil
}

// SetAppStatus enables or disables a client
func (s *AppService) SetAppStatus(ctx context.Context, appID, status, reason string) (*model.App, error) {
	if status != model.AppStatusActive && status != model.AppStatusDisabled {
		return nil, accounts_errors.ErrInvalidAppData
	}

	if _, err := s.appDAO.SetAppStatus(ctx, appID, status, reason); err != nil {
		logger.Error("Error setting app status", zap.Error(err), zap.String("appID", appID))
		return nil, err
	}

	if err := s.cacheService.DeleteApp(ctx, appID); err != nil {
		logger.Warn("Failed to invalidate app cache", zap.Error(err), zap.String("appID", appID))
	}

	app, err := s.appDAO.GetApp(ctx, appID)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, "app.status_changed", *app)

	logger.Info("App status changed", zap.String("appID", appID), zap.String("status", status))
	return app, nil
}
