// api/service/user_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/evzone/myaccounts/api/dao"
	accounts_errors "github.com/evzone/myaccounts/api/errors"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/util"
)

// IUserService defines the interface for the admin user directory
type IUserService interface {
	CreateUser(ctx context.Context, user model.User, creatorID string) (*model.User, error)
	UpdateUser(ctx context.Context, user model.User, updaterID string) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	GetUserOverview(ctx context.Context, userID string) (*model.UserOverview, error)
	ListUsers(ctx context.Context, limit int, offset int) ([]*model.User, error)
	SearchUsers(ctx context.Context, criteria model.UserSearchCriteria) ([]*model.User, error)
}

// UserService handles business logic for user operations
type UserService struct {
	userDAO         *dao.UserDAO
	walletDAO       *dao.WalletDAO
	sessionDAO      *dao.SessionDAO
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IUserService = &UserService{}

// NewUserService creates a new instance of UserService
func NewUserService(userDAO *dao.UserDAO, walletDAO *dao.WalletDAO, sessionDAO *dao.SessionDAO, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *UserService {
	service := &UserService{
		userDAO:         userDAO,
		walletDAO:       walletDAO,
		sessionDAO:      sessionDAO,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("user.created", service.handleUserCreated)
	eventBus.Subscribe("user.updated", service.handleUserUpdated)

	return service
}

func (s *UserService) handleUserCreated(ctx context.Context, event util.Event) error {
	user := event.Payload.(model.User)
	logger.Info("User created event received", zap.String("userID", user.ID))

	if err := s.notificationSvc.NotifyUserChange(ctx, "created", user); err != nil {
		logger.Warn("Failed to send user creation notification", zap.Error(err), zap.String("userID", user.ID))
	}

	return nil
}

func (s *UserService) handleUserUpdated(ctx context.Context, event util.Event) error {
	user := event.Payload.(model.User)
	logger.Info("User updated event received", zap.String("userID", user.ID))

	if err := s.notificationSvc.NotifyUserChange(ctx, "updated", user); err != nil {
		logger.Warn("Failed to send user update notification", zap.Error(err), zap.String("userID", user.ID))
	}

	return nil
}

// CreateUser handles the creation of a new user account
func (s *UserService) CreateUser(ctx context.Context, user model.User, creatorID string) (*model.User, error) {
	if err := s.validationUtil.ValidateUser(user); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	userID, err := s.userDAO.CreateUser(ctx, user)
	if err != nil {
		logger.Error("Error creating user", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	user.ID = userID

	// Update cache
	if err := s.cacheService.SetUser(ctx, user); err != nil {
		logger.Warn("Failed to cache user", zap.Error(err), zap.String("userID", userID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "user.created", user)

	logger.Info("User created successfully", zap.String("userID", userID), zap.String("creatorID", creatorID))
	return &user, nil
}

// UpdateUser handles profile updates to an existing user
func (s *UserService) UpdateUser(ctx context.Context, user model.User, updaterID string) (*model.User, error) {
	if err := s.validationUtil.ValidateUser(user); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	user.UpdatedAt = time.Now()

	updatedUser, err := s.userDAO.UpdateUser(ctx, user)
	if err != nil {
		logger.Error("Error updating user", zap.Error(err), zap.String("userID", user.ID), zap.String("updaterID", updaterID))
		return nil, err
	}

	// Update cache
	if err := s.cacheService.SetUser(ctx, *updatedUser); err != nil {
		logger.Warn("Failed to update user in cache", zap.Error(err), zap.String("userID", user.ID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "user.updated", *updatedUser)

	logger.Info("User updated successfully", zap.String("userID", user.ID), zap.String("updaterID", updaterID))
	return updatedUser, nil
}

// GetUser retrieves a user by their ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	// Try to get from cache first
	cachedUser, err := s.cacheService.GetUser(ctx, userID)
	if err == nil && cachedUser != nil {
		return cachedUser, nil
	}

	user, err := s.userDAO.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, accounts_errors.ErrUserNotFound) {
			return nil, accounts_errors.ErrUserNotFound
		}
		logger.Error("Error retrieving user", zap.Error(err), zap.String("userID", userID))
		return nil, accounts_errors.ErrInternalServer
	}

	// Update cache
	if err := s.cacheService.SetUser(ctx, *user); err != nil {
		logger.Warn("Failed to cache user", zap.Error(err), zap.String("userID", userID))
	}

	return user, nil
}

// GetUserOverview assembles the admin detail view. The independent reads
// run concurrently; any single failure fails the overview.
func (s *UserService) GetUserOverview(ctx context.Context, userID string) (*model.UserOverview, error) {
	overview := &model.UserOverview{}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		user, err := s.userDAO.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		overview.User = user
		return nil
	})
	g.Go(func() error {
		wallets, err := s.walletDAO.ListWallets(ctx, userID, 100, 0)
		if err != nil {
			return err
		}
		overview.Wallets = wallets
		return nil
	})
	g.Go(func() error {
		sessions, err := s.sessionDAO.ListSessions(ctx, userID)
		if err != nil {
			return err
		}
		overview.Sessions = sessions
		return nil
	})
	g.Go(func() error {
		count, err := s.userDAO.CountPasskeys(ctx, userID)
		if err != nil {
			return err
		}
		overview.PasskeyCount = count
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, accounts_errors.ErrUserNotFound) {
			return nil, accounts_errors.ErrUserNotFound
		}
		logger.Error("Error assembling user overview", zap.Error(err), zap.String("userID", userID))
		return nil, accounts_errors.ErrInternalServer
	}

	if overview.User != nil {
		overview.User.PasskeyCount = overview.PasskeyCount
	}

	return overview, nil
}

// ListUsers retrieves all users, possibly with pagination
func (s *UserService) ListUsers(ctx context.Context, limit int, offset int) ([]*model.User, error) {
	users, err := s.userDAO.ListUsers(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing users", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// SearchUsers searches the directory by name, email, status, role or org
func (s *UserService) SearchUsers(ctx context.Context, criteria model.UserSearchCriteria) ([]*model.User, error) {
	users, err := s.userDAO.SearchUsers(ctx, criteria)
	if err != nil {
		logger.Error("Error searching users", zap.Error(err))
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return users, nil
}
