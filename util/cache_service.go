// api/util/cache_service.go

package util

import (
	"context"

	"github.com/evzone/myaccounts/api/db"
	"github.com/evzone/myaccounts/api/model"
)

type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return db.GetCachedUser(ctx, userID)
}

func (c *CacheService) SetUser(ctx context.Context, user model.User) error {
	return db.CacheUser(ctx, &user)
}

func (c *CacheService) DeleteUser(ctx context.Context, userID string) error {
	return db.DeleteCachedUser(ctx, userID)
}

func (c *CacheService) GetApp(ctx context.Context, appID string) (*model.App, error) {
	return db.GetCachedApp(ctx, appID)
}

func (c *CacheService) SetApp(ctx context.Context, app model.App) error {
	return db.CacheApp(ctx, &app)
}

func (c *CacheService) DeleteApp(ctx context.Context, appID string) error {
	return db.DeleteCachedApp(ctx, appID)
}

func (c *CacheService) GetWallet(ctx context.Context, walletID string) (*model.Wallet, error) {
	return db.GetCachedWallet(ctx, walletID)
}

func (c *CacheService) SetWallet(ctx context.Context, wallet model.Wallet) error {
	return db.CacheWallet(ctx, &wallet)
}

func (c *CacheService) DeleteWallet(ctx context.Context, walletID string) error {
	return db.DeleteCachedWallet(ctx, walletID)
}
