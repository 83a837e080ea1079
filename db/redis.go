// api/db/redis.go
package db

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
)

var (
	RedisClient   *redis.Client
	encryptionKey []byte
)

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	encryptionKey = []byte(viper.GetString("redis.encryptionKey"))
	if len(encryptionKey) != 32 {
		return fmt.Errorf("invalid encryption key length: must be 32 bytes")
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

func encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// CacheUser stores a user record encrypted; user records carry PII.
func CacheUser(ctx context.Context, user *model.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	encryptedUser, err := encrypt(userJSON)
	if err != nil {
		return fmt.Errorf("failed to encrypt user: %w", err)
	}

	key := fmt.Sprintf("user:%s", user.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, base64.StdEncoding.EncodeToString(encryptedUser), defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}

	logger.Debug("User cached successfully", zap.String("userID", user.ID))
	return nil
}

func GetCachedUser(ctx context.Context, userID string) (*model.User, error) {
	key := fmt.Sprintf("user:%s", userID)
	encryptedUserStr, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("User not found in cache", zap.String("userID", userID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user from cache: %w", err)
	}

	encryptedUser, err := base64.StdEncoding.DecodeString(encryptedUserStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	userJSON, err := decrypt(encryptedUser)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt user: %w", err)
	}

	var user model.User
	err = json.Unmarshal(userJSON, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	logger.Debug("User retrieved from cache", zap.String("userID", userID))
	return &user, nil
}

func DeleteCachedUser(ctx context.Context, userID string) error {
	key := fmt.Sprintf("user:%s", userID)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete user from cache: %w", err)
	}
	logger.Debug("User deleted from cache", zap.String("userID", userID))
	return nil
}

func CacheApp(ctx context.Context, app *model.App) error {
	appJSON, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("failed to marshal app: %w", err)
	}

	key := fmt.Sprintf("app:%s", app.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, appJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache app: %w", err)
	}

	logger.Debug("App cached successfully", zap.String("appID", app.ID))
	return nil
}

func GetCachedApp(ctx context.Context, appID string) (*model.App, error) {
	key := fmt.Sprintf("app:%s", appID)
	appJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("App not found in cache", zap.String("appID", appID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get app from cache: %w", err)
	}

	var app model.App
	err = json.Unmarshal([]byte(appJSON), &app)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal app: %w", err)
	}

	logger.Debug("App retrieved from cache", zap.String("appID", appID))
	return &app, nil
}

func DeleteCachedApp(ctx context.Context, appID string) error {
	key := fmt.Sprintf("app:%s", appID)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete app from cache: %w", err)
	}
	logger.Debug("App deleted from cache", zap.String("appID", appID))
	return nil
}

func CacheWallet(ctx context.Context, wallet *model.Wallet) error {
	walletJSON, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}

	key := fmt.Sprintf("wallet:%s", wallet.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, walletJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache wallet: %w", err)
	}

	logger.Debug("Wallet cached successfully", zap.String("walletID", wallet.ID))
	return nil
}

func GetCachedWallet(ctx context.Context, walletID string) (*model.Wallet, error) {
	key := fmt.Sprintf("wallet:%s", walletID)
	walletJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Wallet not found in cache", zap.String("walletID", walletID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get wallet from cache: %w", err)
	}

	var wallet model.Wallet
	err = json.Unmarshal([]byte(walletJSON), &wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}

	logger.Debug("Wallet retrieved from cache", zap.String("walletID", walletID))
	return &wallet, nil
}

func DeleteCachedWallet(ctx context.Context, walletID string) error {
	key := fmt.Sprintf("wallet:%s", walletID)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete wallet from cache: %w", err)
	}
	logger.Debug("Wallet deleted from cache", zap.String("walletID", walletID))
	return nil
}

// StoreOneTimeCode stores a delivery-channel code for a user with a TTL.
// Codes are single-use; DeleteOneTimeCode consumes them after a successful
// verification.
func StoreOneTimeCode(ctx context.Context, userID, channel, code string, ttl time.Duration) error {
	key := fmt.Sprintf("otp:%s:%s", userID, channel)
	err := RedisClient.Set(ctx, key, code, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to store one-time code: %w", err)
	}
	logger.Debug("One-time code stored", zap.String("userID", userID), zap.String("channel", channel))
	return nil
}

func GetOneTimeCode(ctx context.Context, userID, channel string) (string, error) {
	key := fmt.Sprintf("otp:%s:%s", userID, channel)
	code, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to get one-time code: %w", err)
	}
	return code, nil
}

func DeleteOneTimeCode(ctx context.Context, userID, channel string) error {
	key := fmt.Sprintf("otp:%s:%s", userID, channel)
	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete one-time code: %w", err)
	}
	return nil
}

// StorePasskeyChallenge stores a WebAuthn registration challenge keyed by
// user. TakePasskeyChallenge consumes it so a challenge cannot be replayed.
func StorePasskeyChallenge(ctx context.Context, userID, challenge string, ttl time.Duration) error {
	key := fmt.Sprintf("passkey:challenge:%s", userID)
	if err := RedisClient.Set(ctx, key, challenge, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store passkey challenge: %w", err)
	}
	return nil
}

func TakePasskeyChallenge(ctx context.Context, userID string) (string, error) {
	key := fmt.Sprintf("passkey:challenge:%s", userID)
	challenge, err := RedisClient.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to take passkey challenge: %w", err)
	}
	return challenge, nil
}

// StoreMFAChallenge stores a pending sign-in awaiting MFA verification,
// keyed by an opaque challenge token.
func StoreMFAChallenge(ctx context.Context, token, userID string, ttl time.Duration) error {
	key := fmt.Sprintf("mfa:challenge:%s", token)
	if err := RedisClient.Set(ctx, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store mfa challenge: %w", err)
	}
	return nil
}

// PeekMFAChallenge reads the pending sign-in without consuming it, for
// code delivery between the password step and the verify step.
func PeekMFAChallenge(ctx context.Context, token string) (string, error) {
	key := fmt.Sprintf("mfa:challenge:%s", token)
	userID, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to peek mfa challenge: %w", err)
	}
	return userID, nil
}

func TakeMFAChallenge(ctx context.Context, token string) (string, error) {
	key := fmt.Sprintf("mfa:challenge:%s", token)
	userID, err := RedisClient.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to take mfa challenge: %w", err)
	}
	return userID, nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}

func LockResource(ctx context.Context, resourceName string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resourceName)
	locked, err := RedisClient.SetNX(ctx, key, "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	logger.Debug("Lock acquisition attempt",
		zap.String("resource", resourceName),
		zap.Bool("locked", locked))
	return locked, nil
}

func UnlockResource(ctx context.Context, resourceName string) error {
	key := fmt.Sprintf("lock:%s", resourceName)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	logger.Debug("Lock released", zap.String("resource", resourceName))
	return nil
}
