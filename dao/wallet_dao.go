// api/dao/wallet_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/evzone/myaccounts/api/audit"
	accounts_errors "github.com/evzone/myaccounts/api/errors"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
	helper_util "github.com/evzone/myaccounts/api/util/helper"
)

type WalletDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewWalletDAO(driver neo4j.Driver, auditService audit.Service) *WalletDAO {
	dao := &WalletDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Wallet", zap.Error(err))
	}
	return dao
}

func (dao *WalletDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_wallet_id IF NOT EXISTS
        FOR (w:Wallet) REQUIRE w.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on Wallet ID", zap.Error(err))
		return err
	}

	return nil
}

// CreateWallet creates the wallet node and its OWNS edge from the user.
func (dao *WalletDAO) CreateWallet(ctx context.Context, wallet model.Wallet) (string, error) {
	start := time.Now()
	logger.Info("Creating new wallet",
		zap.String("ownerID", wallet.OwnerID),
		zap.String("currency", wallet.Currency))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if wallet.ID == "" {
		wallet.ID = uuid.New().String()
	}
	if wallet.Status == "" {
		wallet.Status = model.WalletStatusPending
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:User {id: $ownerID})
        MERGE (w:Wallet {id: $id})
        ON CREATE SET w += $props
        MERGE (u)-[:OWNS]->(w)
        RETURN w.id as id
        `
		params := map[string]interface{}{
			"ownerID": wallet.OwnerID,
			"id":      wallet.ID,
			"props": map[string]interface{}{
				"ownerID":   wallet.OwnerID,
				"currency":  wallet.Currency,
				"balance":   wallet.Balance,
				"status":    wallet.Status,
				"createdAt": time.Now().Format(time.RFC3339),
				"updatedAt": time.Now().Format(time.RFC3339),
			},
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, accounts_errors.ErrUserNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create wallet",
			zap.Error(err),
			zap.String("ownerID", wallet.OwnerID),
			zap.Duration("duration", duration))
		return "", err
	}

	walletID := fmt.Sprintf("%v", result)

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "CREATE_WALLET",
		TargetType: "wallet",
		TargetID:   walletID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return walletID, nil
}

func (dao *WalletDAO) GetWallet(ctx context.Context, walletID string) (*model.Wallet, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (w:Wallet {id: $id})
    RETURN w
    `
	result, err := session.Run(query, map[string]interface{}{"id": walletID})
	if err != nil {
		logger.Error("Failed to execute get wallet query", zap.Error(err), zap.String("walletID", walletID))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		wallet, err := mapNodeToWallet(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		return wallet, nil
	}

	return nil, accounts_errors.ErrWalletNotFound
}

// ListWallets lists wallets, optionally scoped to one owner.
func (dao *WalletDAO) ListWallets(ctx context.Context, ownerID string, limit, offset int) ([]*model.Wallet, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (w:Wallet)
    WHERE $ownerID = '' OR w.ownerID = $ownerID
    RETURN w
    ORDER BY w.createdAt DESC
    SKIP $offset
    LIMIT $limit
    `
	result, err := session.Run(query, map[string]interface{}{
		"ownerID": ownerID,
		"limit":   limit,
		"offset":  offset,
	})
	if err != nil {
		logger.Error("Failed to execute list wallets query", zap.Error(err))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	var wallets []*model.Wallet
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		wallet, err := mapNodeToWallet(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		wallets = append(wallets, wallet)
	}

	return wallets, nil
}

// SetWalletStatus freezes or unfreezes a wallet; the previous status is
// returned.
func (dao *WalletDAO) SetWalletStatus(ctx context.Context, walletID, status, reason string) (string, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (w:Wallet {id: $id})
        WITH w, w.status AS previous
        SET w.status = $status, w.updatedAt = $now
        RETURN previous
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":     walletID,
			"status": status,
			"now":    time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, accounts_errors.ErrWalletNotFound
	})

	if err != nil {
		logger.Error("Failed to set wallet status",
			zap.Error(err),
			zap.String("walletID", walletID),
			zap.String("status", status))
		return "", err
	}

	previous := fmt.Sprintf("%v", result)
	details, _ := json.Marshal(map[string]string{"old": previous, "new": status})
	entry := audit.Entry{
		Timestamp:     time.Now(),
		ActorID:       actorID(ctx),
		Action:        "SET_WALLET_STATUS",
		TargetType:    "wallet",
		TargetID:      walletID,
		Success:       true,
		Reason:        reason,
		ChangeDetails: details,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return previous, nil
}

func mapNodeToWallet(node neo4j.Node) (*model.Wallet, error) {
	props := node.Props
	wallet := &model.Wallet{}

	wallet.ID = stringProp(props, "id")
	wallet.OwnerID = stringProp(props, "ownerID")
	wallet.Currency = stringProp(props, "currency")
	wallet.Balance = int64Prop(props, "balance")
	wallet.Status = stringProp(props, "status")

	var err error
	if wallet.CreatedAt, err = helper_util.ParseTime(stringProp(props, "createdAt")); err != nil {
		return nil, fmt.Errorf("failed to parse createdAt: %w", err)
	}
	if wallet.UpdatedAt, err = helper_util.ParseTime(stringProp(props, "updatedAt")); err != nil {
		return nil, fmt.Errorf("failed to parse updatedAt: %w", err)
	}

	return wallet, nil
}
