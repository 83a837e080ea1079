// api/dao/recovery_code_dao.go
package dao

import (
	"context"
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

type RecoveryCodeDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewRecoveryCodeDAO(driver neo4j.Driver, auditService audit.Service) *RecoveryCodeDAO {
	return &RecoveryCodeDAO{Driver: driver, AuditService: auditService}
}

// ReplaceCodes deletes the user's existing recovery codes and stores a
// fresh set of hashes in a single transaction, so a reader never sees a
// mix of old and new codes.
func (dao *RecoveryCodeDAO) ReplaceCodes(ctx context.Context, userID string, hashes []string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:User {id: $userID})
        OPTIONAL MATCH (u)-[:HAS_RECOVERY_CODE]->(old:RecoveryCode)
        DETACH DELETE old
        RETURN u.id
        `
		result, err := transaction.Run(query, map[string]interface{}{"userID": userID})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, accounts_errors.ErrUserNotFound
		}

		now := time.Now().Format(time.RFC3339)
		for _, hash := range hashes {
			query = `
            MATCH (u:User {id: $userID})
            CREATE (c:RecoveryCode {id: $id, userID: $userID, hash: $hash,
                    used: false, createdAt: $now})
            CREATE (u)-[:HAS_RECOVERY_CODE]->(c)
            `
			_, err = transaction.Run(query, map[string]interface{}{
				"userID": userID,
				"id":     uuid.New().String(),
				"hash":   hash,
				"now":    now,
			})
			if err != nil {
				return nil, accounts_errors.ErrDatabaseOperation
			}
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to replace recovery codes", zap.Error(err), zap.String("userID", userID))
		return err
	}

	logger.Info("Recovery codes replaced",
		zap.String("userID", userID),
		zap.Int("count", len(hashes)))

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "REGENERATE_RECOVERY_CODES",
		TargetType: "user",
		TargetID:   userID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

// ListCodes returns all of the user's recovery codes, unused first.
func (dao *RecoveryCodeDAO) ListCodes(ctx context.Context, userID string) ([]*model.RecoveryCode, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (u:User {id: $userID})-[:HAS_RECOVERY_CODE]->(c:RecoveryCode)
    RETURN c
    ORDER BY c.used, c.createdAt
    `
	result, err := session.Run(query, map[string]interface{}{"userID": userID})
	if err != nil {
		logger.Error("Failed to execute list recovery codes query", zap.Error(err), zap.String("userID", userID))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	var codes []*model.RecoveryCode
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		code, err := mapNodeToRecoveryCode(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		codes = append(codes, code)
	}

	return codes, nil
}

// MarkUsed burns one recovery code. A code that is already used cannot
// be burned again; the caller gets ErrRecoveryCodeUsed so redeeming a
// spent code fails loudly instead of silently succeeding.
func (dao *RecoveryCodeDAO) MarkUsed(ctx context.Context, codeID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (c:RecoveryCode {id: $id})
        WITH c, c.used AS alreadyUsed
        SET c.used = true, c.usedAt = $now
        RETURN alreadyUsed, c.userID
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":  codeID,
			"now": time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, accounts_errors.ErrRecoveryCodeInvalid
		}
		if result.Record().Values[0].(bool) {
			return nil, accounts_errors.ErrRecoveryCodeUsed
		}
		return result.Record().Values[1], nil
	})

	if err != nil {
		logger.Warn("Failed to mark recovery code used", zap.Error(err), zap.String("codeID", codeID))
		return err
	}

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "REDEEM_RECOVERY_CODE",
		TargetType: "recovery_code",
		TargetID:   codeID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

func mapNodeToRecoveryCode(node neo4j.Node) (*model.RecoveryCode, error) {
	props := node.Props
	code := &model.RecoveryCode{}

	code.ID = stringProp(props, "id")
	code.UserID = stringProp(props, "userID")
	code.Hash = stringProp(props, "hash")
	code.Used = boolProp(props, "used")

	var err error
	if code.CreatedAt, err = helper_util.ParseTime(stringProp(props, "createdAt")); err != nil {
		return nil, fmt.Errorf("failed to parse createdAt: %w", err)
	}
	if raw := stringProp(props, "usedAt"); raw != "" {
		if code.UsedAt, err = helper_util.ParseTime(raw); err != nil {
			return nil, fmt.Errorf("failed to parse usedAt: %w", err)
		}
	}

	return code, nil
}
