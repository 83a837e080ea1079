// api/dao/session_dao.go
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

type SessionDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewSessionDAO(driver neo4j.Driver, auditService audit.Service) *SessionDAO {
	dao := &SessionDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Session", zap.Error(err))
	}
	return dao
}

func (dao *SessionDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_session_id IF NOT EXISTS
        FOR (s:Session) REQUIRE s.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on Session ID", zap.Error(err))
		return err
	}

	return nil
}

func (dao *SessionDAO) CreateSession(ctx context.Context, sess model.Session) (string, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:User {id: $userID})
        CREATE (s:Session {id: $id, userID: $userID, device: $device, ip: $ip,
                userAgent: $userAgent, revoked: false,
                createdAt: $now, lastSeen: $now, expiresAt: $expiresAt})
        CREATE (u)-[:HAS_SESSION]->(s)
        RETURN s.id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":        sess.ID,
			"userID":    sess.UserID,
			"device":    sess.Device,
			"ip":        sess.IP,
			"userAgent": sess.UserAgent,
			"now":       time.Now().Format(time.RFC3339),
			"expiresAt": sess.ExpiresAt.Format(time.RFC3339),
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return nil, nil
		}
		return nil, accounts_errors.ErrUserNotFound
	})

	if err != nil {
		logger.Error("Failed to create session", zap.Error(err), zap.String("userID", sess.UserID))
		return "", err
	}

	logger.Info("Session created", zap.String("sessionID", sess.ID), zap.String("userID", sess.UserID))
	return sess.ID, nil
}

func (dao *SessionDAO) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (s:Session {id: $id})
    RETURN s
    `
	result, err := session.Run(query, map[string]interface{}{"id": sessionID})
	if err != nil {
		logger.Error("Failed to execute get session query", zap.Error(err), zap.String("sessionID", sessionID))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		sess, err := mapNodeToSession(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		return sess, nil
	}

	return nil, accounts_errors.ErrSessionNotFound
}

// ListSessions returns the user's non-expired sessions, newest first.
func (dao *SessionDAO) ListSessions(ctx context.Context, userID string) ([]*model.Session, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (u:User {id: $userID})-[:HAS_SESSION]->(s:Session)
    WHERE s.revoked = false AND s.expiresAt > $now
    RETURN s
    ORDER BY s.lastSeen DESC
    `
	result, err := session.Run(query, map[string]interface{}{
		"userID": userID,
		"now":    time.Now().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("Failed to execute list sessions query", zap.Error(err), zap.String("userID", userID))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	var sessions []*model.Session
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		sess, err := mapNodeToSession(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		sessions = append(sessions, sess)
	}

	return sessions, nil
}

// RevokeSession marks one session revoked. Revoking an already-revoked
// session is a no-op success.
func (dao *SessionDAO) RevokeSession(ctx context.Context, sessionID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (s:Session {id: $id})
        SET s.revoked = true
        RETURN s.id
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": sessionID})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return nil, nil
		}
		return nil, accounts_errors.ErrSessionNotFound
	})

	if err != nil {
		logger.Error("Failed to revoke session", zap.Error(err), zap.String("sessionID", sessionID))
		return err
	}

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "REVOKE_SESSION",
		TargetType: "session",
		TargetID:   sessionID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

// RevokeAllExcept revokes every active session of the user other than
// keepID (pass "" to revoke all). The number of sessions revoked is
// returned.
func (dao *SessionDAO) RevokeAllExcept(ctx context.Context, userID, keepID string) (int, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:User {id: $userID})-[:HAS_SESSION]->(s:Session)
        WHERE s.revoked = false AND s.id <> $keepID
        SET s.revoked = true
        RETURN count(s)
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"userID": userID,
			"keepID": keepID,
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return result.Record().Values[0], nil
		}
		return int64(0), nil
	})

	if err != nil {
		logger.Error("Failed to revoke sessions", zap.Error(err), zap.String("userID", userID))
		return 0, err
	}

	count := int(result.(int64))
	logger.Info("Sessions revoked",
		zap.String("userID", userID),
		zap.Int("count", count))

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "REVOKE_ALL_SESSIONS",
		TargetType: "user",
		TargetID:   userID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return count, nil
}

// TouchSession updates the last-seen timestamp; called from the auth
// middleware, so failures are logged and swallowed.
func (dao *SessionDAO) TouchSession(ctx context.Context, sessionID string) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (s:Session {id: $id})
        SET s.lastSeen = $now
        `
		_, err := transaction.Run(query, map[string]interface{}{
			"id":  sessionID,
			"now": time.Now().Format(time.RFC3339),
		})
		return nil, err
	})
	if err != nil {
		logger.Warn("Failed to touch session", zap.Error(err), zap.String("sessionID", sessionID))
	}
}

func mapNodeToSession(node neo4j.Node) (*model.Session, error) {
	props := node.Props
	sess := &model.Session{}

	sess.ID = stringProp(props, "id")
	sess.UserID = stringProp(props, "userID")
	sess.Device = stringProp(props, "device")
	sess.IP = stringProp(props, "ip")
	sess.UserAgent = stringProp(props, "userAgent")
	sess.Revoked = boolProp(props, "revoked")

	var err error
	if sess.CreatedAt, err = helper_util.ParseTime(stringProp(props, "createdAt")); err != nil {
		return nil, fmt.Errorf("failed to parse createdAt: %w", err)
	}
	if sess.LastSeen, err = helper_util.ParseTime(stringProp(props, "lastSeen")); err != nil {
		return nil, fmt.Errorf("failed to parse lastSeen: %w", err)
	}
	if sess.ExpiresAt, err = helper_util.ParseTime(stringProp(props, "expiresAt")); err != nil {
		return nil, fmt.Errorf("failed to parse expiresAt: %w", err)
	}

	return sess, nil
}
