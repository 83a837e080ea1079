// api/dao/app_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
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

type AppDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewAppDAO(driver neo4j.Driver, auditService audit.Service) *AppDAO {
	dao := &AppDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for App", zap.Error(err))
	}
	return dao
}

func (dao *AppDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_app_id IF NOT EXISTS
        FOR (a:App) REQUIRE a.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on App ID", zap.Error(err))
		return err
	}

	return nil
}

func (dao *AppDAO) CreateApp(ctx context.Context, app model.App) (string, error) {
	start := time.Now()
	logger.Info("Creating new app", zap.String("name", app.Name))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.Status == "" {
		app.Status = model.AppStatusActive
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (a:App {id: $id})
        ON CREATE SET a += $props
        ON MATCH SET a += $props
        RETURN a.id as id
        `

		params := map[string]interface{}{
			"id": app.ID,
			"props": map[string]interface{}{
				"name":         app.Name,
				"clientID":     app.ClientID,
				"secretHash":   app.SecretHash,
				"status":       app.Status,
				"redirectURIs": strings.Join(app.RedirectURIs, " "),
				"ownerOrgID":   app.OwnerOrgID,
				"createdAt":    time.Now().Format(time.RFC3339),
				"updatedAt":    time.Now().Format(time.RFC3339),
			},
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return nil, accounts_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create app",
			zap.Error(err),
			zap.String("name", app.Name),
			zap.Duration("duration", duration))
		return "", err
	}

	appID := fmt.Sprintf("%v", result)
	logger.Info("App created successfully",
		zap.String("appID", appID),
		zap.Duration("duration", duration))

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "CREATE_APP",
		TargetType: "app",
		TargetID:   appID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return appID, nil
}

func (dao *AppDAO) GetApp(ctx context.Context, appID string) (*model.App, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (a:App {id: $id})
    RETURN a
    `
	result, err := session.Run(query, map[string]interface{}{"id": appID})
	if err != nil {
		logger.Error("Failed to execute get app query", zap.Error(err), zap.String("appID", appID))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		app, err := mapNodeToApp(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		return app, nil
	}

	logger.Warn("App not found", zap.String("appID", appID))
	return nil, accounts_errors.ErrAppNotFound
}

func (dao *AppDAO) ListApps(ctx context.Context, limit int, offset int) ([]*model.App, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (a:App)
    RETURN a
    ORDER BY a.createdAt DESC
    SKIP $offset
    LIMIT $limit
    `
	result, err := session.Run(query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list apps query", zap.Error(err))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	var apps []*model.App
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		app, err := mapNodeToApp(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		apps = append(apps, app)
	}

	return apps, nil
}

// SetAppStatus toggles an app between Active and Disabled; the previous
// status is returned.
func (dao *AppDAO) SetAppStatus(ctx context.Context, appID, status, reason string) (string, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (a:App {id: $id})
        WITH a, a.status AS previous
        SET a.status = $status, a.updatedAt = $now
        RETURN previous
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":     appID,
			"status": status,
			"now":    time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, accounts_errors.ErrAppNotFound
	})

	if err != nil {
		logger.Error("Failed to set app status",
			zap.Error(err),
			zap.String("appID", appID),
			zap.String("status", status))
		return "", err
	}

	previous := fmt.Sprintf("%v", result)
	details, _ := json.Marshal(map[string]string{"old": previous, "new": status})
	entry := audit.Entry{
		Timestamp:     time.Now(),
		ActorID:       actorID(ctx),
		Action:        "SET_APP_STATUS",
		TargetType:    "app",
		TargetID:      appID,
		Success:       true,
		Reason:        reason,
		ChangeDetails: details,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return previous, nil
}

// SetSecretHash invalidates the old client secret by replacing its hash.
func (dao *AppDAO) SetSecretHash(ctx context.Context, appID, hash, reason string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (a:App {id: $id})
        SET a.secretHash = $hash, a.rotatedAt = $now, a.updatedAt = $now
        RETURN a.id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":   appID,
			"hash": hash,
			"now":  time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return nil, nil
		}
		return nil, accounts_errors.ErrAppNotFound
	})

	if err != nil {
		logger.Error("Failed to rotate app secret", zap.Error(err), zap.String("appID", appID))
		return err
	}

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "ROTATE_SECRET",
		TargetType: "app",
		TargetID:   appID,
		Success:    true,
		Reason:     reason,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

// Helper function to map Neo4j Node to App struct
func mapNodeToApp(node neo4j.Node) (*model.App, error) {
	props := node.Props
	app := &model.App{}

	app.ID = stringProp(props, "id")
	app.Name = stringProp(props, "name")
	app.ClientID = stringProp(props, "clientID")
	app.SecretHash = stringProp(props, "secretHash")
	app.Status = stringProp(props, "status")
	app.OwnerOrgID = stringProp(props, "ownerOrgID")
	if uris := stringProp(props, "redirectURIs"); uris != "" {
		app.RedirectURIs = strings.Fields(uris)
	}

	var err error
	if app.CreatedAt, err = helper_util.ParseTime(stringProp(props, "createdAt")); err != nil {
		return nil, fmt.Errorf("failed to parse createdAt: %w", err)
	}
	if app.UpdatedAt, err = helper_util.ParseTime(stringProp(props, "updatedAt")); err != nil {
		return nil, fmt.Errorf("failed to parse updatedAt: %w", err)
	}
	if rotated := stringProp(props, "rotatedAt"); rotated != "" {
		if app.RotatedAt, err = helper_util.ParseTime(rotated); err != nil {
			return nil, fmt.Errorf("failed to parse rotatedAt: %w", err)
		}
	}

	return app, nil
}
