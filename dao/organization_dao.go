// api/dao/organization_dao.go
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

type OrganizationDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewOrganizationDAO(driver neo4j.Driver, auditService audit.Service) *OrganizationDAO {
	dao := &OrganizationDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Organization", zap.Error(err))
	}
	return dao
}

func (dao *OrganizationDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_org_id IF NOT EXISTS
        FOR (o:Organization) REQUIRE o.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on Organization ID", zap.Error(err))
		return err
	}

	return nil
}

func (dao *OrganizationDAO) CreateOrganization(ctx context.Context, org model.Organization) (string, error) {
	start := time.Now()
	logger.Info("Creating new organization", zap.String("name", org.Name))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	if org.Status == "" {
		org.Status = "Active"
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (o:Organization {id: $id})
        ON CREATE SET o += $props
        ON MATCH SET o += $props
        RETURN o.id as id
        `
		params := map[string]interface{}{
			"id": org.ID,
			"props": map[string]interface{}{
				"name":      org.Name,
				"country":   org.Country,
				"status":    org.Status,
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
		return nil, accounts_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create organization",
			zap.Error(err),
			zap.String("name", org.Name),
			zap.Duration("duration", duration))
		return "", err
	}

	orgID := fmt.Sprintf("%v", result)

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "CREATE_ORGANIZATION",
		TargetType: "organization",
		TargetID:   orgID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return orgID, nil
}

func (dao *OrganizationDAO) UpdateOrganization(ctx context.Context, org model.Organization) (*model.Organization, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	var updated *model.Organization
	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (o:Organization {id: $id})
        SET o += $props
        RETURN o
        `
		params := map[string]interface{}{
			"id": org.ID,
			"props": map[string]interface{}{
				"name":      org.Name,
				"country":   org.Country,
				"status":    org.Status,
				"updatedAt": time.Now().Format(time.RFC3339),
			},
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			updated, err = mapNodeToOrganization(node)
			if err != nil {
				return nil, fmt.Errorf("failed to map organization node to struct: %w", err)
			}
			return nil, nil
		}
		return nil, accounts_errors.ErrOrganizationNotFound
	})

	if err != nil {
		logger.Error("Failed to update organization", zap.Error(err), zap.String("orgID", org.ID))
		return nil, err
	}

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "UPDATE_ORGANIZATION",
		TargetType: "organization",
		TargetID:   org.ID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return updated, nil
}

func (dao *OrganizationDAO) GetOrganization(ctx context.Context, orgID string) (*model.Organization, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (o:Organization {id: $id})
    RETURN o
    `
	result, err := session.Run(query, map[string]interface{}{"id": orgID})
	if err != nil {
		logger.Error("Failed to execute get organization query", zap.Error(err), zap.String("orgID", orgID))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		org, err := mapNodeToOrganization(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		return org, nil
	}

	return nil, accounts_errors.ErrOrganizationNotFound
}

func (dao *OrganizationDAO) ListOrganizations(ctx context.Context, limit int, offset int) ([]*model.Organization, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (o:Organization)
    RETURN o
    ORDER BY o.createdAt DESC
    SKIP $offset
    LIMIT $limit
    `
	result, err := session.Run(query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list organizations query", zap.Error(err))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	var orgs []*model.Organization
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		org, err := mapNodeToOrganization(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		orgs = append(orgs, org)
	}

	return orgs, nil
}

func mapNodeToOrganization(node neo4j.Node) (*model.Organization, error) {
	props := node.Props
	org := &model.Organization{}

	org.ID = stringProp(props, "id")
	org.Name = stringProp(props, "name")
	org.Country = stringProp(props, "country")
	org.Status = stringProp(props, "status")

	var err error
	if org.CreatedAt, err = helper_util.ParseTime(stringProp(props, "createdAt")); err != nil {
		return nil, fmt.Errorf("failed to parse createdAt: %w", err)
	}
	if org.UpdatedAt, err = helper_util.ParseTime(stringProp(props, "updatedAt")); err != nil {
		return nil, fmt.Errorf("failed to parse updatedAt: %w", err)
	}

	return org, nil
}
