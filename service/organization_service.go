// api/service/organization_service.go
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

// IOrganizationService defines the interface for organization operations
type IOrganizationService interface {
	CreateOrganization(ctx context.Context, org model.Organization, creatorID string) (*model.Organization, error)
	UpdateOrganization(ctx context.Context, org model.Organization, updaterID string) (*model.Organization, error)
	GetOrganization(ctx context.Context, orgID string) (*model.Organization, error)
	ListOrganizations(ctx context.Context, limit int, offset int) ([]*model.Organization, error)
}

// OrganizationService handles business logic for organization operations
type OrganizationService struct {
	orgDAO         *dao.OrganizationDAO
	validationUtil *util.ValidationUtil
	eventBus       *util.EventBus
}

var _ IOrganizationService = &OrganizationService{}

func NewOrganizationService(orgDAO *dao.OrganizationDAO, validationUtil *util.ValidationUtil, eventBus *util.EventBus) *OrganizationService {
	return &OrganizationService{
		orgDAO:         orgDAO,
		validationUtil: validationUtil,
		eventBus:       eventBus,
	}
}

// CreateOrganization handles the creation of a new organization
func (s *OrganizationService) CreateOrganization(ctx context.Context, org model.Organization, creatorID string) (*model.Organization, error) {
	if err := s.validationUtil.ValidateOrganization(org); err != nil {
		return nil, fmt.Errorf("invalid organization: %w", err)
	}

	org.CreatedAt = time.Now()
	org.UpdatedAt = time.Now()

	orgID, err := s.orgDAO.CreateOrganization(ctx, org)
	if err != nil {
		logger.Error("Error creating organization", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	org.ID = orgID

	s.eventBus.Publish(ctx, "org.created", org)

	logger.Info("Organization created successfully", zap.String("orgID", orgID), zap.String("creatorID", creatorID))
	return &org, nil
}

// UpdateOrganization handles updates to an existing organization
func (s *OrganizationService) UpdateOrganization(ctx context.Context, org model.Organization, updaterID string) (*model.Organization, error) {
	if err := s.validationUtil.ValidateOrganization(org); err != nil {
		return nil, fmt.Errorf("invalid organization: %w", err)
	}

	org.UpdatedAt = time.Now()

	updatedOrg, err := s.orgDAO.UpdateOrganization(ctx, org)
	if err != nil {
		logger.Error("Error updating organization", zap.Error(err), zap.String("orgID", org.ID), zap.String("updaterID", updaterID))
		return nil, err
	}

	s.eventBus.Publish(ctx, "org.updated", *updatedOrg)

	logger.Info("Organization updated successfully", zap.String("orgID", org.ID), zap.String("updaterID", updaterID))
	return updatedOrg, nil
}

// GetOrganization retrieves an organization by its ID
func (s *OrganizationService) GetOrganization(ctx context.Context, orgID string) (*model.Organization, error) {
	org, err := s.orgDAO.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, accounts_errors.ErrOrganizationNotFound) {
			return nil, accounts_errors.ErrOrganizationNotFound
		}
		logger.Error("Error retrieving organization", zap.Error(err), zap.String("orgID", orgID))
		return nil, accounts_errors.ErrInternalServer
	}

	return org, nil
}

// ListOrganizations retrieves all organizations, possibly with pagination
func (s *OrganizationService) ListOrganizations(ctx context.Context, limit int, offset int) ([]*model.Organization, error) {
	orgs, err := s.orgDAO.ListOrganizations(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing organizations", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	return orgs, nil
}
