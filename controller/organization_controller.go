// api/controller/organization_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	accounts_errors "github.com/evzone/myaccounts/api/errors"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/service"
	"github.com/evzone/myaccounts/api/util"
	helper_util "github.com/evzone/myaccounts/api/util/helper"
)

type OrganizationController struct {
	orgService service.IOrganizationService
}

func NewOrganizationController(orgService service.IOrganizationService) *OrganizationController {
	return &OrganizationController{
		orgService: orgService,
	}
}

// RegisterRoutes registers the API routes
func (oc *OrganizationController) RegisterRoutes(r *gin.RouterGroup) {
	orgs := r.Group("/organizations")
	{
		orgs.POST("", oc.CreateOrganization)
		orgs.PUT("/:id", oc.UpdateOrganization)
		orgs.GET("/:id", oc.GetOrganization)
		orgs.GET("", oc.ListOrganizations)
	}
}

// CreateOrganization endpoint
func (oc *OrganizationController) CreateOrganization(c *gin.Context) {
	var org model.Organization
	if err := c.ShouldBindJSON(&org); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid organization data", accounts_errors.ErrInvalidOrganizationData)
		return
	}
	creatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	createdOrg, err := oc.orgService.CreateOrganization(c, org, creatorID)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrOrganizationConflict):
			util.RespondWithError(c, http.StatusConflict, "Organization already exists", err)
		case errors.Is(err, accounts_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, "Failed to create organization", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdOrg)
}

// UpdateOrganization endpoint
func (oc *OrganizationController) UpdateOrganization(c *gin.Context) {
	orgID := c.Param("id")
	var org model.Organization
	if err := c.ShouldBindJSON(&org); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid organization data", err)
		return
	}
	org.ID = orgID
	updaterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedOrg, err := oc.orgService.UpdateOrganization(c, org, updaterID)
	if err != nil {
		if errors.Is(err, accounts_errors.ErrOrganizationNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Organization not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update organization", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedOrg)
}

// GetOrganization endpoint
func (oc *OrganizationController) GetOrganization(c *gin.Context) {
	org, err := oc.orgService.GetOrganization(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, accounts_errors.ErrOrganizationNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Organization not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve organization", err)
		}
		return
	}

	c.JSON(http.StatusOK, org)
}

// ListOrganizations endpoint
func (oc *OrganizationController) ListOrganizations(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	orgs, err := oc.orgService.ListOrganizations(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list organizations", err)
		return
	}

	c.JSON(http.StatusOK, orgs)
}
