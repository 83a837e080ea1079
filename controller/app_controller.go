// api/controller/app_controller.go
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

type AppController struct {
	appService service.IAppService
}

func NewAppController(appService service.IAppService) *AppController {
	return &AppController{
		appService: appService,
	}
}

// RegisterRoutes registers the API routes
func (apc *AppController) RegisterRoutes(r *gin.RouterGroup) {
	apps := r.Group("/apps")
	{
		apps.POST("", apc.CreateApp)
		apps.GET("/:id", apc.GetApp)
		apps.GET("", apc.ListApps)
		apps.PUT("/:id/status", apc.SetAppStatus)
	}
}

// CreateApp endpoint. The plaintext client secret appears only in this
// response; rotation afterwards goes through the guarded action flow.
func (apc *AppController) CreateApp(c *gin.Context) {
	var app model.App
	if err := c.ShouldBindJSON(&app); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid app data", accounts_errors.ErrInvalidAppData)
		return
	}
	creatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", accounts_errors.ErrUnauthorized)
		return
	}

	createdApp, secret, err := apc.appService.CreateApp(c, app, creatorID)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrAppConflict):
			util.RespondWithError(c, http.StatusConflict, "App already exists", err)
		case errors.Is(err, accounts_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, "Failed to create app", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"app": createdApp, "client_secret": secret})
}

// GetApp endpoint
func (apc *AppController) GetApp(c *gin.Context) {
	app, err := apc.appService.GetApp(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, accounts_errors.ErrAppNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "App not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve app", err)
		}
		return
	}

	c.JSON(http.StatusOK, app)
}

// ListApps endpoint
func (apc *AppController) ListApps(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	apps, err := apc.appService.ListApps(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list apps", err)
		return
	}

	c.JSON(http.StatusOK, apps)
}

type setAppStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// SetAppStatus endpoint
func (apc *AppController) SetAppStatus(c *gin.Context) {
	var req setAppStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	app, err := apc.appService.SetAppStatus(c, c.Param("id"), req.Status, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrAppNotFound):
			util.RespondWithError(c, http.StatusNotFound, "App not found", err)
		case errors.Is(err, accounts_errors.ErrInvalidAppData):
			util.RespondWithError(c, http.StatusBadRequest, "Unknown app status", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update app status", err)
		}
		return
	}

	c.JSON(http.StatusOK, app)
}
