// api/controller/action_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	accounts_errors "github.com/evzone/myaccounts/api/errors"
	"github.com/evzone/myaccounts/api/flow"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/util"
)

// ActionController drives the guarded action flow: open with a reason,
// confirm with a re-auth proof, read the result, acknowledge.
type ActionController struct {
	flowService flow.Service
}

func NewActionController(flowService flow.Service) *ActionController {
	return &ActionController{
		flowService: flowService,
	}
}

// RegisterRoutes registers the API routes
func (fc *ActionController) RegisterRoutes(r *gin.RouterGroup) {
	actions := r.Group("/actions")
	{
		actions.POST("", fc.OpenFlow)
		actions.GET("/:id", fc.GetFlow)
		actions.POST("/:id/reauth", fc.ConfirmFlow)
		actions.POST("/:id/ack", fc.AckFlow)
		actions.DELETE("/:id", fc.CancelFlow)
	}
}

// OpenFlow endpoint
func (fc *ActionController) OpenFlow(c *gin.Context) {
	var req model.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid action request", err)
		return
	}

	operatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	opened, err := fc.flowService.Open(c, operatorID, req)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrInvalidAction):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid action request", err)
		case errors.Is(err, accounts_errors.ErrFlowOpen):
			util.RespondWithError(c, http.StatusConflict, "Another action is already in progress", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to open action flow", err)
		}
		return
	}

	c.JSON(http.StatusCreated, opened)
}

// GetFlow endpoint
func (fc *ActionController) GetFlow(c *gin.Context) {
	operatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	opened, err := fc.flowService.Get(c, c.Param("id"), operatorID)
	if err != nil {
		if errors.Is(err, accounts_errors.ErrFlowNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Action flow not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve action flow", err)
		}
		return
	}

	c.JSON(http.StatusOK, opened)
}

// ConfirmFlow endpoint. The proof travels only in the request body and is
// cleared by the flow layer after one verification.
func (fc *ActionController) ConfirmFlow(c *gin.Context) {
	var proof model.ReAuthProof
	if err := c.ShouldBindJSON(&proof); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid re-authentication proof", err)
		return
	}

	operatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	result, err := fc.flowService.Confirm(c, c.Param("id"), operatorID, proof)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrFlowNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Action flow not found", err)
		case errors.Is(err, accounts_errors.ErrReAuthFailed):
			util.RespondWithError(c, http.StatusUnauthorized, "Re-authentication failed", err)
		case errors.Is(err, accounts_errors.ErrFlowState):
			util.RespondWithError(c, http.StatusConflict, "Action already executed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to confirm action", err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// AckFlow endpoint
func (fc *ActionController) AckFlow(c *gin.Context) {
	operatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := fc.flowService.Ack(c, c.Param("id"), operatorID); err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrFlowNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Action flow not found", err)
		case errors.Is(err, accounts_errors.ErrFlowState):
			util.RespondWithError(c, http.StatusConflict, "Action flow has no result yet", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to acknowledge action", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// CancelFlow endpoint
func (fc *ActionController) CancelFlow(c *gin.Context) {
	operatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := fc.flowService.Cancel(c, c.Param("id"), operatorID); err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrFlowNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Action flow not found", err)
		case errors.Is(err, accounts_errors.ErrFlowNotCancelable):
			util.RespondWithError(c, http.StatusConflict, "Action can no longer be cancelled", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel action", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
