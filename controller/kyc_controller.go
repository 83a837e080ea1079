// api/controller/kyc_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	accounts_errors "github.com/evzone/myaccounts/api/errors"
	"github.com/evzone/myaccounts/api/model"
	"github.com/evzone/myaccounts/api/service"
	"github.com/evzone/myaccounts/api/util"
)

type KYCController struct {
	kycService service.IKYCService
}

func NewKYCController(kycService service.IKYCService) *KYCController {
	return &KYCController{
		kycService: kycService,
	}
}

// RegisterSelfRoutes registers the user-facing submission endpoints
func (kc *KYCController) RegisterSelfRoutes(r *gin.RouterGroup) {
	kyc := r.Group("/kyc")
	{
		kyc.POST("", kc.SubmitKYC)
		kyc.GET("/mine", kc.ListOwnSubmissions)
	}
}

// RegisterAdminRoutes registers the back-office review queue endpoints
func (kc *KYCController) RegisterAdminRoutes(r *gin.RouterGroup) {
	kyc := r.Group("/kyc")
	{
		kyc.GET("", kc.ListSubmissions)
		kyc.GET("/:id", kc.GetSubmission)
		kyc.POST("/:id/review", kc.ReviewSubmission)
	}
}

// SubmitKYC endpoint; the submitter is always the signed-in user.
func (kc *KYCController) SubmitKYC(c *gin.Context) {
	var submission model.KYCSubmission
	if err := c.ShouldBindJSON(&submission); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid submission data", accounts_errors.ErrInvalidKYCData)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	submission.UserID = userID

	created, err := kc.kycService.SubmitKYC(c, submission)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrKYCPending):
			util.RespondWithError(c, http.StatusConflict, "A submission is already pending review", err)
		case errors.Is(err, accounts_errors.ErrUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, "Failed to submit documents", err)
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}

// ListOwnSubmissions endpoint
func (kc *KYCController) ListOwnSubmissions(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	submissions, err := kc.kycService.ListSubmissions(c, c.Query("status"), userID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list submissions", err)
		return
	}

	c.JSON(http.StatusOK, submissions)
}

// GetSubmission endpoint
func (kc *KYCController) GetSubmission(c *gin.Context) {
	submission, err := kc.kycService.GetSubmission(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, accounts_errors.ErrKYCNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Submission not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve submission", err)
		}
		return
	}

	c.JSON(http.StatusOK, submission)
}

// ListSubmissions endpoint; defaults to the pending review queue.
func (kc *KYCController) ListSubmissions(c *gin.Context) {
	status := c.DefaultQuery("status", model.KYCStatusPending)

	submissions, err := kc.kycService.ListSubmissions(c, status, c.Query("user_id"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list submissions", err)
		return
	}

	c.JSON(http.StatusOK, submissions)
}

type reviewRequest struct {
	Decision string `json:"decision" binding:"required"`
	Note     string `json:"note"`
}

// ReviewSubmission endpoint
func (kc *KYCController) ReviewSubmission(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid review data", err)
		return
	}
	reviewerID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	submission, err := kc.kycService.ReviewSubmission(c, c.Param("id"), req.Decision, reviewerID, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrKYCNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Submission not found", err)
		case errors.Is(err, accounts_errors.ErrKYCConflict):
			util.RespondWithError(c, http.StatusConflict, "Submission already reviewed", err)
		case errors.Is(err, accounts_errors.ErrInvalidKYCData):
			util.RespondWithError(c, http.StatusBadRequest, "Unknown review decision", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to review submission", err)
		}
		return
	}

	c.JSON(http.StatusOK, submission)
}
