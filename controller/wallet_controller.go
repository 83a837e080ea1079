// api/controller/wallet_controller.go
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

type WalletController struct {
	walletService service.IWalletService
}

func NewWalletController(walletService service.IWalletService) *WalletController {
	return &WalletController{
		walletService: walletService,
	}
}

// RegisterRoutes registers the API routes
func (wc *WalletController) RegisterRoutes(r *gin.RouterGroup) {
	wallets := r.Group("/wallets")
	{
		wallets.POST("", wc.CreateWallet)
		wallets.GET("/:id", wc.GetWallet)
		wallets.GET("", wc.ListWallets)
		wallets.PUT("/:id/status", wc.SetWalletStatus)
	}
}

// CreateWallet endpoint
func (wc *WalletController) CreateWallet(c *gin.Context) {
	var wallet model.Wallet
	if err := c.ShouldBindJSON(&wallet); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid wallet data", accounts_errors.ErrInvalidWalletData)
		return
	}
	creatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	createdWallet, err := wc.walletService.CreateWallet(c, wallet, creatorID)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Wallet owner not found", err)
		case errors.Is(err, accounts_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, "Failed to create wallet", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdWallet)
}

// GetWallet endpoint
func (wc *WalletController) GetWallet(c *gin.Context) {
	wallet, err := wc.walletService.GetWallet(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, accounts_errors.ErrWalletNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Wallet not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve wallet", err)
		}
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// ListWallets endpoint
func (wc *WalletController) ListWallets(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	wallets, err := wc.walletService.ListWallets(c, c.Query("owner_id"), limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list wallets", err)
		return
	}

	c.JSON(http.StatusOK, wallets)
}

type setWalletStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// SetWalletStatus endpoint
func (wc *WalletController) SetWalletStatus(c *gin.Context) {
	var req setWalletStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	wallet, err := wc.walletService.SetWalletStatus(c, c.Param("id"), req.Status, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, accounts_errors.ErrWalletNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Wallet not found", err)
		case errors.Is(err, accounts_errors.ErrInvalidWalletData):
			util.RespondWithError(c, http.StatusBadRequest, "Unknown wallet status", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update wallet status", err)
		}
		return
	}

	c.JSON(http.StatusOK, wallet)
}
