// api/controller/action_controller_test.go
package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/evzone/myaccounts/api/controller"
	accounts_errors "github.com/evzone/myaccounts/api/errors"
	"github.com/evzone/myaccounts/api/flow"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
	mock_service "github.com/evzone/myaccounts/api/test/service_mock"
)

func setupRouter() *gin.Engine {
	r := gin.Default()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "op-1")
		c.Set("sessionID", "sess-1")
		c.Next()
	})
	return r
}

func TestActionController(t *testing.T) {
	// Initialize logger
	logger.InitLogger("../logging")
	defer logger.Sync()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockFlowService := mock_service.NewMockFlowService(ctrl)
	actionController := controller.NewActionController(mockFlowService)
	router := setupRouter()
	api := router.Group("/")
	actionController.RegisterRoutes(api)

	t.Run("OpenFlow_Success", func(t *testing.T) {
		mockFlowService.EXPECT().
			Open(gomock.Any(), "op-1", gomock.Any()).
			Return(&flow.Flow{ID: "f-1", OperatorID: "op-1", State: flow.StateAwaitingReAuth}, nil)

		body := strings.NewReader(`{"kind":"LOCK","target_id":"user-42","reason":"chargeback investigation"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/actions", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("OpenFlow_Failure_InvalidRequest", func(t *testing.T) {
		mockFlowService.EXPECT().
			Open(gomock.Any(), "op-1", gomock.Any()).
			Return(nil, accounts_errors.ErrInvalidAction)

		body := strings.NewReader(`{"kind":"LOCK","target_id":"user-42","reason":"short"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/actions", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("OpenFlow_Failure_AlreadyOpen", func(t *testing.T) {
		mockFlowService.EXPECT().
			Open(gomock.Any(), "op-1", gomock.Any()).
			Return(nil, accounts_errors.ErrFlowOpen)

		body := strings.NewReader(`{"kind":"LOCK","target_id":"user-42","reason":"chargeback investigation"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/actions", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("GetFlow_Success", func(t *testing.T) {
		mockFlowService.EXPECT().
			Get(gomock.Any(), "f-1", "op-1").
			Return(&flow.Flow{ID: "f-1", OperatorID: "op-1", State: flow.StateAwaitingReAuth}, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/actions/f-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("GetFlow_Failure_NotFound", func(t *testing.T) {
		mockFlowService.EXPECT().
			Get(gomock.Any(), "f-9", "op-1").
			Return(nil, accounts_errors.ErrFlowNotFound)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/actions/f-9", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ConfirmFlow_Success", func(t *testing.T) {
		mockFlowService.EXPECT().
			Confirm(gomock.Any(), "f-1", "op-1", gomock.Any()).
			Return(&model.ActionResult{OK: true, Message: "account locked", SideEffect: "temp-secret"}, nil)

		body := strings.NewReader(`{"mode":"password","secret":"hunter22"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/actions/f-1/reauth", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var result model.ActionResult
		json.NewDecoder(w.Body).Decode(&result)
		assert.True(t, result.OK)
		assert.Equal(t, "temp-secret", result.SideEffect)
	})

	t.Run("ConfirmFlow_Failure_BadProof", func(t *testing.T) {
		mockFlowService.EXPECT().
			Confirm(gomock.Any(), "f-1", "op-1", gomock.Any()).
			Return(nil, accounts_errors.ErrReAuthFailed)

		body := strings.NewReader(`{"mode":"password","secret":"wrong"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/actions/f-1/reauth", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("ConfirmFlow_Failure_AlreadyExecuted", func(t *testing.T) {
		mockFlowService.EXPECT().
			Confirm(gomock.Any(), "f-1", "op-1", gomock.Any()).
			Return(nil, accounts_errors.ErrFlowState)

		body := strings.NewReader(`{"mode":"password","secret":"hunter22"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/actions/f-1/reauth", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("AckFlow_Success", func(t *testing.T) {
		mockFlowService.EXPECT().
			Ack(gomock.Any(), "f-1", "op-1").
			Return(nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/actions/f-1/ack", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("CancelFlow_Success", func(t *testing.T) {
		mockFlowService.EXPECT().
			Cancel(gomock.Any(), "f-1", "op-1").
			Return(nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/actions/f-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("CancelFlow_Failure_AfterExecution", func(t *testing.T) {
		mockFlowService.EXPECT().
			Cancel(gomock.Any(), "f-1", "op-1").
			Return(accounts_errors.ErrFlowNotCancelable)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/actions/f-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
