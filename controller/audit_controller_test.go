// api/controller/audit_controller_test.go
package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"

	"github.com/evzone/myaccounts/api/audit"
	"github.com/evzone/myaccounts/api/controller"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/test/mock"
)

func TestAuditController(t *testing.T) {
	// Initialize logger
	logger.InitLogger("../logging")
	defer logger.Sync()

	mockAudit := new(mock.MockAuditService)
	auditController := controller.NewAuditController(mockAudit)
	router := setupRouter()
	api := router.Group("/")
	auditController.RegisterRoutes(api)

	t.Run("QueryAuditLog_Success", func(t *testing.T) {
		entries := []audit.Entry{
			{Timestamp: time.Now(), ActorID: "op-1", Action: "LOCK", TargetType: "user", TargetID: "user-42", Success: true},
			{Timestamp: time.Now(), ActorID: "op-1", Action: "REVOKE_SESSION", TargetType: "session", TargetID: "sess-9", Success: true},
		}
		mockAudit.On("Query", testify_mock.Anything, testify_mock.Anything, testify_mock.Anything, "op-1", "").
			Return(entries, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/audit?actor_id=op-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var got []audit.Entry
		json.NewDecoder(w.Body).Decode(&got)
		assert.Len(t, got, 2)
		assert.Equal(t, "LOCK", got[0].Action)
		mockAudit.AssertExpectations(t)
	})

	t.Run("QueryAuditLog_Failure_BadTimestamp", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/audit?from=yesterday", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
