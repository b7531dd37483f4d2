package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	approvalHandler "github.com/fisker/salesflow/internal/api/handler/approval"
	"github.com/fisker/salesflow/internal/approval"
	"github.com/fisker/salesflow/internal/approval/memory"
	"github.com/fisker/salesflow/internal/model"
	"github.com/fisker/salesflow/internal/service/auth"
	"github.com/fisker/salesflow/pkg/config"
)

func TestSetup(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := memory.New()
	store.ConfigureForm("Sales RFQ", model.Approver{UserID: 3, Name: "carol"})
	store.PutDocument(model.DocumentKindSalesRFQ, 11, model.DocumentStatusPending)

	registry := approval.NewRegistry(nil)
	tokens := auth.NewTokenService("router-secret", time.Hour)
	h := approvalHandler.NewApprovalHandler(approval.NewCoordinator(store, registry), 10)
	r := Setup(h, registry, tokens, &config.ServerConfig{Mode: "release", RequestTimeout: 5})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sales-rfqs/approve", strings.NewReader(`{"SalesRFQID": 11}`))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := tokens.GenerateToken(&model.User{UserID: 3, Username: "carol"})
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/sales-rfqs/approve", strings.NewReader(`{"SalesRFQID": 11}`))
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isFullyApproved":true`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "approval_attempts_total")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
