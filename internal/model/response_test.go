package model

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name    string
		code    int
		message []string
		expect  string
	}{
		{"uses error text", http.StatusForbidden, nil, "db down"},
		{"hides internal error", http.StatusInternalServerError, []string{"internal server error"}, "internal server error"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/sales-orders/1/approval-status?x=1", nil)
			c.Set("user_id", int64(7))

			HandleError(c, tc.code, errors.New("db down"), tc.message...)

			assert.Equal(t, tc.code, w.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tc.code, resp.Code)
			assert.Equal(t, tc.expect, resp.Message)
		})
	}
}
