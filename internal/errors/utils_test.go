package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError_Production(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	testCases := []struct {
		name     string
		err      error
		category string
		message  string
	}{
		{"pg error", fmt.Errorf("increment: %w", &pgconn.PgError{Code: "40001"}), CategoryDatabase, "database operation failed"},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), CategoryTimeout, "request timed out"},
		{"canceled", context.Canceled, CategoryTimeout, "request canceled"},
		{"counter store", fmt.Errorf("counter store unavailable"), CategoryDatabase, "database operation failed"},
		{"dial", fmt.Errorf("dial tcp 127.0.0.1:5432"), CategoryNetwork, "connection error occurred"},
		{"unknown", fmt.Errorf("boom"), CategoryUnknown, "an error occurred"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info := classifyError(tc.err)
			assert.Equal(t, tc.category, info.category)
			assert.Equal(t, tc.message, info.sanitized)
		})
	}
}

func TestClassifyError_DevelopmentKeepsMessage(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	err := fmt.Errorf("dial tcp 127.0.0.1:5432: connection refused")
	assert.Equal(t, err.Error(), sanitizeError(err))
	assert.Equal(t, "", sanitizeError(nil))
}

func TestInternalError_Response(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("ENVIRONMENT", "production")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)

	InternalError(c, "failed to read credits", fmt.Errorf("counter store: %w", &pgconn.PgError{}))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, CodeServerError, body.Error)
	assert.Equal(t, "failed to read credits", body.Message)
	assert.Equal(t, "database operation failed", body.Details)
}

func TestUnauthorized_DefaultMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Unauthorized(c, "")

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, c.IsAborted())
	assert.Contains(t, w.Body.String(), "authentication required")
}

func TestQuotaExhausted_Body(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	QuotaExhausted(c, "", 3, 3)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, c.IsAborted())

	var body QuotaExhaustedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, QuotaExhaustedResponse{
		Error:     CodeQuotaExhausted,
		Message:   "daily quota exhausted",
		Remaining: 0,
		Used:      3,
		Total:     3,
	}, body)
}
