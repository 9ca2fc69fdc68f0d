package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/cvforge/server/internal/auth"
)

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/health", h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return w, resp
}

func TestHandler_Healthy(t *testing.T) {
	w, resp := serve(t, Handler(Check{Name: "store", Probe: func(context.Context) error { return nil }}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "cvforge", resp.Service)
	assert.Equal(t, map[string]string{"store": "ok"}, resp.Checks)
}

func TestHandler_Degraded(t *testing.T) {
	w, resp := serve(t, Handler(
		Check{Name: "store", Probe: func(context.Context) error { return nil }},
		Check{Name: "redis", Probe: func(context.Context) error { return errors.New("down") }},
	))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.Checks["redis"])
	assert.Equal(t, "ok", resp.Checks["store"])
}

func TestPingHandler(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing")
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/ping", auth.OptionalAuthMiddleware(), PingHandler)

	token, err := auth.GenerateJWT("user-123", "ada@example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		body   string
	}{
		{"anonymous", "", `{"message":"pong"}`},
		{"signed in", "Bearer " + token, `{"message":"pong","user_id":"user-123","email":"ada@example.com"}`},
		{"bad token stays anonymous", "Bearer nope", `{"message":"pong"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}
