package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/cvforge/server/cvforge/resumes"
	"codeberg.org/cvforge/server/internal/auth"
	"codeberg.org/cvforge/server/internal/counter"
	apierrors "codeberg.org/cvforge/server/internal/errors"
	"codeberg.org/cvforge/server/internal/llm"
	"codeberg.org/cvforge/server/internal/quota"
)

const testUserID = "3f0c2a52-8a8e-4f55-9a57-52f1c43b7e10"

type enhancerFunc func(ctx context.Context, form resumes.Form, prompt string) (resumes.Enhancement, error)

func (f enhancerFunc) Enhance(ctx context.Context, form resumes.Form, prompt string) (resumes.Enhancement, error) {
	return f(ctx, form, prompt)
}

type fixture struct {
	store  *counter.MemoryStore
	svc    *quota.Service
	router *gin.Engine
	token  string
}

func newFixture(t *testing.T, enhancer llm.Enhancer) *fixture {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	gin.SetMode(gin.TestMode)

	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))

	store := counter.NewMemoryStore()
	svc := quota.NewService(store, quota.WithClock(clock))

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), svc, enhancer, func(c *gin.Context) { c.Next() })

	token, err := auth.GenerateJWT(testUserID, "ada@example.com")
	require.NoError(t, err)

	return &fixture{store: store, svc: svc, router: router, token: token}
}

func (f *fixture) post(t *testing.T, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cv/generate", &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	return w
}

func (f *fixture) used(t *testing.T) int {
	t.Helper()

	snap, err := f.svc.GetSnapshot(context.Background(), testUserID)
	require.NoError(t, err)

	return snap.Used
}

func validRequest() Request {
	return Request{
		CVData: &resumes.Form{
			FullName: "Ada Lovelace",
			Experience: []resumes.Experience{
				{Company: "Analytical Engines Ltd", Position: "Programmer"},
			},
		},
	}
}

func TestHandler_Success(t *testing.T) {
	f := newFixture(t, llm.NewStubEnhancer(0))

	w := f.post(t, validRequest(), f.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Remaining)
	assert.Equal(t, 1, resp.Used)
	assert.Equal(t, 3, resp.Total)
	require.NotNil(t, resp.Result.Objective)
	assert.NotEmpty(t, *resp.Result.Objective)
	require.Len(t, resp.Result.Experience, 1)
	assert.Equal(t, 0, resp.Result.Experience[0].Index)

	assert.Equal(t, 1, f.used(t))
}

func TestHandler_RequiresAuth(t *testing.T) {
	f := newFixture(t, llm.NewStubEnhancer(0))

	w := f.post(t, validRequest(), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, f.used(t))
}

func TestHandler_InvalidPayloadDoesNotConsume(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "malformed json", body: `{"cv_data":`},
		{name: "missing cv data", body: `{"prompt":"make it shine"}`},
		{name: "bad email", body: Request{CVData: &resumes.Form{Email: "not-an-email"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, llm.NewStubEnhancer(0))

			w := f.post(t, tt.body, f.token)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, 0, f.used(t))
		})
	}
}

func TestHandler_QuotaExhausted(t *testing.T) {
	f := newFixture(t, llm.NewStubEnhancer(0))

	for range quota.DailyLimit {
		w := f.post(t, validRequest(), f.token)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := f.post(t, validRequest(), f.token)
	require.Equal(t, http.StatusForbidden, w.Code)

	var resp apierrors.QuotaExhaustedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, apierrors.CodeQuotaExhausted, resp.Error)
	assert.Contains(t, resp.Message, "00:00 UTC")
	assert.Equal(t, 0, resp.Remaining)
	assert.Equal(t, 3, resp.Used)
	assert.Equal(t, 3, resp.Total)

	assert.Equal(t, 3, f.used(t))
}

func TestHandler_EnhancerFailureRefunds(t *testing.T) {
	calls := 0
	f := newFixture(t, enhancerFunc(func(context.Context, resumes.Form, string) (resumes.Enhancement, error) {
		calls++
		return resumes.Enhancement{}, errors.New("upstream unavailable")
	}))

	w := f.post(t, validRequest(), f.token)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, f.used(t))
}

func TestHandler_CancelledRequestKeepsCredit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	f := newFixture(t, enhancerFunc(func(ctx context.Context, _ resumes.Form, _ string) (resumes.Enhancement, error) {
		cancel()
		return resumes.Enhancement{}, ctx.Err()
	}))

	body, err := json.Marshal(validRequest())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cv/generate", bytes.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)

	f.router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1, f.used(t))
}
