package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"codeberg.org/cvforge/server/cvforge/resumes"
	"codeberg.org/cvforge/server/internal/quota"
)

const (
	requestTimeout = 60 * time.Second

	// websocket keepalive, mirrors the server's pong window
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second

	typeCreditsUpdated = "credits_updated"
	typeServerShutdown = "server_shutdown"
)

var (
	// no credential, or the server rejected it (401)
	ErrNotAuthenticated = errors.New("not authenticated")

	// the server rejected the payload before touching quota (400)
	ErrMalformed = errors.New("malformed request")

	// network failure, timeout, 429, 5xx or an unreadable reply
	ErrUnavailable = errors.New("service unavailable")

	ErrQuotaExhausted = errors.New("quota exhausted")
)

// returned by Generate on 403 quota_exhausted. matches ErrQuotaExhausted.
type QuotaExhaustedError struct {
	Message string
	Used    int
	Total   int
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("quota exhausted: %d of %d used", e.Used, e.Total)
}

func (e *QuotaExhaustedError) Is(target error) bool {
	return target == ErrQuotaExhausted
}

// supplies the current bearer token; empty means signed out
type TokenSource interface {
	Token() string
}

// typed client for the cvforge REST and websocket API
type Client struct {
	endpoint   string
	httpClient *http.Client
	tokens     TokenSource
}

type Option func(*Client)

// the outcome of a successful generation
type GenerateResult struct {
	Enhancement resumes.Enhancement
	Snapshot    quota.Snapshot
}

type generateRequest struct {
	CVData resumes.Form `json:"cv_data"`
	Prompt string       `json:"prompt,omitempty"`
}

type generateResponse struct {
	Success   bool                `json:"success"`
	Result    resumes.Enhancement `json:"result"`
	Remaining int                 `json:"remaining"`
	Used      int                 `json:"used"`
	Total     int                 `json:"total"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Used    int    `json:"used"`
	Total   int    `json:"total"`
}

type wsMessage struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}
