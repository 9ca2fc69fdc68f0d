// Package apiclient talks to the cvforge server on behalf of the terminal
// client. Failures are mapped onto a small set of sentinel errors so callers
// can branch on outcome rather than on HTTP status codes.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"codeberg.org/cvforge/server/cvforge/resumes"
	"codeberg.org/cvforge/server/cvforge/users"
	"codeberg.org/cvforge/server/internal/quota"
)

// overrides the default http client (timeouts, transports in tests)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// creates a client for the server at endpoint, e.g. http://localhost:8080
func New(endpoint string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		tokens: tokens,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// fetches today's quota snapshot
func (c *Client) Credits(ctx context.Context) (quota.Snapshot, error) {
	var snap quota.Snapshot

	if err := c.do(ctx, http.MethodGet, "/api/v1/credits", nil, &snap); err != nil {
		return quota.Snapshot{}, err
	}

	return snap, nil
}

// asks the server to enhance form, spending one credit
func (c *Client) Generate(ctx context.Context, form resumes.Form, prompt string) (*GenerateResult, error) {
	var resp generateResponse

	err := c.do(ctx, http.MethodPost, "/api/v1/cv/generate", generateRequest{
		CVData: form,
		Prompt: prompt,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("%w: server reported failure", ErrUnavailable)
	}

	return &GenerateResult{
		Enhancement: resp.Result,
		Snapshot: quota.Snapshot{
			Remaining: resp.Remaining,
			Used:      resp.Used,
			Total:     resp.Total,
			ResetTime: quota.ResetTime,
		},
	}, nil
}

// fetches the signed-in user's profile
func (c *Client) Me(ctx context.Context) (*users.User, error) {
	var resp struct {
		User *users.User `json:"user"`
	}

	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &resp); err != nil {
		return nil, err
	}

	if resp.User == nil {
		return nil, fmt.Errorf("%w: empty user in response", ErrUnavailable)
	}

	return resp.User, nil
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}

	return c.tokens.Token()
}

// sends body as JSON and decodes a 200 reply into out
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token := c.token()
	if token == "" {
		return ErrNotAuthenticated
	}

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal request: %w", ErrMalformed, err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", ErrMalformed, err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %w", ErrUnavailable, err)
	}

	return nil
}

// maps a non-200 reply onto the client error taxonomy
func statusError(status int, body []byte) error {
	var errResp errorResponse
	_ = json.Unmarshal(body, &errResp) //nolint:errcheck // non-JSON bodies fall through to the status

	switch {
	case status == http.StatusUnauthorized:
		return ErrNotAuthenticated

	case status == http.StatusForbidden && errResp.Error == "quota_exhausted":
		return &QuotaExhaustedError{
			Message: errResp.Message,
			Used:    errResp.Used,
			Total:   errResp.Total,
		}

	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrMalformed, describe(errResp, status))

	default:
		return fmt.Errorf("%w: %s", ErrUnavailable, describe(errResp, status))
	}
}

func describe(errResp errorResponse, status int) string {
	if errResp.Error == "" {
		return fmt.Sprintf("request failed with status %d", status)
	}

	if errResp.Message == "" {
		return errResp.Error
	}

	return errResp.Error + ": " + errResp.Message
}

// true for failures worth retrying later
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
