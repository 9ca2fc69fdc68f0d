package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"codeberg.org/cvforge/server/cvforge/resumes"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"
	defaultMaxTokens     = 2048
	defaultTemperature   = 0.4
)

// shared HTTP client for Anthropic API calls
var anthropicHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// rate limiter for Anthropic API calls (50 requests/second with burst capacity of 10)
var anthropicRateLimiter = rate.NewLimiter(50, 10)

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID      string    `json:"id"`
	Content []content `json:"content"`
	Model   string    `json:"model"`
}

type content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32

	// overrides the messages endpoint (tests)
	BaseURL string
}

// enhances CVs through the Anthropic messages API
type AnthropicEnhancer struct {
	config     AnthropicConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewAnthropicEnhancer(config AnthropicConfig) *AnthropicEnhancer {
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
	}

	if config.Temperature == 0 {
		config.Temperature = defaultTemperature
	}

	if config.BaseURL == "" {
		config.BaseURL = anthropicMessagesURL
	}

	return &AnthropicEnhancer{
		config:     config,
		httpClient: anthropicHTTPClient,
		limiter:    anthropicRateLimiter,
	}
}

func (e *AnthropicEnhancer) Model() string {
	return e.config.Model
}

func (e *AnthropicEnhancer) Enhance(ctx context.Context, form resumes.Form, prompt string) (resumes.Enhancement, error) {
	formJSON, err := json.Marshal(form)
	if err != nil {
		return resumes.Enhancement{}, fmt.Errorf("failed to marshal form: %w", err)
	}

	userContent := fmt.Sprintf("CV form:\n%s", formJSON)
	if prompt = strings.TrimSpace(prompt); prompt != "" {
		userContent += fmt.Sprintf("\n\nAdditional instructions from the user:\n%s", prompt)
	}

	reqBody := messagesRequest{
		Model:       e.config.Model,
		MaxTokens:   e.config.MaxTokens,
		System:      enhancementSystemPrompt,
		Temperature: e.config.Temperature,
		Messages:    []message{{Role: "user", Content: userContent}},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return resumes.Enhancement{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return resumes.Enhancement{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	// rate limiting
	if err := e.limiter.Wait(ctx); err != nil {
		return resumes.Enhancement{}, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return resumes.Enhancement{}, fmt.Errorf("failed to send request: %w", err)
	}

	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return resumes.Enhancement{}, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return resumes.Enhancement{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResp.Content) == 0 {
		return resumes.Enhancement{}, ErrEmptyResponse
	}

	return parseEnhancement(apiResp.Content[0].Text)
}

// the model sometimes wraps JSON in a markdown fence
func parseEnhancement(text string) (resumes.Enhancement, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if text == "" {
		return resumes.Enhancement{}, ErrEmptyResponse
	}

	var enh resumes.Enhancement
	if err := json.Unmarshal([]byte(text), &enh); err != nil {
		return resumes.Enhancement{}, fmt.Errorf("failed to parse enhancement JSON: %w", err)
	}

	return enh, nil
}

const enhancementSystemPrompt = `You are an expert CV writer.

You receive a CV form as JSON. Improve it for clarity and impact, tailoring it to "job_offer" when present.

Return a JSON object containing ONLY the fields you improved:
{
  "objective": "rewritten professional objective",
  "experience": [{"index": 0, "description": "rewritten description for experience[0]"}],
  "skills": "comma separated skills"
}

Rules:
- omit any field you did not change
- "index" refers to the position in the input "experience" array
- never invent employers, degrees or dates
- write in the same language as the input

Return ONLY valid JSON, no markdown or explanations.`
