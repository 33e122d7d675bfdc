// Package generate sends prompts to an OpenAI-compatible chat-completions
// backend and returns candidate scripts. The backend is treated as an opaque
// text-completion service; the returned script text is used verbatim.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	completionsPath = "/v1/chat/completions"

	// MinTemperature and MaxTemperature bound the sampling temperature
	// accepted at the tool boundary.
	MinTemperature = 0.05
	MaxTemperature = 1.0

	maxErrorBodyBytes = 2048
)

// Request carries the parameters of one generation round trip.
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Candidate is one generated script plus the parameters used to produce it.
type Candidate struct {
	Script      string
	Temperature float64
	MaxTokens   int
}

// Doer abstracts the HTTP client for testing.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the default client when set.
	HTTPClient Doer
}

// Client performs single round trips against the backend. It never retries;
// the interaction controller decides whether to regenerate.
type Client struct {
	httpClient Doer
	baseURL    string
	apiKey     string
	model      string
}

// NewClient constructs a Client for an OpenAI-compatible backend.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      strings.TrimSpace(cfg.Model),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate performs one completion round trip and returns the candidate
// script text verbatim, trimmed of surrounding whitespace only. Transport,
// auth, decode, and empty-response failures are reported as typed errors.
func (c *Client) Generate(ctx context.Context, req Request) (Candidate, error) {
	if c == nil {
		return Candidate{}, errors.New("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Candidate{}, errors.New("prompt is required")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Candidate{}, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return Candidate{}, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Candidate{}, newError(KindTransport, "", err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return Candidate{}, mapStatusError(httpResp)
	}

	var decoded chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return Candidate{}, newError(KindMalformed, "decode backend response", err)
	}

	if len(decoded.Choices) == 0 {
		return Candidate{}, newError(KindEmpty, "backend returned no choices", nil)
	}
	script := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if script == "" {
		return Candidate{}, newError(KindEmpty, "backend returned an empty completion", nil)
	}

	return Candidate{
		Script:      script,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, nil
}

func mapStatusError(resp *http.Response) *Error {
	detail := fmt.Sprintf("backend returned %s", resp.Status)
	if snippet := readBodySnippet(resp.Body); snippet != "" {
		detail = fmt.Sprintf("%s: %s", detail, snippet)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return newError(KindAuth, detail, nil)
	}
	return newError(KindBackend, detail, nil)
}

func readBodySnippet(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// ValidateTemperature enforces the accepted sampling range at the tool
// boundary.
func ValidateTemperature(temperature float64) error {
	if temperature < MinTemperature || temperature > MaxTemperature {
		return fmt.Errorf("temperature must be within [%.2f, %.2f], got %g", MinTemperature, MaxTemperature, temperature)
	}
	return nil
}

// ValidateMaxTokens enforces a positive completion budget.
func ValidateMaxTokens(maxTokens int) error {
	if maxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}
	return nil
}
