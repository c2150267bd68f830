// llm.go implements the chat completion client. Uses the OpenAI-compatible
// API format, which works with OpenAI, chutes.ai, GLM, and any compatible
// endpoint.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Completer is the completion contract the controller and the spontaneous
// messenger depend on. Implementations must not mutate messages.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// APIConfig holds completion endpoint configuration.
type APIConfig struct {
	// BaseURL is the API base, e.g. "https://llm.chutes.ai/v1".
	BaseURL string `yaml:"base_url"`

	// APIKey is the bearer token. Resolved via keyring/env at startup.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier sent with every request.
	Model string `yaml:"model"`

	// MaxTokens bounds the completion length.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature.
	Temperature float64 `yaml:"temperature"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultAPIConfig returns an APIConfig with sensible defaults.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		BaseURL:     "https://api.openai.com/v1",
		MaxTokens:   1024,
		Temperature: 0.7,
		Timeout:     60 * time.Second,
	}
}

// CompletionClient sends non-streaming chat completion requests. It is
// stateless apart from the HTTP client and makes exactly one attempt per
// call; the caller decides whether a failure reaches the user.
type CompletionClient struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewCompletionClient creates a completion client from config.
func NewCompletionClient(cfg APIConfig, logger *slog.Logger) *CompletionClient {
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &CompletionClient{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger.With("component", "llm"),
	}
}

// ---------- Wire Types (OpenAI-compatible) ----------

// chatRequest is the OpenAI-compatible chat completions request.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// chatResponse is the OpenAI-compatible chat completions response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ---------- Public Methods ----------

// Complete sends the message sequence as a single non-streaming chat
// completion request and returns the first choice's text. The input slice
// is never modified.
func (c *CompletionClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured. Run 'sputnik config set-key' or set SPUTNIK_API_KEY")
	}

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      false,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("sending chat completion",
		"model", c.model,
		"messages", len(messages),
		"endpoint", endpoint,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("API error",
			"status", resp.StatusCode,
			"body", truncate(string(respBody), 500),
		)
		return "", fmt.Errorf("API returned %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)

	c.logger.Info("chat completion done",
		"model", c.model,
		"duration_ms", duration.Milliseconds(),
		"prompt_tokens", chatResp.Usage.PromptTokens,
		"completion_tokens", chatResp.Usage.CompletionTokens,
		"finish_reason", chatResp.Choices[0].FinishReason,
	)

	return content, nil
}

// truncate shortens s to max bytes for log output.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Compile-time interface verification.
var _ Completer = (*CompletionClient)(nil)
