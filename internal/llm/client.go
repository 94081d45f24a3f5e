package llm

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

	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/metrics"
	"github.com/ejsmile/systech-aidd/internal/models"
)

// ErrEmptyResponse is returned when the model produces no content. An empty
// answer is a hard failure, never silently substituted with a default reply.
var ErrEmptyResponse = errors.New("llm returned empty response")

// Client is a chat completions client for OpenAI-compatible APIs
// (OpenRouter by default).
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      zerolog.Logger
}

// Options configures a Client.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// NewClient creates a chat completions client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:      opts.APIKey,
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		model:       opts.Model,
		temperature: opts.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "llm").Logger(),
	}
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation to the model and returns the assistant's
// reply. The messages slice is the manager's output contract: ordered
// role/content pairs, system message first.
func (c *Client) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	start := time.Now()
	answer, err := c.complete(ctx, messages)
	metrics.LLMRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMFailures.Inc()
		c.logger.Error().Err(err).Int("messages", len(messages)).Msg("completion failed")
		return "", err
	}
	return answer, nil
}

func (c *Client) complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed reading llm response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm non-success status=%d body=%s", resp.StatusCode, truncate(string(body), 400))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse llm response: %s", truncate(string(body), 400))
	}

	if len(parsed.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	answer := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
