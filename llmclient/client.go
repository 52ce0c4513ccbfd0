package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/NicoEspin/chatbot-portfolio/config"
	apperrors "github.com/NicoEspin/chatbot-portfolio/errors"
	"github.com/NicoEspin/chatbot-portfolio/web/types"
	"go.uber.org/zap"
)

type chatRequest struct {
	Model               string              `json:"model"`
	Messages            []types.ChatMessage `json:"messages"`
	Temperature         float64             `json:"temperature"`
	MaxCompletionTokens int                 `json:"max_completion_tokens"`
	Stream              bool                `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message types.ChatMessage `json:"message"`
	} `json:"choices"`
}

// StreamChunk mirrors one streamed upstream data payload.
type StreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Client talks to the Groq chat-completions API. Each request is a single
// attempt: a rejected completion surfaces to the caller instead of being
// retried.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Client {
	// No client-level timeout: streamed responses legitimately outlive any
	// fixed duration. Cancellation rides the request context instead.
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (c *Client) newRequest(ctx context.Context, body chatRequest) (*http.Request, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GroqChatURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.GroqAPIKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Chat performs a non-streaming chat completion call.
func (c *Client) Chat(ctx context.Context, messages []types.ChatMessage) (string, error) {
	req, err := c.newRequest(ctx, chatRequest{
		Model:               c.cfg.GroqModel,
		Messages:            messages,
		Temperature:         c.cfg.Temperature,
		MaxCompletionTokens: c.cfg.MaxCompletionTokens,
		Stream:              false,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.WrapError(err, "send chat request")
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.WrapErrorf(apperrors.ErrUpstream, "status %s: %s", resp.Status, Truncate(string(bodyBytes), 500))
	}

	var cr chatResponse
	if err := json.Unmarshal(bodyBytes, &cr); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("no response choices from completions API")
	}
	return cr.Choices[0].Message.Content, nil
}

// OpenStream opens a streaming chat completion call and hands the raw
// response to the caller, which owns incremental reads and must close the
// body. Non-2xx responses are returned as-is so the caller can surface the
// status and error body.
func (c *Client) OpenStream(ctx context.Context, messages []types.ChatMessage) (*http.Response, error) {
	req, err := c.newRequest(ctx, chatRequest{
		Model:               c.cfg.GroqModel,
		Messages:            messages,
		Temperature:         c.cfg.Temperature,
		MaxCompletionTokens: c.cfg.MaxCompletionTokens,
		Stream:              true,
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.WrapError(err, "send chat stream request")
	}
	return resp, nil
}

// Truncate caps s at n bytes for log/error payloads, backing off the cut
// point so a multi-byte rune is never split.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
