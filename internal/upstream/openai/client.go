package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"vostcard-gateway/internal/upstream"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "vostcard-gateway/1.0"
	serviceName     = "openai"
	maxResponseBody = 4 << 20
)

// ErrNoContent indicates a successful reply whose first choice is empty.
var ErrNoContent = errors.New("chat completion returned no content")

// Config captures the upstream endpoint and sampling parameters.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Client calls an OpenAI-compatible chat/completions endpoint.
type Client struct {
	cfg     Config
	client  *http.Client
	chatURL string
}

// New creates a chat-completion client.
func New(cfg Config, client *http.Client) (*Client, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}
	cfg.BaseURL = baseURL
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	return &Client{
		cfg:     cfg,
		client:  client,
		chatURL: baseURL + "/chat/completions",
	}, nil
}

// HasAPIKey reports whether a secret is configured.
func (c *Client) HasAPIKey() bool {
	return c.cfg.APIKey != ""
}

// Complete sends prompt as a single user message and returns the upstream
// JSON body unchanged. Non-2xx replies yield an *upstream.StatusError.
func (c *Client) Complete(ctx context.Context, prompt string) (json.RawMessage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt must not be empty")
	}

	payload := chatPayload{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	httpReq, err := c.newRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai chat request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, parseAPIError(httpResp)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}
	if !json.Valid(body) {
		return nil, errors.New("openai response is not valid JSON")
	}
	return body, nil
}

// Content extracts choices[0].message.content from a chat-completion body.
func Content(raw json.RawMessage) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoContent
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrNoContent
	}
	return content, nil
}

func (c *Client) newRequest(ctx context.Context, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	return req, nil
}

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func parseAPIError(resp *http.Response) error {
	statusErr := &upstream.StatusError{Service: serviceName, StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, upstream.MaxErrorBody))
	if err != nil {
		statusErr.Message = fmt.Sprintf("failed to read error body: %v", err)
		return statusErr
	}
	statusErr.Body = string(body)

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		statusErr.Message = apiErr.Error.Message
	}
	return statusErr
}
