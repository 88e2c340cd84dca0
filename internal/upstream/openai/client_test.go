package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vostcard-gateway/internal/upstream"
)

const okBody = `{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Grab a mug."},"finish_reason":"stop"}]}`

func newClient(t *testing.T, url, key string) *Client {
	t.Helper()
	c, err := New(Config{
		APIKey:      key,
		BaseURL:     url + "/v1/",
		Model:       "gpt-3.5-turbo",
		Temperature: 0.7,
		MaxTokens:   300,
	}, upstream.NewHTTPClient(5*time.Second))
	require.NoError(t, err)
	return c
}

func TestCompleteSendsPayloadAndReturnsBodyVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode upstream request: %v", err)
		}
		assert.Equal(t, "gpt-3.5-turbo", payload["model"])
		assert.Equal(t, 0.7, payload["temperature"])
		assert.Equal(t, float64(300), payload["max_tokens"])
		msgs, _ := payload["messages"].([]any)
		if assert.Len(t, msgs, 1) {
			msg, _ := msgs[0].(map[string]any)
			assert.Equal(t, "user", msg["role"])
			assert.Equal(t, "write about coffee", msg["content"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	client := newClient(t, server.URL, "sk-test")
	assert.True(t, client.HasAPIKey())

	raw, err := client.Complete(context.Background(), "write about coffee")
	require.NoError(t, err)
	assert.Equal(t, okBody, string(raw))

	content, err := Content(raw)
	require.NoError(t, err)
	assert.Equal(t, "Grab a mug.", content)
}

func TestCompleteReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer server.Close()

	_, err := newClient(t, server.URL, "sk-test").Complete(context.Background(), "hi")

	var statusErr *upstream.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "Rate limit reached", statusErr.Detail())
}

func TestCompleteStatusErrorWithPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway upstream", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newClient(t, server.URL, "sk-test").Complete(context.Background(), "hi")

	var statusErr *upstream.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "bad gateway upstream", statusErr.Detail())
}

func TestCompleteRejectsNonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer server.Close()

	_, err := newClient(t, server.URL, "sk-test").Complete(context.Background(), "hi")
	require.Error(t, err)
	var statusErr *upstream.StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestCompleteHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newClient(t, server.URL, "sk-test").Complete(ctx, "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestContentWithoutChoices(t *testing.T) {
	_, err := Content(json.RawMessage(`{"choices":[]}`))
	assert.ErrorIs(t, err, ErrNoContent)

	_, err = Content(json.RawMessage(`{"choices":[{"message":{"content":"  "}}]}`))
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(Config{BaseURL: "https://api.openai.com/v1"}, nil)
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "  "}, upstream.NewHTTPClient(time.Second))
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "https://api.openai.com/v1", APIKey: "  "}, upstream.NewHTTPClient(time.Second))
	require.NoError(t, err)
	assert.False(t, c.HasAPIKey())
}
