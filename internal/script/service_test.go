package script

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vostcard-gateway/internal/apierror"
	"vostcard-gateway/internal/config"
	"vostcard-gateway/internal/models"
	"vostcard-gateway/internal/upstream"
)

type fakeCompleter struct {
	hasKey  bool
	raw     json.RawMessage
	err     error
	prompts []string
}

func (f *fakeCompleter) HasAPIKey() bool { return f.hasKey }

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (json.RawMessage, error) {
	f.prompts = append(f.prompts, prompt)
	return f.raw, f.err
}

func scriptConfig() config.ScriptConfig {
	return config.ScriptConfig{
		BaseURL:        "https://api.openai.com/v1",
		Model:          "gpt-3.5-turbo",
		MaxTokens:      300,
		TargetWords:    80,
		PromptTemplate: config.DefaultPromptTemplate,
		TimeoutSeconds: 5,
	}
}

func newService(t *testing.T, f *fakeCompleter) *Service {
	t.Helper()
	svc, err := New(scriptConfig(), f)
	require.NoError(t, err)
	return svc
}

func TestGenerateRendersPromptAndRelaysBody(t *testing.T) {
	body := json.RawMessage(`{"choices":[{"message":{"content":"Coffee, but make it funny."}}]}`)
	f := &fakeCompleter{hasKey: true, raw: body}
	svc := newService(t, f)

	raw, err := svc.Generate(context.Background(), models.ScriptRequest{Topic: " coffee ", Style: "funny"})
	require.NoError(t, err)
	assert.Equal(t, string(body), string(raw))

	require.Len(t, f.prompts, 1)
	assert.Contains(t, f.prompts[0], "in a 'funny' style about: coffee.")
	assert.Contains(t, f.prompts[0], "around 80 words")
	assert.Contains(t, f.prompts[0], "no stage directions")
}

func TestGenerateValidatesBeforeKeyCheck(t *testing.T) {
	f := &fakeCompleter{hasKey: false}
	svc := newService(t, f)

	_, err := svc.Generate(context.Background(), models.ScriptRequest{Topic: "coffee"})
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Missing topic or style", apiErr.Message)

	_, err = svc.Generate(context.Background(), models.ScriptRequest{Topic: "coffee", Style: "funny"})
	require.ErrorAs(t, err, &apiErr)
	assert.ErrorIs(t, err, apierror.ErrConfiguration)
	assert.Equal(t, "OpenAI API key not configured", apiErr.Message)
	assert.Empty(t, f.prompts, "upstream must not be called")
}

func TestGenerateMapsUpstreamErrors(t *testing.T) {
	f := &fakeCompleter{hasKey: true, err: &upstream.StatusError{Service: "openai", StatusCode: 401, Message: "Incorrect API key provided"}}
	svc := newService(t, f)

	_, err := svc.Generate(context.Background(), models.ScriptRequest{Topic: "coffee", Style: "funny"})
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, apierror.Body{Error: "OpenAI API request failed", Details: "Incorrect API key provided"}, apiErr.Body())

	f.err = errors.New("dial tcp: connection refused")
	_, err = svc.Generate(context.Background(), models.ScriptRequest{Topic: "coffee", Style: "funny"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, apierror.Body{Error: "Script generation failed", Details: "dial tcp: connection refused"}, apiErr.Body())
}

func TestGenerateText(t *testing.T) {
	f := &fakeCompleter{hasKey: true, raw: json.RawMessage(`{"choices":[{"message":{"content":" Hello from the pier. "}}]}`)}
	svc := newService(t, f)

	text, err := svc.GenerateText(context.Background(), models.ScriptRequest{Topic: "pier", Style: "calm"})
	require.NoError(t, err)
	assert.Equal(t, "Hello from the pier.", text.Script)

	f.raw = json.RawMessage(`{"choices":[]}`)
	_, err = svc.GenerateText(context.Background(), models.ScriptRequest{Topic: "pier", Style: "calm"})
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Upstream returned no script content", apiErr.Message)
}

func TestCustomTemplateUsesConfiguredWords(t *testing.T) {
	cfg := scriptConfig()
	cfg.PromptTemplate = "{{.Words}} words, {{.Style}}: {{.Topic}}"
	cfg.TargetWords = 100
	svc, err := New(cfg, &fakeCompleter{})
	require.NoError(t, err)

	prompt, err := svc.Prompt("tacos", "noir")
	require.NoError(t, err)
	assert.Equal(t, "100 words, noir: tacos", prompt)
}

func TestNewRejectsBadTemplate(t *testing.T) {
	cfg := scriptConfig()
	cfg.PromptTemplate = "{{.Topic"
	_, err := New(cfg, &fakeCompleter{})
	assert.Error(t, err)

	_, err = New(scriptConfig(), nil)
	assert.Error(t, err)
}

// Identical requests are never memoized: each one reaches the upstream.
func TestGenerateDoesNotCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"take"}}]}`))
	}))
	defer server.Close()

	cfg := scriptConfig()
	cfg.APIKey = "sk-test"
	cfg.BaseURL = server.URL
	svc, err := NewFromConfig(cfg)
	require.NoError(t, err)

	req := models.ScriptRequest{Topic: "coffee", Style: "funny"}
	for i := 0; i < 2; i++ {
		_, err := svc.Generate(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}
