// Package script turns a topic and style into a short video script through a
// chat-completion upstream.
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"vostcard-gateway/internal/apierror"
	"vostcard-gateway/internal/config"
	"vostcard-gateway/internal/models"
	"vostcard-gateway/internal/upstream"
	"vostcard-gateway/internal/upstream/openai"
)

const (
	msgMissingFields    = "Missing topic or style"
	msgKeyNotConfigured = "OpenAI API key not configured"
	msgUpstreamFailed   = "OpenAI API request failed"
	msgGenerationFailed = "Script generation failed"
	msgNoContent        = "Upstream returned no script content"
)

// Completer is the chat-completion call the service depends on.
type Completer interface {
	HasAPIKey() bool
	Complete(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Service validates requests, renders the prompt and relays the upstream reply.
type Service struct {
	completer Completer
	prompt    *template.Template
	words     int
}

// New builds a service from configuration.
func New(cfg config.ScriptConfig, completer Completer) (*Service, error) {
	if completer == nil {
		return nil, errors.New("completer must not be nil")
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(cfg.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &Service{completer: completer, prompt: tmpl, words: cfg.TargetWords}, nil
}

// NewFromConfig wires a service to the configured OpenAI upstream.
func NewFromConfig(cfg config.ScriptConfig) (*Service, error) {
	client, err := openai.New(openai.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.SamplingTemperature(),
		MaxTokens:   cfg.MaxTokens,
	}, upstream.NewHTTPClient(time.Duration(cfg.TimeoutSeconds)*time.Second))
	if err != nil {
		return nil, fmt.Errorf("initialise openai client: %w", err)
	}
	return New(cfg, client)
}

// Generate returns the upstream chat-completion body verbatim.
func (s *Service) Generate(ctx context.Context, req models.ScriptRequest) (json.RawMessage, error) {
	topic := strings.TrimSpace(req.Topic)
	style := strings.TrimSpace(req.Style)
	if topic == "" || style == "" {
		return nil, apierror.Validation(msgMissingFields, "")
	}
	if !s.completer.HasAPIKey() {
		slog.Error("script generation requested without an OpenAI API key")
		return nil, apierror.Configuration(msgKeyNotConfigured)
	}

	prompt, err := s.Prompt(topic, style)
	if err != nil {
		return nil, apierror.Unhandled(msgGenerationFailed, err)
	}

	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			slog.Warn("openai returned an error", "status", statusErr.StatusCode, "detail", statusErr.Detail())
			return nil, apierror.Upstream(statusErr.StatusCode, msgUpstreamFailed, statusErr.Detail(), err)
		}
		slog.Error("script generation failed", "err", err)
		return nil, apierror.Unhandled(msgGenerationFailed, err)
	}
	return raw, nil
}

// GenerateText runs Generate and extracts the script text from the envelope.
func (s *Service) GenerateText(ctx context.Context, req models.ScriptRequest) (models.ScriptText, error) {
	raw, err := s.Generate(ctx, req)
	if err != nil {
		return models.ScriptText{}, err
	}
	content, err := openai.Content(raw)
	if err != nil {
		return models.ScriptText{}, apierror.Upstream(0, msgNoContent, "", err)
	}
	return models.ScriptText{Script: content}, nil
}

// Prompt renders the configured template for a topic and style.
func (s *Service) Prompt(topic, style string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Topic string
		Style string
		Words int
	}{Topic: topic, Style: style, Words: s.words}
	if err := s.prompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
