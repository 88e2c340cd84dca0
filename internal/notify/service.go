// Package notify formats and sends the transactional emails: advertiser
// application notices and bug reports.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"vostcard-gateway/internal/apierror"
	"vostcard-gateway/internal/config"
	"vostcard-gateway/internal/mailer"
	"vostcard-gateway/internal/models"
)

const (
	logoPath = "/vostcard-logo.png"

	msgNotConfigured  = "Email service not configured"
	msgSendFailed     = "Failed to send email"
	msgAdvertiserSent = "Advertiser notification sent"
	msgBugReportSent  = "Bug report sent"
)

// Service renders notification emails and hands them to a mailer.
type Service struct {
	sender              mailer.Sender
	advertiserRecipient string
	bugRecipients       []string
	logoURL             string
	now                 func() time.Time
}

// New builds a service. Without explicit recipients, notices go to the
// sending mailbox itself.
func New(cfg config.EmailConfig, sender mailer.Sender) (*Service, error) {
	if sender == nil {
		return nil, errors.New("sender must not be nil")
	}

	advertiser := strings.TrimSpace(cfg.AdvertiserRecipient)
	if advertiser == "" {
		advertiser = cfg.Sender()
	}

	var bugRecipients []string
	for _, r := range cfg.BugReportRecipients {
		if r = strings.TrimSpace(r); r != "" {
			bugRecipients = append(bugRecipients, r)
		}
	}
	if len(bugRecipients) == 0 && cfg.Sender() != "" {
		bugRecipients = []string{cfg.Sender()}
	}

	var logoURL string
	if site := strings.TrimRight(strings.TrimSpace(cfg.SiteURL), "/"); site != "" {
		logoURL = site + logoPath
	}

	return &Service{
		sender:              sender,
		advertiserRecipient: advertiser,
		bugRecipients:       bugRecipients,
		logoURL:             logoURL,
		now:                 time.Now,
	}, nil
}

// NewFromConfig wires a service to the configured SMTP relay.
func NewFromConfig(cfg config.EmailConfig) (*Service, error) {
	return New(cfg, mailer.NewSMTP(cfg))
}

// NotifyAdvertiser emails the operations inbox about a new advertiser application.
func (s *Service) NotifyAdvertiser(ctx context.Context, app models.AdvertiserApplication) (models.Confirmation, error) {
	if missing := app.MissingFields(); len(missing) > 0 {
		return models.Confirmation{}, apierror.Validation("Missing required fields", strings.Join(missing, ", "))
	}
	if s.advertiserRecipient == "" {
		return models.Confirmation{}, apierror.Configuration(msgNotConfigured)
	}

	timestamp := strings.TrimSpace(app.Timestamp)
	if timestamp == "" {
		timestamp = s.now().UTC().Format(time.RFC3339)
	}

	html, err := render(advertiserTemplate, map[string]any{
		"LogoURL":       s.logoURL,
		"FirstName":     strings.TrimSpace(app.FirstName),
		"LastName":      strings.TrimSpace(app.LastName),
		"BusinessName":  strings.TrimSpace(app.BusinessName),
		"Email":         strings.TrimSpace(app.Email),
		"ApplicationID": strings.TrimSpace(app.ApplicationID),
		"Timestamp":     timestamp,
	})
	if err != nil {
		return models.Confirmation{}, apierror.Unhandled(msgSendFailed, err)
	}

	msg := mailer.Message{
		To:      []string{s.advertiserRecipient},
		ReplyTo: strings.TrimSpace(app.Email),
		Subject: fmt.Sprintf("New Advertiser Application: %s", strings.TrimSpace(app.BusinessName)),
		HTML:    html,
	}
	if err := s.send(ctx, msg); err != nil {
		return models.Confirmation{}, err
	}

	slog.Info("advertiser notification sent", "application_id", app.ApplicationID, "recipient", s.advertiserRecipient)
	return models.Confirmation{Message: msgAdvertiserSent, Recipient: s.advertiserRecipient}, nil
}

// ReportBug emails a bug report. The recipient, when given, must be one of
// the configured bug-report recipients.
func (s *Service) ReportBug(ctx context.Context, report models.BugReport) (models.Confirmation, error) {
	if missing := report.MissingFields(); len(missing) > 0 {
		return models.Confirmation{}, apierror.Validation("Missing required fields", strings.Join(missing, ", "))
	}
	if len(s.bugRecipients) == 0 {
		return models.Confirmation{}, apierror.Configuration(msgNotConfigured)
	}

	recipient, err := s.bugRecipient(report.Recipient)
	if err != nil {
		return models.Confirmation{}, err
	}

	html, err := render(bugReportTemplate, map[string]any{
		"LogoURL":   s.logoURL,
		"Subject":   strings.TrimSpace(report.Subject),
		"Body":      formatBody(report.Body),
		"Timestamp": s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return models.Confirmation{}, apierror.Unhandled(msgSendFailed, err)
	}

	msg := mailer.Message{
		To:      []string{recipient},
		Subject: "[Bug Report] " + strings.TrimSpace(report.Subject),
		HTML:    html,
	}
	if err := s.send(ctx, msg); err != nil {
		return models.Confirmation{}, err
	}

	slog.Info("bug report sent", "recipient", recipient)
	return models.Confirmation{Message: msgBugReportSent}, nil
}

func (s *Service) bugRecipient(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return s.bugRecipients[0], nil
	}
	for _, r := range s.bugRecipients {
		if strings.EqualFold(r, requested) {
			return r, nil
		}
	}
	return "", apierror.Validation("Recipient not allowed", requested)
}

func (s *Service) send(ctx context.Context, msg mailer.Message) error {
	err := s.sender.Send(ctx, msg)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mailer.ErrNotConfigured):
		slog.Error("email requested without SMTP credentials")
		return apierror.Configuration(msgNotConfigured)
	default:
		slog.Error("email send failed", "subject", msg.Subject, "err", err)
		return apierror.Unhandled(msgSendFailed, err)
	}
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// formatBody escapes user text and keeps its line breaks.
func formatBody(body string) template.HTML {
	escaped := template.HTMLEscapeString(strings.TrimSpace(body))
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}
