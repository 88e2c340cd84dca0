package notify

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vostcard-gateway/internal/apierror"
	"vostcard-gateway/internal/config"
	"vostcard-gateway/internal/mailer"
	"vostcard-gateway/internal/models"
)

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func emailConfig() config.EmailConfig {
	return config.EmailConfig{
		Host:                "smtp.example.com",
		Port:                587,
		Username:            "bot@vostcard.com",
		Password:            "secret",
		SiteURL:             "https://vostcard.app/",
		AdvertiserRecipient: "partners@vostcard.com",
		BugReportRecipients: []string{"bugs@vostcard.com", "dev@vostcard.com"},
	}
}

func newService(t *testing.T, cfg config.EmailConfig, sender mailer.Sender) *Service {
	t.Helper()
	svc, err := New(cfg, sender)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return svc
}

var application = models.AdvertiserApplication{
	FirstName:     "Ada",
	LastName:      "Lovelace",
	BusinessName:  "Engine Café & Co",
	Email:         "ada@example.com",
	ApplicationID: "app-123",
}

func TestNotifyAdvertiser(t *testing.T) {
	sender := &fakeSender{}
	svc := newService(t, emailConfig(), sender)

	conf, err := svc.NotifyAdvertiser(context.Background(), application)
	require.NoError(t, err)
	assert.Equal(t, models.Confirmation{Message: "Advertiser notification sent", Recipient: "partners@vostcard.com"}, conf)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"partners@vostcard.com"}, msg.To)
	assert.Equal(t, "ada@example.com", msg.ReplyTo)
	assert.Equal(t, "New Advertiser Application: Engine Café & Co", msg.Subject)
	assert.Contains(t, msg.HTML, "Engine Café &amp; Co")
	assert.Contains(t, msg.HTML, "app-123")
	assert.Contains(t, msg.HTML, "2026-10-19T12:00:00Z")
	assert.Contains(t, msg.HTML, `src="https://vostcard.app/vostcard-logo.png"`)
}

func TestNotifyAdvertiserKeepsClientTimestamp(t *testing.T) {
	sender := &fakeSender{}
	app := application
	app.Timestamp = "2026-10-01T08:30:00Z"

	_, err := newService(t, emailConfig(), sender).NotifyAdvertiser(context.Background(), app)
	require.NoError(t, err)
	assert.Contains(t, sender.sent[0].HTML, "2026-10-01T08:30:00Z")
}

func TestNotifyAdvertiserMissingFields(t *testing.T) {
	sender := &fakeSender{}
	app := application
	app.ApplicationID = ""
	app.Email = " "

	_, err := newService(t, emailConfig(), sender).NotifyAdvertiser(context.Background(), app)
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "email, applicationId", apiErr.Details)
	assert.Empty(t, sender.sent)
}

func TestReportBugEscapesBody(t *testing.T) {
	sender := &fakeSender{}
	svc := newService(t, emailConfig(), sender)

	conf, err := svc.ReportBug(context.Background(), models.BugReport{
		Subject: "Map blank",
		Body:    "Steps:\r\n1. open <map>\n2. nothing",
	})
	require.NoError(t, err)
	assert.Equal(t, models.Confirmation{Message: "Bug report sent"}, conf)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"bugs@vostcard.com"}, msg.To)
	assert.Equal(t, "[Bug Report] Map blank", msg.Subject)
	assert.Contains(t, msg.HTML, "Steps:<br>1. open &lt;map&gt;<br>2. nothing")
}

func TestReportBugRecipientAllowList(t *testing.T) {
	sender := &fakeSender{}
	svc := newService(t, emailConfig(), sender)

	_, err := svc.ReportBug(context.Background(), models.BugReport{Subject: "s", Body: "b", Recipient: "DEV@vostcard.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev@vostcard.com"}, sender.sent[0].To)

	_, err = svc.ReportBug(context.Background(), models.BugReport{Subject: "s", Body: "b", Recipient: "victim@example.com"})
	assert.ErrorIs(t, err, apierror.ErrValidation)
	assert.Len(t, sender.sent, 1)
}

func TestRecipientsFallBackToSender(t *testing.T) {
	cfg := emailConfig()
	cfg.AdvertiserRecipient = ""
	cfg.BugReportRecipients = nil
	sender := &fakeSender{}
	svc := newService(t, cfg, sender)

	conf, err := svc.NotifyAdvertiser(context.Background(), application)
	require.NoError(t, err)
	assert.Equal(t, "bot@vostcard.com", conf.Recipient)

	_, err = svc.ReportBug(context.Background(), models.BugReport{Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bot@vostcard.com"}, sender.sent[1].To)
}

func TestSendFailuresAreMapped(t *testing.T) {
	sender := &fakeSender{err: mailer.ErrNotConfigured}
	svc := newService(t, emailConfig(), sender)

	_, err := svc.NotifyAdvertiser(context.Background(), application)
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.Body{Error: "Email service not configured"}, apiErr.Body())

	sender.err = errors.New("smtp send: 421 try later")
	_, err = svc.ReportBug(context.Background(), models.BugReport{Subject: "s", Body: "b"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, apierror.Body{Error: "Failed to send email", Details: "smtp send: 421 try later"}, apiErr.Body())
}

func TestUnconfiguredMailboxReportsConfigurationError(t *testing.T) {
	svc := newService(t, config.EmailConfig{Host: "smtp.example.com", Port: 587}, &fakeSender{})

	_, err := svc.NotifyAdvertiser(context.Background(), application)
	assert.ErrorIs(t, err, apierror.ErrConfiguration)

	_, err = svc.ReportBug(context.Background(), models.BugReport{Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, apierror.ErrConfiguration)
}
