// Package upstream holds what the third-party API clients share: a tuned
// HTTP client and the typed error returned for non-2xx replies.
package upstream

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second

	// MaxErrorBody caps how much of an error reply is read.
	MaxErrorBody = 64 * 1024

	maxDetailBytes = 512
)

// NewHTTPClient returns a client with bounded dial, handshake and overall timeouts.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// StatusError reports a non-2xx reply from an upstream service.
type StatusError struct {
	Service    string
	StatusCode int
	// Message is the upstream's own error text when it could be extracted.
	Message string
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Detail())
}

// Detail prefers the extracted message and falls back to a body snippet.
func (e *StatusError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	body := strings.TrimSpace(e.Body)
	if len(body) > maxDetailBytes {
		cut := maxDetailBytes
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	if body == "" {
		return http.StatusText(e.StatusCode)
	}
	return body
}
