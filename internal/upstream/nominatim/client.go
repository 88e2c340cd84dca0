// Package nominatim queries a Nominatim-compatible address search API.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"vostcard-gateway/internal/upstream"
)

const serviceName = "nominatim"

// Place is one search hit. Coordinates are decimal strings as Nominatim
// returns them.
type Place struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address,omitempty"`
}

// Client issues search requests.
type Client struct {
	client    *http.Client
	searchURL string
	userAgent string
}

// New creates a search client. Nominatim's usage policy requires an
// identifying User-Agent.
func New(baseURL, userAgent string, client *http.Client) (*Client, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}
	if strings.TrimSpace(userAgent) == "" {
		return nil, errors.New("user agent must not be empty")
	}
	return &Client{
		client:    client,
		searchURL: baseURL + "/search",
		userAgent: userAgent,
	}, nil
}

// Search returns at most one place matching query, with address details.
// An empty slice means no match.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, upstream.MaxErrorBody))
		return nil, &upstream.StatusError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var places []Place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}
	return places, nil
}
