// Package geocode resolves structured postal addresses to coordinates.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vostcard-gateway/internal/apierror"
	"vostcard-gateway/internal/config"
	"vostcard-gateway/internal/models"
	"vostcard-gateway/internal/upstream"
	"vostcard-gateway/internal/upstream/nominatim"
)

// Searcher looks up places for a free-form query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]nominatim.Place, error)
}

type Service struct {
	searcher Searcher
}

func New(searcher Searcher) (*Service, error) {
	if searcher == nil {
		return nil, errors.New("searcher must not be nil")
	}
	return &Service{searcher: searcher}, nil
}

// NewFromConfig wires a service to the configured Nominatim endpoint.
func NewFromConfig(cfg config.GeocodeConfig) (*Service, error) {
	client, err := nominatim.New(cfg.BaseURL, cfg.UserAgent, upstream.NewHTTPClient(time.Duration(cfg.TimeoutSeconds)*time.Second))
	if err != nil {
		return nil, fmt.Errorf("initialise nominatim client: %w", err)
	}
	return New(client)
}

// Geocode resolves req to the first matching place.
func (s *Service) Geocode(ctx context.Context, req models.GeocodeRequest) (models.GeocodeResponse, error) {
	if missing := req.MissingFields(); len(missing) > 0 {
		return models.GeocodeResponse{}, apierror.Validation("Missing required address fields", strings.Join(missing, ", "))
	}

	query := req.Query()
	places, err := s.searcher.Search(ctx, query)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			slog.Warn("geocoding service returned an error", "status", statusErr.StatusCode, "detail", statusErr.Detail())
			return models.GeocodeResponse{}, apierror.Upstream(statusErr.StatusCode, fmt.Sprintf("Geocoding service returned status %d", statusErr.StatusCode), "", err)
		}
		slog.Error("geocoding failed", "query", query, "err", err)
		return models.GeocodeResponse{}, apierror.Unhandled("Geocoding failed", err)
	}
	if len(places) == 0 {
		return models.GeocodeResponse{}, apierror.NotFound("No results found for this address")
	}

	place := places[0]
	lat, latErr := parseCoordinate(place.Lat)
	lon, lonErr := parseCoordinate(place.Lon)
	if latErr != nil || lonErr != nil {
		slog.Error("geocoding service returned unusable coordinates", "lat", place.Lat, "lon", place.Lon)
		return models.GeocodeResponse{}, &apierror.Error{
			Kind:    apierror.KindUnhandled,
			Status:  http.StatusInternalServerError,
			Message: "Invalid coordinates received from geocoding service",
			Err:     errors.Join(latErr, lonErr),
		}
	}

	return models.GeocodeResponse{
		Latitude:       lat,
		Longitude:      lon,
		DisplayAddress: place.DisplayName,
	}, nil
}

func parseCoordinate(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("coordinate %q is not finite", raw)
	}
	return v, nil
}
