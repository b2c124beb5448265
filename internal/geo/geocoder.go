// Package geo resolves postal addresses to map coordinates. Resolution is
// best-effort: callers treat a nil result or an error as "no pin on the map",
// never as a reason to fail the enclosing operation.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	dErrors "memberflow/pkg/domain-errors"

	"memberflow/internal/member"
)

// Geocoder resolves an address to coordinates. A nil result with a nil error
// means the provider found no match.
type Geocoder interface {
	Resolve(ctx context.Context, addr member.Address) (*member.Coordinates, error)
}

// HTTPGeocoder calls a Nominatim-compatible search endpoint.
type HTTPGeocoder struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPGeocoder(baseURL string, logger *slog.Logger) *HTTPGeocoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPGeocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (g *HTTPGeocoder) Resolve(ctx context.Context, addr member.Address) (*member.Coordinates, error) {
	query := buildQuery(addr)
	if query == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", g.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build geocode request")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "geocoding provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "geocoding provider returned %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "decode geocode response")
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "parse geocode latitude")
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "parse geocode longitude")
	}
	return &member.Coordinates{Lat: lat, Lng: lng}, nil
}

func buildQuery(addr member.Address) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{addr.Line1, addr.Line2, addr.City, addr.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

// Noop never resolves anything. Used when no provider is configured.
type Noop struct{}

func (Noop) Resolve(context.Context, member.Address) (*member.Coordinates, error) {
	return nil, nil
}
