package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"voice-nav/internal/domain"
)

const DefaultIPLookupURL = "http://ip-api.com/json/?fields=status,message,lat,lon"

var ErrNotConfigured = errors.New("static location not configured")

// Static reports a fixed position taken from configuration.
type Static struct {
	loc *domain.UserLocation
}

func NewStatic(latitude, longitude float64) *Static {
	if latitude == 0 && longitude == 0 {
		return &Static{}
	}
	return &Static{loc: &domain.UserLocation{Latitude: latitude, Longitude: longitude}}
}

func (s *Static) CurrentPosition(ctx context.Context, _ domain.PositionOptions) (domain.UserLocation, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserLocation{}, err
	}
	if s.loc == nil {
		return domain.UserLocation{}, ErrNotConfigured
	}
	return *s.loc, nil
}

// IPLookup approximates the position from the public IP address. Every call
// performs a fresh lookup.
type IPLookup struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewIPLookup(logger *slog.Logger) *IPLookup {
	return NewIPLookupWithURL(DefaultIPLookupURL, logger)
}

func NewIPLookupWithURL(url string, logger *slog.Logger) *IPLookup {
	return &IPLookup{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type ipLookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l *IPLookup) CurrentPosition(ctx context.Context, opts domain.PositionOptions) (domain.UserLocation, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return domain.UserLocation{}, fmt.Errorf("creating request: %w", err)
	}
	if opts.MaximumAge == 0 {
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return domain.UserLocation{}, fmt.Errorf("looking up location: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.UserLocation{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.UserLocation{}, fmt.Errorf("location lookup error %d: %s", resp.StatusCode, string(body))
	}

	var result ipLookupResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.UserLocation{}, fmt.Errorf("decoding response: %w", err)
	}
	if result.Status != "success" {
		return domain.UserLocation{}, fmt.Errorf("location lookup failed: %s", result.Message)
	}

	loc := domain.UserLocation{Latitude: result.Lat, Longitude: result.Lon}
	l.logger.Debug("ip location resolved", "location", loc.String())
	return loc, nil
}
