package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-polyline"

	"voice-nav/internal/domain"
	"voice-nav/internal/infra"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"

	staticMapSize = "640x640"
)

var (
	ErrMissingAPIKey = errors.New("maps API key not set")
	ErrRouteNotFound = errors.New("no route in directions response")
)

// Provider talks to the Google Maps Directions API and describes maps as
// Static Maps URLs.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      infra.RetryConfig
	logger     *slog.Logger
}

func NewProvider(apiKey string, logger *slog.Logger) *Provider {
	return NewProviderWithURL(apiKey, DefaultBaseURL, logger)
}

func NewProviderWithURL(apiKey, baseURL string, logger *slog.Logger) *Provider {
	return &Provider{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      infra.DefaultRetryConfig(),
		logger:     logger,
	}
}

// WithRetryConfig replaces the retry policy used for directions requests.
func (p *Provider) WithRetryConfig(cfg infra.RetryConfig) *Provider {
	p.retry = cfg
	return p
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Routes       []struct {
		Summary          string `json:"summary"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance textValue `json:"distance"`
			Duration textValue `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// CreateMap describes a new map. Nothing is fetched until a client loads
// the StaticURL.
func (p *Provider) CreateMap(opts domain.MapOptions) *domain.MapView {
	view := &domain.MapView{
		ID:               uuid.NewString(),
		Center:           opts.Center,
		Zoom:             opts.Zoom,
		DisableDefaultUI: opts.DisableDefaultUI,
		Style:            opts.Style,
	}
	view.StaticURL = p.staticURL(view)
	return view
}

// ComputeRoute requests directions. A non-OK provider status is returned as
// a result, not an error, so the caller can decide how to degrade.
func (p *Provider) ComputeRoute(ctx context.Context, req domain.DirectionsRequest) (*domain.DirectionsResult, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	mode := req.TravelMode
	if mode == "" {
		mode = domain.TravelModeDriving
	}

	q := url.Values{}
	q.Set("origin", formatLatLng(req.Origin))
	q.Set("destination", req.Destination)
	q.Set("mode", string(mode))
	q.Set("key", p.apiKey)
	endpoint := p.baseURL + "/directions/json?" + q.Encode()

	var body directionsResponse
	err := infra.WithRetry(ctx, p.retry, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		resp, err := p.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return fmt.Errorf("directions API error %d: %s (retryable)", resp.StatusCode, string(data))
			}
			return infra.Permanent(fmt.Errorf("directions API error %d: %s", resp.StatusCode, string(data)))
		}

		body = directionsResponse{}
		if err := json.Unmarshal(data, &body); err != nil {
			return infra.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &domain.DirectionsResult{Status: body.Status}
	if body.Status != domain.DirectionsStatusOK {
		p.logger.Warn("directions status not OK",
			"status", body.Status,
			"message", body.ErrorMessage,
			"destination", req.Destination,
		)
		return result, nil
	}
	if len(body.Routes) == 0 {
		return nil, ErrRouteNotFound
	}

	route := body.Routes[0]
	result.Summary = route.Summary
	result.Polyline = route.OverviewPolyline.Points
	if len(route.Legs) > 0 {
		result.Distance = route.Legs[0].Distance.Text
		result.Duration = route.Legs[0].Duration.Text
	}

	path, err := decodePath(result.Polyline)
	if err != nil {
		return nil, err
	}
	result.Path = path

	p.logger.Debug("directions computed",
		"destination", req.Destination,
		"summary", result.Summary,
		"points", len(path),
	)
	return result, nil
}

// RenderRoute attaches the overlay to the view and redraws its static URL.
func (p *Provider) RenderRoute(view *domain.MapView, overlay domain.RouteOverlay) {
	view.Route = &overlay
	view.StaticURL = p.staticURL(view)
}

func (p *Provider) staticURL(view *domain.MapView) string {
	q := url.Values{}
	q.Set("center", formatLatLng(view.Center))
	q.Set("zoom", strconv.Itoa(view.Zoom))
	q.Set("size", staticMapSize)
	for _, s := range view.Style {
		q.Add("style", styleParam(s))
	}
	if view.Route != nil && view.Route.Directions.Polyline != "" {
		q.Set("path", pathParam(view.Route))
		if !view.Route.SuppressMarkers && len(view.Route.Directions.Path) > 0 {
			path := view.Route.Directions.Path
			q.Add("markers", "label:A|"+formatLatLng(path[0]))
			q.Add("markers", "label:B|"+formatLatLng(path[len(path)-1]))
		}
	}
	if p.apiKey != "" {
		q.Set("key", p.apiKey)
	}
	return p.baseURL + "/staticmap?" + q.Encode()
}

func decodePath(encoded string) ([]domain.LatLng, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding overview polyline: %w", err)
	}
	path := make([]domain.LatLng, 0, len(coords))
	for _, c := range coords {
		path = append(path, domain.LatLng{Lat: c[0], Lng: c[1]})
	}
	return path, nil
}

func formatLatLng(l domain.LatLng) string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lng, 'f', -1, 64)
}

// styleParam renders a styler as feature:…|element:…|color:0xRRGGBB.
func styleParam(s domain.MapStyler) string {
	var parts []string
	if s.FeatureType != "" {
		parts = append(parts, "feature:"+s.FeatureType)
	}
	if s.ElementType != "" {
		parts = append(parts, "element:"+s.ElementType)
	}
	parts = append(parts, "color:"+hexColor(s.Color, 1))
	return strings.Join(parts, "|")
}

func pathParam(overlay *domain.RouteOverlay) string {
	return fmt.Sprintf("color:%s|weight:%d|enc:%s",
		hexColor(overlay.Style.StrokeColor, overlay.Style.StrokeOpacity),
		overlay.Style.StrokeWeight,
		overlay.Directions.Polyline,
	)
}

// hexColor converts "#RRGGBB" to the 0xRRGGBB form, appending an alpha byte
// when opacity is below 1.
func hexColor(color string, opacity float64) string {
	c := "0x" + strings.ToUpper(strings.TrimPrefix(color, "#"))
	if opacity > 0 && opacity < 1 {
		c += fmt.Sprintf("%02X", int(math.Round(opacity*255)))
	}
	return c
}
