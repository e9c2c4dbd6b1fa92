package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"voice-nav/internal/domain"
)

const DefaultDirectionsModel = "gemini-2.5-pro"

// DirectionsService resolves a spoken destination into route details. Any
// provider failure yields domain.FallbackRoute instead of an error.
type DirectionsService struct {
	client *Client
	model  string
	logger *slog.Logger
}

func NewDirectionsService(client *Client, model string, logger *slog.Logger) *DirectionsService {
	if model == "" {
		model = DefaultDirectionsModel
	}
	return &DirectionsService{client: client, model: model, logger: logger}
}

func routeSchema() *schema {
	return &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"destination":       {Type: "STRING"},
			"duration":          {Type: "STRING"},
			"distance":          {Type: "STRING"},
			"directionsAmharic": {Type: "STRING"},
		},
		Required: []string{"destination", "duration", "distance", "directionsAmharic"},
	}
}

func directionsPrompt(destination string, location *domain.UserLocation) string {
	locationInfo := ""
	if location != nil {
		locationInfo = fmt.Sprintf(" from latitude %v and longitude %v", location.Latitude, location.Longitude)
	}
	return fmt.Sprintf(`Provide navigation details to "%s"%s. The response should be in JSON format. The JSON object must contain these exact keys: 'destination' (string, the full name of the destination), 'duration' (string, e.g., "25 min"), 'distance' (string, e.g., "15 km"), and 'directionsAmharic' (string, a single paragraph of turn-by-turn directions in Amharic).`, destination, locationInfo)
}

func (s *DirectionsService) GetDirections(ctx context.Context, destination string, location *domain.UserLocation) domain.RouteDetails {
	route, err := s.fetch(ctx, destination, location)
	if err != nil {
		s.logger.Error("error getting directions from gemini, using fallback route",
			"destination", destination,
			"error", err,
		)
		return domain.FallbackRoute()
	}
	return route
}

func (s *DirectionsService) fetch(ctx context.Context, destination string, location *domain.UserLocation) (domain.RouteDetails, error) {
	reqBody := request{
		Contents: []content{
			{
				Role:  "user",
				Parts: []part{{Text: directionsPrompt(destination, location)}},
			},
		},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   routeSchema(),
		},
	}

	result, err := s.client.generateContent(ctx, s.model, reqBody)
	if err != nil {
		return domain.RouteDetails{}, err
	}

	text, ok := result.firstText()
	if !ok {
		return domain.RouteDetails{}, fmt.Errorf("empty response from gemini")
	}

	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var route domain.RouteDetails
	if err := json.Unmarshal([]byte(text), &route); err != nil {
		return domain.RouteDetails{}, fmt.Errorf("parsing route JSON (%s): %w", text, err)
	}
	if err := route.Validate(); err != nil {
		return domain.RouteDetails{}, err
	}

	s.logger.Info("route resolved",
		"destination", route.Destination,
		"duration", route.Duration,
		"distance", route.Distance,
	)
	return route, nil
}
