package application

import (
	"context"

	"voice-nav/internal/domain"
)

// MapsProvider is the narrow surface of the maps service used for rendering.
type MapsProvider interface {
	CreateMap(opts domain.MapOptions) *domain.MapView
	ComputeRoute(ctx context.Context, req domain.DirectionsRequest) (*domain.DirectionsResult, error)
	RenderRoute(view *domain.MapView, overlay domain.RouteOverlay)
}
