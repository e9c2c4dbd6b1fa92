package application

import (
	"context"
	"log/slog"

	"voice-nav/internal/domain"
)

const defaultMapZoom = 15

// MapRenderer draws a driving route from the user's position to a
// destination. A failed route leaves the bare themed map.
type MapRenderer struct {
	maps   MapsProvider
	logger *slog.Logger
}

func NewMapRenderer(maps MapsProvider, logger *slog.Logger) *MapRenderer {
	return &MapRenderer{maps: maps, logger: logger}
}

func (r *MapRenderer) Render(ctx context.Context, origin domain.UserLocation, destination string) *domain.MapView {
	center := domain.LatLngOf(origin)

	view := r.maps.CreateMap(domain.MapOptions{
		Center:           center,
		Zoom:             defaultMapZoom,
		DisableDefaultUI: true,
		Style:            domain.NightMapStyle(),
	})

	result, err := r.maps.ComputeRoute(ctx, domain.DirectionsRequest{
		Origin:      center,
		Destination: destination,
		TravelMode:  domain.TravelModeDriving,
	})
	if err != nil {
		r.logger.Error("directions request failed", "destination", destination, "error", err)
		return view
	}
	if result == nil || result.Status != domain.DirectionsStatusOK {
		status := ""
		if result != nil {
			status = result.Status
		}
		r.logger.Error("directions request failed", "destination", destination, "status", status)
		return view
	}

	r.maps.RenderRoute(view, domain.RouteOverlay{
		Directions:      *result,
		Style:           domain.RouteStrokeStyle,
		SuppressMarkers: true,
	})

	r.logger.Info("route rendered",
		"destination", destination,
		"points", len(result.Path),
		"summary", result.Summary,
	)
	return view
}
