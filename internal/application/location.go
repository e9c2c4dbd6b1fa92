package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"voice-nav/internal/domain"
)

var ErrGeolocationUnsupported = errors.New("geolocation is not supported")

type LocationProvider interface {
	CurrentPosition(ctx context.Context, opts domain.PositionOptions) (domain.UserLocation, error)
}

// LocationCell holds the single position lookup of one screen instance. The
// lookup starts when the cell is created and its result never changes.
type LocationCell struct {
	done chan struct{}

	mu       sync.RWMutex
	location *domain.UserLocation
	err      error
}

func ResolveLocation(ctx context.Context, provider LocationProvider, opts domain.PositionOptions, logger *slog.Logger) *LocationCell {
	c := &LocationCell{done: make(chan struct{})}

	if provider == nil {
		c.finish(nil, ErrGeolocationUnsupported)
		return c
	}

	go func() {
		lookupCtx := ctx
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			lookupCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}

		loc, err := provider.CurrentPosition(lookupCtx, opts)
		if err != nil {
			logger.Warn("location lookup failed", "error", err)
			c.finish(nil, err)
			return
		}
		logger.Debug("location resolved", "lat", loc.Latitude, "lng", loc.Longitude)
		c.finish(&loc, nil)
	}()

	return c
}

func (c *LocationCell) finish(loc *domain.UserLocation, err error) {
	c.mu.Lock()
	c.location = loc
	c.err = err
	c.mu.Unlock()
	close(c.done)
}

// Peek returns the lookup result without blocking. ready is false while the
// lookup is still in flight.
func (c *LocationCell) Peek() (loc *domain.UserLocation, ready bool, err error) {
	select {
	case <-c.done:
	default:
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.location, true, c.err
}

func (c *LocationCell) Wait(ctx context.Context) (*domain.UserLocation, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.location, c.err
}
