package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"voice-nav/internal/domain"
	"voice-nav/internal/pcm"
)

const (
	MessageLocating    = "Getting your location..."
	MessageLoadingMap  = "Loading route..."
	locationFailPrefix = "Could not get your location: "
)

var ErrAlreadyPlaying = errors.New("directions are already playing")

// MapArea is what the map region of the screen currently shows: either a
// message or a rendered view.
type MapArea struct {
	Message string          `json:"message,omitempty"`
	Error   bool            `json:"error,omitempty"`
	View    *domain.MapView `json:"view,omitempty"`
}

// MapScreen is one mounted instance of the map screen. Its route is fixed for
// its whole lifetime.
type MapScreen struct {
	route    domain.RouteDetails
	location *LocationCell
	speech   SpeechSynthesizer
	player   AudioPlayer
	logger   *slog.Logger

	playing atomic.Bool

	mu       sync.RWMutex
	view     *domain.MapView
	rendered chan struct{}
}

func newMapScreen(
	ctx context.Context,
	route domain.RouteDetails,
	location *LocationCell,
	renderer *MapRenderer,
	speech SpeechSynthesizer,
	player AudioPlayer,
	logger *slog.Logger,
) *MapScreen {
	m := &MapScreen{
		route:    route,
		location: location,
		speech:   speech,
		player:   player,
		logger:   logger,
		rendered: make(chan struct{}),
	}
	go m.render(ctx, renderer)
	return m
}

func (m *MapScreen) render(ctx context.Context, renderer *MapRenderer) {
	defer close(m.rendered)

	loc, err := m.location.Wait(ctx)
	if err != nil || loc == nil {
		return
	}
	if renderer == nil {
		return
	}

	view := renderer.Render(ctx, *loc, m.route.Destination)

	m.mu.Lock()
	m.view = view
	m.mu.Unlock()
}

func (m *MapScreen) Route() domain.RouteDetails {
	return m.route
}

// Rendered is closed once the map area has settled.
func (m *MapScreen) Rendered() <-chan struct{} {
	return m.rendered
}

func (m *MapScreen) Area() MapArea {
	loc, ready, err := m.location.Peek()
	if !ready {
		return MapArea{Message: MessageLocating}
	}
	if err != nil {
		return MapArea{Message: locationFailPrefix + err.Error(), Error: true}
	}
	if loc == nil {
		return MapArea{Message: MessageLocating}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.view == nil {
		return MapArea{Message: MessageLoadingMap}
	}
	return MapArea{View: m.view}
}

func (m *MapScreen) Playing() bool {
	return m.playing.Load()
}

// PlayDirections speaks the route's Amharic directions. It blocks until
// playback ends.
func (m *MapScreen) PlayDirections(ctx context.Context) error {
	if !m.playing.CompareAndSwap(false, true) {
		return ErrAlreadyPlaying
	}
	defer m.playing.Store(false)

	if m.speech == nil || m.player == nil {
		return errors.New("directions playback not configured")
	}

	payload, err := m.speech.TextToSpeech(ctx, m.route.DirectionsAmharic)
	if err != nil {
		m.logger.Error("failed to play audio", "error", err)
		return fmt.Errorf("synthesizing directions: %w", err)
	}

	buf, err := pcm.DecodePayload(payload)
	if err != nil {
		m.logger.Error("failed to play audio", "error", err)
		return fmt.Errorf("decoding directions audio: %w", err)
	}

	m.logger.Info("playing directions", "frames", buf.Frames(), "sample_rate", buf.SampleRate)

	if err := m.player.Play(ctx, buf); err != nil {
		m.logger.Error("failed to play audio", "error", err)
		return fmt.Errorf("playing directions: %w", err)
	}
	return nil
}
