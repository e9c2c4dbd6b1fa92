package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voice-nav/internal/application"
	"voice-nav/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

type fakeSession struct {
	events chan domain.LiveEvent
	sent   chan domain.AudioBlob

	// failAt makes the n-th SendAudio call (1-based) fail.
	failAt int32
	sends  atomic.Int32

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		events: make(chan domain.LiveEvent, 16),
		sent:   make(chan domain.AudioBlob, 64),
		closed: make(chan struct{}),
	}
}

func (s *fakeSession) SendAudio(_ context.Context, blob domain.AudioBlob) error {
	select {
	case <-s.closed:
		return errors.New("session closed")
	default:
	}
	if n := s.sends.Add(1); s.failAt > 0 && n == s.failAt {
		return errors.New("write: broken pipe")
	}
	s.sent <- blob
	return nil
}

func (s *fakeSession) Events() <-chan domain.LiveEvent { return s.events }

func (s *fakeSession) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSession) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *fakeSession) transcript(parts ...string) {
	for _, p := range parts {
		s.events <- domain.LiveEvent{Kind: domain.LiveTranscript, Text: p}
	}
	s.events <- domain.LiveEvent{Kind: domain.LiveTurnComplete}
}

type fakeConnector struct {
	session *fakeSession
	err     error
	noKey   bool
	calls   atomic.Int32
}

func (c *fakeConnector) Connect(_ context.Context) (application.LiveSession, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

func (c *fakeConnector) HasCredential() bool { return !c.noKey }

type fakeStream struct {
	frames    chan []float32
	closeOnce sync.Once
	closed    chan struct{}
}

func (s *fakeStream) Frames() <-chan []float32 { return s.frames }

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

type fakeCapture struct {
	frames chan []float32
	err    error

	mu      sync.Mutex
	streams []*fakeStream
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{frames: make(chan []float32, 16)}
}

func (c *fakeCapture) Name() string { return "fake" }

func (c *fakeCapture) Open(_ context.Context, _, _ int) (application.CaptureStream, error) {
	if c.err != nil {
		return nil, c.err
	}
	s := &fakeStream{frames: c.frames, closed: make(chan struct{})}
	c.mu.Lock()
	c.streams = append(c.streams, s)
	c.mu.Unlock()
	return s, nil
}

func (c *fakeCapture) allClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.streams {
		select {
		case <-s.closed:
		default:
			return false
		}
	}
	return len(c.streams) > 0
}

type fakeResolver struct {
	route domain.RouteDetails

	mu        sync.Mutex
	calls     []string
	locations []*domain.UserLocation
}

func (r *fakeResolver) GetDirections(_ context.Context, destination string, loc *domain.UserLocation) domain.RouteDetails {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, destination)
	r.locations = append(r.locations, loc)
	route := r.route
	if route.Destination == "" {
		route = domain.FallbackRoute()
	}
	return route
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeLocator struct {
	loc  domain.UserLocation
	err  error
	gate chan struct{}
}

func (l *fakeLocator) CurrentPosition(ctx context.Context, _ domain.PositionOptions) (domain.UserLocation, error) {
	if l.gate != nil {
		select {
		case <-ctx.Done():
			return domain.UserLocation{}, ctx.Err()
		case <-l.gate:
		}
	}
	return l.loc, l.err
}

type fakeSpeech struct {
	payload string
	err     error
	texts   chan string
}

func (s *fakeSpeech) TextToSpeech(_ context.Context, text string) (string, error) {
	if s.texts != nil {
		s.texts <- text
	}
	return s.payload, s.err
}

type fakePlayer struct {
	block chan struct{}

	mu     sync.Mutex
	played []*domain.AudioBuffer
}

func (p *fakePlayer) Play(ctx context.Context, buf *domain.AudioBuffer) error {
	if p.block != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.block:
		}
	}
	p.mu.Lock()
	p.played = append(p.played, buf)
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

type fakeMaps struct {
	result *domain.DirectionsResult
	err    error

	mu       sync.Mutex
	requests []domain.DirectionsRequest
}

func (m *fakeMaps) CreateMap(opts domain.MapOptions) *domain.MapView {
	return &domain.MapView{
		ID:               "test-map",
		Center:           opts.Center,
		Zoom:             opts.Zoom,
		DisableDefaultUI: opts.DisableDefaultUI,
		Style:            opts.Style,
	}
}

func (m *fakeMaps) ComputeRoute(_ context.Context, req domain.DirectionsRequest) (*domain.DirectionsResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.result, m.err
}

func (m *fakeMaps) RenderRoute(view *domain.MapView, overlay domain.RouteOverlay) {
	view.Route = &overlay
}

type recordingNotifier struct {
	messages chan string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.messages <- message
	return nil
}
