package httpapi_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"voice-nav/internal/application"
	"voice-nav/internal/domain"
	"voice-nav/internal/infra/httpapi"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubResolver struct{}

func (stubResolver) GetDirections(_ context.Context, destination string, _ *domain.UserLocation) domain.RouteDetails {
	return domain.RouteDetails{
		Destination:       "National Library (" + destination + ")",
		Duration:          "12 min",
		Distance:          "4 km",
		DirectionsAmharic: "ቀጥታ ይሂዱ",
	}
}

type stubLocator struct{}

func (stubLocator) CurrentPosition(_ context.Context, _ domain.PositionOptions) (domain.UserLocation, error) {
	return domain.UserLocation{Latitude: 9.03, Longitude: 38.74}, nil
}

type stubSpeech struct{}

func (stubSpeech) TextToSpeech(_ context.Context, _ string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte{0, 0, 0, 64}), nil
}

// gatedPlayer blocks every Play until release is closed.
type gatedPlayer struct {
	release chan struct{}
	once    sync.Once
	started chan struct{}
}

func newGatedPlayer() *gatedPlayer {
	return &gatedPlayer{release: make(chan struct{}), started: make(chan struct{})}
}

func (p *gatedPlayer) Play(ctx context.Context, _ *domain.AudioBuffer) error {
	p.once.Do(func() { close(p.started) })
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestServer(t *testing.T, token string, player application.AudioPlayer) (*httpapi.Server, *application.Navigator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	nav := application.NewNavigator(ctx, application.Services{
		Resolver: stubResolver{},
		Speech:   stubSpeech{},
		Player:   player,
		Locator:  stubLocator{},
	}, discardLogger())
	t.Cleanup(nav.Close)

	return httpapi.NewServer(":0", token, nav, discardLogger()), nav
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) application.View {
	t.Helper()
	var view application.View
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decoding view: %v", err)
	}
	return view
}

func waitForScreen(t *testing.T, nav *application.Navigator, want domain.Screen) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if nav.Screen() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for screen %s, at %s", want, nav.Screen())
}

func TestServer_Health(t *testing.T) {
	server, _ := newTestServer(t, "", nil)

	rec := do(t, server.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"screen":"start"`) {
		t.Errorf("body: got %s", rec.Body.String())
	}
}

func TestServer_DestinationToMapAndBack(t *testing.T) {
	player := newGatedPlayer()
	defer close(player.release)
	server, nav := newTestServer(t, "", player)
	h := server.Handler()

	if rec := do(t, h, http.MethodPost, "/start", ""); rec.Code != http.StatusOK {
		t.Fatalf("start: got %d", rec.Code)
	} else if view := decodeView(t, rec); view.Screen != domain.ScreenHome || view.Status != application.StatusIdle {
		t.Errorf("start view: got %+v", view)
	}

	if rec := do(t, h, http.MethodPost, "/destination", "  library  "); rec.Code != http.StatusAccepted {
		t.Fatalf("destination: got %d", rec.Code)
	}
	waitForScreen(t, nav, domain.ScreenMap)

	rec := do(t, h, http.MethodGet, "/screen", "")
	view := decodeView(t, rec)
	if view.Route == nil || view.Route.Destination != "National Library (library)" {
		t.Fatalf("map view route: got %+v", view.Route)
	}
	if view.Headline != "12 min (4 km)" || view.Subtitle != "Simplest path to National Library (library)" {
		t.Errorf("summary: got %q / %q", view.Headline, view.Subtitle)
	}

	if rec := do(t, h, http.MethodGet, "/map", ""); rec.Code != http.StatusOK {
		t.Errorf("map: got %d", rec.Code)
	}

	if rec := do(t, h, http.MethodPost, "/directions/play", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("play: got %d", rec.Code)
	}
	select {
	case <-player.started:
	case <-time.After(3 * time.Second):
		t.Fatal("playback never started")
	}
	if rec := do(t, h, http.MethodPost, "/directions/play", ""); rec.Code != http.StatusConflict {
		t.Errorf("second play: got %d, want %d", rec.Code, http.StatusConflict)
	}

	rec = do(t, h, http.MethodPost, "/back", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("back: got %d", rec.Code)
	}
	if view := decodeView(t, rec); view.Screen != domain.ScreenHome || view.Route != nil {
		t.Errorf("back view: got %+v", view)
	}
}

func TestServer_InvalidTransitions(t *testing.T) {
	server, _ := newTestServer(t, "", nil)
	h := server.Handler()

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/back", ""},
		{http.MethodPost, "/profile", ""},
		{http.MethodPost, "/listen", ""},
		{http.MethodPost, "/destination", "library"},
		{http.MethodPost, "/directions/play", ""},
		{http.MethodGet, "/map", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			if rec.Code != http.StatusConflict {
				t.Errorf("status code: got %d, want %d", rec.Code, http.StatusConflict)
			}
		})
	}
}

func TestServer_ListenWithoutCredential(t *testing.T) {
	server, nav := newTestServer(t, "", nil)
	h := server.Handler()
	do(t, h, http.MethodPost, "/start", "")

	rec := do(t, h, http.MethodPost, "/listen", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusAccepted)
	}

	waitForStatus(t, nav, application.StatusNoCredential)
}

// blockingCapture never yields a stream until its context ends, like a file
// source waiting for a recording.
type blockingCapture struct{}

func (blockingCapture) Name() string { return "blocking" }

func (blockingCapture) Open(ctx context.Context, _, _ int) (application.CaptureStream, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type idleSession struct {
	events chan domain.LiveEvent
}

func (s *idleSession) SendAudio(context.Context, domain.AudioBlob) error { return nil }
func (s *idleSession) Events() <-chan domain.LiveEvent                 { return s.events }
func (s *idleSession) Close() error                                    { return nil }

type idleConnector struct{}

func (idleConnector) Connect(context.Context) (application.LiveSession, error) {
	return &idleSession{events: make(chan domain.LiveEvent)}, nil
}

func (idleConnector) HasCredential() bool { return true }

func TestServer_ListenDoesNotWaitForCapture(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	nav := application.NewNavigator(ctx, application.Services{
		Live:     idleConnector{},
		Capture:  blockingCapture{},
		Resolver: stubResolver{},
	}, discardLogger())
	defer nav.Close()
	h := httpapi.NewServer(":0", "", nav, discardLogger()).Handler()
	do(t, h, http.MethodPost, "/start", "")

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- do(t, h, http.MethodPost, "/listen", "") }()

	select {
	case rec := <-done:
		if rec.Code != http.StatusAccepted {
			t.Errorf("status code: got %d, want %d", rec.Code, http.StatusAccepted)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("/listen blocked on the capture source")
	}

	deadline := time.Now().Add(3 * time.Second)
	for nav.View().Session != domain.SessionOpening {
		if time.Now().After(deadline) {
			t.Fatalf("session: got %s, want opening", nav.View().Session)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A second toggle cancels the pending open.
	if rec := do(t, h, http.MethodPost, "/listen", ""); rec.Code != http.StatusAccepted {
		t.Errorf("second listen: got %d", rec.Code)
	}
	waitForStatus(t, nav, application.StatusIdle)
}

func waitForStatus(t *testing.T, nav *application.Navigator, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		view := nav.View()
		if view.Status == want && view.Session == domain.SessionIdle {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for status %q, at %q", want, nav.View().Status)
}

func TestServer_EmptyDestination(t *testing.T) {
	server, _ := newTestServer(t, "", nil)
	h := server.Handler()
	do(t, h, http.MethodPost, "/start", "")

	if rec := do(t, h, http.MethodPost, "/destination", "   "); rec.Code != http.StatusBadRequest {
		t.Errorf("status code: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServer_ProfileRoundTrip(t *testing.T) {
	server, _ := newTestServer(t, "", nil)
	h := server.Handler()
	do(t, h, http.MethodPost, "/start", "")

	rec := do(t, h, http.MethodPost, "/profile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: got %d", rec.Code)
	}
	view := decodeView(t, rec)
	if view.Screen != domain.ScreenProfile || len(view.Profile) != len(domain.ProfileItems) {
		t.Errorf("profile view: got %+v", view)
	}

	if rec := do(t, h, http.MethodPost, "/back", ""); rec.Code != http.StatusOK {
		t.Errorf("back: got %d", rec.Code)
	}
}

func TestServer_AuthToken(t *testing.T) {
	authToken := "test-secret-token-123"
	server, _ := newTestServer(t, authToken, nil)
	handler := server.Handler()

	tests := []struct {
		name       string
		token      string
		method     string
		wantStatus int
	}{
		{
			name:       "valid token in header",
			token:      authToken,
			method:     "header",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid token in query",
			token:      authToken,
			method:     "query",
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid token",
			token:      "wrong-token",
			method:     "header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing token",
			token:      "",
			method:     "header",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.method == "query" {
				req = httptest.NewRequest(http.MethodPost, "/profile?token="+tt.token, bytes.NewReader(nil))
			} else {
				req = httptest.NewRequest(http.MethodPost, "/profile", bytes.NewReader(nil))
				if tt.token != "" {
					req.Header.Set("X-Auth-Token", tt.token)
				}
			}

			// Start first so an authorized /profile is a valid transition.
			startReq := httptest.NewRequest(http.MethodPost, "/start", nil)
			startReq.Header.Set("X-Auth-Token", authToken)
			handler.ServeHTTP(httptest.NewRecorder(), startReq)
			backReq := httptest.NewRequest(http.MethodPost, "/back", nil)
			backReq.Header.Set("X-Auth-Token", authToken)
			defer handler.ServeHTTP(httptest.NewRecorder(), backReq)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status code: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_RateLimited(t *testing.T) {
	server, _ := newTestServer(t, "", nil)
	h := server.Handler()

	var limited bool
	for i := 0; i < 40; i++ {
		if rec := do(t, h, http.MethodPost, "/back", ""); rec.Code == http.StatusTooManyRequests {
			limited = true
			if rec.Header().Get("Retry-After") == "" {
				t.Error("missing Retry-After header")
			}
			break
		}
	}
	if !limited {
		t.Error("expected rate limit after 30 requests")
	}

	if rec := do(t, h, http.MethodGet, "/screen", ""); rec.Code != http.StatusOK {
		t.Errorf("reads must not be limited: got %d", rec.Code)
	}
}
