package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"voice-nav/internal/application"
	"voice-nav/internal/domain"
)

// Server exposes the navigator as a small JSON control surface.
type Server struct {
	addr        string
	server      *http.Server
	nav         *application.Navigator
	logger      *slog.Logger
	mu          sync.Mutex
	running     bool
	baseCtx     context.Context
	mux         *http.ServeMux
	rateLimiter *RateLimiter
	authToken   string
}

type errorResponse struct {
	Error string            `json:"error"`
	View  *application.View `json:"view,omitempty"`
}

func NewServer(addr, authToken string, nav *application.Navigator, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		nav:         nav,
		logger:      logger,
		baseCtx:     context.Background(),
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(30, time.Minute), // 30 requests per minute per IP
		authToken:   authToken,
	}
	s.mux.HandleFunc("POST /start", s.command(s.handleStart))
	s.mux.HandleFunc("POST /listen", s.command(s.handleListen))
	s.mux.HandleFunc("POST /profile", s.command(s.handleProfile))
	s.mux.HandleFunc("POST /back", s.command(s.handleBack))
	s.mux.HandleFunc("POST /destination", s.command(s.handleDestination))
	s.mux.HandleFunc("POST /directions/play", s.command(s.handlePlayDirections))
	// Reads are not rate limited
	s.mux.HandleFunc("GET /screen", s.handleScreen)
	s.mux.HandleFunc("GET /map", s.handleMap)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// TrustProxyHeaders makes rate limiting key on X-Forwarded-For and X-Real-IP
// instead of the connection address.
func (s *Server) TrustProxyHeaders(trust bool) {
	s.rateLimiter.trustProxy = trust
}

// command wraps a mutating endpoint with rate limiting and the token check.
func (s *Server) command(next http.HandlerFunc) http.HandlerFunc {
	return s.rateLimiter.Middleware(s.authorize(next))
}

func (s *Server) authorize(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.authToken {
				s.logger.Warn("unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// Start serves until Stop. Work started by requests outlives the request and
// is bound to ctx instead.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.baseCtx = ctx
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP control server starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	s.running = false
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) workContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, s.nav.Start())
}

// handleListen toggles the voice session in the background. Opening a
// capture source can wait on the device; poll /screen for the outcome.
func (s *Server) handleListen(w http.ResponseWriter, _ *http.Request) {
	if screen := s.nav.Screen(); screen != domain.ScreenHome {
		s.respond(w, fmt.Errorf("%w: listen from %s", application.ErrInvalidTransition, screen))
		return
	}

	go func() {
		if err := s.nav.ToggleListening(); err != nil {
			s.logger.Warn("toggling voice session", "error", err)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, s.nav.View())
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, s.nav.ShowProfile())
}

func (s *Server) handleBack(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, s.nav.Back())
}

// handleDestination accepts a typed destination. Resolution runs in the
// background; poll /screen for the outcome.
func (s *Server) handleDestination(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	text := strings.TrimSpace(string(data))
	if text == "" {
		s.respond(w, application.ErrEmptyDestination)
		return
	}
	if screen := s.nav.Screen(); screen != domain.ScreenHome {
		s.respond(w, fmt.Errorf("%w: destination from %s", application.ErrInvalidTransition, screen))
		return
	}

	ctx := s.workContext()
	go func() {
		if err := s.nav.SubmitDestination(ctx, text); err != nil {
			s.logger.Warn("destination not resolved", "destination", text, "error", err)
		}
	}()

	s.logger.Info("received destination via HTTP", "destination", text)
	s.writeJSON(w, http.StatusAccepted, s.nav.View())
}

func (s *Server) handlePlayDirections(w http.ResponseWriter, _ *http.Request) {
	screen, err := s.nav.MapScreen()
	if err != nil {
		s.respond(w, err)
		return
	}
	if screen.Playing() {
		s.respond(w, application.ErrAlreadyPlaying)
		return
	}

	ctx := s.workContext()
	go func() {
		if err := screen.PlayDirections(ctx); err != nil && !errors.Is(err, application.ErrAlreadyPlaying) {
			s.logger.Error("playing directions", "error", err)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, s.nav.View())
}

func (s *Server) handleScreen(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.nav.View())
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	screen, err := s.nav.MapScreen()
	if err != nil {
		s.respond(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, screen.Area())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	body := map[string]any{
		"status":  "ok",
		"running": running,
		"screen":  s.nav.Screen(),
	}
	s.writeJSON(w, http.StatusOK, body)
}

// respond writes the current view, or the error with the view attached.
func (s *Server) respond(w http.ResponseWriter, err error) {
	view := s.nav.View()
	if err == nil {
		s.writeJSON(w, http.StatusOK, view)
		return
	}
	s.writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), View: &view})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrInvalidTransition),
		errors.Is(err, application.ErrAlreadyPlaying):
		return http.StatusConflict
	case errors.Is(err, application.ErrEmptyDestination):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("writing response", "error", err)
	}
}
