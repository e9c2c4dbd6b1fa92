package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"voice-nav/internal/domain"
	"voice-nav/internal/pcm"
)

// Status lines shown on the home screen.
const (
	StatusIdle         = "Where Do you Want To Go"
	StatusListening    = "Listening..."
	StatusFindingRoute = "Finding route..."
	StatusNothingHeard = "Couldn't hear that. Try again."
	StatusVoiceError   = "Error with voice service."
	StatusNoMicrophone = "Could not start microphone."
	StatusNoCredential = "API Key not configured."
)

var (
	ErrMissingCredential = errors.New("API key not configured")
	errSessionEnded      = errors.New("live session ended before turn completion")
)

// UtteranceHandler receives the trimmed transcript of a completed turn.
type UtteranceHandler func(ctx context.Context, text string)

// VoiceController owns at most one live transcription session. Inbound
// session events are consumed by a single worker goroutine per session.
type VoiceController struct {
	connector   LiveConnector
	capture     AudioCapture
	onUtterance UtteranceHandler
	logger      *slog.Logger

	mu        sync.Mutex
	state     domain.SessionState
	status    string
	gen       uint64
	sessionID string
	cancel    context.CancelFunc
	session   LiveSession
	stream    CaptureStream
}

func NewVoiceController(
	connector LiveConnector,
	capture AudioCapture,
	onUtterance UtteranceHandler,
	logger *slog.Logger,
) *VoiceController {
	return &VoiceController{
		connector:   connector,
		capture:     capture,
		onUtterance: onUtterance,
		logger:      logger,
		state:       domain.SessionIdle,
		status:      StatusIdle,
	}
}

func (v *VoiceController) State() domain.SessionState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *VoiceController) Status() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

func (v *VoiceController) Listening() bool {
	return v.State() != domain.SessionIdle
}

// StartListening opens a session fed by the capture source. Calling it while
// a session is open or opening stops that session instead. The session lives
// until the turn completes, an error occurs, StopListening is called or ctx
// is done.
func (v *VoiceController) StartListening(ctx context.Context) error {
	v.mu.Lock()
	if v.state != domain.SessionIdle {
		v.mu.Unlock()
		v.StopListening()
		return nil
	}
	if v.connector == nil || !v.connector.HasCredential() {
		v.status = StatusNoCredential
		v.mu.Unlock()
		v.logger.Warn("voice session not started", "error", ErrMissingCredential)
		return ErrMissingCredential
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	v.gen++
	gen := v.gen
	v.sessionID = uuid.NewString()
	v.state = domain.SessionOpening
	v.status = StatusListening
	v.cancel = cancel
	logger := v.logger.With("session", v.sessionID)
	v.mu.Unlock()

	logger.Info("opening live session")

	session, err := v.connector.Connect(sessionCtx)
	if err != nil {
		if v.superseded(gen) {
			logger.Info("live session cancelled while opening")
			return nil
		}
		v.abortOpen(gen)
		logger.Error("failed to start listening", "error", err)
		return fmt.Errorf("connecting live session: %w", err)
	}

	stream, err := v.capture.Open(sessionCtx, domain.CaptureSampleRate, domain.CaptureWindowSize)
	if err != nil {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("closing live session", "error", closeErr)
		}
		if v.superseded(gen) {
			logger.Info("live session cancelled while opening")
			return nil
		}
		v.abortOpen(gen)
		logger.Error("failed to start listening", "error", err)
		return fmt.Errorf("opening %s capture: %w", v.capture.Name(), err)
	}

	v.mu.Lock()
	if v.gen != gen {
		// Stopped while the session was opening.
		v.mu.Unlock()
		_ = stream.Close()
		_ = session.Close()
		logger.Info("live session cancelled while opening")
		return nil
	}
	v.session = session
	v.stream = stream
	v.state = domain.SessionStreaming
	v.mu.Unlock()

	logger.Info("live session streaming", "capture", v.capture.Name())

	go v.pump(sessionCtx, gen, session, stream, logger)
	go v.consume(ctx, sessionCtx, gen, session, logger)

	return nil
}

// StopListening releases the session, capture stream and pump. It is a no-op
// when nothing is active.
func (v *VoiceController) StopListening() {
	v.stop(0, StatusIdle)
}

// stop tears down the session of generation gen (0 matches any) and leaves
// status behind. It reports whether a session was torn down.
func (v *VoiceController) stop(gen uint64, status string) bool {
	v.mu.Lock()
	if v.state == domain.SessionIdle || (gen != 0 && gen != v.gen) {
		v.mu.Unlock()
		return false
	}
	cancel, session, stream, id := v.cancel, v.session, v.stream, v.sessionID
	v.cancel, v.session, v.stream = nil, nil, nil
	v.state = domain.SessionClosing
	v.gen++
	closing := v.gen
	v.mu.Unlock()

	logger := v.logger.With("session", id)

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			logger.Warn("closing capture stream", "error", err)
		}
	}
	if session != nil {
		if err := session.Close(); err != nil {
			logger.Warn("closing live session", "error", err)
		}
	}

	v.mu.Lock()
	if v.gen == closing {
		v.state = domain.SessionIdle
		v.status = status
	}
	v.mu.Unlock()

	logger.Info("live session stopped")
	return true
}

func (v *VoiceController) superseded(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen != gen
}

func (v *VoiceController) abortOpen(gen uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gen != gen {
		return
	}
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.state = domain.SessionIdle
	v.status = StatusNoMicrophone
}

// pump forwards windows in capture order. A failed send ends the session so
// that no window is skipped.
func (v *VoiceController) pump(ctx context.Context, gen uint64, session LiveSession, stream CaptureStream, logger *slog.Logger) {
	chunks := 0
	for {
		select {
		case <-ctx.Done():
			logger.Debug("capture pump stopped", "chunks", chunks)
			return
		case frame, ok := <-stream.Frames():
			if !ok {
				logger.Debug("capture stream ended", "chunks", chunks)
				return
			}
			if err := session.SendAudio(ctx, pcm.EncodeChunk(frame)); err != nil {
				if ctx.Err() != nil {
					return
				}
				v.fail(gen, fmt.Errorf("sending audio chunk %d: %w", chunks, err), logger)
				return
			}
			chunks++
		}
	}
}

func (v *VoiceController) consume(parent, ctx context.Context, gen uint64, session LiveSession, logger *slog.Logger) {
	var transcript strings.Builder

	for {
		select {
		case <-ctx.Done():
			if parent.Err() != nil {
				v.stop(gen, StatusIdle)
			}
			return
		case ev, ok := <-session.Events():
			if !ok {
				if ctx.Err() == nil {
					v.fail(gen, errSessionEnded, logger)
				}
				return
			}

			switch ev.Kind {
			case domain.LiveTranscript:
				transcript.WriteString(ev.Text)
			case domain.LiveTurnComplete:
				v.finishTurn(parent, gen, transcript.String(), logger)
				return
			case domain.LiveError:
				v.fail(gen, ev.Err, logger)
				return
			}
		}
	}
}

func (v *VoiceController) finishTurn(ctx context.Context, gen uint64, transcript string, logger *slog.Logger) {
	text := strings.TrimSpace(transcript)

	if text == "" {
		if v.stop(gen, StatusNothingHeard) {
			logger.Info("turn completed without speech")
		}
		return
	}

	if !v.stop(gen, StatusFindingRoute) {
		return
	}
	logger.Info("turn completed", "transcript", text)

	if v.onUtterance != nil {
		v.onUtterance(ctx, text)
	}
}

func (v *VoiceController) fail(gen uint64, err error, logger *slog.Logger) {
	logger.Error("live session error", "error", err)
	v.stop(gen, StatusVoiceError)
}

// SetStatus replaces the status line while no session is active.
func (v *VoiceController) SetStatus(status string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == domain.SessionIdle {
		v.status = status
	}
}
