package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voice-nav/internal/application"
	"voice-nav/internal/domain"
)

const (
	// DefaultLiveURL is the Gemini Live BidiGenerateContent WebSocket endpoint.
	DefaultLiveURL   = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	DefaultLiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"

	DefaultSystemInstruction = "You are a helpful navigation assistant for an Amharic-speaking user. Transcribe their destination accurately."

	liveEventBuffer = 64
)

var ErrSessionClosed = errors.New("live session closed")

// LiveClient opens Gemini Live transcription sessions.
type LiveClient struct {
	apiKey            string
	url               string
	model             string
	systemInstruction string
	setupTimeout      time.Duration
	dialer            *websocket.Dialer
	logger            *slog.Logger
}

func NewLiveClient(apiKey, model string, logger *slog.Logger) *LiveClient {
	return NewLiveClientWithURL(apiKey, model, DefaultLiveURL, logger)
}

func NewLiveClientWithURL(apiKey, model, liveURL string, logger *slog.Logger) *LiveClient {
	if model == "" {
		model = DefaultLiveModel
	}
	return &LiveClient{
		apiKey:            apiKey,
		url:               liveURL,
		model:             model,
		systemInstruction: DefaultSystemInstruction,
		setupTimeout:      10 * time.Second,
		dialer:            &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:            logger,
	}
}

func (c *LiveClient) HasCredential() bool {
	return c.apiKey != ""
}

type liveSetup struct {
	Setup setupBody `json:"setup"`
}

type setupBody struct {
	Model                   string        `json:"model"`
	GenerationConfig        liveGenConfig `json:"generationConfig"`
	SystemInstruction       *content      `json:"systemInstruction,omitempty"`
	InputAudioTranscription *struct{}     `json:"inputAudioTranscription,omitempty"`
}

type liveGenConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type realtimeInput struct {
	RealtimeInput realtimeBody `json:"realtimeInput"`
}

type realtimeBody struct {
	MediaChunks []domain.AudioBlob `json:"mediaChunks"`
}

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *struct {
		InputTranscription *struct {
			Text string `json:"text"`
		} `json:"inputTranscription,omitempty"`
		TurnComplete bool `json:"turnComplete,omitempty"`
	} `json:"serverContent,omitempty"`
	GoAway *struct {
		TimeLeft string `json:"timeLeft"`
	} `json:"goAway,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

// Connect dials the endpoint, sends the setup message and waits for the
// server to acknowledge it. Cancelling ctx closes the session.
func (c *LiveClient) Connect(ctx context.Context) (application.LiveSession, error) {
	if !c.HasCredential() {
		return nil, ErrMissingAPIKey
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("parsing live url: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connecting to gemini live (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("connecting to gemini live: %w", err)
	}

	model := c.model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	setup := liveSetup{Setup: setupBody{
		Model:            model,
		GenerationConfig: liveGenConfig{ResponseModalities: []string{"AUDIO"}},
		SystemInstruction: &content{
			Parts: []part{{Text: c.systemInstruction}},
		},
		InputAudioTranscription: &struct{}{},
	}}
	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending setup: %w", err)
	}

	if err := c.awaitSetup(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	s := &liveSession{
		conn:   conn,
		events: make(chan domain.LiveEvent, liveEventBuffer),
		done:   make(chan struct{}),
		logger: c.logger,
	}
	s.stopAfter = context.AfterFunc(ctx, func() { _ = s.Close() })

	go s.readLoop()

	c.logger.Debug("gemini live session ready", "model", model)
	return s, nil
}

func (c *LiveClient) awaitSetup(ctx context.Context, conn *websocket.Conn) error {
	deadline := time.Now().Add(c.setupTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("setting read deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("waiting for setup: %w", err)
		}
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("decoding setup reply: %w", err)
		}
		if msg.Error != nil {
			return msg.Error
		}
		if msg.SetupComplete != nil {
			break
		}
	}

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return fmt.Errorf("clearing read deadline: %w", err)
	}
	return nil
}

type liveSession struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	events    chan domain.LiveEvent
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	stopAfter func() bool
	logger    *slog.Logger
}

func (s *liveSession) Events() <-chan domain.LiveEvent {
	return s.events
}

func (s *liveSession) SendAudio(_ context.Context, blob domain.AudioBlob) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	msg := realtimeInput{RealtimeInput: realtimeBody{MediaChunks: []domain.AudioBlob{blob}}}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("sending audio: %w", err)
	}
	return nil
}

func (s *liveSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)

		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()

		err = s.conn.Close()
	})
	return err
}

func (s *liveSession) readLoop() {
	defer close(s.events)
	defer s.stopAfter()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.emit(domain.LiveEvent{Kind: domain.LiveError, Err: fmt.Errorf("reading live message: %w", err)})
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("failed to parse live message", "error", err)
			continue
		}

		if msg.Error != nil {
			s.emit(domain.LiveEvent{Kind: domain.LiveError, Err: msg.Error})
			return
		}
		if msg.GoAway != nil {
			s.logger.Warn("gemini live going away", "time_left", msg.GoAway.TimeLeft)
		}
		if sc := msg.ServerContent; sc != nil {
			if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
				if !s.emit(domain.LiveEvent{Kind: domain.LiveTranscript, Text: sc.InputTranscription.Text}) {
					return
				}
			}
			if sc.TurnComplete {
				if !s.emit(domain.LiveEvent{Kind: domain.LiveTurnComplete}) {
					return
				}
			}
		}
	}
}

// emit delivers ev in arrival order. It reports false once the session is
// closed.
func (s *liveSession) emit(ev domain.LiveEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}
