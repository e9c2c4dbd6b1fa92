package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"voice-nav/internal/application"
	"voice-nav/internal/domain"
	"voice-nav/internal/pcm"
)

type utteranceRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *utteranceRecorder) handle(_ context.Context, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *utteranceRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func newTestVoice(conn *fakeConnector, capture *fakeCapture, rec *utteranceRecorder) *application.VoiceController {
	return application.NewVoiceController(conn, capture, rec.handle, discardLogger())
}

func TestVoiceController_MissingCredential(t *testing.T) {
	conn := &fakeConnector{session: newFakeSession(), noKey: true}
	voice := newTestVoice(conn, newFakeCapture(), &utteranceRecorder{})

	err := voice.StartListening(context.Background())
	if !errors.Is(err, application.ErrMissingCredential) {
		t.Fatalf("error: got %v, want ErrMissingCredential", err)
	}
	if conn.calls.Load() != 0 {
		t.Errorf("connect calls: got %d, want 0", conn.calls.Load())
	}
	if voice.Status() != application.StatusNoCredential {
		t.Errorf("status: got %q", voice.Status())
	}
	if voice.Listening() {
		t.Error("should not be listening")
	}
}

func TestVoiceController_StartTwiceStops(t *testing.T) {
	session := newFakeSession()
	capture := newFakeCapture()
	voice := newTestVoice(&fakeConnector{session: session}, capture, &utteranceRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := voice.StartListening(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if voice.State() != domain.SessionStreaming {
		t.Fatalf("state: got %s, want streaming", voice.State())
	}
	if voice.Status() != application.StatusListening {
		t.Errorf("status: got %q", voice.Status())
	}

	if err := voice.StartListening(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}

	if voice.State() != domain.SessionIdle {
		t.Errorf("state: got %s, want idle", voice.State())
	}
	if voice.Status() != application.StatusIdle {
		t.Errorf("status: got %q", voice.Status())
	}
	if !session.isClosed() {
		t.Error("session not closed")
	}
	if !capture.allClosed() {
		t.Error("capture stream not closed")
	}
}

func TestVoiceController_StopWhenIdle(t *testing.T) {
	voice := newTestVoice(&fakeConnector{noKey: true}, newFakeCapture(), &utteranceRecorder{})
	_ = voice.StartListening(context.Background())

	voice.StopListening()
	voice.StopListening()

	if voice.State() != domain.SessionIdle {
		t.Errorf("state: got %s", voice.State())
	}
	// Status is left as it was.
	if voice.Status() != application.StatusNoCredential {
		t.Errorf("status: got %q, want %q", voice.Status(), application.StatusNoCredential)
	}
}

func TestVoiceController_StreamsChunksInOrder(t *testing.T) {
	session := newFakeSession()
	capture := newFakeCapture()
	voice := newTestVoice(&fakeConnector{session: session}, capture, &utteranceRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := voice.StartListening(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer voice.StopListening()

	frames := [][]float32{
		{0.1, 0.2},
		{-0.5, 0.5, 0.25},
		{0},
	}
	for _, f := range frames {
		capture.frames <- f
	}

	for i, f := range frames {
		blob := <-session.sent
		want := pcm.EncodeChunk(f)
		if blob != want {
			t.Errorf("chunk %d: got %+v, want %+v", i, blob, want)
		}
	}
}

func TestVoiceController_SendFailureStopsSession(t *testing.T) {
	session := newFakeSession()
	session.failAt = 2
	capture := newFakeCapture()
	rec := &utteranceRecorder{}
	voice := newTestVoice(&fakeConnector{session: session}, capture, rec)

	if err := voice.StartListening(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	capture.frames <- []float32{0.1}
	capture.frames <- []float32{0.2}
	capture.frames <- []float32{0.3}

	waitFor(t, "voice error status", func() bool {
		return voice.State() == domain.SessionIdle && voice.Status() == application.StatusVoiceError
	})

	if got := len(session.sent); got != 1 {
		t.Errorf("chunks after failed send: got %d, want 1", got)
	}
	if !session.isClosed() {
		t.Error("session not closed after send failure")
	}
	if !capture.allClosed() {
		t.Error("capture not closed after send failure")
	}
	if len(rec.all()) != 0 {
		t.Errorf("no utterance expected, got %v", rec.all())
	}
}

func TestVoiceController_TurnCompleteEmitsTranscript(t *testing.T) {
	session := newFakeSession()
	rec := &utteranceRecorder{}
	voice := newTestVoice(&fakeConnector{session: session}, newFakeCapture(), rec)

	if err := voice.StartListening(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	session.transcript(" Lib", "rary ")

	waitFor(t, "utterance", func() bool { return len(rec.all()) == 1 })

	if got := rec.all()[0]; got != "Library" {
		t.Errorf("transcript: got %q, want %q", got, "Library")
	}
	if voice.Listening() {
		t.Error("still listening after turn completion")
	}
	if voice.Status() != application.StatusFindingRoute {
		t.Errorf("status: got %q", voice.Status())
	}
	if !session.isClosed() {
		t.Error("session not closed")
	}
}

func TestVoiceController_EmptyTranscript(t *testing.T) {
	session := newFakeSession()
	rec := &utteranceRecorder{}
	voice := newTestVoice(&fakeConnector{session: session}, newFakeCapture(), rec)

	if err := voice.StartListening(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	session.transcript("   ")

	waitFor(t, "idle", func() bool { return !voice.Listening() })

	if voice.Status() != application.StatusNothingHeard {
		t.Errorf("status: got %q", voice.Status())
	}
	if n := len(rec.all()); n != 0 {
		t.Errorf("utterances: got %d, want 0", n)
	}
}

func TestVoiceController_ErrorEvent(t *testing.T) {
	session := newFakeSession()
	capture := newFakeCapture()
	voice := newTestVoice(&fakeConnector{session: session}, capture, &utteranceRecorder{})

	if err := voice.StartListening(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	session.events <- domain.LiveEvent{Kind: domain.LiveError, Err: errors.New("boom")}

	waitFor(t, "idle", func() bool { return !voice.Listening() })

	if voice.Status() != application.StatusVoiceError {
		t.Errorf("status: got %q", voice.Status())
	}
	if !session.isClosed() || !capture.allClosed() {
		t.Error("resources not released")
	}
}

func TestVoiceController_SessionEndsUnexpectedly(t *testing.T) {
	session := newFakeSession()
	voice := newTestVoice(&fakeConnector{session: session}, newFakeCapture(), &utteranceRecorder{})

	if err := voice.StartListening(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	close(session.events)

	waitFor(t, "idle", func() bool { return !voice.Listening() })
	if voice.Status() != application.StatusVoiceError {
		t.Errorf("status: got %q", voice.Status())
	}
}

func TestVoiceController_ConnectFailure(t *testing.T) {
	voice := newTestVoice(&fakeConnector{err: errors.New("dial failed")}, newFakeCapture(), &utteranceRecorder{})

	if err := voice.StartListening(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if voice.State() != domain.SessionIdle {
		t.Errorf("state: got %s", voice.State())
	}
	if voice.Status() != application.StatusNoMicrophone {
		t.Errorf("status: got %q", voice.Status())
	}
}

func TestVoiceController_CaptureFailureClosesSession(t *testing.T) {
	session := newFakeSession()
	capture := newFakeCapture()
	capture.err = errors.New("permission denied")
	voice := newTestVoice(&fakeConnector{session: session}, capture, &utteranceRecorder{})

	if err := voice.StartListening(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !session.isClosed() {
		t.Error("session left open")
	}
	if voice.Status() != application.StatusNoMicrophone {
		t.Errorf("status: got %q", voice.Status())
	}
}

func TestVoiceController_ContextCancelStops(t *testing.T) {
	session := newFakeSession()
	voice := newTestVoice(&fakeConnector{session: session}, newFakeCapture(), &utteranceRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	if err := voice.StartListening(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	waitFor(t, "idle", func() bool { return !voice.Listening() })
	if !session.isClosed() {
		t.Error("session not closed")
	}
}
