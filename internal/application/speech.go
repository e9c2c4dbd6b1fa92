package application

import (
	"context"

	"voice-nav/internal/domain"
)

// SpeechSynthesizer returns base64 PCM16 audio for the given text. Errors
// are propagated to the caller.
type SpeechSynthesizer interface {
	TextToSpeech(ctx context.Context, text string) (string, error)
}

// RouteResolver never fails: implementations degrade to a fallback route.
type RouteResolver interface {
	GetDirections(ctx context.Context, destination string, location *domain.UserLocation) domain.RouteDetails
}

// LiveConnector opens streaming transcription sessions.
type LiveConnector interface {
	Connect(ctx context.Context) (LiveSession, error)
	HasCredential() bool
}

type LiveSession interface {
	SendAudio(ctx context.Context, blob domain.AudioBlob) error
	// Events is closed once the session has ended.
	Events() <-chan domain.LiveEvent
	Close() error
}
