//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"voice-nav/internal/application"
)

// MicrophoneCapture stub when portaudio is not available
type MicrophoneCapture struct {
	logger *slog.Logger
}

func NewMicrophoneCapture(logger *slog.Logger) *MicrophoneCapture {
	return &MicrophoneCapture{logger: logger}
}

func (m *MicrophoneCapture) Name() string {
	return "microphone"
}

func (m *MicrophoneCapture) Open(_ context.Context, _, _ int) (application.CaptureStream, error) {
	return nil, fmt.Errorf("microphone capture not available: rebuild with -tags portaudio")
}
