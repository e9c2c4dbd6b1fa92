//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"voice-nav/internal/domain"
)

// Speaker stub when portaudio is not available
type Speaker struct {
	logger *slog.Logger
}

func NewSpeaker(logger *slog.Logger) *Speaker {
	return &Speaker{logger: logger}
}

func (s *Speaker) Play(_ context.Context, _ *domain.AudioBuffer) error {
	return fmt.Errorf("speaker not available: rebuild with -tags portaudio")
}
