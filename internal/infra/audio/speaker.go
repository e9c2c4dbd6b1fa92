//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voice-nav/internal/domain"
)

const speakerFramesPerBuffer = 1024

// Speaker plays buffers on the default output device. Playbacks are
// serialised.
type Speaker struct {
	logger *slog.Logger
	mu     sync.Mutex
}

func NewSpeaker(logger *slog.Logger) *Speaker {
	return &Speaker{logger: logger}
}

func (s *Speaker) Play(ctx context.Context, buf *domain.AudioBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels := buf.Channels
	if channels < 1 {
		channels = 1
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	out := make([]float32, speakerFramesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(buf.SampleRate), speakerFramesPerBuffer, out)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	defer stream.Stop()

	s.logger.Info("playing audio", "frames", buf.Frames(), "sample_rate", buf.SampleRate)

	for off := 0; off < len(buf.Samples); off += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(out, buf.Samples[off:])
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("writing to stream: %w", err)
		}
	}
	return nil
}
