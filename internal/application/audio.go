package application

import (
	"context"

	"voice-nav/internal/domain"
)

// AudioCapture opens a capture device. Each Open call yields an independent
// stream so that one voice session never releases another session's device.
type AudioCapture interface {
	Open(ctx context.Context, sampleRate, windowSize int) (CaptureStream, error)
	Name() string
}

// CaptureStream delivers fixed-size sample windows in capture order. Frames is
// closed when the stream ends.
type CaptureStream interface {
	Frames() <-chan []float32
	Close() error
}

type AudioPlayer interface {
	Play(ctx context.Context, buf *domain.AudioBuffer) error
}
