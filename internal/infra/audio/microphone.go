//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voice-nav/internal/application"
)

// MicrophoneCapture records from the default input device.
type MicrophoneCapture struct {
	logger *slog.Logger
}

func NewMicrophoneCapture(logger *slog.Logger) *MicrophoneCapture {
	return &MicrophoneCapture{logger: logger}
}

func (m *MicrophoneCapture) Name() string {
	return "microphone"
}

func (m *MicrophoneCapture) Open(ctx context.Context, sampleRate, windowSize int) (application.CaptureStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	inputChannels := 1
	outputChannels := 0
	buffer := make([]float32, windowSize)

	stream, err := portaudio.OpenDefaultStream(
		inputChannels,
		outputChannels,
		float64(sampleRate),
		windowSize,
		buffer,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", sampleRate, "window", windowSize)

	s := &micStream{
		stream: stream,
		buffer: buffer,
		frames: make(chan []float32, 4),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		logger: m.logger,
	}
	go s.run(ctx)
	return s, nil
}

type micStream struct {
	stream *portaudio.Stream
	buffer []float32
	frames chan []float32
	done   chan struct{}
	exited chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

func (s *micStream) Frames() <-chan []float32 {
	return s.frames
}

// run reads one window per iteration. Close waits for the current read to
// finish before the device is released.
func (s *micStream) run(ctx context.Context) {
	defer close(s.exited)
	defer close(s.frames)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			s.logger.Error("reading from microphone", "error", err)
			return
		}

		frame := make([]float32, len(s.buffer))
		copy(frame, s.buffer)

		select {
		case s.frames <- frame:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *micStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.exited

		if stopErr := s.stream.Stop(); stopErr != nil {
			err = fmt.Errorf("stopping stream: %w", stopErr)
		}
		if closeErr := s.stream.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing stream: %w", closeErr)
		}
		portaudio.Terminate()
		s.logger.Info("microphone stopped")
	})
	return err
}
