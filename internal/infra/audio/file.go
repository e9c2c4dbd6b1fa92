package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"voice-nav/internal/application"
	"voice-nav/internal/domain"
)

// TrailingSilence is appended to every file so the provider's voice
// activity detection sees the end of the utterance.
const TrailingSilence = 1500 * time.Millisecond

// FileCapture replays WAV files dropped into a directory as if they were
// spoken into a microphone. Each Open takes the next unprocessed file.
type FileCapture struct {
	dir          string
	pollInterval time.Duration
	realtime     bool
	logger       *slog.Logger

	mu        sync.Mutex
	processed map[string]bool
}

func NewFileCapture(dir string, logger *slog.Logger) *FileCapture {
	return &FileCapture{
		dir:          dir,
		pollInterval: 500 * time.Millisecond,
		realtime:     true,
		logger:       logger,
		processed:    make(map[string]bool),
	}
}

// WithoutPacing delivers windows as fast as they are consumed.
func (f *FileCapture) WithoutPacing() *FileCapture {
	f.realtime = false
	return f
}

func (f *FileCapture) Name() string {
	return "file"
}

func (f *FileCapture) Open(ctx context.Context, sampleRate, windowSize int) (application.CaptureStream, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("invalid window size %d", windowSize)
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating audio dir: %w", err)
	}

	path, buf, err := f.next(ctx)
	if err != nil {
		return nil, err
	}
	if buf.SampleRate != sampleRate {
		return nil, fmt.Errorf("%s: sample rate %d, want %d", path, buf.SampleRate, sampleRate)
	}

	f.logger.Info("replaying audio file", "path", path, "frames", buf.Frames())

	s := &fileStream{
		frames: make(chan []float32),
		done:   make(chan struct{}),
	}
	window := time.Duration(windowSize) * time.Second / time.Duration(sampleRate)
	if !f.realtime {
		window = 0
	}
	silence := int(TrailingSilence.Seconds() * float64(sampleRate))
	samples := append(buf.Samples, make([]float32, silence)...)

	go s.run(ctx, samples, windowSize, window)
	return s, nil
}

// next blocks until an unprocessed WAV file is present in the directory.
func (f *FileCapture) next(ctx context.Context) (string, *domain.AudioBuffer, error) {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		path, buf, err := f.checkForNewFile()
		if err != nil {
			return "", nil, err
		}
		if buf != nil {
			return path, buf, nil
		}

		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *FileCapture) checkForNewFile() (string, *domain.AudioBuffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return "", nil, fmt.Errorf("reading dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".wav" {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		if f.processed[path] {
			continue
		}
		f.processed[path] = true

		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("reading file %s: %w", path, err)
		}

		if err := os.Rename(path, path+".processed"); err != nil {
			f.logger.Warn("marking audio file processed", "path", path, "error", err)
		}

		buf, err := DecodeWAV(data)
		if err != nil {
			f.logger.Warn("skipping audio file", "path", path, "error", err)
			continue
		}
		return path, buf, nil
	}

	return "", nil, nil
}

type fileStream struct {
	frames    chan []float32
	done      chan struct{}
	closeOnce sync.Once
}

func (s *fileStream) Frames() <-chan []float32 {
	return s.frames
}

func (s *fileStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *fileStream) run(ctx context.Context, samples []float32, windowSize int, pace time.Duration) {
	defer close(s.frames)

	var tick <-chan time.Time
	if pace > 0 {
		ticker := time.NewTicker(pace)
		defer ticker.Stop()
		tick = ticker.C
	}

	for off := 0; off < len(samples); off += windowSize {
		frame := make([]float32, windowSize)
		copy(frame, samples[off:])

		select {
		case s.frames <- frame:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}

		if tick != nil {
			select {
			case <-tick:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// FilePlayer writes each played buffer to a WAV file instead of a speaker.
type FilePlayer struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func NewFilePlayer(dir string, logger *slog.Logger) *FilePlayer {
	return &FilePlayer{dir: dir, logger: logger, now: time.Now}
}

func (p *FilePlayer) Play(ctx context.Context, buf *domain.AudioBuffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	path := filepath.Join(p.dir, fmt.Sprintf("directions-%d.wav", p.now().UnixNano()))
	if err := os.WriteFile(path, EncodeWAV(buf), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	p.logger.Info("directions audio written", "path", path, "frames", buf.Frames(), "sample_rate", buf.SampleRate)
	return nil
}
