// Package pcm converts between float audio samples and the base64-framed
// 16-bit little-endian PCM used on the wire.
package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"voice-nav/internal/domain"
)

const scale = 32768

var (
	ErrEmptyPayload = errors.New("empty audio payload")
	ErrOddLength    = errors.New("audio payload has odd byte length")
)

// EncodeChunk converts one capture window to a transport blob.
// Samples outside [-1, 1] are clamped instead of wrapping.
func EncodeChunk(samples []float32) domain.AudioBlob {
	return domain.AudioBlob{
		Data:     base64.StdEncoding.EncodeToString(Float32ToBytes(samples)),
		MIMEType: domain.CaptureMIMEType,
	}
}

// DecodePayload turns a base64 PCM16 payload into a mono 24 kHz buffer.
func DecodePayload(payload string) (*domain.AudioBuffer, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}
	samples, err := BytesToFloat32(raw)
	if err != nil {
		return nil, err
	}
	return &domain.AudioBuffer{
		SampleRate: domain.PlaybackSampleRate,
		Channels:   1,
		Samples:    samples,
	}, nil
}

// ToInt16 quantises a single sample, truncating toward zero.
func ToInt16(s float32) int16 {
	v := float64(s) * scale
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

func Float32ToBytes(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(ToInt16(s)))
	}
	return out
}

// BytesToInt16 reinterprets little-endian PCM16 bytes.
func BytesToInt16(raw []byte) ([]int16, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrOddLength, len(raw))
	}
	out := make([]int16, len(raw)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return out, nil
}

func BytesToFloat32(raw []byte) ([]float32, error) {
	ints, err := BytesToInt16(raw)
	if err != nil {
		return nil, err
	}
	return Int16ToFloat32(ints), nil
}

func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / scale
	}
	return out
}
