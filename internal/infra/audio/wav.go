package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"voice-nav/internal/domain"
	"voice-nav/internal/pcm"
)

var ErrUnsupportedWAV = errors.New("unsupported wav format")

const wavHeaderSize = 44

// EncodeWAV wraps a buffer as a 16-bit PCM WAV file.
func EncodeWAV(buf *domain.AudioBuffer) []byte {
	channels := buf.Channels
	if channels < 1 {
		channels = 1
	}

	var out bytes.Buffer
	dataSize := len(buf.Samples) * 2
	out.Grow(wavHeaderSize + dataSize)

	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, int32(36+dataSize))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	binary.Write(&out, binary.LittleEndian, int32(16))
	binary.Write(&out, binary.LittleEndian, int16(1))
	binary.Write(&out, binary.LittleEndian, int16(channels))
	binary.Write(&out, binary.LittleEndian, int32(buf.SampleRate))
	binary.Write(&out, binary.LittleEndian, int32(buf.SampleRate*channels*2))
	binary.Write(&out, binary.LittleEndian, int16(channels*2))
	binary.Write(&out, binary.LittleEndian, int16(16))

	out.WriteString("data")
	binary.Write(&out, binary.LittleEndian, int32(dataSize))
	out.Write(pcm.Float32ToBytes(buf.Samples))

	return out.Bytes()
}

// DecodeWAV reads a 16-bit PCM WAV file into a mono buffer, averaging
// channels when there are several.
func DecodeWAV(data []byte) (*domain.AudioBuffer, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnsupportedWAV)
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bits       uint16
		haveFormat bool
		raw        []byte
	)

	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		off += 8
		if size < 0 || off+size > len(data) {
			size = len(data) - off
		}
		chunk := data[off : off+size]

		switch id {
		case "fmt ":
			if len(chunk) < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedWAV)
			}
			format = binary.LittleEndian.Uint16(chunk[0:2])
			channels = int(binary.LittleEndian.Uint16(chunk[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(chunk[4:8]))
			bits = binary.LittleEndian.Uint16(chunk[14:16])
			haveFormat = true
		case "data":
			raw = chunk
		}

		off += size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFormat {
		return nil, fmt.Errorf("%w: no fmt chunk", ErrUnsupportedWAV)
	}
	if format != 1 || bits != 16 || channels < 1 {
		return nil, fmt.Errorf("%w: format %d, %d bits, %d channels", ErrUnsupportedWAV, format, bits, channels)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no audio data", ErrUnsupportedWAV)
	}
	if len(raw)%2 == 1 {
		raw = raw[:len(raw)-1]
	}

	samples, err := pcm.BytesToFloat32(raw)
	if err != nil {
		return nil, err
	}

	return &domain.AudioBuffer{
		SampleRate: sampleRate,
		Channels:   1,
		Samples:    downmix(samples, channels),
	}, nil
}

func downmix(samples []float32, channels int) []float32 {
	if channels == 1 {
		return samples
	}
	mono := make([]float32, len(samples)/channels)
	for i := range mono {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
