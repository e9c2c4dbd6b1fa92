package domain

const (
	CaptureSampleRate  = 16000
	PlaybackSampleRate = 24000
	CaptureWindowSize  = 4096

	CaptureMIMEType = "audio/pcm;rate=16000"
)

// AudioBlob is one base64-framed PCM16 chunk ready for the transport.
type AudioBlob struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// AudioBuffer holds normalised float samples, interleaved when Channels > 1.
type AudioBuffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Frames returns the number of sample frames in the buffer.
func (b *AudioBuffer) Frames() int {
	if b.Channels <= 1 {
		return len(b.Samples)
	}
	return len(b.Samples) / b.Channels
}
