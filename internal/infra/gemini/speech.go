package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const (
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice       = "Kore"
)

var ErrNoAudio = errors.New("no audio data received from API")

// SpeechService synthesizes speech. Unlike DirectionsService it propagates
// every failure to the caller.
type SpeechService struct {
	client *Client
	model  string
	voice  string
	logger *slog.Logger
}

func NewSpeechService(client *Client, model, voice string, logger *slog.Logger) *SpeechService {
	if model == "" {
		model = DefaultSpeechModel
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &SpeechService{client: client, model: model, voice: voice, logger: logger}
}

// TextToSpeech returns the base64 PCM16 payload of the first inline audio part.
func (s *SpeechService) TextToSpeech(ctx context.Context, text string) (string, error) {
	reqBody := request{
		Contents: []content{
			{Parts: []part{{Text: text}}},
		},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: s.voice},
				},
			},
		},
	}

	result, err := s.client.generateContent(ctx, s.model, reqBody)
	if err != nil {
		s.logger.Error("error with text-to-speech service", "error", err)
		return "", fmt.Errorf("text-to-speech: %w", err)
	}

	audio, ok := result.firstInlineData()
	if !ok {
		s.logger.Error("error with text-to-speech service", "error", ErrNoAudio)
		return "", ErrNoAudio
	}

	s.logger.Debug("speech synthesized", "mime_type", audio.MIMEType, "base64_len", len(audio.Data))
	return audio.Data, nil
}
