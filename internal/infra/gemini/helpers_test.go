package gemini_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"voice-nav/internal/infra"
	"voice-nav/internal/infra/gemini"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() infra.RetryConfig {
	return infra.RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}
}

// capturedRequest is the subset of a generateContent body the tests inspect.
type capturedRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseMIMEType   string   `json:"responseMimeType"`
		ResponseModalities []string `json:"responseModalities"`
		ResponseSchema     *struct {
			Type     string   `json:"type"`
			Required []string `json:"required"`
		} `json:"responseSchema"`
		SpeechConfig *struct {
			VoiceConfig struct {
				PrebuiltVoiceConfig struct {
					VoiceName string `json:"voiceName"`
				} `json:"prebuiltVoiceConfig"`
			} `json:"voiceConfig"`
		} `json:"speechConfig"`
	} `json:"generationConfig"`
}

type recorder struct {
	mu     sync.Mutex
	bodies []capturedRequest
	paths  []string
}

func (r *recorder) add(body capturedRequest, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bodies = append(r.bodies, body)
	r.paths = append(r.paths, path)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func (r *recorder) body(i int) capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodies[i]
}

func (r *recorder) path(i int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paths[i]
}

// newGenerateServer answers every generateContent call with reply and records
// the decoded request bodies.
func newGenerateServer(t *testing.T, status int, reply any) (*httptest.Server, *recorder) {
	t.Helper()

	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		rec.add(body, r.URL.Path+"?"+r.URL.RawQuery)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(server.Close)
	return server, rec
}

func textReply(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
}

func newClient(url string) *gemini.Client {
	return gemini.NewClientWithURL("test-key", url).WithRetryConfig(fastRetry())
}
