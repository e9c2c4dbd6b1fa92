package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"voice-nav/internal/infra"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var ErrMissingAPIKey = errors.New("gemini API key not set")

// Client is a minimal generateContent client. The credential is fixed at
// construction.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	retry      infra.RetryConfig
}

func NewClient(apiKey string) *Client {
	return NewClientWithURL(apiKey, DefaultBaseURL)
}

func NewClientWithURL(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		retry:      infra.DefaultRetryConfig(),
	}
}

func (c *Client) HasCredential() bool {
	return c.apiKey != ""
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseMIMEType   string        `json:"responseMimeType,omitempty"`
	ResponseSchema     *schema       `json:"responseSchema,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type schema struct {
	Type       string             `json:"type"`
	Properties map[string]*schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type response struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Status  string `json:"status,omitempty"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gemini error %d: %s", e.Code, e.Message)
}

// firstText returns the text of the first candidate part carrying any.
func (r *response) firstText() (string, bool) {
	for _, cand := range r.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text, true
			}
		}
	}
	return "", false
}

// firstInlineData returns the first inline payload of the first candidate.
func (r *response) firstInlineData() (*inlineData, bool) {
	if len(r.Candidates) == 0 {
		return nil, false
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData, true
		}
	}
	return nil, false
}

func (c *Client) generateContent(ctx context.Context, model string, reqBody request) (*response, error) {
	if !c.HasCredential() {
		return nil, ErrMissingAPIKey
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return fmt.Errorf("gemini API error %d: %s (retryable)", resp.StatusCode, string(respBody))
			}
			return infra.Permanent(fmt.Errorf("gemini API error %d: %s", resp.StatusCode, string(respBody)))
		}

		result = response{}
		if err = json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	if result.Error != nil {
		return nil, result.Error
	}

	return &result, nil
}

// WithRetryConfig replaces the retry policy used for every request.
func (c *Client) WithRetryConfig(cfg infra.RetryConfig) *Client {
	c.retry = cfg
	return c
}
