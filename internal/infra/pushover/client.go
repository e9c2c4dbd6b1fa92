package pushover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voice-nav/internal/infra"
)

const (
	DefaultBaseURL = "https://api.pushover.net/1"
	DefaultTitle   = "Voice Nav"
)

// Client sends route notifications. It is a no-op until both credentials
// are set.
type Client struct {
	token      string
	userKey    string
	title      string
	baseURL    string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(token, userKey string) *Client {
	return NewClientWithURL(token, userKey, DefaultBaseURL)
}

func NewClientWithURL(token, userKey, baseURL string) *Client {
	return &Client{
		token:      token,
		userKey:    userKey,
		title:      DefaultTitle,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", c.title)
	body := data.Encode()

	return infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			c.baseURL+"/messages.json",
			strings.NewReader(body),
		)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("pushover error: %s", resp.Status)
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return err
			}
			return infra.Permanent(err)
		}

		return nil
	})
}

// WithRetryConfig replaces the retry policy used for every notification.
func (c *Client) WithRetryConfig(cfg infra.RetryConfig) *Client {
	c.retry = cfg
	return c
}
