// Package slack implements a minimal Slack Web API client for posting
// chat messages with attachments.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://slack.com/api"

// Client posts messages through the Slack Web API using token auth
type Client struct {
	token      string
	baseURL    string
	logger     *zap.Logger
	httpClient *http.Client
}

// Attachment represents a Slack message attachment
type Attachment struct {
	Color    string  `json:"color,omitempty"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text,omitempty"`
	Fallback string  `json:"fallback,omitempty"`
	Pretext  string  `json:"pretext,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
	Footer   string  `json:"footer,omitempty"`
	Ts       int64   `json:"ts,omitempty"`
}

// Field represents a field in a Slack attachment
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// postMessageRequest is the chat.postMessage payload
type postMessageRequest struct {
	Channel     string       `json:"channel"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// postMessageResponse is the chat.postMessage API response envelope
type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the Slack API base URL (used in tests)
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new Slack Web API client
func NewClient(token string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Token returns the token the client authenticates with
func (c *Client) Token() string {
	return c.token
}

// PostMessage posts a message with attachments to the given channel
func (c *Client) PostMessage(ctx context.Context, channelID string, attachments []Attachment, username, iconEmoji string) error {
	if channelID == "" {
		return fmt.Errorf("slack channel ID is required")
	}

	payload, err := json.Marshal(postMessageRequest{
		Channel:     channelID,
		Username:    username,
		IconEmoji:   iconEmoji,
		Attachments: attachments,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat.postMessage", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d", resp.StatusCode)
	}

	var apiResp postMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode slack response: %w", err)
	}

	if !apiResp.OK {
		return fmt.Errorf("slack API error: %s", apiResp.Error)
	}

	c.logger.Debug("Posted Slack message",
		zap.String("channel_id", channelID),
		zap.String("token", maskToken(c.token)))

	return nil
}

// maskToken masks the API token for logging
func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "***"
}
