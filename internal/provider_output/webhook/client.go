// Package webhook posts generated content to a Discord incoming webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hintbot/internal/chat"
	"github.com/hintbot/internal/logging"
)

// errorBodyLimit bounds the response body kept in a WebhookError.
const errorBodyLimit = 500

// WebhookError is returned for any non-2xx response.
type WebhookError struct {
	StatusCode int
	Body       string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook POST failed (%d): %s", e.StatusCode, e.Body)
}

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type payload struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds"`
}

// Client posts messages to a single webhook URL.
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient creates a client for url. perSecond <= 0 disables pacing.
func NewClient(url string, perSecond float64, logger zerolog.Logger) *Client {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// Post sends msg as {content, embeds}. Any non-2xx status is an error.
func (c *Client) Post(ctx context.Context, msg chat.Outgoing) error {
	if c.url == "" {
		return errors.New("webhook url is not configured")
	}

	body := payload{Content: msg.Content, Embeds: make([]embed, 0, len(msg.Embeds))}
	for _, e := range msg.Embeds {
		body.Embeds = append(body.Embeds, embed{Title: e.Title, Description: e.Description, Color: e.Color})
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook body: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hintbot")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*errorBodyLimit))
		werr := &WebhookError{StatusCode: resp.StatusCode, Body: logging.Excerpt(string(raw), errorBodyLimit)}
		c.logger.Error().Int("status", resp.StatusCode).Str("body", werr.Body).Msg("webhook post rejected")
		return werr
	}

	c.logger.Info().Int("embeds", len(body.Embeds)).Msg("content posted to webhook")
	return nil
}
