package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hintbot/internal/chat"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func makeResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func sampleMessage() chat.Outgoing {
	return chat.Outgoing{
		Content: "**Content generated for:** edge computing",
		Embeds: []chat.Embed{
			{Title: "LinkedIn Post", Description: "linkedin text", Color: 0x0a66c2},
			{Title: "X (Twitter) Post", Description: "tweet text", Color: 0x000000},
		},
	}
}

func TestPost_SendsContentAndEmbeds(t *testing.T) {
	client := NewClient("https://discord.example/api/webhooks/1/abc", 0, zerolog.Nop())

	var capturedURL, capturedMethod, capturedType string
	var captured map[string]interface{}
	client.httpClient = &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
		capturedURL = req.URL.String()
		capturedMethod = req.Method
		capturedType = req.Header.Get("Content-Type")
		raw, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(raw, &captured)
		return makeResponse(http.StatusNoContent, "")
	})}

	require.NoError(t, client.Post(context.Background(), sampleMessage()))

	assert.Equal(t, "https://discord.example/api/webhooks/1/abc", capturedURL)
	assert.Equal(t, http.MethodPost, capturedMethod)
	assert.Equal(t, "application/json", capturedType)
	assert.Equal(t, "**Content generated for:** edge computing", captured["content"])

	embeds, ok := captured["embeds"].([]interface{})
	require.True(t, ok)
	require.Len(t, embeds, 2)
	first := embeds[0].(map[string]interface{})
	assert.Equal(t, "LinkedIn Post", first["title"])
	assert.Equal(t, "linkedin text", first["description"])
	assert.Equal(t, float64(0x0a66c2), first["color"])
	second := embeds[1].(map[string]interface{})
	assert.Equal(t, float64(0), second["color"])
}

func TestPost_NonSuccessStatusIsError(t *testing.T) {
	client := NewClient("https://discord.example/api/webhooks/1/abc", 0, zerolog.Nop())
	client.httpClient = &http.Client{Transport: roundTripFunc(func(*http.Request) *http.Response {
		return makeResponse(http.StatusNotFound, `{"message": "Unknown Webhook", "code": 10015}`)
	})}

	err := client.Post(context.Background(), sampleMessage())

	var werr *WebhookError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, http.StatusNotFound, werr.StatusCode)
	assert.Contains(t, werr.Body, "Unknown Webhook")
	assert.Contains(t, err.Error(), "(404)")
}

func TestPost_ErrorBodyBounded(t *testing.T) {
	client := NewClient("https://discord.example/api/webhooks/1/abc", 0, zerolog.Nop())
	client.httpClient = &http.Client{Transport: roundTripFunc(func(*http.Request) *http.Response {
		return makeResponse(http.StatusInternalServerError, strings.Repeat("x", 10000))
	})}

	err := client.Post(context.Background(), sampleMessage())

	var werr *WebhookError
	require.True(t, errors.As(err, &werr))
	assert.LessOrEqual(t, len(werr.Body), errorBodyLimit+len("..."))
}

func TestPost_MissingURL(t *testing.T) {
	err := NewClient("", 0, zerolog.Nop()).Post(context.Background(), sampleMessage())
	assert.Error(t, err)
}

func TestPost_AgainstServer(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		var p payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil || len(p.Embeds) != 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, zerolog.Nop())
	require.NoError(t, client.Post(context.Background(), sampleMessage()))
	assert.Equal(t, 1, hits)
}

func TestPost_RateLimited(t *testing.T) {
	client := NewClient("https://discord.example/api/webhooks/1/abc", 10, zerolog.Nop())
	client.httpClient = &http.Client{Transport: roundTripFunc(func(*http.Request) *http.Response {
		return makeResponse(http.StatusNoContent, "")
	})}

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, client.Post(context.Background(), sampleMessage()))
	}
	// Burst of one at 10/s: the second and third posts each wait ~100ms.
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, client.Post(ctx, sampleMessage()))
}
