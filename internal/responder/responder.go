package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"rootrelay/internal/activity"
)

// Log delivers outbound activities to the structured log and returns
// generated delivery ids. Useful for testing and development.
type Log struct {
	Logger *slog.Logger
}

// Deliver logs the outbound activity and returns a fresh delivery id.
func (l *Log) Deliver(_ context.Context, act *activity.Activity) (string, error) {
	l.Logger.Info("outbound activity",
		"conversation_id", act.Conversation.ID,
		"type", act.Type,
		"text", act.Text,
	)
	return uuid.New().String(), nil
}

// Auto delivers over HTTP when the activity carries a service URL and falls
// back to the log otherwise, so local conversations without a channel
// endpoint still get their replies surfaced.
type Auto struct {
	HTTP *HTTP
	Log  *Log
}

// Deliver routes to the HTTP or log responder based on the service URL.
func (a *Auto) Deliver(ctx context.Context, act *activity.Activity) (string, error) {
	if act.ServiceURL != "" {
		return a.HTTP.Deliver(ctx, act)
	}
	return a.Log.Deliver(ctx, act)
}

// HTTP delivers outbound activities to the conversation's channel endpoint,
// posting to {serviceUrl}/v3/conversations/{conversationId}/activities.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates an HTTP responder with the given request timeout.
func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{client: &http.Client{Timeout: timeout}}
}

// Deliver posts the activity to its channel and returns the delivery id the
// channel assigned, or a generated one if the channel returned none.
func (h *HTTP) Deliver(ctx context.Context, act *activity.Activity) (string, error) {
	if act.ServiceURL == "" {
		return "", fmt.Errorf("activity has no service URL")
	}

	endpoint := strings.TrimSuffix(act.ServiceURL, "/") +
		"/v3/conversations/" + url.PathEscape(act.Conversation.ID) + "/activities"

	payload, err := json.Marshal(act)
	if err != nil {
		return "", fmt.Errorf("encoding activity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("delivering activity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("channel rejected activity with status %d: %s", resp.StatusCode, body)
	}

	var rr activity.ResourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil || rr.ID == "" {
		return uuid.New().String(), nil
	}
	return rr.ID, nil
}
