package skillclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rootrelay/internal/activity"
	"rootrelay/internal/config"
)

const maxResponseBody = 1 << 20 // 1 MB

// Response reports the transport outcome of posting one activity to a skill.
type Response struct {
	Status int
	Body   []byte
}

// Success reports whether the status is in the 2xx range.
func (r Response) Success() bool {
	return r.Status >= 200 && r.Status <= 299
}

// RelayError is returned when a skill answered with a non-success status.
// It is surfaced to the caller of the forwarding operation and is not
// retried automatically.
type RelayError struct {
	SkillID  string
	Endpoint string
	Status   int
	Body     string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay to skill %q at %q failed with status %d: %s",
		e.SkillID, e.Endpoint, e.Status, e.Body)
}

// Client sends one activity to one skill endpoint and reports the transport
// status. Token attachment and transport-level retries are the
// implementation's concern, not the caller's.
type Client interface {
	Send(ctx context.Context, target config.SkillDescriptor, callerEndpoint, bridgedConversationID string, act *activity.Activity) (Response, error)
}

// HTTPClient posts activities to skill endpoints as JSON.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates an HTTPClient with the given request timeout.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Send addresses the activity with the bridged conversation id and the
// caller's endpoint, then posts it to the skill. A non-2xx answer is
// reported through Response, not through the error return.
func (c *HTTPClient) Send(ctx context.Context, target config.SkillDescriptor, callerEndpoint, bridgedConversationID string, act *activity.Activity) (Response, error) {
	out := act.Clone()
	out.Conversation = activity.Conversation{ID: bridgedConversationID}
	out.ServiceURL = callerEndpoint
	out.Recipient = activity.Account{ID: target.AppID, Name: target.DisplayName}

	payload, err := json.Marshal(out)
	if err != nil {
		return Response{}, fmt.Errorf("encoding activity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("building skill request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("posting to skill %q: %w", target.ID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Response{}, fmt.Errorf("reading skill response: %w", err)
	}

	return Response{Status: resp.StatusCode, Body: body}, nil
}
