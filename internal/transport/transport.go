package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rootrelay/internal/activity"
)

const maxBodySize = 1 << 20 // 1 MB

// Validator checks an inbound bot-protocol request before deserialization.
// Full caller-identity validation is the hosting layer's concern; this
// enforces the transport basics and an optional shared bearer token.
type Validator struct {
	authToken string
}

// NewValidator creates a Validator. An empty authToken disables the token check.
func NewValidator(authToken string) *Validator {
	return &Validator{authToken: authToken}
}

// Validate checks the request method, content type, and bearer token.
func (v *Validator) Validate(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	if ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return fmt.Errorf("unsupported Content-Type %q, expected application/json", ct)
	}

	if v.authToken != "" {
		tok := r.Header.Get("Authorization")
		if tok != "Bearer "+v.authToken {
			return fmt.Errorf("invalid or missing authorization token")
		}
	}

	return nil
}

// ParseActivity deserializes the request body into an Activity, enforcing a
// 1MB body limit and the presence of type and conversation id.
func ParseActivity(r *http.Request) (*activity.Activity, error) {
	limited := io.LimitReader(r.Body, maxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("request body exceeds 1MB limit")
	}

	var act activity.Activity
	if err := json.Unmarshal(body, &act); err != nil {
		return nil, fmt.Errorf("decoding activity: %w", err)
	}

	if act.Type == "" {
		return nil, fmt.Errorf("activity is missing type")
	}
	if act.Conversation.ID == "" {
		return nil, fmt.Errorf("activity is missing conversation id")
	}
	if act.Timestamp.IsZero() {
		act.Timestamp = time.Now().UTC()
	}

	return &act, nil
}
