package genagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// maxAttempts bounds generation for one logical request: the original
// attempt plus two retries.
const maxAttempts = 3

// Instructions is the system prompt for the structured forecast agent.
const Instructions = `You are a friendly assistant that helps people find a weather forecast for a given time and place.
You may ask follow up questions until you have enough information to answer the customers question,
but once you have a forecast, make sure to format it nicely using an adaptive card.

Respond in JSON format with the following JSON schema:

{
    "contentType": "'Text' or 'AdaptiveCard' only",
    "content": "{The content of the response, may be plain text, or JSON based adaptive card}"
}`

// ContentType is the kind of content a validated response carries.
type ContentType string

const (
	ContentTypeText         ContentType = "text"
	ContentTypeAdaptiveCard ContentType = "adaptive-card"
)

// UnmarshalJSON accepts the enumeration case-insensitively.
func (c *ContentType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("contentType must be a string: %w", err)
	}
	switch strings.ToLower(s) {
	case "text":
		*c = ContentTypeText
	case "adaptive-card", "adaptivecard":
		*c = ContentTypeAdaptiveCard
	default:
		return fmt.Errorf("contentType must be %q or %q, got %q", ContentTypeText, ContentTypeAdaptiveCard, s)
	}
	return nil
}

// Response is the validated structured output of one generation.
type Response struct {
	ContentType ContentType `json:"contentType"`
	Content     string      `json:"content"`
}

// FormatError reports generated output that failed schema validation. It is
// recovered locally by retrying with corrective feedback.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return e.Reason }

// ExhaustedError reports that the retry bound was hit without a valid
// response.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no valid response after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Stream is a finite, non-restartable sequence of text fragments. Recv
// returns io.EOF after the last fragment.
type Stream interface {
	Recv() (string, error)
}

// Generator produces a candidate response for an ordered chat history. Tool
// and plugin execution inside the call is opaque to this package.
type Generator interface {
	Generate(ctx context.Context, history []Message) (Stream, error)
}

// Agent wraps a Generator and enforces the structured response schema,
// retrying with corrective feedback on malformed output.
type Agent struct {
	gen    Generator
	logger *slog.Logger
}

// NewAgent creates an Agent over the given generator.
func NewAgent(gen Generator, logger *slog.Logger) *Agent {
	return &Agent{gen: gen, logger: logger}
}

// Invoke appends input to the history, generates a candidate response, and
// validates it against the response schema. Malformed output is retried with
// a corrective instruction embedding the validation error, over the same
// accumulated history, up to three total attempts.
func (a *Agent) Invoke(ctx context.Context, input string, history *History) (Response, error) {
	msg := input
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}

		history.Add(Message{Role: RoleUser, Content: msg})

		stream, err := a.gen.Generate(ctx, history.Messages())
		if err != nil {
			return Response{}, fmt.Errorf("generating response: %w", err)
		}

		var sb strings.Builder
		for {
			frag, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return Response{}, fmt.Errorf("reading generation stream: %w", err)
			}
			sb.WriteString(frag)
		}

		raw := sb.String()
		history.Add(Message{Role: RoleAssistant, Content: raw})

		resp, err := parseResponse(raw)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		a.logger.Debug("generated response failed validation", "attempt", attempt, "error", err)
		msg = fmt.Sprintf("That response did not match the expected format. Please try again. Error: %s", err)
	}

	return Response{}, &ExhaustedError{Attempts: maxAttempts, Last: lastErr}
}

// parseResponse strictly deserializes raw into a Response: exactly the two
// schema fields, contentType a known value, content a non-null string.
func parseResponse(raw string) (Response, error) {
	var wire struct {
		ContentType *ContentType `json:"contentType"`
		Content     *string      `json:"content"`
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return Response{}, &FormatError{Reason: err.Error()}
	}
	if dec.More() {
		return Response{}, &FormatError{Reason: "unexpected data after response object"}
	}
	if wire.ContentType == nil {
		return Response{}, &FormatError{Reason: "missing required field \"contentType\""}
	}
	if wire.Content == nil {
		return Response{}, &FormatError{Reason: "missing required field \"content\""}
	}

	return Response{ContentType: *wire.ContentType, Content: *wire.Content}, nil
}
