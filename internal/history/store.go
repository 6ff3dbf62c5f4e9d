package history

import (
	"time"

	"github.com/google/uuid"

	"rootrelay/internal/activity"
)

// Status is the relay outcome recorded for a processed turn.
type Status string

const (
	StatusReceived  Status = "received"
	StatusForwarded Status = "forwarded"
	StatusAnswered  Status = "answered"
	StatusEnded     Status = "ended"
	StatusFailed    Status = "failed"
)

// Record is one processed turn in the relay's recent history.
type Record struct {
	ID             uuid.UUID     `json:"id"`
	ConversationID string        `json:"conversation_id"`
	Type           activity.Type `json:"type"`
	Text           string        `json:"text,omitempty"`
	CallerID       string        `json:"caller_id,omitempty"`
	Status         Status        `json:"status"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Store defines the interface for the recent-turn log backing the admin
// surface.
type Store interface {
	// Save records a turn. Oldest records may be evicted at capacity.
	Save(rec Record) error

	// Get retrieves a record by ID. Returns an error if not found.
	Get(id uuid.UUID) (Record, error)

	// List returns up to limit records, ordered newest-first.
	// offset skips the first N results for pagination.
	List(limit, offset int) ([]Record, error)

	// UpdateStatus changes the status of a record identified by ID.
	UpdateStatus(id uuid.UUID, status Status) error

	// Count returns the number of records currently stored.
	Count() int
}
