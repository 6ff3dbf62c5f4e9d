package bridge

import (
	"context"
	"errors"
	"time"

	"rootrelay/internal/activity"
	"rootrelay/internal/config"
)

var (
	// ErrNotFound is returned when no reference exists for a bridged id.
	ErrNotFound = errors.New("bridge reference not found")
	// ErrInvalidOptions is returned when Create is called without an activity.
	ErrInvalidOptions = errors.New("bridge options missing activity")
)

// Options carries everything needed to mint a bridged conversation id for
// one forwarding handoff.
type Options struct {
	OAuthScope string
	FromAppID  string
	Activity   *activity.Activity
	Skill      config.SkillDescriptor
}

// Reference is the stored mapping from a bridged conversation id back to the
// originating user conversation.
type Reference struct {
	BridgedID    string                         `json:"bridged_id"`
	OAuthScope   string                         `json:"oauth_scope"`
	FromAppID    string                         `json:"from_app_id"`
	SkillID      string                         `json:"skill_id"`
	SkillAppID   string                         `json:"skill_app_id"`
	Conversation activity.ConversationReference `json:"conversation"`
	CreatedAt    time.Time                      `json:"created_at"`
}

// Store owns the two pieces of mutable shared state in the relay: bridged
// conversation references and the per-conversation active-skill flag. No
// other component mutates either directly.
type Store interface {
	// Create returns the bridged id of the live handoff for the activity's
	// conversation and the given skill, minting and persisting a fresh
	// reference only when no live one exists. A handoff ends when its
	// reference is deleted; the next Create then mints a fresh id.
	Create(ctx context.Context, opts Options) (string, error)

	// Lookup returns the reference for a bridged id, or ErrNotFound.
	Lookup(ctx context.Context, bridgedID string) (Reference, error)

	// Delete removes the reference. Deleting an unknown id is not an error.
	Delete(ctx context.Context, bridgedID string) error

	// SetEngaged marks the user conversation as engaged with a skill.
	SetEngaged(ctx context.Context, conversationID string) error

	// ClearEngaged marks the user conversation as no longer engaged.
	ClearEngaged(ctx context.Context, conversationID string) error

	// Engaged reports whether the user conversation is engaged with a skill.
	Engaged(ctx context.Context, conversationID string) (bool, error)

	// Close releases any underlying resources.
	Close() error
}
