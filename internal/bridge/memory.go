package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory bridge store. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	refs      map[string]Reference
	byHandoff map[string]string // (conversation id, skill id) → bridged id
	engaged   map[string]bool   // keyed by user conversation id
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		refs:      make(map[string]Reference),
		byHandoff: make(map[string]string),
		engaged:   make(map[string]bool),
	}
}

func handoffKey(conversationID, skillID string) string {
	return conversationID + "\x00" + skillID
}

// Create returns the bridged id of the live handoff for (conversation,
// skill), minting and storing a fresh reference only when none exists.
func (s *MemoryStore) Create(_ context.Context, opts Options) (string, error) {
	if opts.Activity == nil {
		return "", ErrInvalidOptions
	}
	key := handoffKey(opts.Activity.Conversation.ID, opts.Skill.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byHandoff[key]; ok {
		return id, nil
	}

	ref := Reference{
		BridgedID:    uuid.New().String(),
		OAuthScope:   opts.OAuthScope,
		FromAppID:    opts.FromAppID,
		SkillID:      opts.Skill.ID,
		SkillAppID:   opts.Skill.AppID,
		Conversation: opts.Activity.Ref(),
		CreatedAt:    time.Now().UTC(),
	}
	s.refs[ref.BridgedID] = ref
	s.byHandoff[key] = ref.BridgedID
	return ref.BridgedID, nil
}

// Lookup returns the stored reference for a bridged id.
func (s *MemoryStore) Lookup(_ context.Context, bridgedID string) (Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.refs[bridgedID]
	if !ok {
		return Reference{}, ErrNotFound
	}
	return ref, nil
}

// Delete removes the reference for a bridged id, ending the handoff. The
// next Create for the same conversation and skill mints a fresh id.
func (s *MemoryStore) Delete(_ context.Context, bridgedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.refs[bridgedID]; ok {
		delete(s.byHandoff, handoffKey(ref.Conversation.Conversation.ID, ref.SkillID))
		delete(s.refs, bridgedID)
	}
	return nil
}

// SetEngaged marks the conversation as engaged with a skill.
func (s *MemoryStore) SetEngaged(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engaged[conversationID] = true
	return nil
}

// ClearEngaged marks the conversation as not engaged.
func (s *MemoryStore) ClearEngaged(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engaged, conversationID)
	return nil
}

// Engaged reports whether the conversation is engaged with a skill.
func (s *MemoryStore) Engaged(_ context.Context, conversationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engaged[conversationID], nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
