package bridge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS bridge_refs (
	bridged_id      TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	oauth_scope     TEXT NOT NULL,
	from_app_id     TEXT NOT NULL,
	skill_id        TEXT NOT NULL,
	skill_app_id    TEXT NOT NULL,
	conversation    TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS bridge_refs_handoff
	ON bridge_refs (conversation_id, skill_id);
CREATE TABLE IF NOT EXISTS engagements (
	conversation_id TEXT PRIMARY KEY,
	engaged_at      TEXT NOT NULL
);
`

// SQLiteStore persists bridge references and engagement flags in SQLite,
// surviving process restarts so in-flight handoffs can still be resumed.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite bridge store at path.
// WAL mode and a busy timeout are set so concurrent continuation callbacks
// do not trip over the writer lock.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	ctx := context.Background()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply bridge schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create returns the bridged id of the live handoff for (conversation,
// skill), minting and persisting a fresh reference only when none exists.
func (s *SQLiteStore) Create(ctx context.Context, opts Options) (string, error) {
	if opts.Activity == nil {
		return "", ErrInvalidOptions
	}
	convID := opts.Activity.Conversation.ID

	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT bridged_id FROM bridge_refs WHERE conversation_id = ? AND skill_id = ?`,
		convID, opts.Skill.ID).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("query live handoff: %w", err)
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

	conv, err := json.Marshal(ref.Conversation)
	if err != nil {
		return "", fmt.Errorf("encode conversation reference: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bridge_refs (bridged_id, conversation_id, oauth_scope, from_app_id, skill_id, skill_app_id, conversation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.BridgedID, convID, ref.OAuthScope, ref.FromAppID, ref.SkillID, ref.SkillAppID, string(conv),
		ref.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert bridge reference: %w", err)
	}
	return ref.BridgedID, nil
}

// Lookup returns the stored reference for a bridged id.
func (s *SQLiteStore) Lookup(ctx context.Context, bridgedID string) (Reference, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT bridged_id, oauth_scope, from_app_id, skill_id, skill_app_id, conversation, created_at
		 FROM bridge_refs WHERE bridged_id = ?`, bridgedID)

	var ref Reference
	var conv, created string
	err := row.Scan(&ref.BridgedID, &ref.OAuthScope, &ref.FromAppID, &ref.SkillID, &ref.SkillAppID, &conv, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Reference{}, ErrNotFound
	}
	if err != nil {
		return Reference{}, fmt.Errorf("query bridge reference: %w", err)
	}

	if err := json.Unmarshal([]byte(conv), &ref.Conversation); err != nil {
		return Reference{}, fmt.Errorf("decode conversation reference: %w", err)
	}
	if ref.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Reference{}, fmt.Errorf("decode created_at: %w", err)
	}
	return ref, nil
}

// Delete removes the reference for a bridged id, ending the handoff. The
// next Create for the same conversation and skill mints a fresh id.
func (s *SQLiteStore) Delete(ctx context.Context, bridgedID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM bridge_refs WHERE bridged_id = ?`, bridgedID); err != nil {
		return fmt.Errorf("delete bridge reference: %w", err)
	}
	return nil
}

// SetEngaged marks the conversation as engaged with a skill.
func (s *SQLiteStore) SetEngaged(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO engagements (conversation_id, engaged_at) VALUES (?, ?)
		 ON CONFLICT(conversation_id) DO UPDATE SET engaged_at = excluded.engaged_at`,
		conversationID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set engaged: %w", err)
	}
	return nil
}

// ClearEngaged marks the conversation as not engaged.
func (s *SQLiteStore) ClearEngaged(ctx context.Context, conversationID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM engagements WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("clear engaged: %w", err)
	}
	return nil
}

// Engaged reports whether the conversation is engaged with a skill.
func (s *SQLiteStore) Engaged(ctx context.Context, conversationID string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM engagements WHERE conversation_id = ?`, conversationID)
	var one int
	err := row.Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query engagement: %w", err)
	}
	return true, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
