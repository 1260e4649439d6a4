package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

var sessionTables = []string{"item_effects", "feeds", "seen_items"}

// StartSession registers a new session and drops every row left by earlier
// ones. Nothing outlives the process that wrote it.
func (r *SessionRepository) StartSession(ctx context.Context) (string, error) {
	id := uuid.NewString()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin session transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range sessionTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id <> ?", id); err != nil {
			return "", fmt.Errorf("failed to purge %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
		return "", fmt.Errorf("failed to purge sessions: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (id, started_at) VALUES (?, ?)",
		id, time.Now().UTC().Unix()); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit session: %w", err)
	}

	return id, nil
}

func (r *SessionRepository) GetSessionCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get session count: %w", err)
	}
	return count, nil
}
