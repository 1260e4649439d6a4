package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/feed-sieve/app/feed"
)

var _ ItemRepository = (*itemRepository)(nil)

type itemRepository struct {
	db        *DB
	sessionID string
}

// NewItemRepository returns the visibility store for one session. It is the
// pipeline's Effector.
func NewItemRepository(db *DB, sessionID string) ItemRepository {
	return &itemRepository{db: db, sessionID: sessionID}
}

func (r *itemRepository) Apply(ctx context.Context, item feed.Item, effect feed.Effect) error {
	if item.ID == "" {
		return fmt.Errorf("failed to apply effect: item has no id")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO item_effects (
			session_id, item_id, suppressed, hidden, dimmed, annotation, reason, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, item_id) DO UPDATE SET
			suppressed = excluded.suppressed,
			hidden = excluded.hidden,
			dimmed = excluded.dimmed,
			annotation = excluded.annotation,
			reason = excluded.reason,
			updated_at = excluded.updated_at
	`, r.sessionID, item.ID, effect.Suppressed, effect.Hide, effect.Dim,
		effect.Annotation, string(effect.Reason), time.Now().UTC().Unix())

	if err != nil {
		return fmt.Errorf("failed to apply effect to item %s: %w", item.ID, err)
	}

	return nil
}

func (r *itemRepository) GetItemEffect(ctx context.Context, itemID string) (*ItemEffect, error) {
	var effect ItemEffect
	var updatedAt int64

	err := r.db.QueryRowContext(ctx, `
		SELECT item_id, suppressed, hidden, dimmed, annotation, reason, updated_at
		FROM item_effects
		WHERE session_id = ? AND item_id = ?
	`, r.sessionID, itemID).Scan(
		&effect.ItemID, &effect.Suppressed, &effect.Hidden, &effect.Dimmed,
		&effect.Annotation, &effect.Reason, &updatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item effect: %w", err)
	}

	effect.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &effect, nil
}

func (r *itemRepository) GetItemStats(ctx context.Context) (ItemStats, error) {
	var stats ItemStats

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(suppressed), 0),
			COALESCE(SUM(hidden), 0),
			COALESCE(SUM(dimmed), 0)
		FROM item_effects
		WHERE session_id = ?
	`, r.sessionID).Scan(&stats.Total, &stats.Suppressed, &stats.Hidden, &stats.Dimmed)

	if err != nil {
		return ItemStats{}, fmt.Errorf("failed to get item stats: %w", err)
	}

	return stats, nil
}
