package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/feed-sieve/app/feed"
)

var _ FeedRepository = (*feedRepository)(nil)

type feedRepository struct {
	db        *DB
	sessionID string
}

func NewFeedRepository(db *DB, sessionID string) FeedRepository {
	return &feedRepository{db: db, sessionID: sessionID}
}

func (r *feedRepository) GetFeed(ctx context.Context, name string) (*Feed, error) {
	var f Feed
	var lastFetched, nextFetch sql.NullInt64

	err := r.db.QueryRowContext(ctx, `
		SELECT name, feed_url, title, link, language, last_fetched_at, next_fetch_at
		FROM feeds
		WHERE session_id = ? AND name = ?
	`, r.sessionID, name).Scan(
		&f.Name, &f.FeedURL, &f.Title, &f.Link, &f.Language, &lastFetched, &nextFetch,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	f.LastFetchedAt = unixTime(lastFetched)
	f.NextFetchAt = unixTime(nextFetch)
	return &f, nil
}

func (r *feedRepository) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feeds WHERE session_id = ?", r.sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

func (r *feedRepository) UpsertFeed(ctx context.Context, name, feedURL string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feeds (session_id, name, feed_url)
		VALUES (?, ?, ?)
		ON CONFLICT (session_id, name) DO UPDATE SET
			feed_url = excluded.feed_url
	`, r.sessionID, name, feedURL)

	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}

	return nil
}

func (r *feedRepository) UpdateFeedMetadata(ctx context.Context, name string, metadata feed.Metadata, nextFetch time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET title = ?, link = ?, language = ?, last_fetched_at = ?, next_fetch_at = ?
		WHERE session_id = ? AND name = ?
	`, metadata.Title, metadata.Link, metadata.Language,
		time.Now().UTC().Unix(), nextFetch.UTC().Unix(), r.sessionID, name)

	if err != nil {
		return fmt.Errorf("failed to update feed metadata: %w", err)
	}

	return nil
}

func (r *feedRepository) UpdateNextFetch(ctx context.Context, name string, nextFetch time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET next_fetch_at = ?
		WHERE session_id = ? AND name = ?
	`, nextFetch.UTC().Unix(), r.sessionID, name)

	if err != nil {
		return fmt.Errorf("failed to update next fetch time: %w", err)
	}

	return nil
}

// FilterUnseen drops items whose id was already recorded for this feed and
// collapses repeats inside items, preserving order.
func (r *feedRepository) FilterUnseen(ctx context.Context, name string, items []feed.Item) ([]feed.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT guid FROM seen_items
		WHERE session_id = ? AND feed_name = ?
	`, r.sessionID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get seen items: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var guid string
		if err := rows.Scan(&guid); err != nil {
			return nil, fmt.Errorf("failed to scan seen item row: %w", err)
		}
		seen[guid] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seen item rows: %w", err)
	}

	var unseen []feed.Item
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		unseen = append(unseen, item)
	}

	return unseen, nil
}

func (r *feedRepository) MarkSeen(ctx context.Context, name string, items []feed.Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO seen_items (session_id, feed_name, guid, seen_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare seen item insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Unix()
	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, r.sessionID, name, item.ID, now); err != nil {
			return fmt.Errorf("failed to mark item %s as seen: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seen items: %w", err)
	}

	return nil
}

func (r *feedRepository) HasSeen(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM seen_items WHERE session_id = ? AND feed_name = ?)
	`, r.sessionID, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check seen items: %w", err)
	}
	return exists, nil
}

func unixTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
