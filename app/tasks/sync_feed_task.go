package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/feed-sieve/app/database"
	"github.com/lysyi3m/feed-sieve/app/rules"
)

// SyncFeedTask registers a configured feed source in the session store so
// the scheduler can track when it is due.
type SyncFeedTask struct {
	Task
	FeedSource rules.FeedSource
	feedRepo   database.FeedRepository
}

func NewSyncFeedTask(source rules.FeedSource, feedRepo database.FeedRepository) *SyncFeedTask {
	return &SyncFeedTask{
		Task:       NewTask(TaskTypeSyncFeed, source.Name),
		FeedSource: source,
		feedRepo:   feedRepo,
	}
}

func (t *SyncFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.feedRepo.UpsertFeed(ctx, t.FeedSource.Name, t.FeedSource.URL); err != nil {
		return fmt.Errorf("failed to sync feed source: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncFeed",
		"feed", t.Source,
		"duration", t.GetDuration())

	return nil
}
