package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/feed-sieve/app/database"
	"github.com/lysyi3m/feed-sieve/app/feed"
	"github.com/lysyi3m/feed-sieve/app/rules"
)

// PollFeedTask fetches one RSS/Atom source and submits its unseen items to
// the pipeline as a single batch.
type PollFeedTask struct {
	Task
	FeedSource rules.FeedSource
	httpClient *http.Client
	parser     *feed.Parser
	processor  BatchProcessor
	feedRepo   database.FeedRepository
	userAgent  string
}

func NewPollFeedTask(source rules.FeedSource, httpClient *http.Client, parser *feed.Parser, processor BatchProcessor, feedRepo database.FeedRepository, userAgent string) *PollFeedTask {
	return &PollFeedTask{
		Task:       NewTask(TaskTypePollFeed, source.Name),
		FeedSource: source,
		httpClient: httpClient,
		parser:     parser,
		processor:  processor,
		feedRepo:   feedRepo,
		userAgent:  userAgent,
	}
}

func (t *PollFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.FeedSource.Enabled {
		slog.Debug("Feed disabled, skipping", "feed", t.Source)
		return nil
	}

	data, err := t.fetchFeed(ctx, t.FeedSource.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, items, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	nextFetch := time.Now().UTC().Add(t.FeedSource.GetRefreshInterval())
	if err := t.feedRepo.UpdateFeedMetadata(ctx, t.Source, *metadata, nextFetch); err != nil {
		return fmt.Errorf("failed to store feed metadata: %w", err)
	}

	origin := feed.OriginInserted
	if t.FeedSource.Initial {
		seen, err := t.feedRepo.HasSeen(ctx, t.Source)
		if err != nil {
			return fmt.Errorf("failed to check feed history: %w", err)
		}
		if !seen {
			origin = feed.OriginInitial
		}
	}

	unseen, err := t.feedRepo.FilterUnseen(ctx, t.Source, items)
	if err != nil {
		return fmt.Errorf("failed to filter seen items: %w", err)
	}

	if len(unseen) == 0 {
		slog.Debug("No new items", "feed", t.Source, "total", len(items))
		return nil
	}

	// Marked before processing: a retry after this point must not submit the
	// same items twice.
	if err := t.feedRepo.MarkSeen(ctx, t.Source, unseen); err != nil {
		return fmt.Errorf("failed to mark items as seen: %w", err)
	}

	result := t.processor.ProcessBatch(ctx, feed.Batch{
		ID:         uuid.NewString(),
		Origin:     origin,
		Items:      unseen,
		ReceivedAt: time.Now().UTC(),
	})

	slog.Info("Task completed",
		"type", "PollFeed",
		"feed", t.Source,
		"duration", t.GetDuration(),
		"total", len(items),
		"duplicates", len(items)-len(unseen),
		"suppressed", result.Suppressed,
		"kept", result.Kept)

	return nil
}

func (t *PollFeedTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, t.FeedSource.GetTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
