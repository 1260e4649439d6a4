package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/lysyi3m/feed-sieve/app/database"
	"github.com/lysyi3m/feed-sieve/app/feed"
)

// MockProcessor records batches in the order the worker hands them over.
type MockProcessor struct {
	mu      sync.Mutex
	batches []feed.Batch
	seen    chan feed.Batch
}

func NewMockProcessor() *MockProcessor {
	return &MockProcessor{seen: make(chan feed.Batch, 64)}
}

func (m *MockProcessor) ProcessBatch(ctx context.Context, batch feed.Batch) feed.BatchResult {
	m.mu.Lock()
	m.batches = append(m.batches, batch)
	m.mu.Unlock()

	m.seen <- batch
	return feed.BatchResult{BatchID: batch.ID, Origin: batch.Origin, Processed: len(batch.Items), Kept: len(batch.Items)}
}

func (m *MockProcessor) Batches() []feed.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]feed.Batch(nil), m.batches...)
}

// MockFeedRepository keeps feeds and seen ids in memory.
type MockFeedRepository struct {
	mu    sync.Mutex
	feeds map[string]*database.Feed
	seen  map[string]map[string]bool
	err   error
}

var _ database.FeedRepository = (*MockFeedRepository)(nil)

func NewMockFeedRepository() *MockFeedRepository {
	return &MockFeedRepository{
		feeds: make(map[string]*database.Feed),
		seen:  make(map[string]map[string]bool),
	}
}

func (m *MockFeedRepository) GetFeed(ctx context.Context, name string) (*database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	f, ok := m.feeds[name]
	if !ok {
		return nil, nil
	}
	feedCopy := *f
	return &feedCopy, nil
}

func (m *MockFeedRepository) GetFeedCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.feeds), nil
}

func (m *MockFeedRepository) UpsertFeed(ctx context.Context, name, feedURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if f, ok := m.feeds[name]; ok {
		f.FeedURL = feedURL
		return nil
	}
	m.feeds[name] = &database.Feed{Name: name, FeedURL: feedURL}
	return nil
}

func (m *MockFeedRepository) UpdateFeedMetadata(ctx context.Context, name string, metadata feed.Metadata, nextFetch time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.feeds[name]
	if !ok {
		f = &database.Feed{Name: name}
		m.feeds[name] = f
	}
	now := time.Now().UTC()
	f.Title = metadata.Title
	f.Link = metadata.Link
	f.Language = metadata.Language
	f.LastFetchedAt = &now
	f.NextFetchAt = &nextFetch
	return nil
}

func (m *MockFeedRepository) UpdateNextFetch(ctx context.Context, name string, nextFetch time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.feeds[name]; ok {
		f.NextFetchAt = &nextFetch
	}
	return nil
}

func (m *MockFeedRepository) FilterUnseen(ctx context.Context, name string, items []feed.Item) ([]feed.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	for id := range m.seen[name] {
		seen[id] = true
	}
	var unseen []feed.Item
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		unseen = append(unseen, item)
	}
	return unseen, nil
}

func (m *MockFeedRepository) MarkSeen(ctx context.Context, name string, items []feed.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[name] == nil {
		m.seen[name] = make(map[string]bool)
	}
	for _, item := range items {
		m.seen[name][item.ID] = true
	}
	return nil
}

func (m *MockFeedRepository) HasSeen(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen[name]) > 0, nil
}
