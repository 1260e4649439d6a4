package database

import (
	"context"
	"time"

	"github.com/lysyi3m/feed-sieve/app/feed"
)

type FeedRepository interface {
	GetFeed(ctx context.Context, name string) (*Feed, error)
	GetFeedCount(ctx context.Context) (int, error)

	UpsertFeed(ctx context.Context, name, feedURL string) error
	UpdateFeedMetadata(ctx context.Context, name string, metadata feed.Metadata, nextFetch time.Time) error
	UpdateNextFetch(ctx context.Context, name string, nextFetch time.Time) error

	FilterUnseen(ctx context.Context, name string, items []feed.Item) ([]feed.Item, error)
	MarkSeen(ctx context.Context, name string, items []feed.Item) error
	HasSeen(ctx context.Context, name string) (bool, error)
}

type ItemRepository interface {
	feed.Effector

	GetItemEffect(ctx context.Context, itemID string) (*ItemEffect, error)
	GetItemStats(ctx context.Context) (ItemStats, error)
}
