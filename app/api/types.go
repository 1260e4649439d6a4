package api

import (
	"github.com/lysyi3m/feed-sieve/app/database"
	"github.com/lysyi3m/feed-sieve/app/feed"
	"github.com/lysyi3m/feed-sieve/app/notify"
	"github.com/lysyi3m/feed-sieve/app/rules"
	"github.com/lysyi3m/feed-sieve/app/tasks"
)

// PipelineInterface is the part of the counting pipeline the handlers use:
// batches go through the scheduler, counters are read directly.
type PipelineInterface interface {
	tasks.BatchProcessor
	Counters() feed.Snapshot
}

type RulesInterface interface {
	Rules() []feed.Rule
}

type ExtractorInterface interface {
	Run(data []byte) ([]feed.Item, error)
}

var (
	_ PipelineInterface  = (*feed.Pipeline)(nil)
	_ RulesInterface     = (*feed.Classifier)(nil)
	_ ExtractorInterface = (*feed.Extractor)(nil)
)

type Handler struct {
	pipeline  PipelineInterface
	rules     RulesInterface
	extractor ExtractorInterface
	hub       *notify.Hub
	itemRepo  database.ItemRepository
	feedRepo  database.FeedRepository
	scheduler tasks.TaskSchedulerInterface
	sources   []rules.FeedSource
}

type BatchRequest struct {
	Origin string        `json:"origin" binding:"omitempty,oneof=initial inserted"`
	Items  []ItemRequest `json:"items" binding:"dive"`
}

type ItemRequest struct {
	ID         string   `json:"id" binding:"required"`
	Categories []string `json:"categories"`
	Text       string   `json:"text"`
}

type RuleResponse struct {
	Kind     rules.Kind `json:"kind"`
	Patterns []string   `json:"patterns"`
}

type StatsResponse struct {
	Processed  int    `json:"processed"`
	Suppressed int    `json:"suppressed"`
	Visible    int    `json:"visible"`
	Summary    string `json:"summary"`
}
