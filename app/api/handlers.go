package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lysyi3m/feed-sieve/app/cfg"
	"github.com/lysyi3m/feed-sieve/app/database"
	"github.com/lysyi3m/feed-sieve/app/feed"
	"github.com/lysyi3m/feed-sieve/app/notify"
	"github.com/lysyi3m/feed-sieve/app/rules"
	"github.com/lysyi3m/feed-sieve/app/tasks"
)

func NewHandler(pipeline PipelineInterface, classifier RulesInterface, extractor ExtractorInterface,
	hub *notify.Hub, itemRepo database.ItemRepository, feedRepo database.FeedRepository,
	scheduler tasks.TaskSchedulerInterface, sources []rules.FeedSource) *Handler {
	return &Handler{
		pipeline:  pipeline,
		rules:     classifier,
		extractor: extractor,
		hub:       hub,
		itemRepo:  itemRepo,
		feedRepo:  feedRepo,
		scheduler: scheduler,
		sources:   sources,
	}
}

func (h *Handler) SubmitBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid batch", "details": err.Error()})
		return
	}

	items := make([]feed.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, feed.Item{ID: item.ID, Categories: item.Categories, Text: item.Text})
	}

	h.submit(c, newBatch(req.Origin, items))
}

// SubmitHTML extracts items from a raw markup fragment and submits them as
// one batch.
func (h *Handler) SubmitHTML(c *gin.Context) {
	origin := c.DefaultQuery("origin", string(feed.OriginInserted))
	if origin != string(feed.OriginInitial) && origin != string(feed.OriginInserted) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid origin", "details": origin})
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	items, err := h.extractor.Run(data)
	if err != nil {
		slog.Error("HTML extraction failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to extract items", "details": err.Error()})
		return
	}

	h.submit(c, newBatch(origin, items))
}

func newBatch(origin string, items []feed.Item) feed.Batch {
	batch := feed.Batch{
		ID:         uuid.NewString(),
		Origin:     feed.OriginInserted,
		Items:      items,
		ReceivedAt: time.Now().UTC(),
	}
	if origin == string(feed.OriginInitial) {
		batch.Origin = feed.OriginInitial
	}
	return batch
}

// submit queues the batch and waits for its result. A client that gives up
// early gets 202; the batch still runs.
func (h *Handler) submit(c *gin.Context, batch feed.Batch) {
	task := tasks.NewProcessBatchTask(batch, h.pipeline)

	if err := h.scheduler.EnqueueTask(task); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, tasks.ErrQueueFull) || errors.Is(err, tasks.ErrSchedulerStopped) {
			status = http.StatusServiceUnavailable
		}
		slog.Error("Error enqueueing batch", "batch", batch.ID, "items", len(batch.Items), "error", err)
		c.JSON(status, gin.H{"error": "Failed to enqueue batch", "details": err.Error()})
		return
	}

	select {
	case result := <-task.Done():
		c.JSON(http.StatusOK, result)
	case <-c.Request.Context().Done():
		c.JSON(http.StatusAccepted, gin.H{"batch_id": batch.ID, "status": "queued"})
	}
}

func (h *Handler) GetEvents(c *gin.Context) {
	h.hub.Serve(c)
}

// PostMessage answers request/response messages from the badge surface.
func (h *Handler) PostMessage(c *gin.Context) {
	var msg notify.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message", "details": err.Error()})
		return
	}

	switch msg.Kind {
	case notify.KindGetCount:
		c.JSON(http.StatusOK, notify.CountResponse{Count: h.pipeline.Counters().Suppressed})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown message kind", "details": msg.Kind})
	}
}

func (h *Handler) GetCount(c *gin.Context) {
	c.JSON(http.StatusOK, notify.CountResponse{Count: h.pipeline.Counters().Suppressed})
}

func (h *Handler) GetBadge(c *gin.Context) {
	count := h.pipeline.Counters().Suppressed
	c.JSON(http.StatusOK, gin.H{
		"text":  notify.BadgeText(count),
		"count": count,
	})
}

func (h *Handler) GetItem(c *gin.Context) {
	id := c.Param("id")

	effect, err := h.itemRepo.GetItemEffect(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_item_effect", "item", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if effect == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not seen in this session", "item_id": id})
		return
	}

	c.JSON(http.StatusOK, effect)
}

func (h *Handler) GetRules(c *gin.Context) {
	ruleList := h.rules.Rules()

	response := make([]RuleResponse, 0, len(ruleList))
	for _, rule := range ruleList {
		response = append(response, RuleResponse{Kind: rule.Kind(), Patterns: rule.Patterns()})
	}

	c.JSON(http.StatusOK, gin.H{
		"rules": response,
		"total": len(response),
	})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds := make([]map[string]any, 0, len(h.sources))

	for _, source := range h.sources {
		feedInfo := map[string]any{
			"name":             source.Name,
			"url":              source.URL,
			"title":            "",
			"enabled":          source.Enabled,
			"initial":          source.Initial,
			"refresh_interval": source.GetRefreshInterval().String(),
		}

		if f, err := h.feedRepo.GetFeed(c.Request.Context(), source.Name); err == nil && f != nil {
			feedInfo["title"] = f.Title
			feedInfo["last_fetched_at"] = f.LastFetchedAt
			feedInfo["next_fetch_at"] = f.NextFetchAt
		}

		feeds = append(feeds, feedInfo)
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

// GetStats is the page counter: how many items this session hid out of how
// many it saw.
func (h *Handler) GetStats(c *gin.Context) {
	snapshot := h.pipeline.Counters()

	c.JSON(http.StatusOK, StatsResponse{
		Processed:  snapshot.Processed,
		Suppressed: snapshot.Suppressed,
		Visible:    snapshot.Processed - snapshot.Suppressed,
		Summary:    fmt.Sprintf("Blocked %d out of %d posts.", snapshot.Suppressed, snapshot.Processed),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]any{
		"status":      "ok",
		"version":     cfg.GetVersion(),
		"timestamp":   time.Now().In(time.Local).Format(time.RFC3339),
		"queued":      h.scheduler.QueueLength(),
		"subscribers": h.hub.SubscriberCount(),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(c.Request.Context()); err == nil {
		health["feeds"] = feedCount
	}

	if stats, err := h.itemRepo.GetItemStats(c.Request.Context()); err == nil {
		health["items"] = stats
	}

	c.JSON(http.StatusOK, health)
}
