package tasks

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/feed-sieve/app/cfg"
	"github.com/lysyi3m/feed-sieve/app/database"
	"github.com/lysyi3m/feed-sieve/app/feed"
	"github.com/lysyi3m/feed-sieve/app/rules"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler drains a bounded task queue with exactly one worker, so batches
// run one at a time in the order they were enqueued.
type Scheduler struct {
	sources    []rules.FeedSource
	processor  BatchProcessor
	feedRepo   database.FeedRepository
	httpClient *http.Client
	parser     *feed.Parser
	userAgent  string
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	taskQueue  chan TaskInterface

	mu      sync.Mutex
	polling map[string]bool
}

func NewScheduler(sources []rules.FeedSource, processor BatchProcessor, feedRepo database.FeedRepository,
	httpClient *http.Client, parser *feed.Parser) *Scheduler {
	cfg := cfg.Get()

	return newScheduler(sources, processor, feedRepo, httpClient, parser,
		cfg.UserAgent, time.Duration(cfg.SchedulerInterval)*time.Second, cfg.QueueSize)
}

func newScheduler(sources []rules.FeedSource, processor BatchProcessor, feedRepo database.FeedRepository,
	httpClient *http.Client, parser *feed.Parser, userAgent string, interval time.Duration, queueSize int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		sources:    sources,
		processor:  processor,
		feedRepo:   feedRepo,
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
		taskQueue:  make(chan TaskInterface, queueSize),
		polling:    make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueFeeds()
			}
		}
	}()
}

// Stop waits for the running task to finish. Tasks still queued are dropped
// with the session.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if s.ctx.Err() != nil {
		return ErrSchedulerStopped
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) QueueLength() int {
	return len(s.taskQueue)
}

func (s *Scheduler) enqueueStartupTasks() {
	if len(s.sources) == 0 {
		slog.Debug("No feed sources configured")
		return
	}

	slog.Debug("Registering feed sources", "count", len(s.sources))

	for _, source := range s.sources {
		if err := s.EnqueueTask(NewSyncFeedTask(source, s.feedRepo)); err != nil {
			slog.Warn("Failed to enqueue SyncFeedTask", "feed", source.Name, "error", err)
			continue
		}

		if !source.Enabled {
			slog.Debug("Feed disabled, skipping PollFeedTask", "feed", source.Name)
			continue
		}

		s.enqueuePoll(source)
	}
}

func (s *Scheduler) enqueueDueFeeds() {
	now := time.Now().UTC()

	for _, source := range s.sources {
		if !source.Enabled {
			continue
		}

		f, err := s.feedRepo.GetFeed(s.ctx, source.Name)
		if err != nil {
			slog.Warn("Failed to get feed from database, skipping", "feed", source.Name, "error", err)
			continue
		}
		if f == nil {
			slog.Warn("Feed not found in database, skipping", "feed", source.Name)
			continue
		}

		if f.NextFetchAt != nil && f.NextFetchAt.After(now) {
			slog.Debug("Feed not due for refresh yet", "feed", source.Name, "next_fetch_at", f.NextFetchAt)
			continue
		}

		s.enqueuePoll(source)
	}
}

// enqueuePoll skips sources that already have a poll queued or running.
func (s *Scheduler) enqueuePoll(source rules.FeedSource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.polling[source.Name] {
		slog.Debug("Feed poll already pending", "feed", source.Name)
		return
	}

	task := NewPollFeedTask(source, s.httpClient, s.parser, s.processor, s.feedRepo, s.userAgent)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue PollFeedTask", "feed", source.Name, "error", err)
		return
	}
	s.polling[source.Name] = true
}

func (s *Scheduler) pollFinished(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.polling, name)
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case task := <-s.taskQueue:
			s.executeTask(task)
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.taskFinished(task)
		return
	}

	slog.Error("Worker task execution failed", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		s.taskFinished(task)
		return
	}

	task.IncrementRetryCount()
	retryDelay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSource(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		case <-time.After(retryDelay):
		}

		if retryErr := s.EnqueueTask(task); retryErr != nil {
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			s.taskFinished(task)
		}
	}()
}

func (s *Scheduler) taskFinished(task TaskInterface) {
	if task.GetType() == TaskTypePollFeed {
		s.pollFinished(task.GetSource())
	}
}

// retryDelay doubles from one second and is capped at 30 seconds.
func retryDelay(retryCount int) time.Duration {
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
