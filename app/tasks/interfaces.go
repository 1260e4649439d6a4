package tasks

import (
	"context"
	"errors"

	"github.com/lysyi3m/feed-sieve/app/feed"
)

var (
	ErrQueueFull        = errors.New("task queue is full")
	ErrSchedulerStopped = errors.New("scheduler stopped")
)

// TaskSchedulerInterface is what the HTTP layer and main need from the
// scheduler: submit work, start and stop the worker.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	QueueLength() int
}

// BatchProcessor runs one batch to completion. *feed.Pipeline implements it.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, batch feed.Batch) feed.BatchResult
}
