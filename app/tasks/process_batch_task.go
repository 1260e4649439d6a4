package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/feed-sieve/app/feed"
)

// ProcessBatchTask hands one submitted batch to the pipeline. It is never
// retried: once started, a batch always completes.
type ProcessBatchTask struct {
	Task
	Batch     feed.Batch
	processor BatchProcessor
	done      chan feed.BatchResult
}

func NewProcessBatchTask(batch feed.Batch, processor BatchProcessor) *ProcessBatchTask {
	task := NewTask(TaskTypeProcessBatch, string(batch.Origin))
	task.MaxRetries = 0

	return &ProcessBatchTask{
		Task:      task,
		Batch:     batch,
		processor: processor,
		done:      make(chan feed.BatchResult, 1),
	}
}

// Done delivers the batch result once the worker has run the task.
func (t *ProcessBatchTask) Done() <-chan feed.BatchResult {
	return t.done
}

func (t *ProcessBatchTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result := t.processor.ProcessBatch(ctx, t.Batch)
	t.done <- result

	slog.Info("Task completed",
		"type", "ProcessBatch",
		"batch", t.Batch.ID,
		"origin", t.Batch.Origin,
		"duration", t.GetDuration(),
		"total", result.Processed,
		"suppressed", result.Suppressed)

	return nil
}
