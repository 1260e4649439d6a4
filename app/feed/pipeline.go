package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/feed-sieve/app/rules"
)

// Notifier receives the new suppressed total after every counted suppression.
// Delivery is fire-and-forget.
type Notifier interface {
	Notify(count int)
}

// Effector applies the visual side effect of a verdict to an item.
type Effector interface {
	Apply(ctx context.Context, item Item, effect Effect) error
}

type Pipeline struct {
	classifier *Classifier
	counters   *Counters
	effector   Effector
	notifier   Notifier
	settings   rules.Settings
}

func NewPipeline(classifier *Classifier, counters *Counters, effector Effector, notifier Notifier, settings rules.Settings) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		counters:   counters,
		effector:   effector,
		notifier:   notifier,
		settings:   settings,
	}
}

func (p *Pipeline) Counters() Snapshot {
	return p.counters.Snapshot()
}

// ProcessBatch classifies items in order and applies their verdicts. A batch
// always runs to completion: cancelling ctx after the call starts has no
// effect, and a failing item never stops the ones after it.
func (p *Pipeline) ProcessBatch(ctx context.Context, batch Batch) BatchResult {
	ctx = context.WithoutCancel(ctx)

	result := BatchResult{
		BatchID:   batch.ID,
		Origin:    batch.Origin,
		Processed: len(batch.Items),
	}
	if !batch.ReceivedAt.IsZero() {
		result.Waited = time.Since(batch.ReceivedAt)
	}

	p.counters.update(func(t tally) {
		t.addProcessed(len(batch.Items))

		for _, item := range batch.Items {
			p.processItem(ctx, t, batch, item, &result)
		}
	})

	snapshot := p.counters.Snapshot()
	slog.Info("Batch processed",
		"batch", batch.ID,
		"origin", batch.Origin,
		"total", result.Processed,
		"suppressed", result.Suppressed,
		"kept", result.Kept,
		"unclassifiable", result.Unclassifiable,
		"failed", result.Failed,
		"waited", result.Waited,
		"processed_total", snapshot.Processed,
		"suppressed_total", snapshot.Suppressed)

	return result
}

func (p *Pipeline) processItem(ctx context.Context, t tally, batch Batch, item Item, result *BatchResult) {
	verdict := p.classifier.Classify(item)

	if verdict.Reason == ReasonUnclassifiable {
		result.Unclassifiable++
		slog.Warn("Item kept as unclassifiable", "batch", batch.ID, "error", item.Validate())
	}

	annotation := ""
	if p.settings.DebugAnnotations {
		annotation = fmt.Sprintf("[%s] %s", batch.Origin.Label(), verdict.Describe())
	}

	if verdict.Decision == Keep {
		result.Kept++
		if annotation != "" {
			effect := Effect{Annotation: annotation, Reason: verdict.Reason}
			if err := p.effector.Apply(ctx, item, effect); err != nil {
				slog.Error("Failed to annotate item", "batch", batch.ID, "item", item.ID, "error", err)
			}
		}
		return
	}

	effect := Effect{
		Suppressed: true,
		Hide:       p.settings.HideOnSuppress,
		Dim:        p.settings.DimOnSuppress,
		Annotation: annotation,
		Reason:     verdict.Reason,
	}
	if err := p.effector.Apply(ctx, item, effect); err != nil {
		result.Kept++
		result.Failed++
		slog.Error("Failed to suppress item, keeping it", "batch", batch.ID, "item", item.ID, "error", err)
		return
	}

	result.Suppressed++
	slog.Debug("Item suppressed", "batch", batch.ID, "item", item.ID, "reason", verdict.Reason, "category", verdict.MatchedCategory)

	if !p.settings.CountingEnabled {
		return
	}
	p.notifier.Notify(t.addSuppressed())
}
