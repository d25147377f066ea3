package events

import (
	"context"
	"errors"
	"time"

	"github.com/vytor/realorai/internal/logger"
)

// Event types.
const (
	PairScheduled          = "pair.scheduled"
	PairReplaced           = "pair.replaced"
	PairRemoved            = "pair.removed"
	DayStatusChanged       = "day.status_changed"
	PipelineItemScheduled  = "pipeline.item.scheduled"
	PipelineItemSkipped    = "pipeline.item.skipped"
	PipelineItemFailed     = "pipeline.item.failed"
	PipelineBatchCompleted = "pipeline.batch.completed"
)

// Event is a domain event about the puzzle store or the creative pipeline.
type Event struct {
	Type          string    `json:"type"`
	DayKey        string    `json:"date,omitempty"`
	PairID        string    `json:"pairId,omitempty"`
	HumanImageURL string    `json:"humanImageUrl,omitempty"`
	BatchID       string    `json:"batchId,omitempty"`
	Message       string    `json:"message,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher delivers events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Emit publishes ev and logs a failure instead of returning it. Mutations that
// already happened are never rolled back because a subscriber is unreachable.
func Emit(ctx context.Context, p Publisher, ev Event) {
	if p == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).WithPrefix("events").Warn("failed to publish %s: %v", ev.Type, err)
	}
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every publisher in order and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
