package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type OutboxSource interface {
	ListPending(ctx context.Context, limit int) ([]Event, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Relay moves committed outbox rows to the publisher. A row that still
// fails after the in-process retries is marked failed and picked up again
// once its next_retry_at passes.
type Relay struct {
	source     OutboxSource
	publisher  Publisher
	batchSize  int
	maxRetries uint64
	interval   time.Duration
}

func NewRelay(source OutboxSource, publisher Publisher, batchSize int) *Relay {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Relay{
		source:     source,
		publisher:  publisher,
		batchSize:  batchSize,
		maxRetries: 3,
		interval:   200 * time.Millisecond,
	}
}

type RelayResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

func (r *Relay) RunOnce(ctx context.Context) (RelayResult, error) {
	var result RelayResult
	pending, err := r.source.ListPending(ctx, r.batchSize)
	if err != nil {
		return result, err
	}

	for _, evt := range pending {
		if err := r.publish(ctx, evt); err != nil {
			result.Failed++
			slog.WarnContext(ctx, "publish outbox event failed", "outboxId", evt.ID, "eventType", evt.Type, "err", err)
			if markErr := r.source.MarkFailed(ctx, evt.ID, err.Error()); markErr != nil {
				slog.ErrorContext(ctx, "mark outbox failed", "outboxId", evt.ID, "err", markErr)
			}
			continue
		}
		if err := r.source.MarkSent(ctx, evt.ID); err != nil {
			slog.ErrorContext(ctx, "mark outbox sent failed", "outboxId", evt.ID, "err", err)
			continue
		}
		result.Sent++
	}
	return result, nil
}

func (r *Relay) publish(ctx context.Context, evt Event) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.interval
	policy.MaxInterval = 5 * r.interval
	return backoff.Retry(func() error {
		return r.publisher.Publish(ctx, evt)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, r.maxRetries), ctx))
}
