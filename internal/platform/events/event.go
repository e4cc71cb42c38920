package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event is a domain fact written to the outbox in the same transaction as
// the state change, then relayed to publishers.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	RequestID     string          `json:"requestId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Fanout publishes to every publisher and returns the first error.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, evt Event) error {
	for _, p := range f {
		if err := p.Publish(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}
