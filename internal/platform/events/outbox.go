package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrm-payroll/internal/platform/db"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

// Enqueue writes an outbox row through q. Pass the transaction that carries
// the state change.
func Enqueue(ctx context.Context, q db.Querier, eventType, aggregateType, aggregateID, requestID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	_, err = q.Exec(ctx, `
    INSERT INTO outbox_events (id, request_id, aggregate_type, aggregate_id, event_type, payload, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, uuid.NewString(), requestID, aggregateType, aggregateID, eventType, body, OutboxStatusPending)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}
	return nil
}

type OutboxStore struct {
	DB *pgxpool.Pool
}

func NewOutboxStore(db *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{DB: db}
}

func (s *OutboxStore) ListPending(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, event_type, aggregate_type, aggregate_id, COALESCE(request_id, ''), payload, created_at
    FROM outbox_events
    WHERE status IN ($1, $2)
      AND (next_retry_at IS NULL OR next_retry_at <= now())
    ORDER BY created_at ASC
    LIMIT $3
  `, OutboxStatusPending, OutboxStatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox events: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0, limit)
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.Type, &evt.AggregateType, &evt.AggregateID, &evt.RequestID, &evt.Payload, &evt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE outbox_events
    SET status = $2, processed_at = now(), error_message = NULL, updated_at = now()
    WHERE id = $1
  `, id, OutboxStatusSent)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE outbox_events
    SET status = $2,
        retry_count = retry_count + 1,
        error_message = LEFT($3, 500),
        next_retry_at = now() + (LEAST(retry_count + 1, 10) * INTERVAL '15 seconds'),
        updated_at = now()
    WHERE id = $1
  `, id, OutboxStatusFailed, reason)
	return err
}
