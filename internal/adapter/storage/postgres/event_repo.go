package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
)

// EventRepo implements ports.EventRepository on the ledger_events table.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Append stores an event. It runs outside any business transaction.
func (r *EventRepo) Append(ctx context.Context, e *domain.Event) error {
	query := `INSERT INTO ledger_events (id, topic, payload, created_at) VALUES ($1, $2, $3::jsonb, $4)`

	if _, err := r.pool.Exec(ctx, query, e.ID, string(e.Topic), string(e.Payload), e.CreatedAt); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// List returns events newest first.
func (r *EventRepo) List(ctx context.Context, params ports.EventListParams) ([]domain.Event, error) {
	query := `SELECT id, topic, payload::text, created_at FROM ledger_events`
	args := []any{}
	if params.Topic != nil {
		query += ` WHERE topic = $1`
		args = append(args, string(*params.Topic))
	}
	query += fmt.Sprintf(` ORDER BY seq DESC LIMIT $%d`, len(args)+1)
	args = append(args, params.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []domain.Event{}
	for rows.Next() {
		var (
			e       domain.Event
			payload string
		)
		if err := rows.Scan(&e.ID, &e.Topic, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
