package service

import (
	"context"
	"encoding/json"
	"fmt"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"go.jetify.com/typeid/v2"
)

const (
	eventIDPrefix     = "evt"
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventServiceImpl is the ledger's event sink and event log reader.
// Events are persisted first, then fanned out to the stream if one is configured.
type EventServiceImpl struct {
	repo   ports.EventRepository
	stream ports.EventStream
	clock  ports.Clock
	log    zerolog.Logger
}

// NewEventService creates a new event service. stream may be nil.
func NewEventService(repo ports.EventRepository, stream ports.EventStream, clock ports.Clock, log zerolog.Logger) *EventServiceImpl {
	return &EventServiceImpl{repo: repo, stream: stream, clock: clock, log: log}
}

// Publish records a committed change. Failures are logged, never returned.
func (s *EventServiceImpl) Publish(ctx context.Context, topic domain.EventTopic, payload any) {
	// The originating request may finish before the sinks do.
	ctx = context.WithoutCancel(ctx)

	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("topic", string(topic)).Msg("failed to encode event payload")
		return
	}

	tid, err := typeid.Generate(eventIDPrefix)
	if err != nil {
		s.log.Warn().Err(err).Str("topic", string(topic)).Msg("failed to generate event id")
		return
	}

	event := &domain.Event{
		ID:        tid.String(),
		Topic:     topic,
		Payload:   raw,
		CreatedAt: s.clock.Now(),
	}

	s.log.Info().
		Str("event_id", event.ID).
		Str("topic", string(topic)).
		RawJSON("payload", raw).
		Msg("event")

	if err := s.repo.Append(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event_id", event.ID).Msg("failed to persist event")
	}

	if s.stream != nil {
		if err := s.stream.Publish(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("event_id", event.ID).Msg("failed to stream event")
		}
	}
}

// ListEvents returns the newest events first, optionally for one topic.
func (s *EventServiceImpl) ListEvents(ctx context.Context, params ports.EventListParams) ([]domain.Event, error) {
	if params.Limit <= 0 {
		params.Limit = defaultEventLimit
	}
	if params.Limit > maxEventLimit {
		params.Limit = maxEventLimit
	}

	events, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list events: %w", err))
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}
