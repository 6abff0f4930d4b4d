package redis

import (
	"context"
	"fmt"
	"time"

	"merchant-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// EventStream implements ports.EventStream by appending to a Redis stream.
type EventStream struct {
	client goredis.UniversalClient
	key    string
	maxLen int64
}

// NewEventStream creates a stream publisher writing to key, trimmed to
// roughly maxLen entries. maxLen <= 0 disables trimming.
func NewEventStream(client goredis.UniversalClient, key string, maxLen int64) *EventStream {
	return &EventStream{client: client, key: key, maxLen: maxLen}
}

// Publish XADDs the event with one field per attribute.
func (s *EventStream) Publish(ctx context.Context, event *domain.Event) error {
	args := &goredis.XAddArgs{
		Stream: s.key,
		Values: map[string]any{
			"id":         event.ID,
			"topic":      string(event.Topic),
			"payload":    string(event.Payload),
			"created_at": event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis event xadd: %w", err)
	}
	return nil
}
