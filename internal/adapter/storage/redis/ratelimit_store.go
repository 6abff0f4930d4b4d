package redis

import (
	"context"
	"fmt"
	"time"

	"merchant-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// RateLimitStore counts hits per key in fixed windows.
type RateLimitStore struct {
	client goredis.UniversalClient
	now    func() time.Time
}

func NewRateLimitStore(client goredis.UniversalClient) *RateLimitStore {
	return &RateLimitStore{client: client, now: time.Now}
}

// Allow records one hit for key in the current window. INCR and EXPIRE go out
// in one MULTI so a counter never outlives its window by more than a second.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	secs := max(int64(window/time.Second), 1)
	windowID := s.now().Unix() / secs
	counterKey := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, windowID)

	var hits *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		hits = p.Incr(ctx, counterKey)
		p.Expire(ctx, counterKey, time.Duration(secs)*time.Second+time.Second)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("counting hit for %s: %w", key, err)
	}

	count := hits.Val()
	return &ports.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   (windowID + 1) * secs,
	}, nil
}
