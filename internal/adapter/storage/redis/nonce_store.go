package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const noncePrefix = "nonce:"

// NonceStore remembers request nonces per principal for their TTL.
type NonceStore struct {
	client goredis.UniversalClient
}

func NewNonceStore(client goredis.UniversalClient) *NonceStore {
	return &NonceStore{client: client}
}

// CheckAndSet claims nonce for principal. It reports false when the nonce was
// already claimed within ttl. Errors are returned as is; callers reject the
// request rather than skip the check.
func (s *NonceStore) CheckAndSet(ctx context.Context, principal string, nonce string, ttl time.Duration) (bool, error) {
	claimed, err := s.client.SetNX(ctx, nonceKey(principal, nonce), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming nonce: %w", err)
	}
	return claimed, nil
}

func nonceKey(principal, nonce string) string {
	return noncePrefix + principal + ":" + nonce
}
