package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
)

// EventRepo implements ports.EventRepository. The log lives outside
// transactions; events are appended after commit.
type EventRepo struct{ store *Store }

func NewEventRepo(store *Store) *EventRepo { return &EventRepo{store: store} }

func (r *EventRepo) Append(_ context.Context, e *domain.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ev := *e
	ev.Payload = slices.Clone(e.Payload)
	r.store.events = append(r.store.events, ev)
	return nil
}

func (r *EventRepo) List(_ context.Context, params ports.EventListParams) ([]domain.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := []domain.Event{}
	for i := len(r.store.events) - 1; i >= 0; i-- {
		e := r.store.events[i]
		if params.Topic != nil && e.Topic != *params.Topic {
			continue
		}
		out = append(out, e)
		if params.Limit > 0 && len(out) == params.Limit {
			break
		}
	}
	return out, nil
}

// NonceStore implements ports.NonceStore for single-process deployments.
type NonceStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewNonceStore() *NonceStore {
	return &NonceStore{seen: make(map[string]time.Time), now: time.Now}
}

func (s *NonceStore) CheckAndSet(_ context.Context, principal string, nonce string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, exp := range s.seen {
		if !now.Before(exp) {
			delete(s.seen, k)
		}
	}
	key := principal + ":" + nonce
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = now.Add(ttl)
	return true, nil
}
