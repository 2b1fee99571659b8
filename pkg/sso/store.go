package sso

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultExchangeTTL bounds how long an un-redeemed pending exchange
// survives. Single-use consumption alone would leave abandoned records
// unbounded; every store enforces this TTL.
const DefaultExchangeTTL = 10 * time.Minute

// ExchangeStore persists pending exchanges under their random identifiers.
// Consume is the sole synchronization point of the orchestrator and must be
// atomic across concurrent callers: retrieve-and-delete as one operation,
// so a second Consume of the same id observes ErrNotFound.
type ExchangeStore interface {
	// Put stores rec under id. Returns ErrConflict if id already exists.
	Put(ctx context.Context, id string, rec *PendingExchange) error

	// Consume atomically retrieves and deletes the record under id.
	// Returns ErrNotFound when absent.
	Consume(ctx context.Context, id string) (*PendingExchange, error)
}

// MemoryStore is a mutex-guarded in-process ExchangeStore for tests and
// single-node development. A cron sweep reaps records older than the TTL;
// production deployments use RedisStore, where the TTL is enforced
// server-side.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*PendingExchange
	ttl     time.Duration
	sweeper *cron.Cron
}

// NewMemoryStore creates a MemoryStore with the given TTL (zero means
// DefaultExchangeTTL) and starts the background reaper.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultExchangeTTL
	}
	s := &MemoryStore{
		records: make(map[string]*PendingExchange),
		ttl:     ttl,
		sweeper: cron.New(),
	}
	s.sweeper.AddFunc("@every 1m", s.reap)
	s.sweeper.Start()
	return s
}

// Put implements ExchangeStore.
func (s *MemoryStore) Put(_ context.Context, id string, rec *PendingExchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; ok {
		return ErrConflict
	}
	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.records[id] = &cp
	return nil
}

// Consume implements ExchangeStore.
func (s *MemoryStore) Consume(_ context.Context, id string) (*PendingExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.records, id)
	if time.Since(rec.CreatedAt) > s.ttl {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Len returns the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close stops the background reaper.
func (s *MemoryStore) Close() {
	ctx := s.sweeper.Stop()
	<-ctx.Done()
}

func (s *MemoryStore) reap() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
		}
	}
}
