package sso

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentedStore wraps an ExchangeStore, counting every operation by
// outcome.
type InstrumentedStore struct {
	inner ExchangeStore
	ops   *prometheus.CounterVec
}

// NewInstrumentedStore decorates a store with the given operations counter,
// labeled by op and outcome.
func NewInstrumentedStore(inner ExchangeStore, ops *prometheus.CounterVec) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, ops: ops}
}

// Put implements ExchangeStore.
func (s *InstrumentedStore) Put(ctx context.Context, id string, rec *PendingExchange) error {
	err := s.inner.Put(ctx, id, rec)
	s.ops.WithLabelValues("put", outcomeLabel(err, ErrConflict, "conflict")).Inc()
	return err
}

// Consume implements ExchangeStore.
func (s *InstrumentedStore) Consume(ctx context.Context, id string) (*PendingExchange, error) {
	rec, err := s.inner.Consume(ctx, id)
	s.ops.WithLabelValues("consume", outcomeLabel(err, ErrNotFound, "not_found")).Inc()
	return rec, err
}

func outcomeLabel(err, sentinel error, name string) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sentinel):
		return name
	default:
		return "error"
	}
}
