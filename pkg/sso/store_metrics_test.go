package sso

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpsCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "test_store_operations_total"},
		[]string{"op", "outcome"},
	)
}

func TestInstrumentedStore_CountsOutcomes(t *testing.T) {
	inner := NewMemoryStore(time.Minute)
	defer inner.Close()
	ops := newOpsCounter()
	store := NewInstrumentedStore(inner, ops)
	ctx := context.Background()

	rec := &PendingExchange{Kind: KindGoogle, Secret: "secret"}
	require.NoError(t, store.Put(ctx, "state-1", rec))
	assert.ErrorIs(t, store.Put(ctx, "state-1", rec), ErrConflict)

	got, err := store.Consume(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, KindGoogle, got.Kind)

	_, err = store.Consume(ctx, "state-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(ops.WithLabelValues("put", "ok")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(ops.WithLabelValues("put", "conflict")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(ops.WithLabelValues("consume", "ok")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(ops.WithLabelValues("consume", "not_found")))
}
