package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBulkhead_DisabledReturnsNil(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})
	assert.Nil(t, b)

	release, err := b.Acquire(context.Background())
	require.NoError(t, err)
	release()
	assert.Equal(t, BulkheadMetrics{}, b.Metrics())
}

func TestBulkhead_LimitsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2, MaxWait: 10 * time.Millisecond})

	r1, err := b.Acquire(context.Background())
	require.NoError(t, err)
	r2, err := b.Acquire(context.Background())
	require.NoError(t, err)

	m := b.Metrics()
	assert.Equal(t, 2, m.Active)
	assert.Equal(t, 0, m.Available)

	_, err = b.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrBulkheadFull)
	assert.Equal(t, int64(1), b.Metrics().Rejected)

	r1()
	r1() // release is idempotent
	r3, err := b.Acquire(context.Background())
	require.NoError(t, err)

	r2()
	r3()
	assert.Equal(t, 0, b.Metrics().Active)
}

func TestBulkhead_AcquireCancelled(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})

	release, err := b.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = b.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(0), b.Metrics().Rejected)
}
