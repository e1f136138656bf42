package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/adminops/resilience"
)

func newPollClient(t *testing.T) (*Client, *resilience.ManualClock) {
	t.Helper()
	clock := resilience.NewManualClock(epoch)
	c, err := New(Options{
		Profile:   "prod",
		BaseURL:   "https://admin.example.com",
		Transport: statuses(200),
		Clock:     clock,
	})
	require.NoError(t, err)
	return c, clock
}

func TestClient_PollCompletes(t *testing.T) {
	c, clock := newPollClient(t)

	checks := 0
	err := c.Poll(context.Background(), "search job", 10*time.Second, time.Second, func(context.Context) (bool, error) {
		checks++
		return checks == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, checks)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.Sleeps())
}

func TestClient_PollTimesOut(t *testing.T) {
	c, _ := newPollClient(t)

	err := c.Poll(context.Background(), "search job", 5*time.Second, 2*time.Second, func(context.Context) (bool, error) {
		return false, nil
	})

	var ote *OperationTimeoutError
	require.ErrorAs(t, err, &ote)
	assert.Equal(t, "search job", ote.Operation)
	assert.Equal(t, 5*time.Second, ote.Timeout)
	assert.Equal(t, KindOperationTimeout, KindOf(err))
}

func TestClient_PollCheckError(t *testing.T) {
	c, _ := newPollClient(t)
	boom := errors.New("boom")

	err := c.Poll(context.Background(), "job", time.Minute, time.Second, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}
