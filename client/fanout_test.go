package client

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/adminops/resilience"
)

func newProfileClient(t *testing.T, profile string, tr Transport) *Client {
	t.Helper()
	c, err := New(Options{
		Profile:   profile,
		BaseURL:   "https://" + profile + ".example.com",
		Transport: tr,
		Clock:     resilience.NewManualClock(epoch),
	})
	require.NoError(t, err)
	return c
}

func TestFanOut_IsolatesFailures(t *testing.T) {
	clients := []*Client{
		newProfileClient(t, "alpha", script(step{status: 200, body: "a"})),
		newProfileClient(t, "beta", statuses(500)),
		newProfileClient(t, "gamma", script(step{status: 200, body: "c"})),
	}

	results := FanOut(context.Background(), clients, 0, func(ctx context.Context, c *Client) (string, error) {
		resp, err := c.Post(ctx, "/services/server/control/restart", nil)
		if err != nil {
			return "", err
		}
		return string(resp.Body), nil
	})

	require.Len(t, results, 3)
	assert.Equal(t, "alpha", results[0].Profile)
	assert.Equal(t, "a", results[0].Value)
	assert.NoError(t, results[0].Err)

	assert.Equal(t, "beta", results[1].Profile)
	assert.Equal(t, KindAPI, KindOf(results[1].Err))

	assert.Equal(t, "gamma", results[2].Profile)
	assert.Equal(t, "c", results[2].Value)
	assert.NoError(t, results[2].Err)
}

func TestFanOut_RespectsLimit(t *testing.T) {
	var active, peak atomic.Int32
	tr := TransportFunc(func(context.Context, *TransportRequest) (*TransportResponse, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return &TransportResponse{StatusCode: 200}, nil
	})

	var clients []*Client
	for _, p := range []string{"a", "b", "c", "d", "e", "f"} {
		clients = append(clients, newProfileClient(t, p, tr))
	}

	results := FanOut(context.Background(), clients, 2, func(ctx context.Context, c *Client) (int, error) {
		resp, err := c.Delete(ctx, "/services/x")
		if err != nil {
			return 0, err
		}
		return resp.StatusCode, nil
	})

	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, 200, r.Value)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFanOut_Empty(t *testing.T) {
	results := FanOut(context.Background(), nil, 4, func(context.Context, *Client) (int, error) {
		return 1, nil
	})
	assert.Empty(t, results)
}
