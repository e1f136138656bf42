package client

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/adminops/resilience"
)

// Poll repeatedly runs check until it reports done. When timeout elapses
// first it returns OperationTimeoutError; that error is never retried. Errors
// returned by check end the poll unchanged.
func (c *Client) Poll(ctx context.Context, operation string, timeout, interval time.Duration, check func(context.Context) (bool, error)) error {
	err := resilience.Poll(ctx, resilience.PollConfig{
		Timeout:  timeout,
		Interval: interval,
		Clock:    c.clock,
	}, check)
	if errors.Is(err, resilience.ErrPollTimeout) {
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		return &OperationTimeoutError{Operation: operation, Timeout: timeout}
	}
	return err
}
