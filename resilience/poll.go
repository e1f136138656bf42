package resilience

import (
	"context"
	"time"
)

// PollConfig configures Poll.
type PollConfig struct {
	// Timeout bounds the whole poll.
	// Default: 60 seconds
	Timeout time.Duration

	// Interval is the delay between checks.
	// Default: 1 second
	Interval time.Duration

	// Clock drives the deadline and the interval sleeps.
	// Default: SystemClock
	Clock Clock
}

// Poll calls check until it reports done, returns an error, ctx is done, or
// the timeout elapses (ErrPollTimeout). The deadline is evaluated on the
// configured clock, so a ManualClock makes the schedule deterministic.
func Poll(ctx context.Context, config PollConfig, check func(context.Context) (bool, error)) error {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	deadline := config.Clock.Now().Add(config.Timeout)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		remaining := deadline.Sub(config.Clock.Now())
		if remaining <= 0 {
			return ErrPollTimeout
		}

		wait := config.Interval
		if wait > remaining {
			wait = remaining
		}
		if err := config.Clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}
