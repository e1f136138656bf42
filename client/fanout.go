package client

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ProfileResult is the outcome of one profile's call in a fan-out.
type ProfileResult[T any] struct {
	Profile string
	Value   T
	Err     error
}

// FanOut runs fn once per client concurrently, at most limit at a time
// (limit <= 0 means unbounded). Failures are isolated: each result carries
// its own error and one failing profile never cancels the others. Results
// keep the order of clients.
func FanOut[T any](ctx context.Context, clients []*Client, limit int, fn func(context.Context, *Client) (T, error)) []ProfileResult[T] {
	results := make([]ProfileResult[T], len(clients))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, c := range clients {
		g.Go(func() error {
			v, err := fn(ctx, c)
			results[i] = ProfileResult[T]{Profile: c.Profile(), Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
