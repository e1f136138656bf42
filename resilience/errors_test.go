package resilience

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	sentinels := map[string]error{
		"ErrCircuitOpen":       ErrCircuitOpen,
		"ErrRateLimitExceeded": ErrRateLimitExceeded,
		"ErrBulkheadFull":      ErrBulkheadFull,
		"ErrPollTimeout":       ErrPollTimeout,
	}

	for name, err := range sentinels {
		t.Run(name, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(err.Error(), "resilience: "), err.Error())
			assert.ErrorIs(t, fmt.Errorf("profile prod: %w", err), err)

			for other, otherErr := range sentinels {
				if other != name {
					assert.False(t, errors.Is(err, otherErr), "%s matches %s", name, other)
				}
			}
		})
	}
}
