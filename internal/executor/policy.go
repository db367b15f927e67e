package executor

import (
	"fmt"
	"time"

	"github.com/desertthunder/spotify-mcp/internal/shared"
)

// RetryPolicy bounds the retry loop of [Run].
type RetryPolicy struct {
	MaxRetries        int           // additional attempts after the first on 429/503
	InitialDelay      time.Duration // first backoff wait
	MaxDelay          time.Duration // ceiling on any computed wait
	BackoffMultiplier float64       // growth factor applied after each backoff, >= 1
	MaxAuthRetries    int           // refresh-and-retry rounds allowed per call on 401
}

// DefaultRetryPolicy returns the process-wide default.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2,
		MaxAuthRetries:    1,
	}
}

// Validate rejects policies that could loop forever or shrink delays.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxRetries < 0:
		return fmt.Errorf("%w: max retries must be >= 0, got %d", shared.ErrInvalidConfig, p.MaxRetries)
	case p.MaxAuthRetries < 0:
		return fmt.Errorf("%w: max auth retries must be >= 0, got %d", shared.ErrInvalidConfig, p.MaxAuthRetries)
	case p.BackoffMultiplier < 1:
		return fmt.Errorf("%w: backoff multiplier must be >= 1, got %v", shared.ErrInvalidConfig, p.BackoffMultiplier)
	case p.InitialDelay < 0:
		return fmt.Errorf("%w: initial delay must be >= 0, got %v", shared.ErrInvalidConfig, p.InitialDelay)
	case p.MaxDelay < p.InitialDelay:
		return fmt.Errorf("%w: max delay %v is below initial delay %v", shared.ErrInvalidConfig, p.MaxDelay, p.InitialDelay)
	}
	return nil
}

// wait is the backoff wait for the current delay.
func (p RetryPolicy) wait(delay time.Duration) time.Duration {
	return min(delay, p.MaxDelay)
}

// grow applies the multiplier, capped at MaxDelay so repeated growth cannot overflow.
func (p RetryPolicy) grow(delay time.Duration) time.Duration {
	next := time.Duration(float64(delay) * p.BackoffMultiplier)
	if next > p.MaxDelay || next < delay {
		return p.MaxDelay
	}
	return next
}
