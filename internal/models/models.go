// package models defines the data model for the call history journal
package models

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Outcome of a journaled call.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// CallEntry is one finished tool call. It never carries tokens or remote payloads.
type CallEntry struct {
	ID         string
	Label      string
	Attempts   int
	Refreshes  int
	StatusCode int
	Outcome    Outcome
	Message    string
	Duration   time.Duration
	StartedAt  time.Time
}

// Validate checks required fields.
func (e CallEntry) Validate() error {
	var errs []error
	if e.Label == "" {
		errs = append(errs, errors.New("label is required"))
	}
	if e.Outcome != OutcomeSuccess && e.Outcome != OutcomeError {
		errs = append(errs, fmt.Errorf("unknown outcome %q", e.Outcome))
	}
	if e.Attempts < 0 || e.Refreshes < 0 {
		errs = append(errs, errors.New("attempts and refreshes must be >= 0"))
	}
	if e.StartedAt.IsZero() {
		errs = append(errs, errors.New("started_at is required"))
	}
	return errors.Join(errs...)
}

// Journal stores and lists call entries.
type Journal interface {
	Record(ctx context.Context, entry CallEntry) error          // Record inserts entry, assigning an ID when empty
	Recent(ctx context.Context, limit int) ([]CallEntry, error) // Recent lists the newest entries first
}
