package executor

import "time"

// Action is what the retry loop does after a failed attempt.
type Action int

const (
	Raise Action = iota
	RefreshAndRetry
	BackoffAndRetry
)

func (a Action) String() string {
	switch a {
	case RefreshAndRetry:
		return "refresh_and_retry"
	case BackoffAndRetry:
		return "backoff_and_retry"
	default:
		return "raise"
	}
}

// Step is the outcome of [Decide].
type Step struct {
	Action Action
	Wait   time.Duration // set for BackoffAndRetry
}

// Decide is the pure retry policy: given a classified failure, the zero-based attempt index,
// the refreshes already spent on this call and the current backoff delay, it returns the next step.
func Decide(p RetryPolicy, f Failure, attempt, refreshes int, delay time.Duration) Step {
	switch f.Class {
	case AuthExpired:
		if refreshes < p.MaxAuthRetries {
			return Step{Action: RefreshAndRetry}
		}
	case RateLimited:
		if attempt < p.MaxRetries {
			if f.HasRetryAfter {
				return Step{Action: BackoffAndRetry, Wait: f.RetryAfter}
			}
			return Step{Action: BackoffAndRetry, Wait: p.wait(delay)}
		}
	case ServiceUnavailable:
		if attempt < p.MaxRetries {
			return Step{Action: BackoffAndRetry, Wait: p.wait(delay)}
		}
	}
	return Step{Action: Raise}
}
