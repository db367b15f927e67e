package executor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-mcp/internal/auth"
)

// TokenSource is the part of [auth.TokenManager] the executor needs.
type TokenSource interface {
	EnsureFresh(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (auth.Credential, error)
}

// Operation performs one remote call with the given access token.
type Operation[T any] func(ctx context.Context, accessToken string) (T, error)

// Sleeper suspends the calling goroutine for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default [Sleeper].
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CallRecord summarizes one finished [Run].
type CallRecord struct {
	Label      string
	Attempts   int // operation invocations
	Refreshes  int // 401-triggered refreshes
	StatusCode int // status of the final failure, 0 on success or when none was carried
	Err        error
	StartedAt  time.Time
	Duration   time.Duration
}

// Outcome is "success" or "error".
func (r CallRecord) Outcome() string {
	if r.Err == nil {
		return "success"
	}
	return "error"
}

// Observer is notified once per finished [Run].
type Observer interface {
	CallFinished(ctx context.Context, rec CallRecord)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(ctx context.Context, rec CallRecord)

func (f ObserverFunc) CallFinished(ctx context.Context, rec CallRecord) { f(ctx, rec) }

// Executor wraps remote operations with token freshness and retry. One Executor is shared by
// all concurrent calls for an account; it holds no per-call state.
type Executor struct {
	tokens    TokenSource
	policy    RetryPolicy
	sleep     Sleeper
	now       func() time.Time
	logger    *log.Logger
	observers []Observer
}

// Option configures an [Executor].
type Option func(*Executor)

// WithPolicy replaces [DefaultRetryPolicy].
func WithPolicy(p RetryPolicy) Option {
	return func(e *Executor) { e.policy = p }
}

// WithSleeper replaces [SleepContext].
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) { e.sleep = s }
}

// WithClock replaces the clock used for call durations.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithObserver adds an [Observer].
func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observers = append(e.observers, o) }
}

// New creates an Executor over tokens.
func New(tokens TokenSource, opts ...Option) (*Executor, error) {
	if tokens == nil {
		return nil, fmt.Errorf("executor: token source is required")
	}

	e := &Executor{
		tokens: tokens,
		policy: DefaultRetryPolicy(),
		sleep:  SleepContext,
		now:    time.Now,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.policy.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Policy returns the executor's retry policy.
func (e *Executor) Policy() RetryPolicy {
	return e.policy
}

// Run executes op for the action described by label ("search tracks", "pause playback").
//
// The token is checked once before the first attempt and a failure there is returned as is.
// On success op's result is returned untouched. Terminal remote failures are returned as
// [*ClassifiedError]; a failed mid-call refresh and an aborted wait are returned wrapped.
func Run[T any](ctx context.Context, e *Executor, label string, op Operation[T]) (result T, err error) {
	rec := CallRecord{Label: label, StartedAt: e.now()}
	defer func() {
		rec.Err = err
		rec.Duration = e.now().Sub(rec.StartedAt)
		e.finish(ctx, rec)
	}()

	token, err := e.tokens.EnsureFresh(ctx)
	if err != nil {
		return result, err
	}

	logger := e.logger.With("label", label)
	delay := e.policy.InitialDelay
	var last Failure

	for attempt := 0; attempt <= e.policy.MaxRetries; {
		rec.Attempts++

		out, opErr := op(ctx, token)
		if opErr == nil {
			rec.StatusCode = 0
			return out, nil
		}

		last = Classify(opErr)
		rec.StatusCode = last.StatusCode

		step := Decide(e.policy, last, attempt, rec.Refreshes, delay)
		switch step.Action {
		case RefreshAndRetry:
			rec.Refreshes++
			logger.Info("access token rejected, refreshing", "attempt", attempt+1)

			cred, refreshErr := e.tokens.Refresh(ctx)
			if refreshErr != nil {
				logger.Error("token refresh failed", "err", refreshErr)
				return result, refreshErr
			}
			token = cred.AccessToken

		case BackoffAndRetry:
			logger.Warn("retrying remote call",
				"attempt", attempt+1, "class", last.Class, "status", last.StatusCode, "wait", step.Wait)

			if sleepErr := e.sleep(ctx, step.Wait); sleepErr != nil {
				return result, fmt.Errorf("%s: retry wait aborted: %w", label, sleepErr)
			}
			delay = e.policy.grow(delay)
			attempt++

		default:
			ce := newClassifiedError(label, last)
			logger.Error("remote call failed", "class", last.Class, "status", last.StatusCode, "attempts", rec.Attempts, "err", last.Err)
			return result, ce
		}
	}

	return result, newClassifiedError(label, last)
}

func (e *Executor) finish(ctx context.Context, rec CallRecord) {
	for _, o := range e.observers {
		o.CallFinished(ctx, rec)
	}
}
