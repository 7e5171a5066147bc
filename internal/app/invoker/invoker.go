// Package invoker provides retry-with-session-recreation around upstream
// music service calls.
package invoker

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// FatalError is returned when an operation failed for good: either retries
// were exhausted or the failure was not worth retrying. Callers owe the
// requester a generic reply and the operator an alert.
type FatalError struct {
	Op       string
	Attempts int
	cause    error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.cause)
}

func (e *FatalError) Unwrap() error { return e.cause }

// Trace renders the underlying error with its stack trace for the alert
// channel.
func (e *FatalError) Trace() string {
	return fmt.Sprintf("%+v", e.cause)
}

// AsFatal extracts a FatalError from an error chain.
func AsFatal(err error) (*FatalError, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Invoker executes upstream operations with a bounded retry policy.
// Between attempts the upstream session is recreated, discarding its cached
// auth state.
type Invoker struct {
	maxAttempts int
	isTransient func(error) bool
	passthrough func(error) bool
	reset       func(context.Context) error
	sleep       func(context.Context, time.Duration) error
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithMaxAttempts overrides the attempt budget (default 3).
func WithMaxAttempts(n int) Option {
	return func(in *Invoker) {
		if n > 0 {
			in.maxAttempts = n
		}
	}
}

// WithPassthrough marks errors that are results, not failures: they are
// returned unchanged, never retried and never wrapped in FatalError. The
// catalog's not-found sentinel goes here.
func WithPassthrough(fn func(error) bool) Option {
	return func(in *Invoker) { in.passthrough = fn }
}

// withSleep replaces the backoff sleep, for tests.
func withSleep(fn func(context.Context, time.Duration) error) Option {
	return func(in *Invoker) { in.sleep = fn }
}

// New creates an Invoker. isTransient classifies retryable failures and
// reset recreates the upstream session before a retry.
func New(isTransient func(error) bool, reset func(context.Context) error, opts ...Option) *Invoker {
	in := &Invoker{
		maxAttempts: 3,
		isTransient: isTransient,
		passthrough: func(error) bool { return false },
		reset:       reset,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs op, retrying transient failures with exponential backoff.
// The first attempt runs immediately; retries wait 2s, then 4s. The session
// is recreated before every retry. After the budget is spent, or on a
// non-transient failure, a *FatalError is returned.
func (in *Invoker) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < in.maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if in.passthrough(err) {
			return err
		}
		if !in.isTransient(err) {
			return &FatalError{Op: op, Attempts: attempt + 1, cause: err}
		}
		lastErr = err

		if attempt == in.maxAttempts-1 {
			break
		}

		zlog.Info().
			Str("op", op).
			Int("attempt", attempt+1).
			Int("max_attempts", in.maxAttempts).
			Err(err).
			Msg("upstream call failed, recreating session")

		if resetErr := in.reset(ctx); resetErr != nil {
			return &FatalError{Op: op, Attempts: attempt + 1, cause: errors.WithSecondaryError(err, resetErr)}
		}
		if sleepErr := in.sleep(ctx, time.Duration(2<<attempt)*time.Second); sleepErr != nil {
			return &FatalError{Op: op, Attempts: attempt + 1, cause: errors.WithSecondaryError(err, sleepErr)}
		}
	}
	return &FatalError{Op: op, Attempts: in.maxAttempts, cause: lastErr}
}
