package invoker

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("connection reset")
var errPermanent = errors.New("forbidden")
var errNotFound = errors.New("track not found")

func transientOnly(err error) bool { return errors.Is(err, errTransient) }

func newTestInvoker(t *testing.T, resets *int, slept *[]time.Duration, opts ...Option) *Invoker {
	t.Helper()
	reset := func(context.Context) error {
		*resets++
		return nil
	}
	opts = append(opts, withSleep(func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}))
	return New(transientOnly, reset, opts...)
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	var resets int
	var slept []time.Duration
	in := newTestInvoker(t, &resets, &slept)

	calls := 0
	err := in.Do(context.Background(), "search", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Zero(t, resets)
	assert.Empty(t, slept)
}

func TestDo_TransientExhaustion(t *testing.T) {
	var resets int
	var slept []time.Duration
	in := newTestInvoker(t, &resets, &slept)

	calls := 0
	err := in.Do(context.Background(), "queue", func(context.Context) error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	fe, ok := AsFatal(err)
	require.True(t, ok)
	assert.Equal(t, 3, fe.Attempts)
	assert.Equal(t, "queue", fe.Op)
	assert.True(t, errors.Is(err, errTransient))

	assert.Equal(t, 3, calls)
	// Session recreated between attempts only: twice for three attempts.
	assert.Equal(t, 2, resets)
	// No sleep before the first attempt, then 2s and 4s.
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, slept)
}

func TestDo_RecoversAfterRetry(t *testing.T) {
	var resets int
	var slept []time.Duration
	in := newTestInvoker(t, &resets, &slept)

	calls := 0
	err := in.Do(context.Background(), "lookup", func(context.Context) error {
		calls++
		if calls == 1 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, resets)
	assert.Equal(t, []time.Duration{2 * time.Second}, slept)
}

func TestDo_NonTransientFailsImmediately(t *testing.T) {
	var resets int
	var slept []time.Duration
	in := newTestInvoker(t, &resets, &slept)

	calls := 0
	err := in.Do(context.Background(), "lookup", func(context.Context) error {
		calls++
		return errPermanent
	})

	fe, ok := AsFatal(err)
	require.True(t, ok)
	assert.Equal(t, 1, fe.Attempts)
	assert.Equal(t, 1, calls)
	assert.Zero(t, resets)
	assert.Empty(t, slept)
}

func TestDo_PassthroughErrorsAreNotWrapped(t *testing.T) {
	var resets int
	var slept []time.Duration
	in := newTestInvoker(t, &resets, &slept,
		WithPassthrough(func(err error) bool { return errors.Is(err, errNotFound) }))

	err := in.Do(context.Background(), "lookup", func(context.Context) error {
		return errors.Wrap(errNotFound, "track abc")
	})

	require.Error(t, err)
	_, ok := AsFatal(err)
	assert.False(t, ok, "domain results must not become fatal errors")
	assert.True(t, errors.Is(err, errNotFound))
	assert.Zero(t, resets)
}

func TestDo_TraceIncludesCause(t *testing.T) {
	var resets int
	var slept []time.Duration
	in := newTestInvoker(t, &resets, &slept)

	err := in.Do(context.Background(), "np", func(context.Context) error {
		return errTransient
	})

	fe, ok := AsFatal(err)
	require.True(t, ok)
	assert.Contains(t, fe.Trace(), "connection reset")
}
