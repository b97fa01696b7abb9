package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/knowgraph/errs"
)

func TestExecuteSucceedsOnFirstTry(t *testing.T) {
	p := DefaultPolicy()
	calls := 0
	res := Execute(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 42, nil
	})
	assert.True(t, res.Success)
	assert.Equal(t, 42, res.Value)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, calls)
}

func TestExecuteRetriesThenSucceeds(t *testing.T) {
	p := DefaultPolicy()
	p.BaseDelay = time.Millisecond
	p.MaxDelay = 5 * time.Millisecond

	calls := 0
	res := Execute(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
		calls++
		if calls < 3 {
			return 0, errs.New(errs.KindURLFetch, "flaky", nil)
		}
		return 42, nil
	})

	assert.True(t, res.Success)
	assert.Equal(t, 42, res.Value)
	assert.Equal(t, 3, res.Attempts)
	assert.GreaterOrEqual(t, res.Elapsed, 2*time.Millisecond)
}

func TestExecuteRespectsMaxAttempts(t *testing.T) {
	p := DefaultPolicy()
	p.MaxAttempts = 3
	p.BaseDelay = time.Millisecond

	calls := 0
	res := Execute(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errs.New(errs.KindURLFetch, "always fails", nil)
	})

	assert.False(t, res.Success)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, res.Attempts)
}

func TestExecuteAbortsOnNonRetryable(t *testing.T) {
	p := DefaultPolicy()
	p.MaxAttempts = 5

	calls := 0
	res := Execute(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errs.New(errs.KindSchemaValidation, "bad input", nil)
	})

	assert.False(t, res.Success)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, res.Attempts)
}

func TestExecuteOnRetryCallbackOrdering(t *testing.T) {
	p := DefaultPolicy()
	p.BaseDelay = time.Millisecond
	p.MaxAttempts = 4

	var seen []int
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
	}
	Execute(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
		return 0, errs.New(errs.KindURLFetch, "flaky", nil)
	})
	require.Equal(t, []int{1, 2, 3}, seen)
}

func TestExecuteCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := DefaultPolicy()
	p.BaseDelay = 50 * time.Millisecond
	p.MaxAttempts = 5

	calls := 0
	res := Execute(ctx, p, func(ctx context.Context, attempt int) (int, error) {
		calls++
		if calls == 1 {
			cancel()
		}
		return 0, errs.New(errs.KindURLFetch, "flaky", nil)
	})

	assert.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, context.Canceled))
	assert.LessOrEqual(t, calls, 2)
}

func TestExponentialDelayGrows(t *testing.T) {
	p := Policy{Strategy: StrategyExponential, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Hour}
	d1 := delayFor(p, 1)
	d2 := delayFor(p, 2)
	d3 := delayFor(p, 3)
	assert.Less(t, d1, d2)
	assert.Less(t, d2, d3)
}

func TestDelayClampedToMax(t *testing.T) {
	p := Policy{Strategy: StrategyExponential, BaseDelay: 10 * time.Millisecond, MaxDelay: 15 * time.Millisecond}
	d := delayFor(p, 10)
	assert.LessOrEqual(t, d, 15*time.Millisecond)
}
