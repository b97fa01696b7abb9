// Package retry implements strategy-driven retry with jitter, grounded on
// the per-unit timeout discipline the teacher repo uses around its chunk
// processing loop (bounded, cancellable sleeps between attempts). Execute
// applies no per-attempt timeout of its own: each attempt receives the
// caller's ctx.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/brunobiangulo/knowgraph/errs"
)

// Strategy selects how the delay before attempt n (1-indexed) is computed.
type Strategy string

const (
	StrategyConstant    Strategy = "constant"
	StrategyLinear      Strategy = "linear"
	StrategyExponential Strategy = "exponential"
	StrategyFibonacci   Strategy = "fibonacci"
	StrategyRandom      Strategy = "random"
)

// Policy configures a retry run.
type Policy struct {
	MaxAttempts             int
	Strategy                Strategy
	BaseDelay               time.Duration
	MaxDelay                time.Duration
	Jitter                  bool
	RetryableCategories     []errs.Category
	NonRetryableCategories  []errs.Category
	OnRetry                 func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns a policy matching spec.md §4.2's defaults: three
// attempts, exponential backoff, and the transient/resource/timeout
// categories treated as retryable.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Strategy:    StrategyExponential,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
		RetryableCategories: []errs.Category{
			errs.CategoryTransient, errs.CategoryResource, errs.CategoryTimeout,
		},
	}
}

// Result is the outcome of Execute.
type Result[T any] struct {
	Success  bool
	Value    T
	Err      error
	Attempts int
	Elapsed  time.Duration
}

func fib(n int) int {
	if n <= 1 {
		return n
	}
	a, b := 0, 1
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}

// delayFor computes the strategy-defined delay for the given 1-indexed
// attempt number, applies jitter, and clamps to MaxDelay.
func delayFor(p Policy, attempt int) time.Duration {
	base := float64(p.BaseDelay)
	var d float64
	switch p.Strategy {
	case StrategyLinear:
		d = base * float64(attempt)
	case StrategyExponential:
		d = base * math.Pow(2, float64(attempt-1))
	case StrategyFibonacci:
		d = base * float64(fib(attempt))
	case StrategyRandom:
		max := float64(p.MaxDelay)
		if max <= base {
			max = base
		}
		d = base + rand.Float64()*(max-base)
	default: // StrategyConstant
		d = base
	}

	if p.Jitter {
		d += rand.Float64() * base * 0.1
	}

	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// isRetryable decides whether err should trigger another attempt, given
// the policy's retryable/non-retryable category lists. Non-retryable
// takes precedence; an empty retryable list defaults to the error's own
// Retryable flag.
func isRetryable(p Policy, err error) bool {
	classified := errs.Classify("retry", err)

	for _, c := range p.NonRetryableCategories {
		if classified.Category == c {
			return false
		}
	}
	if len(p.RetryableCategories) == 0 {
		return classified.Retryable
	}
	for _, c := range p.RetryableCategories {
		if classified.Category == c {
			return true
		}
	}
	return false
}

// sleep waits for d or returns ctx.Err() if ctx is cancelled first
// (spec.md §5: "sleeps must be cancellable").
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute tries fn up to p.MaxAttempts times, sleeping the strategy-computed
// delay between attempts, and returns a Result describing the outcome. An
// attempt whose error is classified as non-retryable aborts immediately.
func Execute[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) Result[T] {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	start := time.Now()

	var (
		zero    T
		lastErr error
		lastVal T
		made    int
	)

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result[T]{Value: zero, Err: err, Attempts: made, Elapsed: time.Since(start)}
		}

		val, err := fn(ctx, attempt)
		made = attempt
		if err == nil {
			return Result[T]{Success: true, Value: val, Attempts: made, Elapsed: time.Since(start)}
		}

		lastErr, lastVal = err, val

		if !isRetryable(p, err) {
			break
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := delayFor(p, attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return Result[T]{Value: lastVal, Err: errors.Join(lastErr, sleepErr), Attempts: made, Elapsed: time.Since(start)}
		}
	}

	return Result[T]{Value: lastVal, Err: lastErr, Attempts: made, Elapsed: time.Since(start)}
}
