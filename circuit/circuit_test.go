package circuit

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosedAllowsCalls(t *testing.T) {
	b := New(Config{Name: "t1", FailureThreshold: 3, RecoveryTimeout: time.Minute})
	val, err := Execute(b, func() (int, error) { return 7, nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, val)
	assert.Equal(t, StateClosed, b.State())
}

func TestOpensAfterThreshold(t *testing.T) {
	b := New(Config{Name: "t2", FailureThreshold: 3, RecoveryTimeout: time.Minute})
	failing := func() (int, error) { return 0, errors.New("boom") }

	for i := 0; i < 3; i++ {
		_, err := Execute(b, failing, nil)
		require.Error(t, err)
	}
	assert.Equal(t, StateOpen, b.State())

	_, err := Execute(b, failing, nil)
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
}

func TestHalfOpenAfterRecoveryTimeout(t *testing.T) {
	b := New(Config{Name: "t3", FailureThreshold: 1, RecoveryTimeout: 20 * time.Millisecond})
	_, err := Execute(b, func() (int, error) { return 0, errors.New("boom") }, nil)
	require.Error(t, err)
	assert.Equal(t, StateOpen, b.State())

	time.Sleep(25 * time.Millisecond)

	val, err := Execute(b, func() (int, error) { return 9, nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, 9, val)
	assert.Equal(t, StateClosed, b.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := New(Config{Name: "t4", FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})
	_, _ = Execute(b, func() (int, error) { return 0, errors.New("boom") }, nil)
	time.Sleep(15 * time.Millisecond)

	_, err := Execute(b, func() (int, error) { return 0, errors.New("still broken") }, nil)
	require.Error(t, err)
	assert.Equal(t, StateOpen, b.State())
}

func TestAllowedExceptionDoesNotCountAsFailure(t *testing.T) {
	sentinel := errors.New("ignored")
	b := New(Config{
		Name:             "t5",
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		AllowedExceptions: []func(error) bool{
			func(err error) bool { return errors.Is(err, sentinel) },
		},
	})
	_, err := Execute(b, func() (int, error) { return 0, sentinel }, nil)
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, StateClosed, b.State())
}

func TestFallbackUsedWhenOpen(t *testing.T) {
	b := New(Config{Name: "t6", FailureThreshold: 1, RecoveryTimeout: time.Hour})
	_, _ = Execute(b, func() (int, error) { return 0, errors.New("boom") }, nil)
	require.Equal(t, StateOpen, b.State())

	val, err := Execute(b, func() (int, error) { return 0, errors.New("unreachable") }, func() (int, error) { return -1, nil })
	require.NoError(t, err)
	assert.Equal(t, -1, val)
}

func TestResetForcesClosed(t *testing.T) {
	b := New(Config{Name: "t7", FailureThreshold: 1, RecoveryTimeout: time.Hour})
	_, _ = Execute(b, func() (int, error) { return 0, errors.New("boom") }, nil)
	require.Equal(t, StateOpen, b.State())
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

// TestHalfOpenConcurrencyBound reproduces spec.md property 7: no more than
// HalfOpenMaxCalls proceed concurrently while the breaker is HALF_OPEN.
func TestHalfOpenConcurrencyBound(t *testing.T) {
	b := New(Config{Name: "t8", FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 2})
	_, _ = Execute(b, func() (int, error) { return 0, errors.New("boom") }, nil)
	time.Sleep(15 * time.Millisecond)

	var admitted int32
	var wg sync.WaitGroup
	block := make(chan struct{})
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Execute(b, func() (int, error) {
				atomic.AddInt32(&admitted, 1)
				<-block
				return 1, nil
			}, nil)
			_ = err
		}()
	}
	time.Sleep(10 * time.Millisecond)
	close(block)
	wg.Wait()

	assert.LessOrEqual(t, int(admitted), 2)
}

func TestRegistrySharesBreakerByName(t *testing.T) {
	r := &Registry{}
	a := r.GetOrCreate(Config{Name: "shared", FailureThreshold: 2, RecoveryTimeout: time.Minute})
	c := r.GetOrCreate(Config{Name: "shared", FailureThreshold: 99, RecoveryTimeout: time.Minute})
	assert.Same(t, a, c)

	got, ok := r.Get("shared")
	require.True(t, ok)
	assert.Same(t, a, got)
}
