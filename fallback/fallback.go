// Package fallback implements progressive fallback execution: a primary
// operation, an ordered list of lower-quality fallbacks, and a
// quality-annotated result. Grounded on the teacher's own graceful
// degradation instinct in graph.Builder.Build, which tolerates partial
// chunk failures and keeps going rather than aborting the whole batch;
// this package generalizes that instinct into a formal primary->fallback
// chain with an explicit circuit breaker in front of the primary.
package fallback

import (
	"math"

	"github.com/brunobiangulo/knowgraph/circuit"
	"github.com/brunobiangulo/knowgraph/errs"
)

// Result wraps a value with fallback provenance (spec.md §3
// FallbackResult<T>).
type Result[T any] struct {
	Value          T
	FromFallback   bool
	FallbackLevel  int
	Quality        float64
	OriginalError  *errs.Error
	Metadata       map[string]any
}

// Func is an operation that can serve as a primary or fallback.
type Func[T any] func() (T, error)

// Strategy composes a primary with ordered fallbacks.
type Strategy[T any] struct {
	Primary   Func[T]
	Fallbacks []Func[T]

	// Breaker protects the primary call only; fallbacks run unprotected.
	Breaker *circuit.Breaker

	// QualityEstimates maps fallback level (0 = primary) to a quality
	// score. When nil, defaults per spec.md §4.6 are used:
	// quality[0]=1.0, quality[i]=max(0.1, 0.7^i).
	QualityEstimates []float64

	// ErrorHandler, if set, is invoked with the last error when every
	// fallback also fails; its return value is wrapped at the lowest
	// quality (<= 0.1).
	ErrorHandler func(err error) (T, error)

	// WrapResult controls whether a primary success is wrapped with
	// quality metadata at all (it is always returned as a Result; this
	// flag only controls whether Quality/FromFallback are populated from
	// QualityEstimates[0] vs. left at their zero values).
	WrapResult bool
}

func defaultQuality(level int) float64 {
	if level == 0 {
		return 1.0
	}
	q := math.Pow(0.7, float64(level))
	if q < 0.1 {
		q = 0.1
	}
	return q
}

func (s *Strategy[T]) qualityFor(level int) float64 {
	if level < len(s.QualityEstimates) {
		return s.QualityEstimates[level]
	}
	return defaultQuality(level)
}

// Execute runs the primary (through Breaker, if set), falling through the
// ordered fallbacks on any error, per spec.md §4.6. When every fallback
// (and the optional ErrorHandler) also fails, it returns the zero Result
// and the last error, mirroring "else re-raise the last exception."
func (s *Strategy[T]) Execute() (Result[T], error) {
	var zero T

	primaryCall := func() (T, error) { return s.Primary() }

	var val T
	var err error
	if s.Breaker != nil {
		val, err = circuit.Execute(s.Breaker, primaryCall, nil)
	} else {
		val, err = primaryCall()
	}

	if err == nil {
		q := 0.0
		if s.WrapResult {
			q = s.qualityFor(0)
		}
		return Result[T]{Value: val, FromFallback: false, FallbackLevel: 0, Quality: q}, nil
	}

	lastErr := err
	for i, fb := range s.Fallbacks {
		level := i + 1
		v, ferr := fb()
		if ferr == nil {
			return Result[T]{
				Value:         v,
				FromFallback:  true,
				FallbackLevel: level,
				Quality:       s.qualityFor(level),
				OriginalError: errs.Classify("fallback", lastErr),
			}, nil
		}
		lastErr = ferr
	}

	if s.ErrorHandler != nil {
		v, herr := s.ErrorHandler(lastErr)
		if herr == nil {
			level := len(s.Fallbacks) + 1
			q := math.Min(0.1, s.qualityFor(level))
			return Result[T]{
				Value:         v,
				FromFallback:  true,
				FallbackLevel: level,
				Quality:       q,
				OriginalError: errs.Classify("fallback", lastErr),
			}, nil
		}
		lastErr = herr
	}

	return Result[T]{Value: zero}, errs.Classify("fallback", lastErr)
}
