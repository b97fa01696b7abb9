// Package progressive selects an extraction level (FULL/STANDARD/BASIC/
// MINIMAL), descending to cheaper levels when a richer one fails or yields
// nothing, and remembering the level that last succeeded so the next call
// starts there. Built on top of package fallback: each call to Process
// assembles the remaining levels (from Current down to MINIMAL) into a
// fallback.Strategy whose primary is the current level and whose ordered
// fallbacks are the cheaper ones, reusing fallback's primary-then-fallback
// walk and quality bookkeeping instead of re-implementing a second one.
package progressive

import (
	"errors"

	"github.com/brunobiangulo/knowgraph/errs"
	"github.com/brunobiangulo/knowgraph/fallback"
)

// Level is a closed set of extraction qualities, ordered from richest to
// cheapest.
type Level string

const (
	LevelFull     Level = "full"
	LevelStandard Level = "standard"
	LevelBasic    Level = "basic"
	LevelMinimal  Level = "minimal"
)

// order lists every level from richest to cheapest.
var order = []Level{LevelFull, LevelStandard, LevelBasic, LevelMinimal}

// defaultQuality maps a level to its quality score per spec.md §4.6.
var defaultQuality = map[Level]float64{
	LevelFull:     1.0,
	LevelStandard: 0.8,
	LevelBasic:    0.5,
	LevelMinimal:  0.3,
}

// ErrNoLevelSucceeded is returned when every level from the current one
// down to MINIMAL fails or yields an empty result.
var ErrNoLevelSucceeded = errors.New("progressive: no extraction level succeeded")

// errEmptyResult makes an "empty but no error" Run outcome look like a
// failure to fallback.Strategy, which only descends to the next fallback
// on a non-nil error.
var errEmptyResult = errors.New("progressive: level produced an empty result")

// Extractor runs a level-specific function for each level, starting at
// Current and descending until one succeeds, then remembers that level.
type Extractor[T any] struct {
	Current Level

	// Run executes extraction at the given level. It should return a
	// zero-value T with a nil error to signal "succeeded but empty" if
	// Empty treats empty results as a descend trigger; returning a
	// non-nil error always triggers descent.
	Run func(level Level) (T, error)

	// Empty reports whether a result counts as "no output", which also
	// triggers a descend per spec.md §4.12 ("yields zero entities").
	Empty func(T) bool

	// QualityOverride replaces defaultQuality's per-level scores when its
	// length matches the number of remaining levels for this call;
	// otherwise the default table is used.
	QualityOverride []float64

	// WrapResult mirrors fallback.Strategy.WrapResult: whether a primary
	// success gets its Quality populated. Zero-value Extractor (existing
	// callers) behaves as if true, since spec.md always wants a quality
	// score attached to a progressive result.
	WrapResult *bool
}

// Result pairs an extraction output with the level that produced it.
type Result[T any] struct {
	Value         T
	Level         Level
	FromFallback  bool
	FallbackLevel int
	Quality       float64
	OriginalError *errs.Error
}

func levelIndex(l Level) int {
	for i, o := range order {
		if o == l {
			return i
		}
	}
	return 0
}

// Process tries Current, then each remaining level in descending order,
// selecting the first that succeeds and produces a non-empty result;
// updates Current to that level so the next call starts there.
func (e *Extractor[T]) Process() (Result[T], error) {
	remaining := order[levelIndex(e.Current):]

	runLevel := func(level Level) (T, error) {
		val, err := e.Run(level)
		if err != nil {
			return val, err
		}
		if e.Empty != nil && e.Empty(val) {
			var zero T
			return zero, errEmptyResult
		}
		return val, nil
	}

	var qualities []float64
	if len(e.QualityOverride) == len(remaining) {
		qualities = e.QualityOverride
	} else {
		qualities = make([]float64, len(remaining))
		for i, l := range remaining {
			qualities[i] = defaultQuality[l]
		}
	}

	wrapResult := true
	if e.WrapResult != nil {
		wrapResult = *e.WrapResult
	}

	strategy := &fallback.Strategy[T]{
		Primary:          func() (T, error) { return runLevel(remaining[0]) },
		QualityEstimates: qualities,
		WrapResult:       wrapResult,
	}
	for _, level := range remaining[1:] {
		strategy.Fallbacks = append(strategy.Fallbacks, func() (T, error) { return runLevel(level) })
	}

	fbResult, err := strategy.Execute()
	if err != nil {
		return Result[T]{OriginalError: errs.Classify("progressive extraction", err)}, ErrNoLevelSucceeded
	}

	level := remaining[fbResult.FallbackLevel]
	e.Current = level

	return Result[T]{
		Value:         fbResult.Value,
		Level:         level,
		FromFallback:  fbResult.FromFallback,
		FallbackLevel: fbResult.FallbackLevel,
		Quality:       fbResult.Quality,
	}, nil
}
