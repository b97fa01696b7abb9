package progressive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFullFailsFallsThroughToStandard reproduces spec.md E2E-6: a FULL
// extractor that raises falls through to STANDARD which succeeds.
func TestFullFailsFallsThroughToStandard(t *testing.T) {
	calls := []Level{}
	e := &Extractor[string]{
		Current: LevelFull,
		Run: func(level Level) (string, error) {
			calls = append(calls, level)
			if level == LevelFull {
				return "", errors.New("full extractor unavailable")
			}
			return "standard-result", nil
		},
	}

	res, err := e.Process()
	require.NoError(t, err)
	assert.True(t, res.FromFallback)
	assert.Equal(t, 1, res.FallbackLevel)
	assert.Equal(t, LevelStandard, res.Level)
	assert.InDelta(t, 0.8, res.Quality, 1e-9)
	assert.Equal(t, []Level{LevelFull, LevelStandard}, calls)
}

func TestNextCallStartsAtLastSuccessfulLevel(t *testing.T) {
	e := &Extractor[string]{
		Current: LevelFull,
		Run: func(level Level) (string, error) {
			if level == LevelFull {
				return "", errors.New("down")
			}
			return "ok", nil
		},
	}
	_, err := e.Process()
	require.NoError(t, err)
	assert.Equal(t, LevelStandard, e.Current)

	var seenLevels []Level
	e.Run = func(level Level) (string, error) {
		seenLevels = append(seenLevels, level)
		return "ok", nil
	}
	_, err = e.Process()
	require.NoError(t, err)
	assert.Equal(t, []Level{LevelStandard}, seenLevels)
}

func TestEmptyResultTriggersDescend(t *testing.T) {
	e := &Extractor[[]string]{
		Current: LevelFull,
		Run: func(level Level) ([]string, error) {
			if level == LevelFull {
				return nil, nil
			}
			return []string{"x"}, nil
		},
		Empty: func(v []string) bool { return len(v) == 0 },
	}
	res, err := e.Process()
	require.NoError(t, err)
	assert.Equal(t, LevelStandard, res.Level)
}

func TestAllLevelsFailReturnsError(t *testing.T) {
	e := &Extractor[string]{
		Current: LevelFull,
		Run: func(level Level) (string, error) {
			return "", errors.New("down")
		},
	}
	_, err := e.Process()
	assert.ErrorIs(t, err, ErrNoLevelSucceeded)
}

func TestQualityNonIncreasingAcrossLevels(t *testing.T) {
	prev := 1.1
	for _, l := range order {
		q := defaultQuality[l]
		assert.LessOrEqual(t, q, prev)
		prev = q
	}
}
