package fallback

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimarySuccessNotFromFallback(t *testing.T) {
	s := &Strategy[int]{Primary: func() (int, error) { return 1, nil }}
	res, err := s.Execute()
	require.NoError(t, err)
	assert.False(t, res.FromFallback)
	assert.Equal(t, 0, res.FallbackLevel)
}

func TestFirstFallbackSucceeds(t *testing.T) {
	s := &Strategy[int]{
		Primary: func() (int, error) { return 0, errors.New("primary down") },
		Fallbacks: []Func[int]{
			func() (int, error) { return 2, nil },
		},
	}
	res, err := s.Execute()
	require.NoError(t, err)
	assert.True(t, res.FromFallback)
	assert.Equal(t, 1, res.FallbackLevel)
	assert.Equal(t, 2, res.Value)
	assert.InDelta(t, 0.7, res.Quality, 1e-9)
}

func TestQualityNonIncreasingWithLevel(t *testing.T) {
	s := &Strategy[int]{
		Primary: func() (int, error) { return 0, errors.New("down") },
		Fallbacks: []Func[int]{
			func() (int, error) { return 0, errors.New("still down") },
			func() (int, error) { return 3, nil },
		},
	}
	res, err := s.Execute()
	require.NoError(t, err)
	assert.Equal(t, 2, res.FallbackLevel)
	assert.Less(t, res.Quality, 0.7)
}

func TestErrorHandlerUsedWhenAllFallbacksFail(t *testing.T) {
	s := &Strategy[int]{
		Primary: func() (int, error) { return 0, errors.New("down") },
		Fallbacks: []Func[int]{
			func() (int, error) { return 0, errors.New("also down") },
		},
		ErrorHandler: func(err error) (int, error) { return -1, nil },
	}
	res, err := s.Execute()
	require.NoError(t, err)
	assert.Equal(t, -1, res.Value)
	assert.LessOrEqual(t, res.Quality, 0.1)
}

func TestReraisesWhenNoErrorHandler(t *testing.T) {
	s := &Strategy[int]{
		Primary: func() (int, error) { return 0, errors.New("down") },
	}
	_, err := s.Execute()
	require.Error(t, err)
}

func TestCustomQualityEstimatesOverrideDefaults(t *testing.T) {
	s := &Strategy[int]{
		Primary:          func() (int, error) { return 0, errors.New("down") },
		Fallbacks:        []Func[int]{func() (int, error) { return 1, nil }},
		QualityEstimates: []float64{1.0, 0.42},
	}
	res, err := s.Execute()
	require.NoError(t, err)
	assert.Equal(t, 0.42, res.Quality)
}
