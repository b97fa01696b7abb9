package errs

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	e := New(KindURLFetch, "fetch failed", nil)
	assert.Equal(t, CategoryTransient, e.Category)
	assert.True(t, e.Retryable)
}

func TestWithOverrides(t *testing.T) {
	e := New(KindDocumentRead, "boom", nil).WithCategory(CategoryTimeout).WithRetryable(true)
	assert.Equal(t, CategoryTimeout, e.Category)
	assert.True(t, e.Retryable)
}

func TestClassifyNotExist(t *testing.T) {
	_, err := os.Open("/does/not/exist/at/all")
	require.Error(t, err)
	classified := Classify("read document", err)
	assert.Equal(t, KindDocumentRead, classified.Kind)
	assert.False(t, classified.Retryable)
}

func TestClassifyDeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	classified := Classify("fetch", ctx.Err())
	assert.Equal(t, KindURLFetch, classified.Kind)
	assert.Equal(t, CategoryTimeout, classified.Category)
	assert.True(t, classified.Retryable)
}

func TestClassifyPassesThroughTypedError(t *testing.T) {
	original := New(KindSchemaValidation, "bad schema", nil)
	got := Classify("validate", original)
	assert.Same(t, original, got)
}

func TestErrorIsMatchesByKind(t *testing.T) {
	a := New(KindDocumentParse, "a", nil)
	b := New(KindDocumentParse, "b", nil)
	c := New(KindDocumentRead, "c", nil)
	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestErrorChainPreservesCause(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := New(KindGraphDatabase, "write failed", cause)
	assert.ErrorIs(t, wrapped, cause)
}

func TestHandleReraiseReturnsClassified(t *testing.T) {
	cause := errors.New("disk full")
	out := Handle(cause, "save checkpoint", map[string]any{"entity_id": "doc-1"}, true)
	require.Error(t, out)
	var classified *Error
	require.True(t, errors.As(out, &classified))
}

func TestHandleNoReraiseReturnsNil(t *testing.T) {
	out := Handle(errors.New("x"), "op", nil, false)
	assert.NoError(t, out)
}

func TestHandleNilErrReturnsNil(t *testing.T) {
	assert.NoError(t, Handle(nil, "op", nil, true))
}
