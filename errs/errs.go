// Package errs defines the typed error taxonomy shared across the
// extraction pipeline: a closed set of categories and severities, named
// error kinds with default classification, and helpers to classify native
// errors and to log-and-optionally-reraise them.
package errs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
)

// Category is a closed set of broad failure classes used to decide
// retry/circuit-breaker policy.
type Category string

const (
	CategoryTransient     Category = "transient"
	CategoryPermanent     Category = "permanent"
	CategoryResource      Category = "resource"
	CategoryTimeout       Category = "timeout"
	CategoryAuthentication Category = "authentication"
	CategoryData          Category = "data"
	CategorySystem        Category = "system"
	CategoryUnknown       Category = "unknown"
)

// Severity is a closed set of log levels for classified errors.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

func (s Severity) slogLevel() slog.Level {
	switch s {
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Kind names a specific failure mode. Each kind carries a default
// (category, severity, retryable) triple that callers may override when
// constructing an *Error.
type Kind string

const (
	KindDocumentRead           Kind = "document_read"
	KindDocumentParse          Kind = "document_parse"
	KindDocumentEncoding       Kind = "document_encoding"
	KindURLFetch               Kind = "url_fetch"
	KindNoEntitiesFound        Kind = "no_entities_found"
	KindEntityExtraction       Kind = "entity_extraction"
	KindNoRelationshipsFound   Kind = "no_relationships_found"
	KindRelationshipExtraction Kind = "relationship_extraction"
	KindGraphDatabase          Kind = "graph_database"
	KindSchemaValidation       Kind = "schema_validation"
	KindCheckpoint             Kind = "checkpoint"
	KindUnknown                Kind = "unknown"
)

// kindDefaults maps a Kind to its default category/severity/retryable triple,
// per spec.md §4.1 and §7.
type defaultClass struct {
	category  Category
	severity  Severity
	retryable bool
}

var kindDefaults = map[Kind]defaultClass{
	KindDocumentRead:           {CategoryPermanent, SeverityError, false},
	KindDocumentParse:          {CategoryPermanent, SeverityError, false},
	KindDocumentEncoding:       {CategoryPermanent, SeverityError, false},
	KindURLFetch:               {CategoryTransient, SeverityWarning, true},
	KindNoEntitiesFound:        {CategoryData, SeverityWarning, false},
	KindEntityExtraction:       {CategoryTransient, SeverityWarning, true},
	KindNoRelationshipsFound:   {CategoryData, SeverityWarning, false},
	KindRelationshipExtraction: {CategoryTransient, SeverityWarning, true},
	KindGraphDatabase:          {CategoryTransient, SeverityError, true},
	KindSchemaValidation:       {CategoryPermanent, SeverityError, false},
	KindCheckpoint:             {CategoryPermanent, SeverityError, false},
	KindUnknown:                {CategoryUnknown, SeverityError, false},
}

// Error is the typed error carried through the pipeline.
type Error struct {
	Kind      Kind
	Category  Category
	Severity  Severity
	Msg       string
	Cause     error
	Retryable bool
	Context   map[string]any
}

// New constructs an *Error for kind, applying its default classification.
// Use the With* options to override category/severity/retryable.
func New(kind Kind, msg string, cause error) *Error {
	d, ok := kindDefaults[kind]
	if !ok {
		d = kindDefaults[KindUnknown]
	}
	return &Error{
		Kind:      kind,
		Category:  d.category,
		Severity:  d.severity,
		Msg:       msg,
		Cause:     cause,
		Retryable: d.retryable,
	}
}

// WithContext attaches context key/value pairs and returns the receiver for
// chaining.
func (e *Error) WithContext(kv map[string]any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any, len(kv))
	}
	for k, v := range kv {
		e.Context[k] = v
	}
	return e
}

// WithCategory overrides the category the default classification assigned.
func (e *Error) WithCategory(c Category) *Error { e.Category = c; return e }

// WithSeverity overrides the severity the default classification assigned.
func (e *Error) WithSeverity(s Severity) *Error { e.Severity = s; return e }

// WithRetryable overrides the retryable flag the default classification assigned.
func (e *Error) WithRetryable(r bool) *Error { e.Retryable = r; return e }

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap exposes the chained cause so errors.Is/errors.As can reconstruct
// the root cause (spec.md §7 "surfaced errors carry a chain").
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, errs.New(KindDocumentRead, "", nil)) style checks work.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// Classify maps a lower-level native error to the taxonomy above,
// returning a fresh *Error whose Cause is err. op is a short operation
// name used only for the message (e.g. "read document", "fetch url").
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	switch {
	case os.IsNotExist(err):
		return New(KindDocumentRead, op+": not found", err)
	case os.IsPermission(err):
		return New(KindDocumentRead, op+": permission denied", err)
	case errors.Is(err, context.DeadlineExceeded):
		return New(KindURLFetch, op+": timed out", err).
			WithCategory(CategoryTimeout).WithRetryable(true)
	case errors.Is(err, context.Canceled):
		return New(KindURLFetch, op+": cancelled", err).
			WithCategory(CategoryTimeout).WithRetryable(false)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return New(KindDocumentRead, op+": filesystem error", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		cat := CategoryTransient
		if netErr.Timeout() {
			cat = CategoryTimeout
		}
		return New(KindURLFetch, op+": network error", err).WithCategory(cat).WithRetryable(true)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return New(KindDocumentEncoding, op+": malformed data", err)
	}

	return New(KindUnknown, op+": "+err.Error(), err)
}

// Handle logs err at its mapped severity via log/slog, attaching operation
// and context as structured fields, and returns the classified *Error
// (see Classify) when reraise is true or nil otherwise.
func Handle(err error, operation string, ctxFields map[string]any, reraise bool) error {
	if err == nil {
		return nil
	}
	classified := Classify(operation, err)

	args := make([]any, 0, 2+2*len(classified.Context)+2*len(ctxFields))
	args = append(args, "operation", operation, "kind", classified.Kind)
	for k, v := range classified.Context {
		args = append(args, k, v)
	}
	for k, v := range ctxFields {
		args = append(args, k, v)
	}

	slog.Default().Log(context.Background(), classified.Severity.slogLevel(), classified.Error(), args...)

	if reraise {
		return classified
	}
	return nil
}
