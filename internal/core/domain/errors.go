package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks bad chunking parameters. Caller bug, never retried.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidInput marks empty or malformed text. Rejected, no retry.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmbeddingUnavailable marks a transient embedding provider failure.
	// Ingestion rolls back; queries surface it as retryable.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrGenerationUnavailable marks a generative model failure. The core does
	// not retry; retry policy belongs to the caller.
	ErrGenerationUnavailable = errors.New("generation unavailable")
	// ErrDuplicateID marks an id collision on insert. Surfaced, never
	// silently overwritten.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrInvalidVector marks a zero-norm vector passed to similarity search.
	ErrInvalidVector = errors.New("invalid vector")
	// ErrDocumentNotFound marks a lookup for an unknown document id.
	ErrDocumentNotFound = errors.New("document not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
