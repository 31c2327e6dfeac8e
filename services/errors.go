package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingestion and retrieval pipelines. Callers match
// them with errors.Is to map outcomes to HTTP statuses. A not-found answer
// is NOT an error: it is a regular AnswerResult with Found=false.
var (
	// ErrNoDocuments means the source directory held no ingestible files.
	// User-correctable; aborts only the ingestion run.
	ErrNoDocuments = errors.New("no documents found")

	// ErrEmptyQuery rejects empty or whitespace-only questions before any
	// embedding call is made.
	ErrEmptyQuery = errors.New("empty query")

	// ErrIndexUnavailable means no vector index is loaded; queries cannot
	// be served until ingestion has run.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)

// EmbeddingError wraps a failure of the embedding provider, recording which
// call failed so it can be diagnosed. It is always surfaced as a failure,
// never collapsed into a not-found answer.
type EmbeddingError struct {
	Op  string // "embed_query", "embed_batch"
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding provider failed during %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// PersistenceError wraps an index read/write failure.
type PersistenceError struct {
	Op  string // "save", "load"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("index persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
