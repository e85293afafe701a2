package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals malformed request parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIndexNotFound signals a search against a never-created lexical index.
	ErrIndexNotFound = errors.New("index not found")
	// ErrCollectionNotFound signals a search against a never-created vector collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrDimensionMismatch signals an embedding/collection size mismatch.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingUnavailable signals an embedding backend failure.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")
	// ErrQueryTimeout signals that a bounded query wait was exceeded.
	ErrQueryTimeout = errors.New("query timeout")
	// ErrRerankUnavailable signals a reranker backend failure (non-fatal for Ask).
	ErrRerankUnavailable = errors.New("reranker unavailable")
	// ErrPartialIngest signals that some ingestion batches failed.
	ErrPartialIngest = errors.New("partial ingest failure")
)

// DimensionMismatchError wraps ErrDimensionMismatch with the expected and actual sizes.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: collection expects %d, got %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(want, got int) error {
	return &DimensionMismatchError{Want: want, Got: got}
}
