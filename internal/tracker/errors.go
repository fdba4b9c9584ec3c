package tracker

import "errors"

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the
	// dimensionality of the stored representatives.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidEmbedding is returned for empty vectors or vectors holding NaN or Inf.
	ErrInvalidEmbedding = errors.New("invalid embedding")
)
