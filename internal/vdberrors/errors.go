// Package vdberrors defines the error taxonomy shared across the store,
// registry, and service facade.
package vdberrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions with no extra detail to carry.
var (
	// ErrIndexNotBuilt is reserved for callers that opt out of the lazy
	// fallback search path (see internal/registry).
	ErrIndexNotBuilt = errors.New("vdberrors: index not built")
)

// NotFoundError reports a missing Library, Document, or Chunk.
type NotFoundError struct {
	Kind string // "Library", "Document", or "Chunk"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NotFound constructs a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// DimensionMismatchError reports an embedding or query vector whose length
// disagrees with the library's frozen dimensionality or the index's built
// dimensionality.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// DimensionMismatch constructs a DimensionMismatchError.
func DimensionMismatch(expected, got int) error {
	return &DimensionMismatchError{Expected: expected, Got: got}
}

// IsDimensionMismatch reports whether err is (or wraps) a DimensionMismatchError.
func IsDimensionMismatch(err error) bool {
	var dm *DimensionMismatchError
	return errors.As(err, &dm)
}

// InvalidAlgorithmError reports an unknown index algorithm name.
type InvalidAlgorithmError struct {
	Algorithm string
	Available []string
}

func (e *InvalidAlgorithmError) Error() string {
	return fmt.Sprintf("unknown index algorithm %q, available: %v", e.Algorithm, e.Available)
}

// InvalidAlgorithm constructs an InvalidAlgorithmError.
func InvalidAlgorithm(algorithm string, available []string) error {
	return &InvalidAlgorithmError{Algorithm: algorithm, Available: available}
}

// InvalidMetricError reports a metric incompatible with an algorithm.
type InvalidMetricError struct {
	Algorithm string
	Metric    string
	Supported []string
}

func (e *InvalidMetricError) Error() string {
	return fmt.Sprintf("%s does not support metric %q, supported: %v", e.Algorithm, e.Metric, e.Supported)
}

// InvalidMetric constructs an InvalidMetricError.
func InvalidMetric(algorithm, metric string, supported []string) error {
	return &InvalidMetricError{Algorithm: algorithm, Metric: metric, Supported: supported}
}

// InvalidInputError reports a malformed call, such as mismatched vectors/ids
// lengths at build time.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Message
}

// InvalidInput constructs an InvalidInputError.
func InvalidInput(message string) error {
	return &InvalidInputError{Message: message}
}
