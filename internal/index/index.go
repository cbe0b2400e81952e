// Package index implements the pluggable nearest-neighbor search
// algorithms that back a library's vector index: linear scan, a KD-tree,
// and locality-sensitive hashing.
//
// An Index is built once from a batch of vectors and ids, then queried
// any number of times. Build must not run concurrently with any other
// call; Query only reads the built state. The registry never rebuilds an
// installed index in place (BuildIndex installs a new instance) and runs
// queries outside its lock.
package index

import "github.com/stratadb/stratadb/internal/vdberrors"

// Match is a single scored search result. Score is always oriented so
// that larger means more similar, regardless of the underlying metric.
type Match struct {
	ID    string
	Score float64
}

// Index is the common interface implemented by every search algorithm.
type Index interface {
	// Build replaces the index's contents with vectors and ids. vectors
	// and ids must have equal length, and every vector must share the
	// same dimensionality.
	Build(vectors [][]float64, ids []string) error

	// Query returns up to k nearest neighbors of vector, ordered by
	// descending score. It returns an empty slice if the index is empty
	// or k <= 0.
	Query(vector []float64, k int) ([]Match, error)

	// Metric reports the distance metric this index uses.
	Metric() string

	// Kind reports the algorithm name.
	Kind() string
}

func validateBuildInputs(vectors [][]float64, ids []string) error {
	if len(vectors) != len(ids) {
		return vdberrors.InvalidInput("vectors and ids must have the same length")
	}
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			return vdberrors.InvalidInput("all vectors must share the same dimensionality")
		}
	}
	return nil
}
