package index

import (
	"sort"

	"github.com/stratadb/stratadb/internal/vdberrors"
	"github.com/stratadb/stratadb/internal/vector"
)

// Linear is a brute-force index that scores every stored vector against
// the query on each call. It supports both the cosine and euclidean
// metrics and is used as the lazy fallback when a library has no index
// built yet.
type Linear struct {
	metric  string
	vectors [][]float64
	ids     []string
}

// NewLinear returns a Linear index scoring with metric, which must be
// "cosine" or "euclidean".
func NewLinear(metric string) *Linear {
	return &Linear{metric: metric}
}

func (l *Linear) Build(vectors [][]float64, ids []string) error {
	if err := validateBuildInputs(vectors, ids); err != nil {
		return err
	}
	l.vectors = vectors
	l.ids = ids
	return nil
}

func (l *Linear) Query(v []float64, k int) ([]Match, error) {
	if len(l.vectors) == 0 || k <= 0 {
		return []Match{}, nil
	}
	if len(v) != len(l.vectors[0]) {
		return nil, vdberrors.DimensionMismatch(len(l.vectors[0]), len(v))
	}

	matches := make([]Match, len(l.ids))
	for i, vec := range l.vectors {
		score, err := l.score(v, vec)
		if err != nil {
			return nil, err
		}
		matches[i] = Match{ID: l.ids[i], Score: score}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (l *Linear) score(a, b []float64) (float64, error) {
	if l.metric == "euclidean" {
		return vector.EuclideanSimilarity(a, b)
	}
	return vector.Cosine(a, b)
}

func (l *Linear) Metric() string { return l.metric }
func (l *Linear) Kind() string   { return "linear" }
