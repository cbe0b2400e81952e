package index

import "github.com/stratadb/stratadb/internal/vdberrors"

// Algorithm names recognized by New.
const (
	AlgoLinear = "linear"
	AlgoKDTree = "kdtree"
	AlgoLSH    = "lsh"
)

// Algorithms lists every recognized algorithm name, in a stable order
// suitable for error messages.
var Algorithms = []string{AlgoLinear, AlgoKDTree, AlgoLSH}

// LSHParams configures a newly built LSH index. Zero values fall back to
// the package defaults.
type LSHParams struct {
	NumPlanes int
	NumTables int
	Seed      uint64
}

// DefaultLSHParams matches the reference implementation's defaults.
var DefaultLSHParams = LSHParams{NumPlanes: 16, NumTables: 4, Seed: 42}

// New constructs an Index for algorithm using metric. kdtree only
// supports euclidean and lsh only supports cosine; linear supports both.
// lshParams is used only when algorithm is "lsh"; a zero value selects
// DefaultLSHParams.
func New(algorithm, metric string, lshParams LSHParams) (Index, error) {
	switch algorithm {
	case AlgoLinear:
		if metric != "cosine" && metric != "euclidean" {
			return nil, vdberrors.InvalidMetric(AlgoLinear, metric, []string{"cosine", "euclidean"})
		}
		return NewLinear(metric), nil
	case AlgoKDTree:
		if metric != "euclidean" {
			return nil, vdberrors.InvalidMetric(AlgoKDTree, metric, []string{"euclidean"})
		}
		return NewKDTree(), nil
	case AlgoLSH:
		if metric != "cosine" {
			return nil, vdberrors.InvalidMetric(AlgoLSH, metric, []string{"cosine"})
		}
		p := lshParams
		if p.NumPlanes == 0 {
			p.NumPlanes = DefaultLSHParams.NumPlanes
		}
		if p.NumTables == 0 {
			p.NumTables = DefaultLSHParams.NumTables
		}
		if p.Seed == 0 {
			p.Seed = DefaultLSHParams.Seed
		}
		return NewLSH(p.NumPlanes, p.NumTables, p.Seed), nil
	default:
		return nil, vdberrors.InvalidAlgorithm(algorithm, Algorithms)
	}
}
