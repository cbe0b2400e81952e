package index

import (
	"math/rand/v2"
	"sort"

	"github.com/stratadb/stratadb/internal/vdberrors"
	"github.com/stratadb/stratadb/internal/vector"
)

// LSH is a locality-sensitive hashing index for cosine similarity search.
// Each table hashes vectors against a set of random hyperplanes into a
// bitmask signature; queries probe the exact signature plus the two
// signatures obtained by flipping bit 0 or bit 1, to improve recall.
type LSH struct {
	numPlanes int
	numTables int
	seed      uint64

	planes [][][]float64        // [table][plane][dim]
	tables []map[int][]lshEntry // [table][signature] -> entries
	dim    int
}

type lshEntry struct {
	id  string
	vec []float64
}

// NewLSH returns an LSH index with numTables hash tables of numPlanes
// hyperplanes each, deterministically seeded by seed.
func NewLSH(numPlanes, numTables int, seed uint64) *LSH {
	return &LSH{numPlanes: numPlanes, numTables: numTables, seed: seed}
}

func (l *LSH) Build(vectors [][]float64, ids []string) error {
	if err := validateBuildInputs(vectors, ids); err != nil {
		return err
	}
	if len(vectors) == 0 {
		l.planes = nil
		l.tables = nil
		l.dim = 0
		return nil
	}

	dim := len(vectors[0])
	l.dim = dim
	rng := rand.New(rand.NewPCG(l.seed, l.seed))

	l.planes = make([][][]float64, l.numTables)
	for t := 0; t < l.numTables; t++ {
		tablePlanes := make([][]float64, l.numPlanes)
		for p := 0; p < l.numPlanes; p++ {
			plane := make([]float64, dim)
			for d := range plane {
				plane[d] = rng.NormFloat64()
			}
			tablePlanes[p] = vector.Normalize(plane)
		}
		l.planes[t] = tablePlanes
	}

	l.tables = make([]map[int][]lshEntry, l.numTables)
	for t := 0; t < l.numTables; t++ {
		l.tables[t] = make(map[int][]lshEntry)
	}
	for i, vec := range vectors {
		for t, planes := range l.planes {
			sig := signature(vec, planes)
			l.tables[t][sig] = append(l.tables[t][sig], lshEntry{id: ids[i], vec: vec})
		}
	}
	return nil
}

// signature computes a bitmask where bit i is set when vec falls on the
// positive side of planes[i].
func signature(vec []float64, planes [][]float64) int {
	sig := 0
	for i, plane := range planes {
		dot, err := vector.Dot(vec, plane)
		if err == nil && dot >= 0 {
			sig |= 1 << i
		}
	}
	return sig
}

func (l *LSH) Query(v []float64, k int) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}
	if l.dim != 0 && len(v) != l.dim {
		return nil, vdberrors.DimensionMismatch(l.dim, len(v))
	}

	candidates := make(map[string][]float64)
	maxFlips := 2
	if l.numPlanes < maxFlips {
		maxFlips = l.numPlanes
	}

	for t, planes := range l.planes {
		sig := signature(v, planes)
		collect := func(s int) {
			for _, e := range l.tables[t][s] {
				if _, ok := candidates[e.id]; !ok {
					candidates[e.id] = e.vec
				}
			}
		}
		collect(sig)
		for bit := 0; bit < maxFlips; bit++ {
			collect(sig ^ (1 << bit))
		}
	}

	matches := make([]Match, 0, len(candidates))
	for id, vec := range candidates {
		score, err := vector.Cosine(v, vec)
		if err != nil {
			continue
		}
		matches = append(matches, Match{ID: id, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (l *LSH) Metric() string { return "cosine" }
func (l *LSH) Kind() string   { return "lsh" }
