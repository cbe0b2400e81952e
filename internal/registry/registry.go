// Package registry manages the active search index for each library: it
// builds indices on demand, serves searches with overfetch and metadata
// filtering, and lazily falls back to a Linear index for libraries that
// have not been explicitly indexed.
package registry

import (
	"sort"

	"github.com/stratadb/stratadb/internal/index"
	"github.com/stratadb/stratadb/internal/rwmutex"
	"github.com/stratadb/stratadb/internal/store"
)

// Match is a single scored search result, reported after any metadata
// filtering has been applied.
type Match = index.Match

// Info describes the index currently active for a library.
type Info struct {
	LibraryID string
	Algorithm string
	Metric    string
}

// OverfetchParams configures how much wider than k an index query runs
// before metadata filtering is applied.
type OverfetchParams struct {
	Multiplier         int
	Buffer             int
	FilteredMultiplier int
	FilteredBuffer     int
}

// DefaultOverfetchParams matches the reference implementation's
// constants.
var DefaultOverfetchParams = OverfetchParams{
	Multiplier: 3, Buffer: 50, FilteredMultiplier: 6, FilteredBuffer: 100,
}

// Registry owns the active index per library, guarded by its own
// writer-priority lock distinct from the Store's.
type Registry struct {
	mu        *rwmutex.RWMutex
	store     *store.Store
	indices   map[string]index.Index
	meta      map[string]Info
	lshParams index.LSHParams
	overfetch OverfetchParams
	fallback  string // metric used for the lazy fallback Linear index
}

// New returns a Registry backed by s. fallbackMetric is used when a
// lazy fallback index must be built for an unindexed library.
func New(s *store.Store, fallbackMetric string, lshParams index.LSHParams, overfetch OverfetchParams) *Registry {
	return &Registry{
		mu:        rwmutex.New(),
		store:     s,
		indices:   make(map[string]index.Index),
		meta:      make(map[string]Info),
		lshParams: lshParams,
		overfetch: overfetch,
		fallback:  fallbackMetric,
	}
}

// BuildIndex (re)builds the index for libraryID using algorithm and
// metric, from every chunk currently in the store that has a non-empty
// embedding.
func (r *Registry) BuildIndex(libraryID, algorithm, metric string) error {
	idx, err := index.New(algorithm, metric, r.lshParams)
	if err != nil {
		return err
	}

	chunks := r.store.ListChunksByLibrary(libraryID)
	vectors := make([][]float64, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		vectors = append(vectors, c.Embedding)
		ids = append(ids, c.ID)
	}
	if err := idx.Build(vectors, ids); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.indices[libraryID] = idx
	r.meta[libraryID] = Info{LibraryID: libraryID, Algorithm: idx.Kind(), Metric: idx.Metric()}
	return nil
}

// Search returns up to k nearest neighbors of vector within libraryID.
// If no index has been built for the library, a Linear index is built
// lazily from the library's current chunks and cached. metadataFilters,
// when non-empty, is applied as an exact equality match against each
// candidate chunk's metadata after the index query.
func (r *Registry) Search(libraryID string, vector []float64, k int, metadataFilters map[string]string) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}

	idx, err := r.getOrCreateIndex(libraryID)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return []Match{}, nil
	}

	queryK := calculateQueryK(k, len(metadataFilters) > 0, r.overfetch)
	matches, err := idx.Query(vector, queryK)
	if err != nil {
		return nil, err
	}

	if len(metadataFilters) > 0 {
		matches = r.applyMetadataFilters(matches, metadataFilters)
	}

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (r *Registry) getOrCreateIndex(libraryID string) (index.Index, error) {
	r.mu.RLock()
	idx, ok := r.indices[libraryID]
	r.mu.RUnlock()
	if ok {
		return idx, nil
	}

	chunks := r.store.ListChunksByLibrary(libraryID)
	vectors := make([][]float64, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		vectors = append(vectors, c.Embedding)
		ids = append(ids, c.ID)
	}
	if len(vectors) == 0 {
		return nil, nil
	}

	fallback := index.NewLinear(r.fallback)
	if err := fallback.Build(vectors, ids); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.indices[libraryID] = fallback
	r.meta[libraryID] = Info{LibraryID: libraryID, Algorithm: fallback.Kind(), Metric: fallback.Metric()}
	r.mu.Unlock()

	return fallback, nil
}

// applyMetadataFilters keeps only matches whose chunk still exists in
// the store and whose metadata satisfies every filter key/value exactly.
// A match whose chunk id is no longer present (the index is stale with
// respect to a deletion) is silently dropped.
func (r *Registry) applyMetadataFilters(matches []Match, filters map[string]string) []Match {
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		chunk, err := r.store.GetChunk(m.ID)
		if err != nil {
			continue
		}
		if matchesFilters(chunk.Metadata, filters) {
			out = append(out, m)
		}
	}
	return out
}

func matchesFilters(metadata, filters map[string]string) bool {
	for k, v := range filters {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// calculateQueryK widens k to overfetch extra candidates from the index
// before metadata filtering discards some of them.
func calculateQueryK(k int, hasFilters bool, p OverfetchParams) int {
	multiplier := p.Multiplier
	buffer := p.Buffer
	if hasFilters {
		multiplier = p.FilteredMultiplier
		buffer = p.FilteredBuffer
	}
	widened := k * multiplier
	capped := k + buffer
	queryK := widened
	if capped < queryK {
		queryK = capped
	}
	if queryK < k {
		queryK = k
	}
	return queryK
}

// GetIndexInfo reports the algorithm and metric active for libraryID, or
// an Info with Algorithm "none" and the fallback metric if no index has
// been built or lazily created yet.
func (r *Registry) GetIndexInfo(libraryID string) Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, ok := r.meta[libraryID]; ok {
		return info
	}
	return Info{LibraryID: libraryID, Algorithm: "none", Metric: r.fallback}
}

// ClearIndex removes the built index for libraryID, if any.
func (r *Registry) ClearIndex(libraryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.indices, libraryID)
	delete(r.meta, libraryID)
}

// GetIndexMetadata returns a copy of every library's current index info.
func (r *Registry) GetIndexMetadata() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Info, len(r.meta))
	for k, v := range r.meta {
		out[k] = v
	}
	return out
}

// RebuildIndices rebuilds every library named in metadata using its
// previously recorded algorithm and metric. A library whose rebuild
// fails is skipped; RebuildIndices does not stop at the first failure.
func (r *Registry) RebuildIndices(metadata map[string]Info) []error {
	libraryIDs := make([]string, 0, len(metadata))
	for id := range metadata {
		libraryIDs = append(libraryIDs, id)
	}
	sort.Strings(libraryIDs)

	var errs []error
	for _, id := range libraryIDs {
		info := metadata[id]
		if err := r.BuildIndex(id, info.Algorithm, info.Metric); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
