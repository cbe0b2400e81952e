package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stratadb/stratadb/internal/index"
	"github.com/stratadb/stratadb/internal/registry"
	"github.com/stratadb/stratadb/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*store.Store, *registry.Registry, *Engine) {
	t.Helper()
	s := store.New()
	r := registry.New(s, "cosine", index.DefaultLSHParams, registry.DefaultOverfetchParams)
	e := New(s, r, t.TempDir())
	return s, r, e
}

func TestSaveCreatesFileAtExplicitPath(t *testing.T) {
	s, _, e := setup(t)
	s.CreateLibrary(store.Library{ID: "lib1", Name: "Docs"})

	path := filepath.Join(t.TempDir(), "snap.json")
	written, err := e.Save(path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSaveCreatesFileAtDefaultPath(t *testing.T) {
	_, _, e := setup(t)
	written, err := e.Save("")
	require.NoError(t, err)
	assert.Contains(t, written, "snapshot_")
	assert.Contains(t, written, ".json")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s, r, e := setup(t)
	s.CreateLibrary(store.Library{ID: "lib1", Name: "Docs"})
	s.CreateDocument(store.Document{ID: "doc1", LibraryID: "lib1"})
	s.CreateChunk(store.Chunk{ID: "c1", DocumentID: "doc1", Embedding: []float64{1, 2, 3}})
	require.NoError(t, r.BuildIndex("lib1", index.AlgoLinear, "cosine"))

	path := filepath.Join(t.TempDir(), "snap.json")
	_, err := e.Save(path)
	require.NoError(t, err)

	s2 := store.New()
	r2 := registry.New(s2, "cosine", index.DefaultLSHParams, registry.DefaultOverfetchParams)
	e2 := New(s2, r2, t.TempDir())
	require.NoError(t, e2.Load(path))

	lib, err := s2.GetLibrary("lib1")
	require.NoError(t, err)
	assert.Equal(t, "Docs", lib.Name)

	chunk, err := s2.GetChunk("c1")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, chunk.Embedding)

	info := r2.GetIndexInfo("lib1")
	assert.Equal(t, "linear", info.Algorithm)
}

func TestLoadMissingFileIsNoOp(t *testing.T) {
	_, _, e := setup(t)
	err := e.Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
}

func TestLoadMissingDefaultPathIsNoOp(t *testing.T) {
	_, _, e := setup(t)
	require.NoError(t, e.Load(""))
}

func TestLoadPreservesLibraryEmbeddingDim(t *testing.T) {
	s, r, e := setup(t)
	s.CreateLibrary(store.Library{ID: "lib1"})
	require.NoError(t, s.SetLibraryEmbeddingDim("lib1", 3))

	path := filepath.Join(t.TempDir(), "snap.json")
	_, err := e.Save(path)
	require.NoError(t, err)

	s2 := store.New()
	r2 := registry.New(s2, "cosine", index.DefaultLSHParams, registry.DefaultOverfetchParams)
	e2 := New(s2, r2, t.TempDir())
	require.NoError(t, e2.Load(path))

	lib, err := s2.GetLibrary("lib1")
	require.NoError(t, err)
	require.NotNil(t, lib.EmbeddingDim)
	assert.Equal(t, 3, *lib.EmbeddingDim)
}
