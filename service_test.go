package stratadb

import (
	"path/filepath"
	"testing"

	"github.com/stratadb/stratadb/internal/config"
	"github.com/stratadb/stratadb/internal/index"
	"github.com/stratadb/stratadb/internal/vdberrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.LoadFromEnv()
	cfg.Database.DataDir = t.TempDir()
	svc, err := New(cfg)
	require.NoError(t, err)
	return svc
}

// S1 — Basic flow, Linear+Cosine.
func TestScenarioBasicFlowLinearCosine(t *testing.T) {
	svc := newTestService(t)

	lib, err := svc.CreateLibrary("L", "", nil)
	require.NoError(t, err)
	doc, err := svc.CreateDocument(lib.ID, "D", "", nil)
	require.NoError(t, err)

	c1, err := svc.CreateChunk(lib.ID, doc.ID, "a", []float64{0, 1, 0}, nil)
	require.NoError(t, err)
	_, err = svc.CreateChunk(lib.ID, doc.ID, "b", []float64{1, 0, 0}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.BuildIndex(lib.ID, index.AlgoLinear, "cosine"))

	results, err := svc.Search(lib.ID, []float64{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, c1.ID, results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

// S2 — Dimension lock.
func TestScenarioDimensionLock(t *testing.T) {
	svc := newTestService(t)

	lib, err := svc.CreateLibrary("L", "", nil)
	require.NoError(t, err)
	doc, err := svc.CreateDocument(lib.ID, "D", "", nil)
	require.NoError(t, err)
	_, err = svc.CreateChunk(lib.ID, doc.ID, "a", []float64{0, 1, 0}, nil)
	require.NoError(t, err)

	_, err = svc.CreateChunk(lib.ID, doc.ID, "bad", []float64{1, 0}, nil)
	require.Error(t, err)
	var dm *vdberrors.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Got)
}

// S3 — Metadata filter.
func TestScenarioMetadataFilter(t *testing.T) {
	svc := newTestService(t)

	lib, err := svc.CreateLibrary("L", "", nil)
	require.NoError(t, err)
	doc, err := svc.CreateDocument(lib.ID, "D", "", nil)
	require.NoError(t, err)

	_, err = svc.CreateChunk(lib.ID, doc.ID, "a", []float64{0, 1, 0}, nil)
	require.NoError(t, err)
	c2, err := svc.CreateChunk(lib.ID, doc.ID, "b", []float64{1, 0, 0}, map[string]string{"lang": "tr"})
	require.NoError(t, err)
	c3, err := svc.CreateChunk(lib.ID, doc.ID, "c", []float64{0, 1, 0}, map[string]string{"lang": "en"})
	require.NoError(t, err)

	require.NoError(t, svc.BuildIndex(lib.ID, index.AlgoLinear, "cosine"))

	results, err := svc.Search(lib.ID, []float64{0, 1, 0}, 5, map[string]string{"lang": "en"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, c3.ID, results[0].ChunkID)
	for _, r := range results {
		assert.NotEqual(t, c2.ID, r.ChunkID)
	}
}

// S4 — Algorithm/metric rejection.
func TestScenarioAlgorithmMetricRejection(t *testing.T) {
	svc := newTestService(t)
	lib, err := svc.CreateLibrary("L", "", nil)
	require.NoError(t, err)

	err = svc.BuildIndex(lib.ID, index.AlgoKDTree, "cosine")
	var ime *vdberrors.InvalidMetricError
	require.ErrorAs(t, err, &ime)
	assert.Equal(t, []string{"euclidean"}, ime.Supported)

	err = svc.BuildIndex(lib.ID, index.AlgoLSH, "euclidean")
	require.ErrorAs(t, err, &ime)
	assert.Equal(t, []string{"cosine"}, ime.Supported)

	err = svc.BuildIndex(lib.ID, "bogus", "cosine")
	var iae *vdberrors.InvalidAlgorithmError
	require.ErrorAs(t, err, &iae)
	assert.ElementsMatch(t, []string{"linear", "kdtree", "lsh"}, iae.Available)
}

// S5 — Fallback index.
func TestScenarioFallbackIndex(t *testing.T) {
	svc := newTestService(t)
	lib, err := svc.CreateLibrary("L", "", nil)
	require.NoError(t, err)
	doc, err := svc.CreateDocument(lib.ID, "D", "", nil)
	require.NoError(t, err)
	_, err = svc.CreateChunk(lib.ID, doc.ID, "a", []float64{0, 1, 0}, nil)
	require.NoError(t, err)

	results, err := svc.Search(lib.ID, []float64{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	info := svc.GetIndexInfo(lib.ID)
	assert.Equal(t, "linear", info.Algorithm)
}

// S6 — Snapshot round-trip.
func TestScenarioSnapshotRoundTrip(t *testing.T) {
	svc := newTestService(t)
	lib, err := svc.CreateLibrary("L", "", nil)
	require.NoError(t, err)
	doc, err := svc.CreateDocument(lib.ID, "D", "", nil)
	require.NoError(t, err)
	c1, err := svc.CreateChunk(lib.ID, doc.ID, "a", []float64{0, 1, 0}, nil)
	require.NoError(t, err)
	_, err = svc.CreateChunk(lib.ID, doc.ID, "b", []float64{1, 0, 0}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.BuildIndex(lib.ID, index.AlgoKDTree, "euclidean"))

	before, err := svc.Search(lib.ID, []float64{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, c1.ID, before[0].ChunkID)

	path := filepath.Join(t.TempDir(), "snap.json")
	written, err := svc.SaveSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	svc2 := newTestService(t)
	require.NoError(t, svc2.LoadSnapshot(path))

	after, err := svc2.Search(lib.ID, []float64{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, c1.ID, after[0].ChunkID)
}

func TestCreateDocumentUnknownLibrary(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateDocument("missing", "D", "", nil)
	require.Error(t, err)
}

func TestCreateChunkDocumentLibraryMismatch(t *testing.T) {
	svc := newTestService(t)
	lib1, err := svc.CreateLibrary("L1", "", nil)
	require.NoError(t, err)
	lib2, err := svc.CreateLibrary("L2", "", nil)
	require.NoError(t, err)
	doc, err := svc.CreateDocument(lib1.ID, "D", "", nil)
	require.NoError(t, err)

	_, err = svc.CreateChunk(lib2.ID, doc.ID, "text", []float64{1, 2}, nil)
	require.Error(t, err)
}

func TestMetadataSanitization(t *testing.T) {
	svc := newTestService(t)
	lib, err := svc.CreateLibrary("L", "", map[string]string{" key ": " value ", "": "dropped", "ok": ""})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"key": "value", "ok": ""}, lib.Metadata)
}

func TestDeleteLibraryCascadesAndClearsIndex(t *testing.T) {
	svc := newTestService(t)
	lib, err := svc.CreateLibrary("L", "", nil)
	require.NoError(t, err)
	doc, err := svc.CreateDocument(lib.ID, "D", "", nil)
	require.NoError(t, err)
	_, err = svc.CreateChunk(lib.ID, doc.ID, "a", []float64{1, 2, 3}, nil)
	require.NoError(t, err)
	require.NoError(t, svc.BuildIndex(lib.ID, index.AlgoLinear, "cosine"))

	require.NoError(t, svc.DeleteLibrary(lib.ID))

	_, err = svc.GetLibrary(lib.ID)
	assert.Error(t, err)
	_, err = svc.GetDocument(doc.ID)
	assert.Error(t, err)

	info := svc.GetIndexInfo(lib.ID)
	assert.Equal(t, "none", info.Algorithm)
}

func TestUpdateChunkEmbeddingRevalidatesDimension(t *testing.T) {
	svc := newTestService(t)
	lib, err := svc.CreateLibrary("L", "", nil)
	require.NoError(t, err)
	doc, err := svc.CreateDocument(lib.ID, "D", "", nil)
	require.NoError(t, err)
	chunk, err := svc.CreateChunk(lib.ID, doc.ID, "a", []float64{1, 2, 3}, nil)
	require.NoError(t, err)

	_, err = svc.UpdateChunk(chunk.ID, UpdateChunkParams{Embedding: []float64{1, 2}})
	require.Error(t, err)

	updated, err := svc.UpdateChunk(chunk.ID, UpdateChunkParams{Embedding: []float64{4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, updated.Embedding)
}
