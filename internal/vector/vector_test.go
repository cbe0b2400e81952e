package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDotDimensionMismatch(t *testing.T) {
	_, err := Dot([]float64{1, 2}, []float64{1})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDot(t *testing.T) {
	got, err := Dot([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 32.0, got)
}

func TestNorm(t *testing.T) {
	assert.InDelta(t, 5.0, Norm([]float64{3, 4}), 1e-9)
	assert.Equal(t, 0.0, Norm([]float64{0, 0, 0}))
}

func TestCosineIdentical(t *testing.T) {
	got, err := Cosine([]float64{0, 1, 0}, []float64{0, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestCosineZeroNormIsExactlyZero(t *testing.T) {
	got, err := Cosine([]float64{0, 0, 0}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestCosineOrthogonal(t *testing.T) {
	got, err := Cosine([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-9)
}

func TestEuclidean(t *testing.T) {
	got, err := Euclidean([]float64{0, 0}, []float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got, 1e-9)
}

func TestEuclideanSimilarityIdentical(t *testing.T) {
	got, err := EuclideanSimilarity([]float64{1, 1}, []float64{1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestNormalize(t *testing.T) {
	got := Normalize([]float64{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-9)
	assert.InDelta(t, 0.8, got[1], 1e-9)
	assert.InDelta(t, 1.0, Norm(got), 1e-9)
}

func TestNormalizeZeroVector(t *testing.T) {
	got := Normalize([]float64{0, 0, 0})
	assert.Equal(t, []float64{0, 0, 0}, got)
}

func TestSameDimension(t *testing.T) {
	assert.True(t, SameDimension([][]float64{{1, 2}, {3, 4}}, 2))
	assert.False(t, SameDimension([][]float64{{1, 2}, {3}}, 2))
}

func TestCosineMatchesManualFormula(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{4, 5, 6}
	got, err := Cosine(a, b)
	require.NoError(t, err)
	dot, _ := Dot(a, b)
	want := dot / (Norm(a) * Norm(b))
	assert.True(t, math.Abs(got-want) < 1e-12)
}
