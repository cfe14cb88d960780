package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.5, 0.3, 0.2}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}
		assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		a := []float32{1, 2}
		b := []float32{-1, -2}
		assert.InDelta(t, -1.0, CosineSimilarity(a, b), 1e-9)
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1}))
	})

	t.Run("zero vector", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	})

	t.Run("empty vectors", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	})
}

func TestMagnitude(t *testing.T) {
	assert.InDelta(t, 5.0, Magnitude([]float32{3, 4}), 1e-9)
	assert.Equal(t, 0.0, Magnitude(nil))
}

func TestMinMaxNormalize(t *testing.T) {
	t.Run("spreads to unit range", func(t *testing.T) {
		got := MinMaxNormalize([]float64{2, 4, 6})
		assert.InDelta(t, 0.0, got[0], 1e-9)
		assert.InDelta(t, 0.5, got[1], 1e-9)
		assert.InDelta(t, 1.0, got[2], 1e-9)
	})

	t.Run("equal scores normalize to one", func(t *testing.T) {
		got := MinMaxNormalize([]float64{0.7, 0.7, 0.7})
		for _, v := range got {
			assert.Equal(t, 1.0, v)
		}
	})

	t.Run("single score", func(t *testing.T) {
		got := MinMaxNormalize([]float64{0.3})
		assert.Equal(t, []float64{1.0}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, MinMaxNormalize(nil))
	})
}
