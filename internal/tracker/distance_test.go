package tracker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit axis", []float32{0, 0}, []float32{1, 0}, 1},
		{"diagonal", []float32{0, 0}, []float32{1, 1}, math.Sqrt2},
		{"3-4-5", []float32{0, 0}, []float32{3, 4}, 5},
		{"negative", []float32{-1, -1}, []float32{1, 1}, 2 * math.Sqrt2},
		{"empty", []float32{}, []float32{}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EuclideanDistance(tc.a, tc.b)
			assert.InDelta(t, tc.expected, got, 1e-9)
			assert.InDelta(t, got, EuclideanDistance(tc.b, tc.a), 1e-12)
		})
	}
}

func TestEuclideanDistance_IsNotSquared(t *testing.T) {
	// 0.6 squared is below the threshold, the distance itself is not.
	d := EuclideanDistance([]float32{0, 0}, []float32{0.6, 0})
	assert.Greater(t, d, Threshold)
}
