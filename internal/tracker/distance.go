package tracker

import "math"

// EuclideanDistance computes the L2 distance between two equal-length vectors.
// The sum is accumulated in float64 in index order so results are reproducible.
// Callers must ensure len(a) == len(b).
func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
