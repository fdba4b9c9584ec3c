// Package tracker assigns stable identity labels to a stream of face embeddings.
//
// Each incoming embedding is compared against the first embedding ever stored for
// every known identity (its representative). The nearest representative wins when
// its Euclidean distance is below Threshold, otherwise a new identity is minted.
// Labels are dense integers handed out in order of first appearance.
//
// A Tracker is not safe for concurrent use. Resolution order matters, so callers
// feed it from a single goroutine in frame order, then detection order.
package tracker

import (
	"fmt"
	"math"
	"slices"
)

// Threshold is the maximum (exclusive) L2 distance for two embeddings to be
// considered the same identity.
const Threshold = 0.5

// Embedding is a face embedding vector produced by the embedding model.
type Embedding []float32

// Identity is a known identity and the first embedding assigned to it.
type Identity struct {
	Label          int
	Representative Embedding
}

// Resolution describes the outcome of a single resolve call.
type Resolution struct {
	Label int
	// Distance to the nearest representative known before the call.
	// Zero when no identity existed yet.
	Distance float64
	// New is true when the call minted a new identity.
	New bool
}

// Tracker maps embeddings to identity labels using nearest-representative matching.
type Tracker struct {
	identities []Identity
	dim        int
}

// New creates an empty tracker for one tracking session.
func New() *Tracker {
	return &Tracker{}
}

// Resolve returns the label for v, minting a new one when no known identity is
// closer than Threshold.
func (t *Tracker) Resolve(v Embedding) (int, error) {
	res, err := t.ResolveDetailed(v)
	if err != nil {
		return 0, err
	}
	return res.Label, nil
}

// ResolveDetailed is Resolve that also reports the matching distance and whether
// a new identity was created. Rejected vectors leave the tracker untouched.
func (t *Tracker) ResolveDetailed(v Embedding) (Resolution, error) {
	if err := t.validate(v); err != nil {
		return Resolution{}, err
	}

	if len(t.identities) == 0 {
		return Resolution{Label: t.add(v), New: true}, nil
	}

	best, bestDist := t.nearest(v)
	if bestDist < Threshold {
		return Resolution{Label: t.identities[best].Label, Distance: bestDist}, nil
	}

	return Resolution{Label: t.add(v), Distance: bestDist, New: true}, nil
}

// nearest scans representatives in insertion order and keeps the first strictly
// smaller distance, so ties resolve to the earliest identity.
func (t *Tracker) nearest(v Embedding) (int, float64) {
	best := 0
	bestDist := EuclideanDistance(v, t.identities[0].Representative)
	for i := 1; i < len(t.identities); i++ {
		d := EuclideanDistance(v, t.identities[i].Representative)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

func (t *Tracker) add(v Embedding) int {
	label := len(t.identities)
	if label == 0 {
		t.dim = len(v)
	}
	t.identities = append(t.identities, Identity{
		Label:          label,
		Representative: slices.Clone(v),
	})
	return label
}

func (t *Tracker) validate(v Embedding) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidEmbedding)
	}
	if t.dim != 0 && len(v) != t.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), t.dim)
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite value %v at index %d", ErrInvalidEmbedding, x, i)
		}
	}
	return nil
}

// Count returns the number of identities discovered so far. It is also the next
// label to be handed out.
func (t *Tracker) Count() int {
	return len(t.identities)
}

// Dim returns the embedding dimensionality fixed by the first stored vector,
// or 0 while the tracker is empty.
func (t *Tracker) Dim() int {
	return t.dim
}

// Identity returns a copy of the identity with the given label.
func (t *Tracker) Identity(label int) (Identity, bool) {
	if label < 0 || label >= len(t.identities) {
		return Identity{}, false
	}
	id := t.identities[label]
	return Identity{Label: id.Label, Representative: slices.Clone(id.Representative)}, true
}

// Identities returns copies of all identities in label order.
func (t *Tracker) Identities() []Identity {
	out := make([]Identity, len(t.identities))
	for i, id := range t.identities {
		out[i] = Identity{Label: id.Label, Representative: slices.Clone(id.Representative)}
	}
	return out
}
