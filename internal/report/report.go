// Package report summarises a tracking session.
//
// Besides per-identity statistics the report lists near pairs: identities whose
// representatives sit just above the match threshold. Because representatives are
// never updated, a face whose appearance drifts during a video can be split into
// two identities; near pairs are where to look for that. The report only
// describes, it never changes labels.
package report

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/coder/hnsw"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-tracker/internal/pipeline"
	"github.com/kozaktomas/face-tracker/internal/tracker"
)

const (
	// DefaultNearFactor makes near pairs those closer than 1.2 * threshold.
	DefaultNearFactor = 1.2
	// DefaultNeighbors is how many neighbours are inspected per identity.
	DefaultNeighbors = 8
)

// Report is the YAML session summary.
type Report struct {
	SessionID   string                `yaml:"session_id"`
	GeneratedAt time.Time             `yaml:"generated_at"`
	Threshold   float64               `yaml:"threshold"`
	Dimension   int                   `yaml:"dimension"`
	Elapsed     string                `yaml:"elapsed"`
	Frames      FrameStats            `yaml:"frames"`
	Faces       FaceStats             `yaml:"faces"`
	Identities  int                   `yaml:"identities"`
	People      []pipeline.Occurrence `yaml:"people"`
	NearPairs   []NearPair            `yaml:"near_pairs,omitempty"`
}

// FrameStats counts frames.
type FrameStats struct {
	Processed int `yaml:"processed"`
	Failed    int `yaml:"failed"`
}

// FaceStats counts faces.
type FaceStats struct {
	Resolved int `yaml:"resolved"`
	Rejected int `yaml:"rejected"`
}

// NearPair is two identities whose representatives are close to the threshold.
type NearPair struct {
	A        int     `yaml:"a"`
	B        int     `yaml:"b"`
	Distance float64 `yaml:"distance"`
}

type options struct {
	nearFactor float64
	neighbors  int
	now        func() time.Time
}

// Option configures Build.
type Option func(*options)

// WithNearFactor sets the upper bound of near pairs as a multiple of the threshold.
func WithNearFactor(f float64) Option {
	return func(o *options) { o.nearFactor = f }
}

// WithNeighbors sets how many neighbours are inspected per identity.
func WithNeighbors(k int) Option {
	return func(o *options) { o.neighbors = k }
}

// Build assembles the report for a finished session.
func Build(summary *pipeline.Summary, t *tracker.Tracker, opts ...Option) *Report {
	o := options{nearFactor: DefaultNearFactor, neighbors: DefaultNeighbors, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &Report{
		SessionID:   summary.SessionID,
		GeneratedAt: o.now().UTC(),
		Threshold:   tracker.Threshold,
		Dimension:   t.Dim(),
		Elapsed:     summary.Elapsed.Round(time.Millisecond).String(),
		Frames:      FrameStats{Processed: summary.FramesProcessed, Failed: summary.FramesFailed},
		Faces:       FaceStats{Resolved: summary.FacesResolved, Rejected: summary.FacesRejected},
		Identities:  t.Count(),
		People:      summary.Occurrences,
		NearPairs:   NearPairs(t.Identities(), tracker.Threshold*o.nearFactor, o.neighbors),
	}
}

// NearPairs returns identity pairs whose representatives are at a distance in
// [tracker.Threshold, limit). Candidates come from an HNSW graph over the
// representatives; distances are recomputed exactly. Pairs are ordered by
// distance, then by labels.
func NearPairs(identities []tracker.Identity, limit float64, neighbors int) []NearPair {
	if len(identities) < 2 || neighbors < 1 || limit <= tracker.Threshold {
		return nil
	}

	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.EuclideanDistance
	byLabel := make(map[int]tracker.Embedding, len(identities))
	for _, id := range identities {
		g.Add(hnsw.MakeNode(id.Label, []float32(id.Representative)))
		byLabel[id.Label] = id.Representative
	}

	k := min(neighbors+1, len(identities))
	seen := make(map[[2]int]bool)
	var pairs []NearPair
	for _, id := range identities {
		for _, n := range g.Search([]float32(id.Representative), k) {
			if n.Key == id.Label {
				continue
			}
			a, b := min(id.Label, n.Key), max(id.Label, n.Key)
			if seen[[2]int{a, b}] {
				continue
			}
			seen[[2]int{a, b}] = true

			d := tracker.EuclideanDistance(byLabel[a], byLabel[b])
			if d >= tracker.Threshold && d < limit {
				pairs = append(pairs, NearPair{A: a, B: b, Distance: d})
			}
		}
	}

	slices.SortFunc(pairs, func(x, y NearPair) int {
		return cmp.Or(
			cmp.Compare(x.Distance, y.Distance),
			cmp.Compare(x.A, y.A),
			cmp.Compare(x.B, y.B),
		)
	})
	return pairs
}

// Encode writes the report as YAML.
func (r *Report) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// WriteFile writes the report as YAML to path.
func (r *Report) WriteFile(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is from trusted CLI input
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := r.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
