// Package pipeline drives an identity tracker from a stream of video frames.
//
// Face extraction runs concurrently across frames; identity resolution runs on a
// single goroutine, strictly in frame order and then in detection order.
package pipeline

import (
	"context"
	"time"

	"github.com/kozaktomas/face-tracker/internal/tracker"
)

// Unlabeled is the label given to faces whose embedding the tracker rejected.
const Unlabeled = -1

// Face is one detected face within a frame.
type Face struct {
	BBox      []float64         `json:"bbox"` // [x1, y1, x2, y2] in pixels
	Embedding tracker.Embedding `json:"embedding"`
	DetScore  float64           `json:"det_score,omitempty"`
}

// Frame is a single frame of the video stream.
type Frame struct {
	Index int    // position in the source, starting at 0
	Name  string // file name or stream identifier
	Data  []byte // encoded image, empty for precomputed sources
	Faces []Face // in detection order; prefilled by precomputed sources
	// Extracted is true when Faces is already final and no extractor should run.
	Extracted bool
}

// Source yields frames in order. Next returns io.EOF after the last frame.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
}

// Extractor detects faces in a frame and computes their embeddings, in detection order.
type Extractor interface {
	ExtractFaces(ctx context.Context, frame *Frame) ([]Face, error)
}

// Sink receives every resolved frame, in frame order, with one label per face.
type Sink interface {
	WriteFrame(ctx context.Context, frame *Frame, labels []int) error
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, frame *Frame) ([]Face, error)

// ExtractFaces calls f(ctx, frame).
func (f ExtractorFunc) ExtractFaces(ctx context.Context, frame *Frame) ([]Face, error) {
	return f(ctx, frame)
}

// Occurrence tracks where an identity was seen during a session.
type Occurrence struct {
	Label       int    `yaml:"label" json:"label"`
	FirstFrame  int    `yaml:"first_frame" json:"first_frame"`
	FirstName   string `yaml:"first_frame_name" json:"first_frame_name"`
	LastFrame   int    `yaml:"last_frame" json:"last_frame"`
	Appearances int    `yaml:"appearances" json:"appearances"`
}

// Summary describes a finished (or interrupted) session.
type Summary struct {
	SessionID       string
	FramesProcessed int
	FramesFailed    int
	FacesResolved   int
	FacesRejected   int
	Identities      int
	Occurrences     []Occurrence // indexed by label
	Elapsed         time.Duration
}
