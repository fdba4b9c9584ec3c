package frames

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-tracker/internal/annotate"
	"github.com/kozaktomas/face-tracker/internal/pipeline"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

// JPEGSink writes every frame as <dir>/<name>.jpg with its faces annotated.
// Frames without image data (precomputed streams) are skipped.
type JPEGSink struct {
	dir      string
	quality  int
	annotate bool
}

// NewJPEGSink creates dir if needed. When annotateFaces is false frames are
// re-encoded without drawing.
func NewJPEGSink(dir string, quality int, annotateFaces bool) (*JPEGSink, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &JPEGSink{dir: dir, quality: quality, annotate: annotateFaces}, nil
}

// Path returns the output path for a frame name.
func (s *JPEGSink) Path(name string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(s.dir, stem+".jpg")
}

// WriteFrame implements pipeline.Sink.
func (s *JPEGSink) WriteFrame(_ context.Context, frame *pipeline.Frame, labels []int) error {
	if len(frame.Data) == 0 {
		return nil
	}

	img, err := Decode(frame.Data)
	if err != nil {
		return fmt.Errorf("frame %s: %w", frame.Name, err)
	}

	var out image.Image = img
	if s.annotate {
		boxes := make([]annotate.Box, 0, len(frame.Faces))
		for i, face := range frame.Faces {
			label := pipeline.Unlabeled
			if i < len(labels) {
				label = labels[i]
			}
			boxes = append(boxes, annotate.Box{BBox: face.BBox, Label: label})
		}
		out = annotate.Draw(img, boxes)
	}

	path := s.Path(frame.Name)
	f, err := os.Create(path) //nolint:gosec // path is inside the configured output directory
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := jpeg.Encode(f, out, &jpeg.Options{Quality: s.quality}); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
