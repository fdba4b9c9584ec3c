// Package frames reads video frames stored as image files and writes annotated ones.
package frames

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/face-tracker/internal/pipeline"
)

var frameExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// IsFrameFile reports whether path has a supported image extension.
func IsFrameFile(path string) bool {
	return slices.Contains(frameExtensions, strings.ToLower(filepath.Ext(path)))
}

// Decode decodes a JPEG, PNG or WebP frame.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// listFrames returns the frame files in dir sorted by name.
func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsFrameFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	slices.Sort(files)
	return files, nil
}

func readFrame(path string) (*pipeline.Frame, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the frame directory listing
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %s: %w", path, err)
	}
	return &pipeline.Frame{Name: filepath.Base(path), Data: data}, nil
}

// DirSource yields the image files of a directory in name order.
type DirSource struct {
	files []string
	pos   int
}

// NewDirSource lists the frames in dir. Frames extracted with a zero-padded
// numbering (frame_000001.jpg, ...) therefore come out in playback order.
func NewDirSource(dir string) (*DirSource, error) {
	files, err := listFrames(dir)
	if err != nil {
		return nil, err
	}
	return &DirSource{files: files}, nil
}

// Len returns the number of frames in the directory.
func (s *DirSource) Len() int {
	return len(s.files)
}

// Next implements pipeline.Source.
func (s *DirSource) Next(ctx context.Context) (*pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.files) {
		return nil, io.EOF
	}
	path := s.files[s.pos]
	s.pos++
	return readFrame(path)
}
