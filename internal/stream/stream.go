// Package stream reads precomputed face embeddings and writes resolved labels as
// JSON Lines, one frame per line.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/kozaktomas/face-tracker/internal/pipeline"
)

// maxLineSize bounds a single JSONL record. A frame with a few dozen
// 512-dimensional embeddings stays well below it.
const maxLineSize = 16 << 20

// FrameRecord is one line of a precomputed embedding stream.
type FrameRecord struct {
	Frame string          `json:"frame,omitempty"`
	Faces []pipeline.Face `json:"faces"`
}

// JSONLSource yields frames from a JSON Lines embedding stream.
type JSONLSource struct {
	scanner *bufio.Scanner
	line    int
	frames  int
}

// NewJSONLSource reads frame records from r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &JSONLSource{scanner: s}
}

// Next implements pipeline.Source. Blank lines are skipped; a frame without a
// name is named after its position in the stream.
func (s *JSONLSource) Next(ctx context.Context) (*pipeline.Frame, error) {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.line++
		data := bytes.TrimSpace(s.scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var rec FrameRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("line %d: failed to parse frame record: %w", s.line, err)
		}
		for i, face := range rec.Faces {
			if len(face.Embedding) == 0 {
				return nil, fmt.Errorf("line %d: face %d has no embedding", s.line, i)
			}
		}

		name := rec.Frame
		if name == "" {
			name = strconv.Itoa(s.frames)
		}
		s.frames++
		return &pipeline.Frame{Name: name, Faces: rec.Faces, Extracted: true}, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", s.line+1, err)
	}
	return nil, io.EOF
}

// LabelRecord is one line of the label output.
type LabelRecord struct {
	Index  int    `json:"index"`
	Frame  string `json:"frame"`
	Labels []int  `json:"labels"`
}

// JSONLWriter is a pipeline.Sink writing one LabelRecord per frame.
type JSONLWriter struct {
	mu  sync.Mutex
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter writes label records to w. Flush must be called at the end.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	return &JSONLWriter{w: bw, enc: json.NewEncoder(bw)}
}

// WriteFrame implements pipeline.Sink.
func (j *JSONLWriter) WriteFrame(_ context.Context, frame *pipeline.Frame, labels []int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if labels == nil {
		labels = []int{}
	}
	if err := j.enc.Encode(LabelRecord{Index: frame.Index, Frame: frame.Name, Labels: labels}); err != nil {
		return fmt.Errorf("failed to write labels: %w", err)
	}
	return nil
}

// Flush writes any buffered records.
func (j *JSONLWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.w.Flush()
}
