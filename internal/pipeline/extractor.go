package pipeline

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-tracker/internal/fingerprint"
	"github.com/kozaktomas/face-tracker/internal/tracker"
)

// FaceEmbedder is the embedding server capability used by ServerExtractor.
type FaceEmbedder interface {
	ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*fingerprint.FaceResponse, error)
}

// ServerExtractor extracts faces by sending each frame to the embedding server.
type ServerExtractor struct {
	embedder FaceEmbedder
}

// NewServerExtractor wraps an embedding client as an Extractor.
func NewServerExtractor(e FaceEmbedder) *ServerExtractor {
	return &ServerExtractor{embedder: e}
}

// ExtractFaces implements Extractor.
func (s *ServerExtractor) ExtractFaces(ctx context.Context, frame *Frame) ([]Face, error) {
	if len(frame.Data) == 0 {
		return nil, errors.New("frame has no image data")
	}

	resp, err := s.embedder.ComputeFaceEmbeddings(ctx, frame.Data)
	if err != nil {
		return nil, err
	}

	faces := make([]Face, len(resp.Faces))
	for i, f := range resp.Faces {
		faces[i] = Face{
			BBox:      f.BBox,
			Embedding: tracker.Embedding(f.Embedding),
			DetScore:  f.DetScore,
		}
	}
	return faces, nil
}
