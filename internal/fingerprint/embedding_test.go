package fingerprint

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpegHeader, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"too short", []byte{0xFF, 0xD8}, "application/octet-stream"},
		{"unknown", []byte("plain text data"), "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMIMEType(tc.data); got != tc.want {
				t.Errorf("detectMIMEType() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewEmbeddingClient_Defaults(t *testing.T) {
	assert.Equal(t, "http://localhost:8000", NewEmbeddingClient("").BaseURL())
	assert.Equal(t, "http://embed:9000", NewEmbeddingClient("http://embed:9000/").BaseURL())
}

func TestComputeFaceEmbeddings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embed/face", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, jpegHeader, data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"faces_count": 2,
			"model": "buffalo_l",
			"faces": [
				{"face_index": 1, "dim": 2, "embedding": [0.5, 0.5], "bbox": [50, 60, 70, 80], "det_score": 0.8},
				{"face_index": 0, "dim": 2, "embedding": [0.1, 0.2], "bbox": [10, 20, 30, 40], "det_score": 0.9}
			]
		}`)
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL)
	resp, err := client.ComputeFaceEmbeddings(context.Background(), jpegHeader)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.FacesCount)
	assert.Equal(t, "buffalo_l", resp.Model)
	require.Len(t, resp.Faces, 2)
	assert.Equal(t, 0, resp.Faces[0].FaceIndex)
	assert.Equal(t, []float32{0.1, 0.2}, resp.Faces[0].Embedding)
	assert.Equal(t, []float64{10, 20, 30, 40}, resp.Faces[0].BBox)
	assert.Equal(t, 1, resp.Faces[1].FaceIndex)
}

func TestComputeFaceEmbeddings_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, "boom\n", "API error (status 500): boom"},
		{"invalid json", http.StatusOK, "{", "failed to parse response"},
		{"short bbox", http.StatusOK, `{"faces":[{"face_index":0,"embedding":[1],"bbox":[1,2]}]}`, "bbox has 2 values"},
		{"empty embedding", http.StatusOK, `{"faces":[{"face_index":0,"embedding":[],"bbox":[1,2,3,4]}]}`, "empty embedding"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewEmbeddingClient(srv.URL).ComputeFaceEmbeddings(context.Background(), jpegHeader)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestComputeFaceEmbeddings_NoFaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"faces_count": 0, "faces": [], "model": "buffalo_l"}`)
	}))
	defer srv.Close()

	resp, err := NewEmbeddingClient(srv.URL).ComputeFaceEmbeddings(context.Background(), jpegHeader)
	require.NoError(t, err)
	assert.Empty(t, resp.Faces)
}

func TestComputeFaceEmbeddings_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmbeddingClient(srv.URL).ComputeFaceEmbeddings(ctx, jpegHeader)
	require.Error(t, err)
}
