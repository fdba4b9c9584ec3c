package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTrack_Embeddings(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "faces.jsonl")
	labels := filepath.Join(dir, "labels.jsonl")
	reportPath := filepath.Join(dir, "report.yaml")

	lines := []string{
		`{"frame": "f0", "faces": [{"embedding": [0, 0]}, {"embedding": [3, 4]}]}`,
		`{"frame": "f1", "faces": [{"embedding": [0.1, 0]}]}`,
		`{"frame": "f2", "faces": [{"embedding": [3, 4.2]}, {"embedding": [10, 10]}]}`,
	}
	require.NoError(t, os.WriteFile(input, []byte(strings.Join(lines, "\n")+"\n"), 0o600))

	rootCmd.SetArgs([]string{"track", "--embeddings", input, "--labels", labels, "--report", reportPath})
	require.NoError(t, rootCmd.Execute())

	out, err := os.ReadFile(labels)
	require.NoError(t, err)
	want := `{"index":0,"frame":"f0","labels":[0,1]}
{"index":1,"frame":"f1","labels":[0]}
{"index":2,"frame":"f2","labels":[1,2]}
`
	assert.Equal(t, want, string(out))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var rep struct {
		Identities int `yaml:"identities"`
		Dimension  int `yaml:"dimension"`
	}
	require.NoError(t, yaml.Unmarshal(data, &rep))
	assert.Equal(t, 3, rep.Identities)
	assert.Equal(t, 2, rep.Dimension)
}

func TestTrack_RejectsTwoSources(t *testing.T) {
	rootCmd.SetArgs([]string{"track", t.TempDir(), "--embeddings", "faces.jsonl"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provide either a frame directory or --embeddings")
}
