package config

import (
	"os"
	"strconv"
)

type Config struct {
	Embedding EmbeddingConfig
	Track     TrackConfig
	Debug     bool
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
}

type TrackConfig struct {
	Concurrency int // frames sent to the embedding server in parallel (default 4)
	JPEGQuality int // quality of annotated output frames (default 90)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean.
// Returns false if the env var is unset or not a valid boolean.
func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

func Load() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Track: TrackConfig{
			Concurrency: envInt("TRACK_CONCURRENCY", 4),
			JPEGQuality: min(envInt("TRACK_JPEG_QUALITY", 90), 100),
		},
		Debug: envBool("TRACK_DEBUG"),
	}
}
