package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EMBEDDING_URL", "")
	t.Setenv("TRACK_CONCURRENCY", "")
	t.Setenv("TRACK_JPEG_QUALITY", "")
	t.Setenv("TRACK_DEBUG", "")

	cfg := Load()

	if cfg.Embedding.URL != "" {
		t.Errorf("expected empty embedding URL, got '%s'", cfg.Embedding.URL)
	}
	if cfg.Track.Concurrency != 4 {
		t.Errorf("expected default concurrency 4, got %d", cfg.Track.Concurrency)
	}
	if cfg.Track.JPEGQuality != 90 {
		t.Errorf("expected default JPEG quality 90, got %d", cfg.Track.JPEGQuality)
	}
	if cfg.Debug {
		t.Error("expected debug to be off by default")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("EMBEDDING_URL", "http://embed:8000")
	t.Setenv("TRACK_CONCURRENCY", "12")
	t.Setenv("TRACK_JPEG_QUALITY", "75")
	t.Setenv("TRACK_DEBUG", "true")

	cfg := Load()

	if cfg.Embedding.URL != "http://embed:8000" {
		t.Errorf("unexpected embedding URL '%s'", cfg.Embedding.URL)
	}
	if cfg.Track.Concurrency != 12 {
		t.Errorf("expected concurrency 12, got %d", cfg.Track.Concurrency)
	}
	if cfg.Track.JPEGQuality != 75 {
		t.Errorf("expected JPEG quality 75, got %d", cfg.Track.JPEGQuality)
	}
	if !cfg.Debug {
		t.Error("expected debug to be on")
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 7},
		{"valid", "3", 3},
		{"zero falls back", "0", 7},
		{"negative falls back", "-2", 7},
		{"garbage falls back", "many", 7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_INT", tc.value)
			if got := envInt("TEST_ENV_INT", 7); got != tc.want {
				t.Errorf("envInt(%q) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"false", false},
		{"yes", false},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("TEST_ENV_BOOL", tc.value)
			if got := envBool("TEST_ENV_BOOL"); got != tc.want {
				t.Errorf("envBool(%q) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestLoad_ClampsJPEGQuality(t *testing.T) {
	t.Setenv("TRACK_JPEG_QUALITY", "250")
	if got := Load().Track.JPEGQuality; got != 100 {
		t.Errorf("expected JPEG quality clamped to 100, got %d", got)
	}
}
