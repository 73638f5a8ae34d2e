package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/handiism/mc-downloader/internal/model"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.MaxConcurrentDownloads != 3 {
		t.Errorf("MaxConcurrentDownloads = %d, want 3", s.MaxConcurrentDownloads)
	}
	if s.MirrorBaseURL != DefaultMirrorBaseURL {
		t.Errorf("MirrorBaseURL = %q, want %q", s.MirrorBaseURL, DefaultMirrorBaseURL)
	}
}

func TestSaveLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	s := DefaultSettings()
	s.DownloadsPath = "/games"
	s.MaxConcurrentDownloads = 5
	s.Components = []string{"client"}
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.DownloadsPath != "/games" || got.MaxConcurrentDownloads != 5 {
		t.Errorf("Load() = %+v, want saved values", got)
	}
	kinds := got.ArtifactKinds()
	if len(kinds) != 1 || kinds[0] != model.KindClient {
		t.Errorf("ArtifactKinds() = %v, want [client]", kinds)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"verify_checksums": true}`), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !s.VerifyChecksums {
		t.Error("VerifyChecksums should be read from file")
	}
	if s.ChunkSize != 8192 {
		t.Errorf("ChunkSize = %d, want default 8192", s.ChunkSize)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"downloads_path": `},
		{"zero concurrency", `{"max_concurrent_downloads": 0}`},
		{"unknown component", `{"components": ["assets"]}`},
		{"negative retries", `{"download_max_retries": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}

func TestRetryDelay(t *testing.T) {
	s := DefaultSettings()
	s.DownloadRetryCooldown = 0.5
	s.DownloadRetryExponent = 2

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, time.Second},
		{3, 4 * time.Second},
	}
	for _, tt := range tests {
		if got := s.RetryDelay(tt.attempt); got != tt.want {
			t.Errorf("RetryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestTimeouts(t *testing.T) {
	s := DefaultSettings()
	if s.MetadataTimeout() != 10*time.Second {
		t.Errorf("MetadataTimeout() = %v, want 10s", s.MetadataTimeout())
	}
	if s.DownloadTimeout() != 30*time.Second {
		t.Errorf("DownloadTimeout() = %v, want 30s", s.DownloadTimeout())
	}
}
