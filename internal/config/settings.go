package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/handiism/mc-downloader/internal/model"
)

// DefaultMirrorBaseURL is the mirror host every request goes to unless overridden.
const DefaultMirrorBaseURL = "https://bmclapi2.bangbang93.com"

// DefaultUserAgent identifies the downloader to the mirror.
const DefaultUserAgent = "TMCL Launcher"

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	DownloadsPath          string  `json:"downloads_path"`
	MirrorBaseURL          string  `json:"mirror_base_url"`
	MaxConcurrentDownloads int     `json:"max_concurrent_downloads"`
	MaxConcurrentResolves  int     `json:"max_concurrent_resolves"`
	DownloadMaxRetries     int     `json:"download_max_retries"`
	DownloadRetryCooldown  float64 `json:"download_retry_cooldown"`
	DownloadRetryExponent  float64 `json:"download_retry_exponent"`
	ChunkSize              int     `json:"chunk_size"`
	SkipExisting           bool    `json:"skip_existing"`
	VerifyChecksums        bool    `json:"verify_checksums"`

	// Components selects which parts of a release are fetched: json, client, libraries.
	Components []string `json:"components"`

	// HTTP settings
	UserAgent              string `json:"user_agent"`
	MetadataTimeoutSeconds int    `json:"metadata_timeout_seconds"`
	DownloadTimeoutSeconds int    `json:"download_timeout_seconds"`

	// Logging settings
	LogLevel  string `json:"log_level"`  // debug, info, warn, error
	LogFormat string `json:"log_format"` // text, json
	LogFile   string `json:"log_file"`   // empty means stderr
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		DownloadsPath:          filepath.Join(homeDir, ".minecraft"),
		MirrorBaseURL:          DefaultMirrorBaseURL,
		MaxConcurrentDownloads: 3,
		MaxConcurrentResolves:  2,
		DownloadMaxRetries:     0,
		DownloadRetryCooldown:  0.2,
		DownloadRetryExponent:  4.0,
		ChunkSize:              8192,
		SkipExisting:           true,
		VerifyChecksums:        false,

		Components: []string{"json", "client", "libraries"},

		UserAgent:              DefaultUserAgent,
		MetadataTimeoutSeconds: 10,
		DownloadTimeoutSeconds: 30,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// DefaultConfigPath returns the per-user location of the settings file.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, _ = os.UserHomeDir()
	}
	return filepath.Join(dir, "mc-downloader", "config.json")
}

// Load reads settings from a JSON file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports the first setting that cannot be used.
func (s *Settings) Validate() error {
	var errs []error
	if s.DownloadsPath == "" {
		errs = append(errs, errors.New("downloads_path must not be empty"))
	}
	if s.MirrorBaseURL == "" {
		errs = append(errs, errors.New("mirror_base_url must not be empty"))
	}
	if s.MaxConcurrentDownloads < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_downloads must be at least 1, got %d", s.MaxConcurrentDownloads))
	}
	if s.DownloadMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("download_max_retries must not be negative, got %d", s.DownloadMaxRetries))
	}
	if s.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", s.ChunkSize))
	}
	for _, c := range s.Components {
		if _, ok := model.ParseArtifactKind(c); !ok {
			errs = append(errs, fmt.Errorf("unknown component %q", c))
		}
	}
	return errors.Join(errs...)
}

// ArtifactKinds converts Components to model kinds, skipping unknown names.
func (s *Settings) ArtifactKinds() []model.ArtifactKind {
	kinds := make([]model.ArtifactKind, 0, len(s.Components))
	for _, c := range s.Components {
		if k, ok := model.ParseArtifactKind(c); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// MetadataTimeout is the total timeout for listing and descriptor requests.
func (s *Settings) MetadataTimeout() time.Duration {
	return time.Duration(s.MetadataTimeoutSeconds) * time.Second
}

// DownloadTimeout bounds connection setup and response headers of streaming downloads.
func (s *Settings) DownloadTimeout() time.Duration {
	return time.Duration(s.DownloadTimeoutSeconds) * time.Second
}

// RetryDelay returns the backoff before retry attempt n (0-based).
func (s *Settings) RetryDelay(n int) time.Duration {
	cooldown := s.DownloadRetryCooldown
	for i := 0; i < n; i++ {
		cooldown *= s.DownloadRetryExponent
	}
	return time.Duration(cooldown * float64(time.Second))
}
