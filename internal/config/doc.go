// Package config provides configuration management for mc-downloader.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Validation and conversion helpers for other packages
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// Downloads to ~/.minecraft
//	// 3 concurrent downloads against the BMCLAPI mirror
//	// No retries, no checksum verification
//
// # Loading from File
//
//	settings, err := config.Load(config.DefaultConfigPath())
//	if err != nil {
//	    // Malformed or invalid file; a missing file yields defaults
//	}
//
// # Saving Settings
//
//	settings.MaxConcurrentDownloads = 8
//	err := settings.Save(config.DefaultConfigPath())
//
// # Configuration Options
//
// Settings includes options for:
//   - Destination root and mirror host
//   - Concurrency limits for downloads and descriptor lookups
//   - Retry behavior and checksum verification
//   - Which release components are fetched
//   - HTTP timeouts and User-Agent
//   - Log level, format and destination
package config
