// Package ioutils provides the filesystem collaborator used by the
// downloader.
//
// Every function takes an afero.Fs so production code runs against
// afero.NewOsFs() while tests use afero.NewMemMapFs().
//
// This package contains functions for:
//   - Directory creation
//   - Rename-into-place file writes and best-effort removal
//   - File hashing (md5, sha1, sha256) and verification
//   - Filename and relative-path sanitization
//
// # File Operations
//
//	fs := afero.NewOsFs()
//	err := ioutils.EnsureDir(fs, "/games/versions/1.20.1")
//	err = ioutils.WriteFile(fs, "/games/versions/1.20.1/1.20.1.json", data)
//
// # Hashing
//
//	sum, err := ioutils.FileHash(fs, jarPath, ioutils.HashSHA1)
//	ok, err := ioutils.VerifyFile(fs, jarPath, ioutils.HashSHA1, expected)
package ioutils
