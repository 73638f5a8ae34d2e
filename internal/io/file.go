package ioutils

import (
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

var (
	invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots     = regexp.MustCompile(`\.+$`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
//
// Example:
//
//	err := EnsureDir(fs, "/games/versions/1.20.1")
func EnsureDir(fs afero.Fs, dir string) error {
	return fs.MkdirAll(dir, 0755)
}

// EnsureParentDir creates the directory that will contain filePath.
func EnsureParentDir(fs afero.Fs, filePath string) error {
	return EnsureDir(fs, filepath.Dir(filePath))
}

// WriteFile writes data to a temporary sibling of path and renames it into
// place, so readers never observe a half-written file.
//
// Parent directories are created as needed.
func WriteFile(fs afero.Fs, path string, data []byte) error {
	if err := EnsureParentDir(fs, path); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		RemoveBestEffort(fs, tmp)
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		RemoveBestEffort(fs, tmp)
		return err
	}
	return nil
}

// RemoveBestEffort deletes path, ignoring a missing file. It returns the
// error so callers can log it, but callers are free to drop it.
func RemoveBestEffort(fs afero.Fs, path string) error {
	err := fs.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// FileSize returns the size of path, or -1 when it does not exist or is a directory.
func FileSize(fs afero.Fs, path string) int64 {
	info, err := fs.Stat(path)
	if err != nil || info.IsDir() {
		return -1
	}
	return info.Size()
}

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Trailing whitespace → removed
//
// Example:
//
//	SanitizeFileName("1.20.1: test")  // Returns "1.20.1_ test"
//	SanitizeFileName("Release...")    // Returns "Release"
func SanitizeFileName(name string) string {
	name = invalidFileChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}

// SafeRelPath cleans a slash-separated relative path coming from remote
// metadata. It returns false when the path is absolute or escapes its root.
//
// Example:
//
//	SafeRelPath("com/mojang/brigadier/1.1.8/brigadier-1.1.8.jar") // ok
//	SafeRelPath("../../etc/passwd")                               // rejected
func SafeRelPath(p string) (string, bool) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return "", false
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return filepath.FromSlash(clean), true
}
