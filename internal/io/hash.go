package ioutils

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// HashAlgorithm names a supported file hash.
type HashAlgorithm string

const (
	HashMD5    HashAlgorithm = "md5"
	HashSHA1   HashAlgorithm = "sha1"
	HashSHA256 HashAlgorithm = "sha256"
)

// NewHasher creates a hash.Hash for the specified algorithm.
func NewHasher(algo HashAlgorithm) (hash.Hash, error) {
	switch algo {
	case HashMD5:
		return md5.New(), nil
	case HashSHA1:
		return sha1.New(), nil
	case HashSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

// FileHash returns the lowercase hex digest of the file at path.
func FileHash(fs afero.Fs, path string, algo HashAlgorithm) (string, error) {
	h, err := NewHasher(algo)
	if err != nil {
		return "", err
	}

	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFile reports whether the file's digest equals want (case-insensitive).
func VerifyFile(fs afero.Fs, path string, algo HashAlgorithm, want string) (bool, error) {
	got, err := FileHash(fs, path, algo)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(got, want), nil
}
