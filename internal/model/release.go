package model

import (
	"path"
	"strings"
	"time"
)

// Release types as reported by the version listing.
const (
	TypeRelease  = "release"
	TypeSnapshot = "snapshot"
	TypeOldBeta  = "old_beta"
	TypeOldAlpha = "old_alpha"
)

// ReleaseSummary is one entry of the release listing.
//
// Summaries are immutable once produced. A manifest client keeps the most
// recent listing in memory and replaces it wholesale on every fetch.
//
// Example:
//
//	for _, s := range client.ListReleases(ctx) {
//	    fmt.Printf("%s (%s) -> %s\n", s.ID, s.Type, s.URL)
//	}
type ReleaseSummary struct {
	// ID is the release identifier, e.g. "1.20.1" or "23w31a".
	ID string

	// Type is the release channel (release, snapshot, old_beta, old_alpha).
	Type string

	// URL is where the release descriptor (the version JSON) lives.
	URL string

	// Time is the last modification time of the descriptor.
	Time time.Time

	// ReleaseTime is when the release was published.
	ReleaseTime time.Time
}

// ReleaseDescriptor is the detailed metadata for one release: the primary
// binary plus its dependency libraries in declaration order.
//
// A descriptor is retrieved on demand and owned by the caller that asked for
// it; nothing caches it.
type ReleaseDescriptor struct {
	// ID is the release identifier.
	ID string

	// ManifestURL is the URL the descriptor itself was fetched from.
	ManifestURL string

	// Primary references the release's main binary (the client jar).
	Primary PrimaryBinary

	// Libraries lists dependency artifacts in the order the descriptor declares them.
	Libraries []LibraryRef
}

// PrimaryBinary references the release's main binary.
type PrimaryBinary struct {
	// Hash is the content hash (SHA-1, hex) used to address the binary on the mirror.
	Hash string

	// URL is the canonical download URL. Only its file name is reused when
	// building the mirror URL.
	URL string

	// Size is the declared size in bytes, 0 when unknown.
	Size int64
}

// FileName returns the last path segment of the canonical URL.
func (p PrimaryBinary) FileName() string {
	u := p.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return path.Base(u)
}

// LibraryRef is one dependency library of a release.
type LibraryRef struct {
	// Name is the maven coordinate, e.g. "com.mojang:brigadier:1.1.8".
	Name string

	// Path is the maven-style coordinate path, e.g.
	// "com/mojang/brigadier/1.1.8/brigadier-1.1.8.jar".
	Path string

	// URL is the canonical download URL.
	URL string

	// SHA1 is the declared content hash, empty when unknown.
	SHA1 string

	// Size is the declared size in bytes, 0 when unknown.
	Size int64
}

// HasArtifact reports whether the library carries a downloadable artifact.
func (l LibraryRef) HasArtifact() bool {
	return l.Path != "" && l.URL != ""
}
