package model

// ArtifactKind classifies a WorkItem by the part of a release it fetches.
type ArtifactKind int

const (
	// KindManifest is the local copy of the release descriptor.
	KindManifest ArtifactKind = iota

	// KindClient is the primary binary.
	KindClient

	// KindLibrary is a dependency library.
	KindLibrary
)

// String returns the lowercase name used in configuration and logs.
func (k ArtifactKind) String() string {
	switch k {
	case KindManifest:
		return "json"
	case KindClient:
		return "client"
	case KindLibrary:
		return "libraries"
	default:
		return "unknown"
	}
}

// ParseArtifactKind maps a configuration name back to an ArtifactKind.
func ParseArtifactKind(s string) (ArtifactKind, bool) {
	switch s {
	case "json", "manifest":
		return KindManifest, true
	case "client", "jar":
		return KindClient, true
	case "libraries", "library", "libs":
		return KindLibrary, true
	}
	return 0, false
}

// WorkItem is one (source URL, destination path) download unit.
//
// ID must be unique among the items a scheduler is tracking at any time.
// SHA1 and Size are informational; the download path never checks them.
type WorkItem struct {
	ID   string
	URL  string
	Path string
	Kind ArtifactKind

	// SHA1 is the expected content hash, empty when the descriptor has none.
	SHA1 string

	// Size is the expected size in bytes, 0 when unknown.
	Size int64
}

// TaskState is the lifecycle state of a download task.
//
// Transitions: Queued -> Running -> {Succeeded, Failed, Cancelled}.
// Terminal states are final.
type TaskState int

const (
	StateQueued TaskState = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateCancelled
)

// IsTerminal reports whether no further transition can happen.
func (s TaskState) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

func (s TaskState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
