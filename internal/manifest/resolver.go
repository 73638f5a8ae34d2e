package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	ioutils "github.com/handiism/mc-downloader/internal/io"
	"github.com/handiism/mc-downloader/internal/model"
)

const mavenSegment = "maven/"

// Resolver maps a release descriptor to the work items that fetch it.
//
// Resolver is pure: identical input yields identical output, and nothing is
// requested or written.
//
// Local layout under root:
//
//	versions/{id}/{id}.json   release descriptor copy
//	versions/{id}/{id}.jar    primary binary
//	libraries/{coordinate}    each dependency library
//
// Remote URLs are rewritten onto the mirror:
//
//	{base}/mc/game/{hash}/{filename}   primary binary
//	{base}/maven/{suffix}              libraries
type Resolver struct {
	base string
}

// NewResolver creates a Resolver that rewrites URLs onto mirrorBase.
func NewResolver(mirrorBase string) *Resolver {
	return &Resolver{base: strings.TrimRight(mirrorBase, "/")}
}

// Expand returns every item of a release: the descriptor copy, the primary
// binary and the libraries, in that order.
func (r *Resolver) Expand(desc *model.ReleaseDescriptor, root string) []model.WorkItem {
	return r.ExpandOnly(desc, root, model.KindManifest, model.KindClient, model.KindLibrary)
}

// Artifacts returns the primary binary followed by the libraries, without
// the descriptor copy.
func (r *Resolver) Artifacts(desc *model.ReleaseDescriptor, root string) []model.WorkItem {
	return r.ExpandOnly(desc, root, model.KindClient, model.KindLibrary)
}

// ExpandOnly returns the items of the requested kinds, always in
// manifest, client, libraries order regardless of the order of kinds.
func (r *Resolver) ExpandOnly(desc *model.ReleaseDescriptor, root string, kinds ...model.ArtifactKind) []model.WorkItem {
	want := make(map[model.ArtifactKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	var items []model.WorkItem
	if want[model.KindManifest] {
		items = append(items, r.ManifestItem(desc, root))
	}
	if want[model.KindClient] {
		if item, ok := r.ClientItem(desc, root); ok {
			items = append(items, item)
		}
	}
	if want[model.KindLibrary] {
		items = append(items, r.LibraryItems(desc, root)...)
	}
	return items
}

// ManifestItem returns the item that copies the descriptor itself.
func (r *Resolver) ManifestItem(desc *model.ReleaseDescriptor, root string) model.WorkItem {
	id := ioutils.SanitizeFileName(desc.ID)
	return model.WorkItem{
		ID:   desc.ID + "_json",
		URL:  desc.ManifestURL,
		Path: filepath.Join(root, "versions", id, id+".json"),
		Kind: model.KindManifest,
	}
}

// ClientItem returns the primary binary item. It reports false when the
// descriptor has no primary binary.
func (r *Resolver) ClientItem(desc *model.ReleaseDescriptor, root string) (model.WorkItem, bool) {
	p := desc.Primary
	if p.Hash == "" || p.URL == "" {
		return model.WorkItem{}, false
	}
	id := ioutils.SanitizeFileName(desc.ID)
	return model.WorkItem{
		ID:   desc.ID + "_client",
		URL:  fmt.Sprintf("%s/mc/game/%s/%s", r.base, p.Hash, p.FileName()),
		Path: filepath.Join(root, "versions", id, id+".jar"),
		Kind: model.KindClient,
		SHA1: p.Hash,
		Size: p.Size,
	}, true
}

// LibraryItems returns one item per library that has a downloadable
// artifact. Libraries without one, or whose coordinate path would escape
// the libraries directory, are skipped.
func (r *Resolver) LibraryItems(desc *model.ReleaseDescriptor, root string) []model.WorkItem {
	var items []model.WorkItem
	for _, lib := range desc.Libraries {
		if !lib.HasArtifact() {
			continue
		}
		rel, ok := ioutils.SafeRelPath(lib.Path)
		if !ok {
			continue
		}
		items = append(items, model.WorkItem{
			ID:   desc.ID + "_lib_" + lib.Path,
			URL:  r.base + "/maven/" + MavenSuffix(lib),
			Path: filepath.Join(root, "libraries", rel),
			Kind: model.KindLibrary,
			SHA1: lib.SHA1,
			Size: lib.Size,
		})
	}
	return items
}

// MavenSuffix returns the part of the library's canonical URL after its
// last "maven/" segment. URLs without such a segment fall back to the
// coordinate path, which is what the mirror serves under /maven/.
func MavenSuffix(lib model.LibraryRef) string {
	if i := strings.LastIndex(lib.URL, mavenSegment); i >= 0 {
		return lib.URL[i+len(mavenSegment):]
	}
	return strings.TrimLeft(lib.Path, "/")
}
