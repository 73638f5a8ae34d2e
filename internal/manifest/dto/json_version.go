package dto

import (
	"github.com/handiism/mc-downloader/internal/model"
)

// JSONVersion is the per-release descriptor body.
type JSONVersion struct {
	ID        string        `json:"id"`
	Downloads JSONDownloads `json:"downloads"`
	Libraries []JSONLibrary `json:"libraries"`
}

// JSONDownloads holds the binaries a release ships.
type JSONDownloads struct {
	Client *JSONArtifact `json:"client"`
}

// JSONArtifact describes one downloadable file.
type JSONArtifact struct {
	Path string `json:"path"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// JSONLibrary is one entry of the libraries array.
type JSONLibrary struct {
	Name      string               `json:"name"`
	Downloads *JSONLibraryDownload `json:"downloads"`
}

// JSONLibraryDownload holds the library's main artifact. Native-only
// libraries omit it.
type JSONLibraryDownload struct {
	Artifact *JSONArtifact `json:"artifact"`
}

// ToDescriptor converts the body to a model.ReleaseDescriptor.
//
// manifestURL is where the body was fetched from. The id from the listing
// wins over the body's own id.
func (jv *JSONVersion) ToDescriptor(id, manifestURL string) *model.ReleaseDescriptor {
	desc := &model.ReleaseDescriptor{
		ID:          id,
		ManifestURL: manifestURL,
	}
	if desc.ID == "" {
		desc.ID = jv.ID
	}

	if c := jv.Downloads.Client; c != nil {
		desc.Primary = model.PrimaryBinary{
			Hash: c.SHA1,
			URL:  c.URL,
			Size: c.Size,
		}
	}

	for _, lib := range jv.Libraries {
		ref := model.LibraryRef{Name: lib.Name}
		if lib.Downloads != nil && lib.Downloads.Artifact != nil {
			a := lib.Downloads.Artifact
			ref.Path = a.Path
			ref.URL = a.URL
			ref.SHA1 = a.SHA1
			ref.Size = a.Size
		}
		desc.Libraries = append(desc.Libraries, ref)
	}

	return desc
}
