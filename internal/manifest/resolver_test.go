package manifest

import (
	"path/filepath"
	"testing"

	"github.com/handiism/mc-downloader/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMirror = "https://mirror.example.com"

func testDescriptor() *model.ReleaseDescriptor {
	return &model.ReleaseDescriptor{
		ID:          "1.20.1",
		ManifestURL: "https://piston-meta.mojang.com/v1/packages/abc/1.20.1.json",
		Primary: model.PrimaryBinary{
			Hash: "0c3ec587af28e5a785c0b4a7b8a30f9a8f78f838",
			URL:  "https://piston-data.mojang.com/v1/objects/0c3ec587af28e5a785c0b4a7b8a30f9a8f78f838/client.jar",
			Size: 23028853,
		},
		Libraries: []model.LibraryRef{
			{
				Name: "com.mojang:logging:1.1.1",
				Path: "com/mojang/logging/1.1.1/logging-1.1.1.jar",
				URL:  "https://libraries.minecraft.net/maven/com/mojang/logging/1.1.1/logging-1.1.1.jar",
				SHA1: "832b8e6674a9b325a5175a3a6267dfaf34c85139",
			},
			{
				Name: "org.lwjgl:lwjgl:3.3.1:natives-linux",
			},
			{
				Name: "com.mojang:brigadier:1.1.8",
				Path: "com/mojang/brigadier/1.1.8/brigadier-1.1.8.jar",
				URL:  "https://libraries.minecraft.net/com/mojang/brigadier/1.1.8/brigadier-1.1.8.jar",
			},
		},
	}
}

func TestResolver_Artifacts_ReleaseWithTwoLibraries(t *testing.T) {
	r := NewResolver(testMirror)
	items := r.Artifacts(testDescriptor(), "root")

	require.Len(t, items, 3)
	assert.Equal(t, filepath.Join("root", "versions", "1.20.1", "1.20.1.jar"), items[0].Path)
	assert.Equal(t, filepath.Join("root", "libraries", "com", "mojang", "logging", "1.1.1", "logging-1.1.1.jar"), items[1].Path)
	assert.Equal(t, filepath.Join("root", "libraries", "com", "mojang", "brigadier", "1.1.8", "brigadier-1.1.8.jar"), items[2].Path)
}

func TestResolver_Expand(t *testing.T) {
	r := NewResolver(testMirror + "/")
	desc := testDescriptor()
	items := r.Expand(desc, "root")

	require.Len(t, items, 4)

	assert.Equal(t, model.WorkItem{
		ID:   "1.20.1_json",
		URL:  desc.ManifestURL,
		Path: filepath.Join("root", "versions", "1.20.1", "1.20.1.json"),
		Kind: model.KindManifest,
	}, items[0])

	assert.Equal(t, "1.20.1_client", items[1].ID)
	assert.Equal(t, testMirror+"/mc/game/0c3ec587af28e5a785c0b4a7b8a30f9a8f78f838/client.jar", items[1].URL)
	assert.Equal(t, desc.Primary.Hash, items[1].SHA1)

	assert.Equal(t, "1.20.1_lib_com/mojang/logging/1.1.1/logging-1.1.1.jar", items[2].ID)
	assert.Equal(t, testMirror+"/maven/com/mojang/logging/1.1.1/logging-1.1.1.jar", items[2].URL)

	// No maven/ segment: the coordinate path is used.
	assert.Equal(t, testMirror+"/maven/com/mojang/brigadier/1.1.8/brigadier-1.1.8.jar", items[3].URL)
}

func TestResolver_Idempotent(t *testing.T) {
	r := NewResolver(testMirror)
	first := r.Expand(testDescriptor(), "root")
	second := r.Expand(testDescriptor(), "root")
	assert.Equal(t, first, second)
}

func TestResolver_ExpandOnly(t *testing.T) {
	r := NewResolver(testMirror)

	tests := []struct {
		name  string
		kinds []model.ArtifactKind
		want  []model.ArtifactKind
	}{
		{"client only", []model.ArtifactKind{model.KindClient}, []model.ArtifactKind{model.KindClient}},
		{"json only", []model.ArtifactKind{model.KindManifest}, []model.ArtifactKind{model.KindManifest}},
		{"libraries then json", []model.ArtifactKind{model.KindLibrary, model.KindManifest},
			[]model.ArtifactKind{model.KindManifest, model.KindLibrary, model.KindLibrary}},
		{"nothing", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := r.ExpandOnly(testDescriptor(), "root", tt.kinds...)
			var got []model.ArtifactKind
			for _, it := range items {
				got = append(got, it.Kind)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_SkipsUnsafeAndMissing(t *testing.T) {
	desc := &model.ReleaseDescriptor{
		ID: "x",
		Libraries: []model.LibraryRef{
			{Name: "evil", Path: "../../outside.jar", URL: "https://h/maven/evil.jar"},
			{Name: "abs", Path: "/etc/passwd", URL: "https://h/maven/abs.jar"},
			{Name: "nourl", Path: "a/b.jar"},
		},
	}

	r := NewResolver(testMirror)
	assert.Empty(t, r.LibraryItems(desc, "root"))

	_, ok := r.ClientItem(desc, "root")
	assert.False(t, ok, "descriptor without primary binary yields no client item")
	assert.Len(t, r.Expand(desc, "root"), 1, "only the descriptor copy remains")
}

func TestMavenSuffix(t *testing.T) {
	tests := []struct {
		lib  model.LibraryRef
		want string
	}{
		{model.LibraryRef{URL: "https://a/maven/x/y.jar", Path: "ignored"}, "x/y.jar"},
		{model.LibraryRef{URL: "https://a/maven/b/maven/x/y.jar"}, "x/y.jar"},
		{model.LibraryRef{URL: "https://libraries.minecraft.net/x/y.jar", Path: "x/y.jar"}, "x/y.jar"},
	}

	for _, tt := range tests {
		t.Run(tt.lib.URL, func(t *testing.T) {
			assert.Equal(t, tt.want, MavenSuffix(tt.lib))
		})
	}
}
