package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/mc-downloader/internal/config"
)

var (
	clientBody  = []byte("client jar bytes")
	loggingBody = []byte("logging library")
	lwjglBody   = []byte("lwjgl library content")
)

const (
	loggingPath = "com/mojang/logging/1.1.1/logging-1.1.1.jar"
	lwjglPath   = "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1.jar"
)

// fakeMirror serves a listing with release 1.20.1 and everything it needs.
type fakeMirror struct {
	*httptest.Server

	// corrupt makes the logging library body differ from its declared hash.
	corrupt atomic.Bool
	// blockClient holds the client jar response until the request is cancelled.
	blockClient atomic.Bool

	mu   sync.Mutex
	hits map[string]int
}

func newFakeMirror(t *testing.T) *fakeMirror {
	t.Helper()
	m := &fakeMirror{hits: make(map[string]int)}

	serve := func(w http.ResponseWriter, r *http.Request, body []byte) {
		if r.Method == http.MethodGet {
			m.mu.Lock()
			m.hits[r.URL.Path]++
			m.mu.Unlock()
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/mc/game/version_manifest.json", func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, []byte(fmt.Sprintf(`{
			"latest": {"release": "1.20.1", "snapshot": "1.20.1"},
			"versions": [{"id": "1.20.1", "type": "release", "url": "%s/v/1.20.1.json"}]
		}`, m.URL)))
	})
	mux.HandleFunc("/v/1.20.1.json", func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, []byte(m.descriptor()))
	})
	mux.HandleFunc("/mc/game/"+sha1Hex(clientBody)+"/client.jar", func(w http.ResponseWriter, r *http.Request) {
		if m.blockClient.Load() && r.Method == http.MethodGet {
			w.Header().Set("Content-Length", strconv.Itoa(len(clientBody)))
			w.Write(clientBody[:4])
			w.(http.Flusher).Flush()
			<-r.Context().Done()
			return
		}
		serve(w, r, clientBody)
	})
	mux.HandleFunc("/maven/"+loggingPath, func(w http.ResponseWriter, r *http.Request) {
		if m.corrupt.Load() {
			serve(w, r, []byte("logging librarX"))
			return
		}
		serve(w, r, loggingBody)
	})
	mux.HandleFunc("/maven/"+lwjglPath, func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, lwjglBody)
	})

	m.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		m.CloseClientConnections()
		m.Close()
	})
	return m
}

func (m *fakeMirror) descriptor() string {
	return fmt.Sprintf(`{
		"id": "1.20.1",
		"downloads": {"client": {"sha1": "%[1]s", "size": %[2]d, "url": "https://piston-data.mojang.com/v1/objects/%[1]s/client.jar"}},
		"libraries": [
			{"name": "com.mojang:logging:1.1.1", "downloads": {"artifact": {"path": "%[3]s", "sha1": "%[4]s", "size": %[5]d, "url": "https://libraries.minecraft.net/%[3]s"}}},
			{"name": "org.lwjgl:lwjgl:3.3.1", "downloads": {"artifact": {"path": "%[6]s", "sha1": "%[7]s", "size": %[8]d, "url": "https://libraries.minecraft.net/%[6]s"}}},
			{"name": "org.lwjgl:lwjgl:3.3.1:natives-macos", "rules": [{"action": "allow", "os": {"name": "osx"}}]}
		]
	}`,
		sha1Hex(clientBody), len(clientBody),
		loggingPath, sha1Hex(loggingBody), len(loggingBody),
		lwjglPath, sha1Hex(lwjglBody), len(lwjglBody),
	)
}

func (m *fakeMirror) hitCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[path]
}

func testSettings(m *fakeMirror) *config.Settings {
	s := config.DefaultSettings()
	s.DownloadsPath = "/games"
	s.MirrorBaseURL = m.URL
	s.DownloadRetryCooldown = 0
	return s
}

type messageLog struct {
	mu       sync.Mutex
	messages []ProgressEvent
}

func (l *messageLog) add(e ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, e)
}

func (l *messageLog) has(level ProgressLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.messages {
		if e.Level == level {
			return true
		}
	}
	return false
}

func countFiles(t *testing.T, fs afero.Fs) int {
	t.Helper()
	n := 0
	err := afero.Walk(fs, "/", func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestManager_DownloadRelease(t *testing.T) {
	mirror := newFakeMirror(t)
	fs := afero.NewMemMapFs()

	var msgs messageLog
	var completed atomic.Int32
	m := NewManager(testSettings(mirror), WithFs(fs), WithEvents(Events{
		OnMessage:  msgs.add,
		OnComplete: func(Result) { completed.Add(1) },
	}))

	require.NoError(t, m.Initialize(context.Background(), []string{"1.20.1"}))
	assert.Equal(t, []string{"1.20.1 (3 libraries)"}, m.GetReleaseNames())
	require.Len(t, m.Items(), 4)

	_, total, _, filesTotal := m.GetProgress()
	assert.Equal(t, int32(4), filesTotal)
	assert.Equal(t, int64(len(mirror.descriptor())+len(clientBody)+len(loggingBody)+len(lwjglBody)), total)

	require.NoError(t, m.StartDownloads(context.Background()))

	want := map[string][]byte{
		"/games/versions/1.20.1/1.20.1.jar":   clientBody,
		"/games/versions/1.20.1/1.20.1.json":  []byte(mirror.descriptor()),
		filepath.Join("/games/libraries", loggingPath): loggingBody,
		filepath.Join("/games/libraries", lwjglPath):   lwjglBody,
	}
	for p, body := range want {
		got, err := afero.ReadFile(fs, p)
		require.NoError(t, err, p)
		assert.Equal(t, body, got, p)
	}
	assert.Equal(t, len(want), countFiles(t, fs))

	received, total, filesDone, filesTotal := m.GetProgress()
	assert.Equal(t, total, received)
	assert.Equal(t, filesTotal, filesDone)
	assert.Equal(t, int32(4), completed.Load())
	assert.True(t, msgs.has(LevelSuccess))
	assert.False(t, msgs.has(LevelError))
}

func TestManager_UnknownRelease(t *testing.T) {
	mirror := newFakeMirror(t)
	fs := afero.NewMemMapFs()

	var msgs messageLog
	m := NewManager(testSettings(mirror), WithFs(fs), WithEvents(Events{OnMessage: msgs.add}))

	err := m.Initialize(context.Background(), []string{"0.0.0"})
	assert.ErrorIs(t, err, ErrNothingToDownload)
	assert.True(t, msgs.has(LevelError))
	assert.Empty(t, m.Items())
	assert.Zero(t, countFiles(t, fs))
	assert.Zero(t, mirror.hitCount("/v/1.20.1.json"))
}

func TestManager_InitializeNoIDs(t *testing.T) {
	m := NewManager(config.DefaultSettings(), WithFs(afero.NewMemMapFs()))
	assert.ErrorIs(t, m.Initialize(context.Background(), []string{" ", ""}), ErrNothingToDownload)
}

func TestManager_ComponentsAndSkipExisting(t *testing.T) {
	mirror := newFakeMirror(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join("/games/libraries", loggingPath), loggingBody, 0644))

	settings := testSettings(mirror)
	settings.Components = []string{"libraries"}
	m := NewManager(settings, WithFs(fs))

	require.NoError(t, m.Initialize(context.Background(), []string{"1.20.1"}))
	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, filepath.Join("/games/libraries", lwjglPath), items[0].Path)

	require.NoError(t, m.StartDownloads(context.Background()))
	assert.Zero(t, mirror.hitCount("/maven/"+loggingPath))
	assert.Equal(t, 1, mirror.hitCount("/maven/"+lwjglPath))
}

func TestManager_ExistingFileWithWrongSizeIsFetched(t *testing.T) {
	mirror := newFakeMirror(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join("/games/libraries", loggingPath), []byte("short"), 0644))

	settings := testSettings(mirror)
	settings.Components = []string{"libraries"}
	m := NewManager(settings, WithFs(fs))

	require.NoError(t, m.Initialize(context.Background(), []string{"1.20.1"}))
	assert.Len(t, m.Items(), 2)
}

func TestManager_ChecksumMismatchIsRetried(t *testing.T) {
	mirror := newFakeMirror(t)
	mirror.corrupt.Store(true)
	fs := afero.NewMemMapFs()

	settings := testSettings(mirror)
	settings.VerifyChecksums = true
	settings.DownloadMaxRetries = 2
	settings.Components = []string{"libraries"}
	m := NewManager(settings, WithFs(fs))

	require.NoError(t, m.Initialize(context.Background(), []string{"1.20.1"}))
	err := m.StartDownloads(context.Background())

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, []string{"1.20.1_lib_" + loggingPath}, be.Failed)
	assert.Equal(t, 3, mirror.hitCount("/maven/"+loggingPath), "first attempt plus two retries")
	assert.Equal(t, 1, mirror.hitCount("/maven/"+lwjglPath))

	exists, _ := afero.Exists(fs, filepath.Join("/games/libraries", loggingPath))
	assert.False(t, exists, "corrupt file is removed")

	_, _, filesDone, filesTotal := m.GetProgress()
	assert.Equal(t, int32(1), filesDone)
	assert.Equal(t, int32(2), filesTotal)
}

func TestManager_RetrySucceeds(t *testing.T) {
	mirror := newFakeMirror(t)
	mirror.corrupt.Store(true)
	fs := afero.NewMemMapFs()

	settings := testSettings(mirror)
	settings.VerifyChecksums = true
	settings.DownloadMaxRetries = 1
	settings.Components = []string{"libraries"}

	m := NewManager(settings, WithFs(fs), WithEvents(Events{
		OnMessage: func(e ProgressEvent) {
			if e.Level == LevelWarning {
				mirror.corrupt.Store(false)
			}
		},
	}))

	require.NoError(t, m.Initialize(context.Background(), []string{"1.20.1"}))
	require.NoError(t, m.StartDownloads(context.Background()))

	got, err := afero.ReadFile(fs, filepath.Join("/games/libraries", loggingPath))
	require.NoError(t, err)
	assert.Equal(t, loggingBody, got)
}

func TestManager_NoRetryByDefault(t *testing.T) {
	mirror := newFakeMirror(t)
	mirror.corrupt.Store(true)

	settings := testSettings(mirror)
	settings.VerifyChecksums = true
	settings.Components = []string{"libraries"}
	m := NewManager(settings, WithFs(afero.NewMemMapFs()))

	require.NoError(t, m.Initialize(context.Background(), []string{"1.20.1"}))
	var be *BatchError
	require.ErrorAs(t, m.StartDownloads(context.Background()), &be)
	assert.Equal(t, 1, mirror.hitCount("/maven/"+loggingPath))
}

func TestManager_SecondRunIsUpToDate(t *testing.T) {
	mirror := newFakeMirror(t)

	var msgs messageLog
	m := NewManager(testSettings(mirror), WithFs(afero.NewMemMapFs()), WithEvents(Events{OnMessage: msgs.add}))

	require.NoError(t, m.Initialize(context.Background(), []string{"1.20.1"}))
	require.NoError(t, m.StartDownloads(context.Background()))
	require.NoError(t, m.StartDownloads(context.Background()))

	clientPath := "/mc/game/" + sha1Hex(clientBody) + "/client.jar"
	assert.Equal(t, 1, mirror.hitCount(clientPath))
	assert.Equal(t, 1, mirror.hitCount("/maven/"+lwjglPath))

	received, total, filesDone, filesTotal := m.GetProgress()
	assert.Equal(t, total, received)
	assert.Equal(t, int32(4), filesDone)
	assert.Equal(t, int32(4), filesTotal)

	msgs.mu.Lock()
	last := msgs.messages[len(msgs.messages)-1]
	msgs.mu.Unlock()
	assert.Equal(t, ProgressEvent{Message: "Everything is up to date", Level: LevelSuccess}, last)
}

func TestManager_SecondRunRetriesOnlyFailures(t *testing.T) {
	mirror := newFakeMirror(t)
	mirror.corrupt.Store(true)

	settings := testSettings(mirror)
	settings.VerifyChecksums = true
	settings.Components = []string{"libraries"}
	fs := afero.NewMemMapFs()
	m := NewManager(settings, WithFs(fs))

	require.NoError(t, m.Initialize(context.Background(), []string{"1.20.1"}))
	var be *BatchError
	require.ErrorAs(t, m.StartDownloads(context.Background()), &be)

	mirror.corrupt.Store(false)
	require.NoError(t, m.StartDownloads(context.Background()))

	assert.Equal(t, 2, mirror.hitCount("/maven/"+loggingPath))
	assert.Equal(t, 1, mirror.hitCount("/maven/"+lwjglPath))

	got, err := afero.ReadFile(fs, filepath.Join("/games/libraries", loggingPath))
	require.NoError(t, err)
	assert.Equal(t, loggingBody, got)

	received, total, filesDone, filesTotal := m.GetProgress()
	assert.Equal(t, total, received)
	assert.Equal(t, filesTotal, filesDone)
	assert.Equal(t, int32(2), filesTotal)
}

func TestManager_CancelStopsEverything(t *testing.T) {
	mirror := newFakeMirror(t)
	mirror.blockClient.Store(true)
	fs := afero.NewMemMapFs()

	settings := testSettings(mirror)
	settings.MaxConcurrentDownloads = 1
	settings.Components = []string{"client", "libraries"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	var completed sync.Map
	m := NewManager(settings, WithFs(fs), WithEvents(Events{
		OnProgress: func(p Progress) {
			if p.ID == "1.20.1_client" {
				once.Do(cancel)
			}
		},
		OnComplete: func(r Result) { completed.Store(r.ID, r.State) },
	}))

	require.NoError(t, m.Initialize(context.Background(), []string{"1.20.1"}))

	done := make(chan error, 1)
	go func() { done <- m.StartDownloads(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("StartDownloads did not return after cancellation")
	}
	assert.True(t, errors.Is(err, context.Canceled))

	n := 0
	completed.Range(func(_, v any) bool {
		n++
		assert.Equal(t, "cancelled", fmt.Sprint(v))
		return true
	})
	assert.Equal(t, 3, n, "every item reports exactly one terminal result")
	assert.Zero(t, countFiles(t, fs))
	assert.Equal(t, Stats{Limit: 1}, m.Scheduler().Stats())
}

func TestParseReleaseIDs(t *testing.T) {
	tests := []struct {
		input []string
		want  []string
	}{
		{[]string{"1.20.1"}, []string{"1.20.1"}},
		{[]string{"1.20.1, 1.19.4", "1.20.1"}, []string{"1.20.1", "1.19.4"}},
		{[]string{"  23w31a\n1.8.9 "}, []string{"23w31a", "1.8.9"}},
		{[]string{"", " "}, nil},
	}

	for _, tt := range tests {
		got := parseReleaseIDs(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("parseReleaseIDs(%q) = %q, want %q", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseReleaseIDs(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}
