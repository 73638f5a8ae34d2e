package download

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	mchttp "github.com/handiism/mc-downloader/internal/http"
	"github.com/handiism/mc-downloader/internal/model"
)

// fileServer serves test payloads:
//
//	/files/{name}   the bytes "content of {name}" with a Content-Length
//	/stream/{name}  three flushed chunks without a Content-Length
//	/block/{name}   first half, then waits for release() before the rest
//	/status/{code}  an empty response with that status
type fileServer struct {
	*httptest.Server

	gate     chan struct{}
	hits     atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
}

func newFileServer(t *testing.T) *fileServer {
	t.Helper()
	s := &fileServer{gate: make(chan struct{})}

	mux := http.NewServeMux()
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		body := payload(path.Base(r.URL.Path))
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	})
	mux.HandleFunc("/stream/", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		flusher := w.(http.Flusher)
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, "chunk-%d;", i)
			flusher.Flush()
		}
	})
	mux.HandleFunc("/block/", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		n := s.inflight.Add(1)
		for {
			p := s.peak.Load()
			if n <= p || s.peak.CompareAndSwap(p, n) {
				break
			}
		}

		w.Header().Set("Content-Length", "8")
		w.Write([]byte("half"))
		w.(http.Flusher).Flush()

		select {
		case <-s.gate:
			s.inflight.Add(-1)
			w.Write([]byte("done"))
		case <-r.Context().Done():
			s.inflight.Add(-1)
		}
	})
	mux.HandleFunc("/status/", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		code, _ := strconv.Atoi(path.Base(r.URL.Path))
		w.WriteHeader(code)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		s.CloseClientConnections()
		s.Close()
	})
	return s
}

// release lets one blocked request finish.
func (s *fileServer) release(t *testing.T) {
	t.Helper()
	select {
	case s.gate <- struct{}{}:
	case <-time.After(5 * time.Second):
		t.Fatal("no blocked request to release")
	}
}

func (s *fileServer) item(kind, name string) model.WorkItem {
	return model.WorkItem{
		ID:   name,
		URL:  s.URL + "/" + kind + "/" + name,
		Path: path.Join("/root", "out", name),
		Kind: model.KindLibrary,
	}
}

func (s *fileServer) items(kind string, n int) []model.WorkItem {
	items := make([]model.WorkItem, n)
	for i := range items {
		items[i] = s.item(kind, fmt.Sprintf("item-%d", i))
	}
	return items
}

func payload(name string) []byte {
	return []byte("content of " + name)
}

func sha1Hex(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

func testHTTPClient() *mchttp.Client {
	return mchttp.NewClient(mchttp.Options{DownloadTimeout: 5 * time.Second})
}

// waitResult receives one Result or fails the test.
func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a result")
		return Result{}
	}
}
