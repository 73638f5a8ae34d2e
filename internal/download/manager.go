package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/mc-downloader/internal/config"
	mchttp "github.com/handiism/mc-downloader/internal/http"
	ioutils "github.com/handiism/mc-downloader/internal/io"
	"github.com/handiism/mc-downloader/internal/manifest"
	"github.com/handiism/mc-downloader/internal/model"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a user-facing status message.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Events are the Manager's callbacks. Any of them may be nil. OnProgress
// and OnComplete are called from download goroutines.
type Events struct {
	OnMessage  func(ProgressEvent)
	OnProgress func(Progress)
	OnComplete func(Result)
}

// Manager coordinates release downloads.
type Manager struct {
	settings  *config.Settings
	fs        afero.Fs
	log       *slog.Logger
	events    Events
	http      *mchttp.Client
	manifest  *manifest.Client
	resolver  *manifest.Resolver
	scheduler *Scheduler

	mu       sync.RWMutex
	releases []*model.ReleaseDescriptor
	items    []model.WorkItem
	byID     map[string]model.WorkItem
	received map[string]int64

	// completed holds ids that were downloaded (and verified) by an
	// earlier StartDownloads call.
	completed map[string]bool

	totalBytes    int64
	receivedBytes atomic.Int64
	totalFiles    int32
	doneFiles     atomic.Int32
}

// NewManager creates a new download Manager. It honours WithLogger,
// WithFs and WithEvents; downloads go to the OS filesystem by default.
func NewManager(settings *config.Settings, opts ...Option) *Manager {
	o := buildOptions(opts)
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}

	httpClient := NewHTTPClient(settings)

	m := &Manager{
		settings: settings,
		fs:       o.fs,
		log:      o.log,
		events:   o.events,
		http:     httpClient,
		manifest: manifest.NewClient(
			manifest.WithBaseURL(settings.MirrorBaseURL),
			manifest.WithHTTPClient(httpClient),
			manifest.WithLogger(o.log),
		),
		resolver: manifest.NewResolver(settings.MirrorBaseURL),
		byID:     make(map[string]model.WorkItem),
		received: make(map[string]int64),

		completed: make(map[string]bool),
	}
	m.scheduler = NewScheduler(httpClient, o.fs,
		WithConcurrency(settings.MaxConcurrentDownloads),
		WithChunkSize(settings.ChunkSize),
		WithProgress(m.handleProgress),
		WithCompletion(m.handleComplete),
		WithLogger(o.log),
	)
	return m
}

// NewHTTPClient returns the mirror client configured by settings.
func NewHTTPClient(settings *config.Settings) *mchttp.Client {
	return mchttp.NewClient(mchttp.Options{
		UserAgent:       settings.UserAgent,
		MetadataTimeout: settings.MetadataTimeout(),
		DownloadTimeout: settings.DownloadTimeout(),
	})
}

// Manifest returns the release metadata client the Manager uses.
func (m *Manager) Manifest() *manifest.Client {
	return m.manifest
}

// Scheduler returns the scheduler downloads run on.
func (m *Manager) Scheduler() *Scheduler {
	return m.scheduler
}

// Initialize resolves the given release ids and prepares their work items.
//
// Releases are resolved concurrently. An unknown or unreachable release is
// reported through OnMessage and skipped. ErrNothingToDownload is returned
// when none of the ids resolved.
func (m *Manager) Initialize(ctx context.Context, ids []string) error {
	ids = parseReleaseIDs(ids)
	if len(ids) == 0 {
		return ErrNothingToDownload
	}

	descs := make([]*model.ReleaseDescriptor, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(m.settings.MaxConcurrentResolves, 1))
	for i, id := range ids {
		g.Go(func() error {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Fetching release info: %s", id), Level: LevelVerbose})

			desc := m.manifest.GetReleaseDescriptor(gctx, id)
			if desc == nil {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Release %s not found or unavailable", id), Level: LevelError})
				return nil
			}
			descs[i] = desc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	kinds := m.settings.ArtifactKinds()
	root := m.settings.DownloadsPath

	m.mu.RLock()
	seenPaths := make(map[string]bool, len(m.items))
	for _, item := range m.items {
		seenPaths[item.Path] = true
	}
	m.mu.RUnlock()

	var (
		releases []*model.ReleaseDescriptor
		items    []model.WorkItem
	)
	for _, desc := range descs {
		if desc == nil {
			continue
		}
		releases = append(releases, desc)

		var queued, skipped int
		for _, item := range m.resolver.ExpandOnly(desc, root, kinds...) {
			// Releases share libraries; the first one to claim a path fetches it.
			if seenPaths[item.Path] {
				continue
			}
			seenPaths[item.Path] = true

			if m.settings.SkipExisting && m.isPresent(item) {
				skipped++
				continue
			}
			items = append(items, item)
			queued++
		}

		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Found release: %s (%d libraries, %d files to download, %d already present)",
				desc.ID, len(desc.Libraries), queued, skipped),
			Level: LevelInfo,
		})
	}

	if len(releases) == 0 {
		return ErrNothingToDownload
	}

	totalBytes, totalFiles := m.calculateTotals(ctx, items)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases = append(m.releases, releases...)
	for _, item := range items {
		m.items = append(m.items, item)
		m.byID[item.ID] = item
	}
	m.totalBytes += totalBytes
	m.totalFiles += totalFiles
	return nil
}

// StartDownloads downloads every prepared item that has not been
// downloaded by an earlier call.
//
// When ctx is cancelled, all queued and running items are cancelled and
// StartDownloads returns ctx.Err() once they have stopped. Failed items are
// retried up to DownloadMaxRetries times. A *BatchError lists the items
// that still failed afterwards.
func (m *Manager) StartDownloads(ctx context.Context) error {
	pending := m.remaining()
	if len(pending) == 0 {
		m.progress(ProgressEvent{Message: "Everything is up to date", Level: LevelSuccess})
		return nil
	}

	var failed, cancelled []string
	for attempt := 0; ; attempt++ {
		results, runErr := m.runBatch(ctx, pending)
		if results == nil && runErr != nil {
			return runErr
		}

		var retry []model.WorkItem
		failed, cancelled = nil, nil
		for _, res := range results {
			switch {
			case res.State == model.StateCancelled:
				cancelled = append(cancelled, res.ID)
			case res.State == model.StateFailed || !m.verify(res):
				failed = append(failed, res.ID)
				retry = append(retry, m.item(res.ID))
			default:
				m.markCompleted(res.ID)
			}
		}
		if runErr != nil {
			return runErr
		}

		if len(retry) == 0 || attempt >= m.settings.DownloadMaxRetries {
			break
		}

		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Retry %d/%d for %d failed file(s)", attempt+1, m.settings.DownloadMaxRetries, len(retry)),
			Level:   LevelWarning,
		})
		if err := m.waitForRetry(ctx, attempt); err != nil {
			return err
		}
		pending = retry
	}

	if len(failed) > 0 || len(cancelled) > 0 {
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Finished, %d file(s) failed", len(failed)+len(cancelled)),
			Level:   LevelWarning,
		})
		return &BatchError{Failed: failed, Cancelled: cancelled}
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Successfully downloaded %s", strings.Join(m.releaseIDs(), ", ")), Level: LevelSuccess})
	return nil
}

// GetProgress returns current download progress.
func (m *Manager) GetProgress() (received, total int64, filesDone, filesTotal int32) {
	m.mu.RLock()
	total, filesTotal = m.totalBytes, m.totalFiles
	m.mu.RUnlock()
	return m.receivedBytes.Load(), total, m.doneFiles.Load(), filesTotal
}

// GetReleaseNames returns a display line per initialized release.
func (m *Manager) GetReleaseNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.releases))
	for i, r := range m.releases {
		names[i] = fmt.Sprintf("%s (%d libraries)", r.ID, len(r.Libraries))
	}
	return names
}

// Items returns every prepared work item, including completed ones.
func (m *Manager) Items() []model.WorkItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.WorkItem, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Manager) runBatch(ctx context.Context, items []model.WorkItem) ([]Result, error) {
	batch, err := m.scheduler.Submit(items, nil)
	if err != nil {
		return nil, err
	}
	m.log.Info("downloads started", "batch", batch.ID, "items", batch.Size, "concurrency", m.scheduler.Limit())

	if err := batch.Wait(ctx); err != nil {
		m.progress(ProgressEvent{Message: "Cancelling downloads...", Level: LevelWarning})
		m.cancelAll()
		<-batch.Done()
		return batch.Results(), err
	}
	return batch.Results(), nil
}

// cancelAll cancels queued items first so that finishing tasks cannot
// admit them.
func (m *Manager) cancelAll() {
	for _, id := range m.scheduler.PendingIDs() {
		m.scheduler.Cancel(id)
	}
	for _, id := range m.scheduler.ActiveIDs() {
		m.scheduler.Cancel(id)
	}
}

// verify checks a succeeded item against its declared SHA-1 when
// VerifyChecksums is enabled. A mismatching file is removed.
func (m *Manager) verify(res Result) bool {
	if !m.settings.VerifyChecksums || res.State != model.StateSucceeded {
		return true
	}
	item := m.item(res.ID)
	if item.SHA1 == "" {
		return true
	}

	ok, err := ioutils.VerifyFile(m.fs, item.Path, ioutils.HashSHA1, item.SHA1)
	if ok {
		return true
	}

	m.doneFiles.Add(-1)
	m.receivedBytes.Add(-res.Bytes)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error verifying %s: %v", filepath.Base(item.Path), err), Level: LevelError})
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Checksum mismatch: %s", filepath.Base(item.Path)), Level: LevelError})
	}
	if err := ioutils.RemoveBestEffort(m.fs, item.Path); err != nil {
		m.log.Debug("remove corrupt file failed", "path", item.Path, "error", err)
	}
	return false
}

// isPresent reports whether item is already on disk with the expected
// size (and hash, when verification is on).
func (m *Manager) isPresent(item model.WorkItem) bool {
	size := ioutils.FileSize(m.fs, item.Path)
	if size < 0 || (item.Size > 0 && size != item.Size) {
		return false
	}
	if m.settings.VerifyChecksums && item.SHA1 != "" {
		ok, _ := ioutils.VerifyFile(m.fs, item.Path, ioutils.HashSHA1, item.SHA1)
		return ok
	}
	return true
}

// calculateTotals sums the expected sizes of items. Items without a
// declared size are asked for one with a HEAD request; failures leave them
// uncounted.
func (m *Manager) calculateTotals(ctx context.Context, items []model.WorkItem) (totalBytes int64, totalFiles int32) {
	for _, item := range items {
		totalFiles++
		if item.Size > 0 {
			totalBytes += item.Size
			continue
		}
		if size, err := m.http.GetFileSize(ctx, item.URL); err == nil {
			totalBytes += size
		}
	}
	return totalBytes, totalFiles
}

func (m *Manager) handleProgress(p Progress) {
	m.mu.Lock()
	delta := p.Received - m.received[p.ID]
	m.received[p.ID] = p.Received
	m.mu.Unlock()
	m.receivedBytes.Add(delta)

	if m.events.OnProgress != nil {
		m.events.OnProgress(p)
	}
}

func (m *Manager) handleComplete(res Result) {
	// A retry starts the item from zero again.
	m.mu.Lock()
	got := m.received[res.ID]
	delete(m.received, res.ID)
	m.mu.Unlock()

	switch res.State {
	case model.StateSucceeded:
		m.doneFiles.Add(1)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", filepath.Base(m.item(res.ID).Path)), Level: LevelVerbose})
	case model.StateFailed:
		m.receivedBytes.Add(-got)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s", res.Message), Level: LevelError})
	case model.StateCancelled:
		m.receivedBytes.Add(-got)
		m.log.Debug("download cancelled", "id", res.ID)
	}

	if m.events.OnComplete != nil {
		m.events.OnComplete(res)
	}
}

// remaining returns the prepared items not yet completed, in order.
func (m *Manager) remaining() []model.WorkItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.WorkItem
	for _, item := range m.items {
		if !m.completed[item.ID] {
			out = append(out, item)
		}
	}
	return out
}

func (m *Manager) markCompleted(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[id] = true
}

func (m *Manager) item(id string) model.WorkItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byID[id]
}

func (m *Manager) releaseIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.releases))
	for i, r := range m.releases {
		ids[i] = r.ID
	}
	return ids
}

func (m *Manager) waitForRetry(ctx context.Context, tries int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.settings.RetryDelay(tries)):
		return nil
	}
}

func (m *Manager) progress(event ProgressEvent) {
	switch event.Level {
	case LevelError:
		m.log.Error(event.Message)
	case LevelWarning:
		m.log.Warn(event.Message)
	case LevelVerbose:
		m.log.Debug(event.Message)
	default:
		m.log.Info(event.Message)
	}
	if m.events.OnMessage != nil {
		m.events.OnMessage(event)
	}
}

// parseReleaseIDs trims ids, accepts whitespace or comma separated lists in
// a single entry and drops blanks and repeats.
func parseReleaseIDs(input []string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, entry := range input {
		for _, id := range strings.FieldsFunc(entry, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
		}) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
