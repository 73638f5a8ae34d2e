package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"

	mchttp "github.com/handiism/mc-downloader/internal/http"
	ioutils "github.com/handiism/mc-downloader/internal/io"
	"github.com/handiism/mc-downloader/internal/logging"
	"github.com/handiism/mc-downloader/internal/model"
)

// DefaultChunkSize is the read size of a streaming download.
const DefaultChunkSize = 8192

// partSuffix marks a download that has not finished yet.
const partSuffix = ".part"

// Progress reports the bytes received so far for one item.
type Progress struct {
	ID       string
	Received int64

	// Total is the expected size, 0 when the server did not announce one.
	Total int64
}

// Result is the terminal outcome of one task.
type Result struct {
	ID      string
	State   model.TaskState
	Success bool
	Message string

	// Err is nil on success. Otherwise one of *http.TransportError,
	// *http.StatusError, *FilesystemError or ErrCancelled.
	Err error

	// Bytes is the number of body bytes written before the task ended.
	Bytes int64
}

// TaskOptions configures a Task.
type TaskOptions struct {
	ChunkSize  int
	OnProgress func(Progress)
	Logger     *slog.Logger
}

// Task streams one WorkItem to disk.
//
// The body is written to "{path}.part" and renamed to the destination
// only after the last byte arrived, so an interrupted task never leaves a
// truncated file under the final name.
type Task struct {
	item   model.WorkItem
	client *mchttp.Client
	fs     afero.Fs
	opts   TaskOptions
	log    *slog.Logger

	state     atomic.Int32
	started   atomic.Bool
	cancelled atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewTask creates a queued task for item.
func NewTask(item model.WorkItem, client *mchttp.Client, fs afero.Fs, opts TaskOptions) *Task {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	t := &Task{
		item:   item,
		client: client,
		fs:     fs,
		opts:   opts,
		log:    logging.OrNop(opts.Logger),
	}
	t.state.Store(int32(model.StateQueued))
	return t
}

// ID returns the work item id.
func (t *Task) ID() string {
	return t.item.ID
}

// Item returns the work item the task fetches.
func (t *Task) Item() model.WorkItem {
	return t.item
}

// State returns the current lifecycle state.
func (t *Task) State() model.TaskState {
	return model.TaskState(t.state.Load())
}

// Cancel asks the task to stop. A running transfer notices at the next
// chunk boundary; a blocked read is unblocked by cancelling the request.
// Cancelling a finished task has no effect.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run performs the download and returns its single terminal Result.
//
// Download failures are reported in the Result, not as an error. The
// error is non-nil only when the task was already run.
func (t *Task) Run(ctx context.Context) (Result, error) {
	if !t.started.CompareAndSwap(false, true) {
		return Result{}, ErrTaskStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	t.state.Store(int32(model.StateRunning))
	res := t.run(ctx)
	t.state.Store(int32(res.State))

	t.log.Debug("task finished", "id", t.item.ID, "state", res.State.String(), "bytes", res.Bytes)
	return res, nil
}

func (t *Task) run(ctx context.Context) Result {
	if t.stopped(ctx) {
		return t.cancelledResult(0)
	}

	dest := t.item.Path
	if err := ioutils.EnsureParentDir(t.fs, dest); err != nil {
		return t.failed(&FilesystemError{Op: "mkdir", Path: filepath.Dir(dest), Err: err}, 0)
	}

	resp, err := t.client.Open(ctx, t.item.URL)
	if err != nil {
		if t.stopped(ctx) {
			return t.cancelledResult(0)
		}
		return t.failed(err, 0)
	}
	defer resp.Body.Close()

	part := dest + partSuffix
	f, err := t.fs.Create(part)
	if err != nil {
		return t.failed(&FilesystemError{Op: "create", Path: part, Err: err}, 0)
	}

	written, err := t.copy(ctx, f, resp, part)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = &FilesystemError{Op: "close", Path: part, Err: closeErr}
	}
	if err != nil {
		t.discard(part)
		if errors.Is(err, ErrCancelled) {
			return t.cancelledResult(written)
		}
		return t.failed(err, written)
	}

	if err := t.fs.Rename(part, dest); err != nil {
		t.discard(part)
		return t.failed(&FilesystemError{Op: "rename", Path: dest, Err: err}, written)
	}

	return Result{
		ID:      t.item.ID,
		State:   model.StateSucceeded,
		Success: true,
		Message: fmt.Sprintf("downloaded %s", filepath.Base(dest)),
		Bytes:   written,
	}
}

// copy streams the body in fixed chunks, reporting progress after each one.
func (t *Task) copy(ctx context.Context, w io.Writer, resp *mchttp.Response, part string) (int64, error) {
	pw := &mchttp.ProgressWriter{
		Writer: w,
		Total:  resp.Total,
		OnUpdate: func(written, total int64) {
			if t.opts.OnProgress != nil {
				t.opts.OnProgress(Progress{ID: t.item.ID, Received: written, Total: total})
			}
		},
	}

	buf := make([]byte, t.opts.ChunkSize)
	for {
		if t.stopped(ctx) {
			return pw.Written, ErrCancelled
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := pw.Write(buf[:n]); err != nil {
				return pw.Written, &FilesystemError{Op: "write", Path: part, Err: err}
			}
		}

		switch {
		case readErr == io.EOF:
			return pw.Written, nil
		case readErr != nil:
			if t.stopped(ctx) {
				return pw.Written, ErrCancelled
			}
			return pw.Written, &mchttp.TransportError{URL: t.item.URL, Err: readErr}
		}
	}
}

// stopped reports whether the task was cancelled directly or through ctx.
func (t *Task) stopped(ctx context.Context) bool {
	return t.cancelled.Load() || ctx.Err() != nil
}

func (t *Task) discard(part string) {
	if err := ioutils.RemoveBestEffort(t.fs, part); err != nil {
		t.log.Debug("remove partial file failed", "path", part, "error", err)
	}
}

func (t *Task) failed(err error, written int64) Result {
	return Result{
		ID:      t.item.ID,
		State:   model.StateFailed,
		Message: fmt.Sprintf("%s: %v", filepath.Base(t.item.Path), err),
		Err:     err,
		Bytes:   written,
	}
}

func (t *Task) cancelledResult(written int64) Result {
	return cancelledResult(t.item.ID, written)
}

func cancelledResult(id string, written int64) Result {
	return Result{
		ID:      id,
		State:   model.StateCancelled,
		Message: ErrCancelled.Error(),
		Err:     ErrCancelled,
		Bytes:   written,
	}
}
