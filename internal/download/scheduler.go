package download

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/afero"

	mchttp "github.com/handiism/mc-downloader/internal/http"
	"github.com/handiism/mc-downloader/internal/logging"
	"github.com/handiism/mc-downloader/internal/model"
)

// DefaultConcurrency is the number of tasks a Scheduler runs at once.
const DefaultConcurrency = 3

// Option configures a Scheduler or a Manager. Options that do not apply
// to the component being built are ignored.
type Option func(*options)

type options struct {
	concurrency int
	chunkSize   int
	onProgress  func(Progress)
	onComplete  func(Result)
	log         *slog.Logger
	fs          afero.Fs
	events      Events
}

// WithConcurrency sets how many tasks may run at once.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithChunkSize sets the read size of streaming downloads.
func WithChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

// WithProgress sets the callback invoked after every received chunk.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) { o.onProgress = fn }
}

// WithCompletion sets the callback invoked once per item with its terminal Result.
func WithCompletion(fn func(Result)) Option {
	return func(o *options) { o.onComplete = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithFs sets the filesystem downloads are written to.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithEvents sets the Manager's user-facing callbacks.
func WithEvents(e Events) Option {
	return func(o *options) { o.events = e }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency <= 0 {
		o.concurrency = DefaultConcurrency
	}
	if o.chunkSize <= 0 {
		o.chunkSize = DefaultChunkSize
	}
	o.log = logging.OrNop(o.log)
	return o
}

// Stats is a snapshot of the scheduler's bookkeeping.
type Stats struct {
	Limit   int
	Active  int
	Tracked int
	Pending int
}

type queued struct {
	item  model.WorkItem
	batch *Batch
}

type running struct {
	task  *Task
	batch *Batch
}

// Scheduler runs work items with at most a fixed number in flight.
//
// Items are admitted in submission order. A slot is refilled each time a
// running task finishes, so the number of running tasks never exceeds the
// limit. Every submitted item produces exactly one terminal Result through
// the completion callback and its Batch.
//
// Callbacks are invoked without the scheduler lock held and may call back
// into the Scheduler. Progress and completion callbacks run on task
// goroutines and must be safe for concurrent use.
//
// Example usage:
//
//	s := download.NewScheduler(client, afero.NewOsFs(),
//	    download.WithConcurrency(3),
//	    download.WithCompletion(func(r download.Result) {
//	        fmt.Println(r.ID, r.State)
//	    }),
//	)
//
//	batch, err := s.Submit(items, nil)
//	if err != nil {
//	    return err
//	}
//	<-batch.Done()
type Scheduler struct {
	client *mchttp.Client
	fs     afero.Fs
	opts   options
	log    *slog.Logger

	mu      sync.Mutex
	active  int
	pending []queued
	queued  map[string]struct{}
	tasks   map[string]*running
}

// NewScheduler creates a Scheduler writing through fs.
func NewScheduler(client *mchttp.Client, fs afero.Fs, opts ...Option) *Scheduler {
	o := buildOptions(opts)
	return &Scheduler{
		client: client,
		fs:     fs,
		opts:   o,
		log:    o.log,
		queued: make(map[string]struct{}),
		tasks:  make(map[string]*running),
	}
}

// Limit returns the maximum number of concurrently running tasks.
func (s *Scheduler) Limit() int {
	return s.opts.concurrency
}

// Submit appends items to the pending queue and starts as many as the
// limit allows.
//
// onBatchComplete, if non-nil, is called exactly once after the last item
// of this batch reported its Result. An empty batch completes before
// Submit returns. If any id is repeated within items or is already
// tracked, nothing is enqueued and ErrDuplicateItem is returned.
func (s *Scheduler) Submit(items []model.WorkItem, onBatchComplete func()) (*Batch, error) {
	b := newBatch(len(items), onBatchComplete)
	if len(items) == 0 {
		s.log.Debug("empty batch submitted", "batch", b.ID)
		b.finish()
		return b, nil
	}

	s.mu.Lock()
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		_, dup := seen[item.ID]
		if dup || s.trackedLocked(item.ID) {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	for _, item := range items {
		s.pending = append(s.pending, queued{item: item, batch: b})
		s.queued[item.ID] = struct{}{}
	}
	started := s.admitLocked(s.opts.concurrency)
	s.mu.Unlock()

	s.log.Debug("batch submitted", "batch", b.ID, "items", len(items), "started", len(started))
	for _, r := range started {
		go s.run(r)
	}
	return b, nil
}

// Cancel stops the item with the given id. A running item is cancelled
// cooperatively and reports its Result when it stops; a queued item is
// removed and reported as cancelled immediately. It returns false when
// the id is not tracked.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	if r, ok := s.tasks[id]; ok {
		s.mu.Unlock()
		r.task.Cancel()
		return true
	}
	for i, q := range s.pending {
		if q.item.ID != id {
			continue
		}
		s.pending = append(s.pending[:i:i], s.pending[i+1:]...)
		delete(s.queued, id)
		s.mu.Unlock()

		s.log.Debug("queued item cancelled", "id", id)
		s.deliver(q.batch, cancelledResult(id, 0))
		return true
	}
	s.mu.Unlock()
	return false
}

// State returns the state of a tracked item.
func (s *Scheduler) State(id string) (model.TaskState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.tasks[id]; ok {
		return r.task.State(), true
	}
	if _, ok := s.queued[id]; ok {
		return model.StateQueued, true
	}
	return 0, false
}

// ActiveIDs returns the ids of running items.
func (s *Scheduler) ActiveIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	return ids
}

// PendingIDs returns the ids of queued items in admission order.
func (s *Scheduler) PendingIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.pending))
	for i, q := range s.pending {
		ids[i] = q.item.ID
	}
	return ids
}

// Stats returns a consistent snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Limit:   s.opts.concurrency,
		Active:  s.active,
		Tracked: len(s.tasks),
		Pending: len(s.pending),
	}
}

func (s *Scheduler) trackedLocked(id string) bool {
	if _, ok := s.tasks[id]; ok {
		return true
	}
	_, ok := s.queued[id]
	return ok
}

// admitLocked moves up to n items from the queue head into the active
// table without exceeding the limit. The caller starts the returned tasks
// after releasing the lock.
func (s *Scheduler) admitLocked(n int) []*running {
	var started []*running
	for len(started) < n && s.active < s.opts.concurrency && len(s.pending) > 0 {
		q := s.pending[0]
		s.pending[0] = queued{}
		s.pending = s.pending[1:]
		delete(s.queued, q.item.ID)

		task := NewTask(q.item, s.client, s.fs, TaskOptions{
			ChunkSize:  s.opts.chunkSize,
			OnProgress: s.opts.onProgress,
			Logger:     s.log,
		})
		r := &running{task: task, batch: q.batch}
		s.tasks[q.item.ID] = r
		s.active++
		started = append(started, r)
	}
	return started
}

func (s *Scheduler) run(r *running) {
	res, err := r.task.Run(context.Background())
	if err != nil {
		res = Result{ID: r.task.ID(), State: model.StateFailed, Message: err.Error(), Err: err}
	}

	s.mu.Lock()
	s.active--
	delete(s.tasks, res.ID)
	s.mu.Unlock()

	s.deliver(r.batch, res)

	s.mu.Lock()
	next := s.admitLocked(1)
	s.mu.Unlock()
	for _, nr := range next {
		go s.run(nr)
	}
}

// deliver emits the terminal Result of one item and completes its batch
// when it was the last one.
func (s *Scheduler) deliver(b *Batch, res Result) {
	if s.opts.onComplete != nil {
		s.opts.onComplete(res)
	}
	if b.record(res) {
		s.log.Debug("batch complete", "batch", b.ID, "items", b.Size)
		b.finish()
	}
}
