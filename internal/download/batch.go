package download

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/handiism/mc-downloader/internal/model"
)

// Batch tracks the items of one Submit call.
//
// Done is closed once every item produced its terminal Result. Results
// arrive in completion order, which is not submission order.
type Batch struct {
	ID   string
	Size int

	done       chan struct{}
	onComplete func()

	mu        sync.Mutex
	remaining int
	results   []Result
}

func newBatch(size int, onComplete func()) *Batch {
	return &Batch{
		ID:         uuid.NewString(),
		Size:       size,
		done:       make(chan struct{}),
		onComplete: onComplete,
		remaining:  size,
		results:    make([]Result, 0, size),
	}
}

// Done is closed when the batch has completed.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the batch completes or ctx is done.
func (b *Batch) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the terminal results received so far.
func (b *Batch) Results() []Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Result, len(b.results))
	copy(out, b.results)
	return out
}

// Failed returns the results that ended in StateFailed.
func (b *Batch) Failed() []Result {
	var failed []Result
	for _, r := range b.Results() {
		if r.State == model.StateFailed {
			failed = append(failed, r)
		}
	}
	return failed
}

// record stores res and reports whether it was the last outstanding result.
func (b *Batch) record(res Result) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, res)
	b.remaining--
	return b.remaining == 0
}

func (b *Batch) finish() {
	close(b.done)
	if b.onComplete != nil {
		b.onComplete()
	}
}
