package download

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTaskStarted is returned when Run is called on a task that already ran.
	ErrTaskStarted = errors.New("task already started")

	// ErrDuplicateItem is returned by Submit when an item id is repeated
	// within the batch or is already tracked by the scheduler.
	ErrDuplicateItem = errors.New("duplicate work item id")

	// ErrNothingToDownload is returned by Manager.Initialize when no
	// requested release could be resolved.
	ErrNothingToDownload = errors.New("nothing to download")

	// ErrCancelled is the Err of a Result whose task was cancelled.
	ErrCancelled = errors.New("download cancelled")
)

// FilesystemError reports a local disk failure while writing a download.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// BatchError lists the items that did not end up on disk after all retries.
type BatchError struct {
	Failed    []string
	Cancelled []string
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d item(s) failed", len(e.Failed))
	if len(e.Cancelled) > 0 {
		fmt.Fprintf(&b, ", %d cancelled", len(e.Cancelled))
	}
	if len(e.Failed) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Failed, ", "))
	}
	return b.String()
}
