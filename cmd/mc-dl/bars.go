package main

import (
	"io"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/handiism/mc-downloader/internal/download"
	"github.com/handiism/mc-downloader/internal/model"
)

// barView draws one bar for the whole run plus one per running file.
// Bars appear on a file's first progress event and are dropped when it ends.
type barView struct {
	p        *mpb.Progress
	style    mpb.BarFillerBuilder
	progress func() (received, total int64, filesDone, filesTotal int32)

	mu    sync.Mutex
	names map[string]string
	bars  map[string]*mpb.Bar
	total *mpb.Bar
}

func newBarView(out io.Writer) *barView {
	return &barView{
		p: mpb.New(
			mpb.WithOutput(out),
			mpb.WithWidth(48),
			mpb.WithRefreshRate(120*time.Millisecond),
		),
		style: mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
		names: make(map[string]string),
		bars:  make(map[string]*mpb.Bar),
	}
}

// Start adds the overall bar. items provide the per-file labels.
func (v *barView) Start(items []model.WorkItem, total int64, progress func() (int64, int64, int32, int32)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, item := range items {
		v.names[item.ID] = displayName(item)
	}
	v.progress = progress

	name := "Total"
	v.total = v.p.New(0, v.style,
		mpb.BarPriority(-1),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "Complete",
			),
		),
		mpb.AppendDecorators(
			decor.Counters(decor.SizeB1024(0), "% .1f / % .1f"),
			decor.Name(" "),
			decor.AverageSpeed(decor.SizeB1024(0), "% .2f"),
		),
	)
	if total > 0 {
		v.total.SetTotal(total, false)
	}
}

// Progress updates the file's bar, creating it on first use.
func (v *barView) Progress(pr download.Progress) {
	v.mu.Lock()
	bar, ok := v.bars[pr.ID]
	if !ok {
		name := v.names[pr.ID]
		if name == "" {
			name = pr.ID
		}
		bar = v.p.New(0, v.style,
			mpb.BarRemoveOnComplete(),
			mpb.PrependDecorators(
				decor.Name(name, decor.WC{W: 28, C: decor.DindentRight}),
			),
			mpb.AppendDecorators(
				decor.Counters(decor.SizeB1024(0), "% .1f / % .1f"),
			),
		)
		if pr.Total > 0 {
			bar.SetTotal(pr.Total, false)
		}
		v.bars[pr.ID] = bar
	}
	total := v.total
	progress := v.progress
	v.mu.Unlock()

	bar.SetCurrent(pr.Received)
	if pr.Total <= 0 {
		bar.SetTotal(pr.Received, false)
	}
	if total != nil && progress != nil {
		received, _, _, _ := progress()
		total.SetCurrent(received)
	}
}

// Complete drops the file's bar.
func (v *barView) Complete(res download.Result) {
	v.mu.Lock()
	bar, ok := v.bars[res.ID]
	delete(v.bars, res.ID)
	v.mu.Unlock()
	if !ok {
		return
	}
	if res.Success {
		bar.SetTotal(-1, true)
		return
	}
	bar.Abort(true)
}

// Print writes a line above the bars.
func (v *barView) Print(line string) {
	v.p.Write([]byte(line))
}

// Finish completes the overall bar and waits for rendering to end.
func (v *barView) Finish(ok bool) {
	v.mu.Lock()
	total := v.total
	for id, bar := range v.bars {
		bar.Abort(true)
		delete(v.bars, id)
	}
	v.mu.Unlock()

	if total != nil {
		if ok {
			total.SetTotal(-1, true)
		} else {
			total.Abort(false)
		}
	}
	v.p.Wait()
}

// Abort stops rendering before any download started.
func (v *barView) Abort() {
	v.Finish(false)
}
