package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"

	"github.com/handiism/mc-downloader/internal/download"
	"github.com/handiism/mc-downloader/internal/manifest"
	"github.com/handiism/mc-downloader/internal/model"
)

// exitCancelled is the conventional exit status after SIGINT.
const exitCancelled = 130

var errCancelled = errors.New("download cancelled")

func exitCode(err error) int {
	if errors.Is(err, errCancelled) {
		return exitCancelled
	}
	return 1
}

func runList(ctx *cli.Context) error {
	settings, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(ctx, settings)
	if err != nil {
		return err
	}
	defer closeLog()

	client := manifest.NewClient(
		manifest.WithBaseURL(settings.MirrorBaseURL),
		manifest.WithLogger(log),
	)
	runCtx, stop := signalContext()
	defer stop()

	releases, err := client.FetchReleases(runCtx)
	if err != nil {
		return fmt.Errorf("list releases: %w", err)
	}

	if t := ctx.String("type"); t != "" {
		releases = manifest.FilterByType(releases, t)
	}
	if n := ctx.Int("limit"); n > 0 && n < len(releases) {
		releases = releases[:n]
	}

	out := ctx.App.Writer
	latest := client.Latest()
	fmt.Fprintf(out, "Latest release: %s, latest snapshot: %s\n\n", latest.Release, latest.Snapshot)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tRELEASED")
	for _, r := range releases {
		released := "-"
		if !r.ReleaseTime.IsZero() {
			released = fmt.Sprintf("%s (%s)", r.ReleaseTime.Format("2006-01-02"), humanize.Time(r.ReleaseTime))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Type, released)
	}
	return tw.Flush()
}

func runResolve(ctx *cli.Context) error {
	id := ctx.Args().First()
	if id == "" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	settings, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(ctx, settings)
	if err != nil {
		return err
	}
	defer closeLog()

	client := manifest.NewClient(
		manifest.WithBaseURL(settings.MirrorBaseURL),
		manifest.WithLogger(log),
	)
	runCtx, stop := signalContext()
	defer stop()

	desc, err := client.LookupDescriptor(runCtx, id)
	if err != nil {
		return err
	}

	items := manifest.NewResolver(settings.MirrorBaseURL).ExpandOnly(desc, settings.DownloadsPath, settings.ArtifactKinds()...)

	out := ctx.App.Writer
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSIZE\tPATH\tURL")
	var total int64
	for _, item := range items {
		total += item.Size
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.Kind, formatSize(item.Size), item.Path, item.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d file(s), %s\n", len(items), humanize.Bytes(uint64(total)))
	return nil
}

func runDownload(ctx *cli.Context) error {
	if !ctx.Args().Present() {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	settings, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(ctx, settings)
	if err != nil {
		return err
	}
	defer closeLog()

	out := &lockedWriter{w: ctx.App.Writer}
	verbose := ctx.Bool("verbose")

	var view *barView
	if !ctx.Bool("no-progress") && !ctx.Bool("dry-run") {
		view = newBarView(out)
	}

	printer := func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !verbose {
			return
		}
		line := levelPrefix(event.Level) + event.Message + "\n"
		if view != nil {
			view.Print(line)
			return
		}
		fmt.Fprint(out, line)
	}

	events := download.Events{OnMessage: printer}
	if view != nil {
		events.OnProgress = view.Progress
		events.OnComplete = view.Complete
	}

	manager := download.NewManager(settings,
		download.WithLogger(log),
		download.WithEvents(events),
	)

	runCtx, stop := signalContext()
	defer stop()

	fmt.Fprintln(out, "⛏  MC Downloader")
	fmt.Fprintln(out)

	if err := manager.Initialize(runCtx, ctx.Args()); err != nil {
		if view != nil {
			view.Abort()
		}
		return err
	}

	if ctx.Bool("dry-run") {
		for _, item := range manager.Items() {
			fmt.Fprintf(out, "  %-9s %8s  %s\n", item.Kind, formatSize(item.Size), item.Path)
		}
		fmt.Fprintln(out, "\n[Dry run - not downloading]")
		return nil
	}

	_, total, _, filesTotal := manager.GetProgress()
	if view != nil {
		view.Start(manager.Items(), total, manager.GetProgress)
	}
	fmt.Fprintf(out, "Downloading %d file(s), %s into %s\n", filesTotal, humanize.Bytes(uint64(total)), settings.DownloadsPath)

	err = manager.StartDownloads(runCtx)
	if view != nil {
		view.Finish(err == nil)
	}
	if err != nil {
		if runCtx.Err() != nil {
			return errCancelled
		}
		return err
	}

	received, _, filesDone, filesTotal := manager.GetProgress()
	fmt.Fprintf(out, "\n✨ Complete! Downloaded %d/%d files (%s)\n", filesDone, filesTotal, humanize.Bytes(uint64(max(received, 0))))
	return nil
}

// lockedWriter serializes writes coming from download goroutines, the
// progress renderer and the command itself.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// signalContext is cancelled on SIGINT or SIGTERM. The returned stop
// function releases the signal handler and must be called.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func levelPrefix(level download.ProgressLevel) string {
	switch level {
	case download.LevelError:
		return "❌ "
	case download.LevelWarning:
		return "⚠️  "
	case download.LevelSuccess:
		return "✅ "
	case download.LevelInfo:
		return "ℹ️  "
	default:
		return "   "
	}
}

func formatSize(n int64) string {
	if n <= 0 {
		return "?"
	}
	return humanize.Bytes(uint64(n))
}

// displayName is the label shown for a work item in progress output.
func displayName(item model.WorkItem) string {
	return filepath.Base(item.Path)
}
