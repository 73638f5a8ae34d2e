package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli"

	"github.com/handiism/mc-downloader/internal/config"
	"github.com/handiism/mc-downloader/internal/logging"
)

var (
	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "path to the settings file (default: user config dir)",
		},
		cli.StringFlag{
			Name:  "output, o",
			Usage: "game directory downloads are written to",
		},
		cli.StringFlag{
			Name:  "mirror, m",
			Usage: "mirror base URL",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		cli.StringFlag{
			Name:  "log-format",
			Usage: "text or json",
		},
		cli.StringFlag{
			Name:  "log-file",
			Usage: "append logs to this file instead of stderr",
		},
	}

	componentsFlag = cli.StringFlag{
		Name:  "components",
		Usage: "comma separated parts to fetch: json, client, libraries",
	}

	listFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "type, t",
			Usage: "only show releases of this type (release, snapshot, old_beta, old_alpha)",
		},
		cli.IntFlag{
			Name:  "limit, n",
			Usage: "show at most this many entries (0 = all)",
		},
	}

	downloadFlags = []cli.Flag{
		componentsFlag,
		cli.IntFlag{
			Name:  "concurrency, c",
			Usage: "number of simultaneous downloads",
		},
		cli.IntFlag{
			Name:  "retries",
			Usage: "retry failed files this many times",
		},
		cli.BoolFlag{
			Name:  "verify",
			Usage: "check SHA-1 of downloaded files",
		},
		cli.BoolFlag{
			Name:  "force, f",
			Usage: "download files even if they already exist",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "show every file as it completes",
		},
		cli.BoolFlag{
			Name:  "no-progress",
			Usage: "do not draw progress bars",
		},
		cli.BoolFlag{
			Name:  "dry-run",
			Usage: "resolve releases without downloading",
		},
	}
)

// loadSettings reads the settings file and applies global and command
// flags on top of it.
func loadSettings(ctx *cli.Context) (*config.Settings, error) {
	path := ctx.GlobalString("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if v := ctx.GlobalString("output"); v != "" {
		settings.DownloadsPath = v
	}
	if v := ctx.GlobalString("mirror"); v != "" {
		settings.MirrorBaseURL = strings.TrimRight(v, "/")
	}
	if v := ctx.GlobalString("log-level"); v != "" {
		settings.LogLevel = v
	}
	if v := ctx.GlobalString("log-format"); v != "" {
		settings.LogFormat = v
	}
	if v := ctx.GlobalString("log-file"); v != "" {
		settings.LogFile = v
	}

	if v := ctx.String("components"); v != "" {
		settings.Components = splitList(v)
	}
	if v := ctx.Int("concurrency"); v > 0 {
		settings.MaxConcurrentDownloads = v
	}
	if v := ctx.Int("retries"); v > 0 {
		settings.DownloadMaxRetries = v
	}
	if ctx.Bool("verify") {
		settings.VerifyChecksums = true
	}
	if ctx.Bool("force") {
		settings.SkipExisting = false
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

// newLogger builds the structured logger. Without a log file and an
// explicit level, only warnings reach stderr: user-facing messages are
// printed separately.
func newLogger(ctx *cli.Context, settings *config.Settings) (*slog.Logger, func() error, error) {
	level := settings.LogLevel
	if settings.LogFile == "" && !ctx.GlobalIsSet("log-level") {
		level = "warn"
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: settings.LogFormat,
		File:   settings.LogFile,
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
