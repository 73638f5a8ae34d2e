package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var version = "dev"

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "mc-dl"
	app.HelpName = "mc-dl"
	app.Usage = "Download game releases and their libraries from a mirror"
	app.UsageText = "mc-dl [global options] <command> [arguments...]"
	app.Version = version
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		{
			Name:      "list",
			Aliases:   []string{"l"},
			Usage:     "list releases known to the mirror",
			ArgsUsage: " ",
			Action:    runList,
			Flags:     listFlags,
		},
		{
			Name:      "resolve",
			Aliases:   []string{"r"},
			Usage:     "show the files a release consists of",
			ArgsUsage: "<release-id>",
			Action:    runResolve,
			Flags:     []cli.Flag{componentsFlag},
		},
		{
			Name:      "download",
			Aliases:   []string{"d"},
			Usage:     "download one or more releases",
			ArgsUsage: "<release-id>...",
			Action:    runDownload,
			Flags:     downloadFlags,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "mc-dl: %v\n", err)
		os.Exit(exitCode(err))
	}
}
