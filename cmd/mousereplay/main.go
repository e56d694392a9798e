// Mouse Replay - records mouse input and replays it on demand or on a schedule
package main

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"mousereplay/internal/config"
)

var version = "0.3.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "mousereplay"
	app.HelpName = "mousereplay"
	app.Usage = "record mouse input and replay it on demand or on a schedule"
	app.UsageText = "mousereplay [--config FILE] <command> [arguments...]"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to config.json (default: the OS config directory)",
		},
	}
	app.Action = runService
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "run the recorder with hotkeys, tray and local API (default)",
			Action: runService,
			Flags:  runFlags,
		},
		{
			Name:      "play",
			Aliases:   []string{"p"},
			Usage:     "replay a recording once with a progress bar",
			ArgsUsage: "[file]",
			Action:    play,
			Flags:     playFlags,
		},
		{
			Name:      "show",
			Usage:     "print the events of a recording",
			ArgsUsage: "[file]",
			Action:    show,
		},
		{
			Name:  "schedule",
			Usage: "manage persisted schedule entries",
			Subcommands: []cli.Command{
				{
					Name:   "list",
					Usage:  "list schedule entries",
					Action: scheduleList,
				},
				{
					Name:      "add",
					Usage:     "add an entry such as \"at 14:30\", \"every 10m\" or \"cron */5 * * * *\"",
					ArgsUsage: "<entry>",
					Action:    scheduleAdd,
				},
				{
					Name:      "remove",
					Aliases:   []string{"rm"},
					Usage:     "remove an entry",
					ArgsUsage: "<entry>",
					Action:    scheduleRemove,
				},
			},
		},
		{
			Name:  "autostart",
			Usage: "start on login",
			Subcommands: []cli.Command{
				{Name: "enable", Action: autostartEnable},
				{Name: "disable", Action: autostartDisable},
				{Name: "status", Action: autostartStatus},
			},
		},
		{
			Name:    "version",
			Aliases: []string{"v"},
			Usage:   "prints the installed version",
			Action: func(ctx *cli.Context) error {
				fmt.Printf("mousereplay version %s (%s_%s)\n", version, runtime.GOOS, runtime.GOARCH)
				return nil
			},
		},
	}
	return app
}

// loadConfig loads the configuration named by --config, or the default one
func loadConfig(ctx *cli.Context) (*config.Manager, error) {
	config.LoadDotEnv()

	var cfgMgr *config.Manager
	if path := ctx.GlobalString("config"); path != "" {
		cfgMgr = config.NewManagerAt(afero.NewOsFs(), path)
	} else {
		var err error
		if cfgMgr, err = config.NewManager(); err != nil {
			return nil, fmt.Errorf("failed to initialize config: %w", err)
		}
	}
	if err := cfgMgr.Load(); err != nil {
		return nil, err
	}
	return cfgMgr, nil
}

// recordingFile is the first argument, or the configured recording
func recordingFile(ctx *cli.Context, cfgMgr *config.Manager) string {
	if f := ctx.Args().First(); f != "" {
		return f
	}
	return cfgMgr.Get().RecordingPath(cfgMgr.Dir())
}
