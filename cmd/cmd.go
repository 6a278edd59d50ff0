// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// runCommand starts the gesture daemon
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"start"},
		Usage:   "Watch the camera and control Spotify with gestures",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show the live monitor (logs go to a file)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Show the camera window with landmarks drawn",
			},
			&cli.BoolFlag{
				Name:  "serve",
				Usage: "Serve /status and the /events websocket feed",
			},
			&cli.IntFlag{
				Name:  "device",
				Usage: "Camera device index (overrides camera.device_id)",
				Value: -1,
			},
		},
		Action: r.Run,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify in the browser and cache the token",
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the authorized account and whether it can control playback",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// devicesCommand lists Spotify Connect devices
func devicesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List available Spotify devices",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Devices,
	}
}

// historyCommand reads the dispatch history database
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect recorded gesture dispatches",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print recent dispatches",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				}, historyFilterFlags()...),
				Action: r.HistoryList,
			},
			{
				Name:  "export",
				Usage: "Write dispatches to a CSV, Markdown or text file",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, markdown or text",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				}, historyFilterFlags()...),
				Action: r.HistoryExport,
			},
			{
				Name:   "purge",
				Usage:  "Permanently remove soft-deleted dispatches",
				Action: r.HistoryPurge,
			},
		},
	}
}

// historyFilterFlags builds fresh filter flags for each history subcommand.
func historyFilterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "action",
			Usage: "Only show one action (NEXT_TRACK, PREV_TRACK, PLAY_PAUSE, VOLUME_SET)",
		},
		&cli.StringFlag{
			Name:  "outcome",
			Usage: "Only show one outcome (ok, skipped, dropped, retry_scheduled)",
		},
		&cli.DurationFlag{
			Name:  "since",
			Usage: "Only show dispatches newer than this (e.g. 1h)",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of rows",
			Value: 50,
		},
	}
}

// setupCommand creates the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml from the template and initialize the history database",
		Action: r.Setup,
	}
}
