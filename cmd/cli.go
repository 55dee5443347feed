// Package cmd implements the eightball command-line application.
package cmd

import (
	"os"

	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v2"

	"github.com/user/eightball-blue/config"
	"github.com/user/eightball-blue/logger"
)

// These values are set at compile-time.
var (
	Version  = "dev"
	Revision = ""
)

// Run runs the commandline application.
func Run() error {
	return newApp().Run(os.Args)
}

// newApp returns a new commandline application.
func newApp() *cli.App {
	cfg := config.NewConfig()

	return &cli.App{
		Name:                   "eightball",
		Usage:                  "Bluetooth Magic 8-Ball.",
		Version:                Version + " (" + Revision + ")",
		Description:            "Ask a question over BLE and get a randomized answer.",
		UseShortOptionHandling: true,
		Suggest:                true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				EnvVars: []string{"EIGHTBALL_CONFIG"},
				Usage:   "Path to the configuration file.",
			},
			&cli.StringFlag{
				Name:    "device-name",
				Aliases: []string{"n"},
				EnvVars: []string{"EIGHTBALL_DEVICE_NAME"},
				Usage:   "Display name advertised to / shown by peers.",
			},
			&cli.IntFlag{
				Name:  "rssi-min",
				Usage: "Minimum acceptable RSSI for scan results (dBm).",
			},
			&cli.IntFlag{
				Name:  "rssi-max",
				Usage: "Maximum acceptable RSSI for scan results (dBm).",
			},
			&cli.IntFlag{
				Name:  "answer-timeout",
				Usage: "Seconds to wait for an answer notification.",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"L"},
				EnvVars: []string{"EIGHTBALL_LOG_LEVEL"},
				Usage:   "Log level (trace, debug, info, warn, error).",
			},
		},
		Before: func(ctx *cli.Context) error {
			if path := ctx.String("config"); path != "" {
				cfg.SetPath(path)
			}
			if err := cfg.Load(koanf.New("."), ctx); err != nil {
				return err
			}
			cfg.Values.Apply()
			logger.DebugJSON("config", "loaded configuration", cfg.Values)
			return nil
		},
		Commands: []*cli.Command{
			demoCommand(cfg),
			centralCommand(cfg),
			peripheralCommand(cfg),
		},
	}
}
