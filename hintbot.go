package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hintbot/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "hintbot",
		Usage:   "Discord bot that turns topic hints into LinkedIn and X posts",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default: ./hintbot.toml, then ~/.hintbot.toml)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			cmd.ServeCommand(),
			cmd.RegisterCommand(),
			cmd.GenerateCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
