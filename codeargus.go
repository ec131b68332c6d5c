package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/codeargus/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "codeargus",
		Usage:   "AI-assisted review of open change sets from GitHub and GitLab",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "codeargus.toml",
			},
		},
		Commands: []*cli.Command{
			cmd.AnalyzeCommand(),
			cmd.ConfigCommand(),
			cmd.CacheCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
