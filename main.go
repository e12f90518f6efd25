package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "conformance",
		Usage: "storefront API conformance harness",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file (default config/config.yaml)",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "dotenv files to load; existing environment variables win",
				Value: cli.NewStringSlice(".env"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "backend base URL",
				EnvVars: []string{"CONFORMANCE_BASE_URL"},
			},
			&cli.StringFlag{
				Name:  "catalog-dir",
				Usage: "load endpoint catalogs from this directory instead of the built-in ones",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text, json or pretty",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			listCommand(),
			lintCommand(),
			generateCommand(),
			mockCommand(),
			historyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
