package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/rentgeo/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "rentgeo",
		Usage: "Derive location features for London rental listings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"RENTGEO_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Database file, overrides the configuration",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Reference data directory, overrides the configuration",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log debug messages to stderr",
			},
		},
		Commands: []*cli.Command{
			importCommand(),
			fetchCommand(),
			featuresCommand(),
			enrichCommand(),
			checkCommand(),
			popularCommand(),
			pruneCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelWarn
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if db := c.String("db"); db != "" {
		cfg.Database = db
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}
