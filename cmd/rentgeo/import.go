package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/rentgeo/internal/rentgeo"
	"github.com/rubiojr/rentgeo/pkg/spatial"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Archive the reference datasets of a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Directory holding the datasets, defaults to the configured data directory",
			},
		},
		Action: importAction,
	}
}

func importAction(c *cli.Context) error {
	ctx := context.Background()
	logger := newLogger(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	dir := c.String("dir")
	if dir == "" {
		dir = cfg.DataDir
	}

	sources, err := spatial.ReadSources(dir, cfg.Files)
	if err != nil {
		return err
	}
	ref, err := spatial.Build(sources, cfg.LoadOptions())
	if err != nil {
		return err
	}

	storage, err := rentgeo.NewStorage(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	defer storage.Close()

	n, err := storage.SaveDatasets(ctx, sources)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %s\n", ref)
	fmt.Printf("Archived %d new dataset versions in %s\n", n, cfg.Database)
	return nil
}
