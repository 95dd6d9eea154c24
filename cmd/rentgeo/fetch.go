package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/rentgeo/internal/rentgeo"
	"github.com/rubiojr/rentgeo/pkg/source"
	"github.com/rubiojr/rentgeo/pkg/spatial"
)

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download the configured dataset sources and archive them",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "write",
				Usage: "Also write the downloaded files to the data directory",
			},
		},
		Action: fetchAction,
	}
}

func fetchAction(c *cli.Context) error {
	ctx := context.Background()
	logger := newLogger(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if len(cfg.Sources) == 0 {
		return errors.New("no dataset sources configured")
	}

	sources, err := source.NewClient().FetchAll(ctx, cfg.Sources)
	if err != nil {
		return err
	}
	for kind, data := range sources {
		logger.Debug("Downloaded dataset", "kind", kind, "bytes", len(data))
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
	fmt.Printf("Archived %d new dataset versions in %s\n", n, cfg.Database)

	if !c.Bool("write") {
		return nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("error creating data directory: %w", err)
	}
	files := spatial.DefaultFiles()
	for kind, name := range cfg.Files {
		files[kind] = name
	}
	for kind, data := range sources {
		path := filepath.Join(cfg.DataDir, files[kind])
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("error writing %s: %w", path, err)
		}
		fmt.Println("Wrote", path)
	}
	return nil
}
