package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/rentgeo/internal/rentgeo"
)

func pruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Delete old dataset versions from the archive",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "keep",
				Usage: "Versions to keep per dataset",
				Value: 3,
			},
		},
		Action: pruneAction,
	}
}

func pruneAction(c *cli.Context) error {
	ctx := context.Background()
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	storage, err := rentgeo.NewStorage(ctx, cfg.Database, newLogger(c))
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	defer storage.Close()

	deleted, err := storage.PruneDatasets(ctx, c.Int("keep"))
	if err != nil {
		return err
	}
	if err := storage.Vacuum(ctx); err != nil {
		return err
	}

	fmt.Printf("Deleted %d dataset versions\n", deleted)
	return nil
}
