package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/rentgeo/internal/rentgeo"
	"github.com/rubiojr/rentgeo/pkg/spatial"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Validate the reference data and the model feature contract",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "versions",
				Usage: "List the archived dataset versions",
			},
			fromDBFlag,
		},
		Action: checkAction,
	}
}

func checkAction(c *cli.Context) error {
	ctx := context.Background()
	logger := newLogger(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ref, err := loadReference(ctx, c, cfg, logger)
	if err != nil {
		return err
	}

	summary := ref.Summary()
	for _, kind := range spatial.Kinds {
		fmt.Printf("%-12s %d features\n", kind, summary[kind])
	}
	fmt.Printf("Station projection: %s\n", ref.Stations.Projection())
	fmt.Printf("Stations per record: %d within %g m\n", cfg.Stations.K, cfg.Stations.MaxDistanceMeters)

	if err := cfg.CheckContract(); err != nil {
		return err
	}
	fmt.Printf("Model contract OK: %d features\n", len(cfg.Model.Features()))

	if !c.Bool("versions") {
		return nil
	}

	storage, err := rentgeo.NewStorage(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	defer storage.Close()

	return printVersions(ctx, storage, os.Stdout)
}

func printVersions(ctx context.Context, storage *rentgeo.Storage, w io.Writer) error {
	if _, err := storage.LatestDatasets(ctx); err != nil {
		if errors.Is(err, rentgeo.ErrNoDatasets) {
			fmt.Fprintln(w, "No datasets archived.")
			return nil
		}
		return err
	}

	for _, kind := range spatial.Kinds {
		versions, err := storage.DatasetVersions(ctx, kind)
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Fprintf(w, "%-12s #%d %s %d features %d bytes %s\n",
				v.Kind, v.ID, v.ImportedAt.Format("2006-01-02 15:04:05"), v.Features, v.Size, v.SHA256[:12])
		}
	}
	return nil
}
