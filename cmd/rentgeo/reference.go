package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/rentgeo/internal/config"
	"github.com/rubiojr/rentgeo/internal/rentgeo"
	"github.com/rubiojr/rentgeo/pkg/spatial"
)

var fromDBFlag = &cli.BoolFlag{
	Name:  "from-db",
	Usage: "Load reference data from the archive instead of the data directory",
}

// loadReference builds the reference context from the data directory, or
// from the newest archived datasets when --from-db is set.
func loadReference(ctx context.Context, c *cli.Context, cfg *config.Config, logger *slog.Logger) (*spatial.ReferenceContext, error) {
	if !c.Bool("from-db") {
		logger.Debug("Loading reference data", "dir", cfg.DataDir)
		return spatial.Load(cfg.DataDir, cfg.LoadOptions())
	}

	storage, err := rentgeo.NewStorage(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}
	defer storage.Close()

	logger.Debug("Loading archived reference data", "db", cfg.Database)
	return storage.LoadReference(ctx, cfg.LoadOptions())
}
