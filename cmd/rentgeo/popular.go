package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/rentgeo/internal/rentgeo"
)

const defaultPopularLimit = 10

func popularCommand() *cli.Command {
	return &cli.Command{
		Name:  "popular",
		Usage: "List the most looked up areas",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of areas to list, 0 for all",
				Value:   defaultPopularLimit,
			},
		},
		Action: popularAction,
	}
}

func popularAction(c *cli.Context) error {
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

	areas, err := storage.PopularAreas(ctx, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(areas) == 0 {
		fmt.Println("No lookups logged.")
		return nil
	}

	for i, area := range areas {
		fmt.Printf("%d. %.4f, %.4f\n", i+1, area.Latitude, area.Longitude)
		fmt.Printf("   Lookups: %d\n", area.LookupCount)
		fmt.Printf("   Radius: %.2f km\n\n", area.Radius)
	}
	return nil
}
