package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/muesli/gominatim"
	"github.com/urfave/cli/v2"

	"github.com/rubiojr/rentgeo/internal/rentgeo"
	"github.com/rubiojr/rentgeo/pkg/features"
	"github.com/rubiojr/rentgeo/pkg/geo"
)

func featuresCommand() *cli.Command {
	return &cli.Command{
		Name:  "features",
		Usage: "Print the location features of a coordinate",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "location",
				Usage: "Place name to geocode",
			},
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "Latitude of the location",
			},
			&cli.Float64Flag{
				Name:  "long",
				Usage: "Longitude of the location",
			},
			&cli.BoolFlag{
				Name:  "no-log",
				Usage: "Do not record the lookup in the location log",
			},
			fromDBFlag,
		},
		Action: featuresAction,
	}
}

func featuresAction(c *cli.Context) error {
	ctx := context.Background()
	logger := newLogger(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	var point geo.Coordinate
	switch {
	case c.String("location") != "":
		point, err = geocode(c.String("location"))
		if err != nil {
			return err
		}
	case c.IsSet("lat") && c.IsSet("long"):
		point = geo.Coordinate{Lat: c.Float64("lat"), Lon: c.Float64("long")}
	default:
		return errors.New("location or latitude and longitude are required")
	}
	if err := point.Validate(); err != nil {
		return err
	}

	ref, err := loadReference(ctx, c, cfg, logger)
	if err != nil {
		return err
	}
	rec := features.NewResolver(ref, cfg.ResolverOptions()).Features(point)

	if !c.Bool("no-log") {
		logLookup(ctx, cfg.Database, point, logger)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func logLookup(ctx context.Context, dbPath string, point geo.Coordinate, logger *slog.Logger) {
	storage, err := rentgeo.NewStorage(ctx, dbPath, logger)
	if err != nil {
		logger.Error("Failed to open location log", "error", err)
		return
	}
	defer storage.Close()

	if err := storage.LogLocation(ctx, point); err != nil {
		logger.Error("Failed to log location", "error", err)
		return
	}
	logger.Debug("Location logged", "latitude", point.Lat, "longitude", point.Lon)
}

func geocode(name string) (geo.Coordinate, error) {
	gominatim.SetServer("https://nominatim.openstreetmap.org/")
	qry := gominatim.SearchQuery{
		Q: name,
	}

	resp, err := qry.Get()
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("error geocoding %q: %w", name, err)
	}
	if len(resp) == 0 {
		return geo.Coordinate{}, fmt.Errorf("location %q not found", name)
	}
	fmt.Fprintln(os.Stderr, "Location found:", resp[0].DisplayName)

	lat, err := strconv.ParseFloat(resp[0].Lat, 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	lon, err := strconv.ParseFloat(resp[0].Lon, 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	return geo.Coordinate{Lat: lat, Lon: lon}, nil
}
