package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/rentgeo/internal/ingest"
	"github.com/rubiojr/rentgeo/pkg/features"
)

func enrichCommand() *cli.Command {
	return &cli.Command{
		Name:  "enrich",
		Usage: "Add location features to a file of listings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "in",
				Aliases:  []string{"i"},
				Usage:    "Input file (.csv, .json, .jsonl, .ndjson or .gpx)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file, - for stdout",
				Value:   "-",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: jsonl or csv, defaults to the output file extension",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Rows processed concurrently, overrides the configuration",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "Stop at the first invalid row",
			},
			fromDBFlag,
		},
		Action: enrichAction,
	}
}

func enrichAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.CheckContract(); err != nil {
		logger.Warn("Enriched rows do not match the model features", "error", err)
	}

	format, err := outputFormat(c.String("format"), c.String("out"))
	if err != nil {
		return err
	}

	rows, err := ingest.ReadRows(c.String("in"))
	if err != nil {
		return fmt.Errorf("error reading %s: %w", c.String("in"), err)
	}

	ref, err := loadReference(ctx, c, cfg, logger)
	if err != nil {
		return err
	}
	engine := features.NewEngine(ref, cfg.EngineOptions(), logger)

	opts := cfg.BatchOptions()
	if c.IsSet("workers") {
		opts.Workers = c.Int("workers")
	}
	if c.IsSet("fail-fast") {
		opts.FailFast = c.Bool("fail-fast")
	}

	start := time.Now()
	results, err := engine.EnrichBatch(ctx, rows, opts)
	if err != nil {
		return err
	}
	for _, rowErr := range features.Errors(results) {
		fmt.Fprintf(os.Stderr, "Skipping %v\n", rowErr)
	}

	enriched := features.Rows(results)
	if err := writeRows(c.String("out"), format, enriched, engine.K()); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Enriched %d of %d rows in %s\n", len(enriched), len(rows), time.Since(start).Round(time.Millisecond))
	return nil
}

func outputFormat(format, out string) (string, error) {
	if format == "" {
		if strings.EqualFold(filepath.Ext(out), ".csv") {
			return "csv", nil
		}
		return "jsonl", nil
	}
	switch format {
	case "jsonl", "csv":
		return format, nil
	}
	return "", fmt.Errorf("unsupported output format %q", format)
}

func writeRows(out, format string, rows []features.Row, k int) error {
	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		return ingest.WriteCSV(w, rows, ingest.Columns(rows, k))
	}
	return ingest.WriteJSONLines(w, rows)
}
