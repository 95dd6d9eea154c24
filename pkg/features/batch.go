package features

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Enricher turns one input row into an enriched row.
type Enricher interface {
	Enrich(row Row) (Row, error)
}

// BatchOptions controls EnrichBatch.
type BatchOptions struct {
	// Workers is the number of rows processed concurrently; values below 2
	// process rows one at a time.
	Workers int
	// FailFast stops the batch at the first row error and returns it.
	FailFast bool
}

// Result is the outcome of one batch row.
type Result struct {
	Index int
	Row   Row
	Err   error
}

// EnrichBatch enriches rows and returns one Result per row in input order.
// Rows are independent: a row error is recorded in its Result and does not
// affect the others, unless FailFast is set, in which case scheduling stops
// and the first failure is returned as a *RowError. Rows never scheduled
// have a nil Row and nil Err.
func EnrichBatch(ctx context.Context, e Enricher, rows []Row, opts BatchOptions) ([]Result, error) {
	results := make([]Result, len(rows))
	for i := range results {
		results[i].Index = i
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, row := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := e.Enrich(row)
			results[i].Row = out
			results[i].Err = err
			if err != nil && opts.FailFast {
				return &RowError{Index: i, Err: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Rows returns the enriched rows of successful results, in order.
func Rows(results []Result) []Row {
	out := make([]Row, 0, len(results))
	for _, r := range results {
		if r.Err == nil && r.Row != nil {
			out = append(out, r.Row)
		}
	}
	return out
}

// Errors returns the per-row errors of a batch.
func Errors(results []Result) []*RowError {
	var out []*RowError
	for _, r := range results {
		if r.Err != nil {
			out = append(out, &RowError{Index: r.Index, Err: r.Err})
		}
	}
	return out
}
