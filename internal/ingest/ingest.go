// Package ingest reads listing rows from files and writes enriched rows back.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/rubiojr/rentgeo/pkg/features"
)

const maxLineSize = 16 * 1024 * 1024

// ReadRows reads the rows of path. The format is chosen by extension: .csv,
// .json (an array of objects), .jsonl or .ndjson (one object per line) and
// .gpx (one row per waypoint).
func ReadRows(path string) ([]features.Row, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".gpx" {
		return readGPX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".csv":
		return ReadCSV(f)
	case ".json":
		return ReadJSON(f)
	case ".jsonl", ".ndjson":
		return ReadJSONLines(f)
	}
	return nil, fmt.Errorf("unsupported input format %q", ext)
}

// ReadCSV reads a CSV document with a header row. Numeric cells become
// float64, true and false become booleans and empty cells become nil.
func ReadCSV(r io.Reader) ([]features.Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	var rows []features.Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		row := make(features.Row, len(header))
		for i, name := range header {
			row[name] = parseCell(record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCell(s string) any {
	switch s {
	case "":
		return nil
	case "true", "True", "TRUE":
		return true
	case "false", "False", "FALSE":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// ReadJSON reads a JSON array of objects.
func ReadJSON(r io.Reader) ([]features.Row, error) {
	var rows []features.Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	return rows, nil
}

// ReadJSONLines reads one JSON object per line. Blank lines are skipped.
func ReadJSONLines(r io.Reader) ([]features.Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var rows []features.Row
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		var row features.Row
		if err := json.Unmarshal(b, &row); err != nil {
			return nil, fmt.Errorf("error unmarshaling line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading lines: %w", err)
	}
	return rows, nil
}

func readGPX(path string) ([]features.Row, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("error parsing GPX: %w", err)
	}

	rows := make([]features.Row, 0, len(g.Waypoints))
	for _, wpt := range g.Waypoints {
		rows = append(rows, features.Row{
			"name":                   wpt.Name,
			features.FieldLatitude:  wpt.Latitude,
			features.FieldLongitude: wpt.Longitude,
		})
	}
	return rows, nil
}

// WriteJSONLines writes one JSON object per row.
func WriteJSONLines(w io.Writer, rows []features.Row) error {
	enc := json.NewEncoder(w)
	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("error encoding row %d: %w", i, err)
		}
	}
	return nil
}

// WriteCSV writes rows with a header of columns. Nil values are written as
// empty cells.
func WriteCSV(w io.Writer, rows []features.Row, columns []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = formatCell(row[col])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("error writing CSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Columns returns the CSV columns for enriched rows: the input columns
// sorted by name followed by the feature keys for k stations.
func Columns(rows []features.Row, k int) []string {
	keys := features.Keys(k)
	seen := make(map[string]bool)
	var input []string
	for _, row := range rows {
		for name := range row {
			if seen[name] || slices.Contains(keys, name) {
				continue
			}
			seen[name] = true
			input = append(input, name)
		}
	}
	sort.Strings(input)
	return append(input, keys...)
}
