package rentgeo

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rubiojr/rentgeo/pkg/geo"
)

const (
	decimalBase                        = 10
	squareExponent                     = 2
	defaultReducePrecisionDecimalPlace = 2
	// Adjacent cells of the two decimal grid, diagonals included (~1.5km)
	clusterDistance = 0.015
)

func (s *Storage) createLocationLogsTable(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS location_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		lookup_count INTEGER NOT NULL DEFAULT 1,
		first_lookup TEXT NOT NULL,
		last_lookup TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_location_logs_coordinates ON location_logs (latitude, longitude);
	`

	_, err := s.db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating location_logs table: %w", err)
	}

	s.log.Debug("Location logs table created or verified")
	return nil
}

func reduceLocationPrecision(lat, lng float64, decimalPlaces int) (roundedLat, roundedLng float64) {
	factor := math.Pow(decimalBase, float64(decimalPlaces))
	roundedLat = math.Round(lat*factor) / factor
	roundedLng = math.Round(lng*factor) / factor
	return
}

// LogLocation records a feature lookup. Coordinates are reduced to two
// decimals so repeated lookups of the same area share one row.
func (s *Storage) LogLocation(ctx context.Context, c geo.Coordinate) error {
	var id int64

	lat, lng := reduceLocationPrecision(c.Lat, c.Lon, defaultReducePrecisionDecimalPlace)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM location_logs
		WHERE latitude = ? AND longitude = ?
		LIMIT 1
	`, lat, lng).Scan(&id)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("error checking for existing location: %w", err)
	}

	if err == sql.ErrNoRows {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO location_logs (latitude, longitude, first_lookup, last_lookup)
			VALUES (?, ?, ?, ?)
		`, lat, lng, now, now)
		if err != nil {
			return fmt.Errorf("error logging location: %w", err)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE location_logs
		SET lookup_count = lookup_count + 1, last_lookup = ?
		WHERE id = ?
	`, now, id)
	if err != nil {
		return fmt.Errorf("error updating location: %w", err)
	}
	return nil
}

// LocationLog represents a row in the location_logs table
type LocationLog struct {
	ID          int64
	Latitude    float64
	Longitude   float64
	LookupCount int64
	FirstLookup time.Time
	LastLookup  time.Time
}

// LocationLogs retrieves location logs, most looked up first. A limit of 0
// returns every row.
func (s *Storage) LocationLogs(ctx context.Context, limit int) ([]LocationLog, error) {
	query := `SELECT id, latitude, longitude, lookup_count, first_lookup, last_lookup
			  FROM location_logs
			  ORDER BY lookup_count DESC, id ASC `

	if limit > 0 {
		query += fmt.Sprintf("LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error retrieving location logs: %w", err)
	}
	defer rows.Close()

	var logs []LocationLog
	for rows.Next() {
		var entry LocationLog
		var first, last string
		if err := rows.Scan(&entry.ID, &entry.Latitude, &entry.Longitude, &entry.LookupCount, &first, &last); err != nil {
			return nil, fmt.Errorf("error scanning location log: %w", err)
		}
		if entry.FirstLookup, err = time.Parse(time.RFC3339Nano, first); err != nil {
			return nil, fmt.Errorf("error parsing date %s: %w", first, err)
		}
		if entry.LastLookup, err = time.Parse(time.RFC3339Nano, last); err != nil {
			return nil, fmt.Errorf("error parsing date %s: %w", last, err)
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}

	return logs, nil
}

// PopularArea is a cluster of nearby lookups.
type PopularArea struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	LookupCount int64   `json:"weight"`
	// Radius is the distance in km from the centroid to the farthest
	// merged lookup.
	Radius float64 `json:"radius"`
}

// PopularAreas clusters logged lookups that lie within about 1.5km of each
// other and returns the clusters by popularity. A limit of 0 returns every
// cluster.
func (s *Storage) PopularAreas(ctx context.Context, limit int) ([]PopularArea, error) {
	logs, err := s.LocationLogs(ctx, 0)
	if err != nil {
		return nil, err
	}

	processed := make(map[int64]bool)
	var areas []PopularArea

	for i, seed := range logs {
		if processed[seed.ID] {
			continue
		}
		processed[seed.ID] = true

		area := PopularArea{
			Latitude:    seed.Latitude,
			Longitude:   seed.Longitude,
			LookupCount: seed.LookupCount,
		}
		members := []LocationLog{seed}

		for j, other := range logs {
			if i == j || processed[other.ID] {
				continue
			}

			distance := math.Sqrt(
				math.Pow(seed.Latitude-other.Latitude, squareExponent) +
					math.Pow(seed.Longitude-other.Longitude, squareExponent))
			if distance > clusterDistance {
				continue
			}

			processed[other.ID] = true
			members = append(members, other)

			totalWeight := area.LookupCount + other.LookupCount
			area.Latitude = (area.Latitude*float64(area.LookupCount) +
				other.Latitude*float64(other.LookupCount)) / float64(totalWeight)
			area.Longitude = (area.Longitude*float64(area.LookupCount) +
				other.Longitude*float64(other.LookupCount)) / float64(totalWeight)
			area.LookupCount = totalWeight
		}

		center := geo.Coordinate{Lat: area.Latitude, Lon: area.Longitude}
		for _, m := range members {
			d := geo.DistanceMeters(center, geo.Coordinate{Lat: m.Latitude, Lon: m.Longitude}) / 1000
			if d > area.Radius {
				area.Radius = d
			}
		}

		areas = append(areas, area)
	}

	sort.SliceStable(areas, func(i, j int) bool {
		return areas[i].LookupCount > areas[j].LookupCount
	})

	if limit > 0 && len(areas) > limit {
		areas = areas[:limit]
	}
	return areas, nil
}
