// Package rentgeo archives reference datasets and feature lookups in SQLite.
package rentgeo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/patrickmn/go-cache"

	"github.com/rubiojr/rentgeo/pkg/spatial"
)

const (
	defaultCacheExpirationMinutes = 10
	defaultCacheCleanupMinutes    = 30
	defaultCacheSize              = -1024 * 1024 // negative value for pages
	defaultPageSize               = 4096

	latestDatasetsKey = "latest_datasets"
)

// ErrNoDatasets is returned when the archive holds no dataset.
var ErrNoDatasets = errors.New("no datasets archived")

type Storage struct {
	db    *sql.DB
	cache *cache.Cache
	log   *slog.Logger
}

// DatasetVersion describes one archived copy of a reference dataset.
type DatasetVersion struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	ImportedAt time.Time `json:"imported_at"`
	SHA256     string    `json:"sha256"`
	Size       int64     `json:"size"`
	Features   int       `json:"features"`
}

func NewStorage(ctx context.Context, dbPath string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := configureSQLitePragmas(ctx, db, defaultCacheSize); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	s := &Storage{
		db:    db,
		cache: cache.New(defaultCacheExpirationMinutes*time.Minute, defaultCacheCleanupMinutes*time.Minute),
		log:   logger,
	}

	if err := s.createLocationLogsTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating location_logs table: %w", err)
	}

	return s, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS datasets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		imported_at TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		features INTEGER NOT NULL,
		data BLOB NOT NULL,
		UNIQUE(kind, sha256)
	);
	CREATE INDEX IF NOT EXISTS idx_datasets_kind ON datasets(kind);
	`

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	if s.cache != nil {
		s.cache.Flush()
	}
	return s.db.Close()
}

// SaveDataset archives one dataset. It reports whether a new version was
// stored; archiving bytes identical to an existing version is a no-op.
func (s *Storage) SaveDataset(ctx context.Context, kind spatial.Kind, data []byte) (bool, error) {
	n, err := s.SaveDatasets(ctx, map[spatial.Kind][]byte{kind: data})
	return n == 1, err
}

// SaveDatasets archives several datasets in one transaction and returns the
// number of new versions stored. Every dataset must decode as a layer of its
// kind.
func (s *Storage) SaveDatasets(ctx context.Context, sources map[spatial.Kind][]byte) (int, error) {
	counts := make(map[spatial.Kind]int, len(sources))
	for kind, data := range sources {
		layer, err := spatial.DecodeLayer(kind, data)
		if err != nil {
			return 0, &spatial.DataLoadError{Kind: kind, Err: err}
		}
		counts[kind] = layer.Len()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			s.log.Error("rollback error", "error", err)
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	inserted := 0
	for _, kind := range spatial.Kinds {
		data, ok := sources[kind]
		if !ok {
			continue
		}
		res, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO datasets (kind, imported_at, sha256, features, data) VALUES (?, ?, ?, ?, ?)",
			string(kind), now, checksum(data), counts[kind], data)
		if err != nil {
			return 0, fmt.Errorf("error inserting %s dataset: %w", kind, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("error reading affected rows: %w", err)
		}
		if n == 0 {
			s.log.Debug("Dataset already archived", "kind", kind)
		}
		inserted += int(n)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing transaction: %w", err)
	}

	s.cache.Delete(latestDatasetsKey)
	return inserted, nil
}

// LatestDatasets returns the newest archived version of every dataset kind.
func (s *Storage) LatestDatasets(ctx context.Context) (map[spatial.Kind][]byte, error) {
	if cachedData, found := s.cache.Get(latestDatasetsKey); found {
		s.log.Debug("Using cached data", "key", latestDatasetsKey)
		return maps.Clone(cachedData.(map[spatial.Kind][]byte)), nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, data FROM datasets d
		WHERE id = (SELECT MAX(id) FROM datasets WHERE kind = d.kind)
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying datasets: %w", err)
	}
	defer rows.Close()

	sources := make(map[spatial.Kind][]byte)
	for rows.Next() {
		var kind string
		var data []byte
		if err := rows.Scan(&kind, &data); err != nil {
			return nil, fmt.Errorf("error scanning dataset: %w", err)
		}
		k, err := spatial.ParseKind(kind)
		if err != nil {
			s.log.Warn("Skipping unknown dataset kind", "kind", kind)
			continue
		}
		sources[k] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	if len(sources) == 0 {
		return nil, ErrNoDatasets
	}

	s.cache.Set(latestDatasetsKey, sources, cache.DefaultExpiration)
	return maps.Clone(sources), nil
}

// LoadReference builds a reference context from the newest archived datasets.
func (s *Storage) LoadReference(ctx context.Context, opts spatial.LoadOptions) (*spatial.ReferenceContext, error) {
	sources, err := s.LatestDatasets(ctx)
	if err != nil {
		return nil, err
	}
	return spatial.Build(sources, opts)
}

// DatasetVersions lists the archived versions of kind, newest first.
func (s *Storage) DatasetVersions(ctx context.Context, kind spatial.Kind) ([]DatasetVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, imported_at, sha256, length(data), features
		FROM datasets WHERE kind = ? ORDER BY id DESC
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("error querying dataset versions: %w", err)
	}
	defer rows.Close()

	var versions []DatasetVersion
	for rows.Next() {
		var v DatasetVersion
		var importedAt string
		if err := rows.Scan(&v.ID, &v.Kind, &importedAt, &v.SHA256, &v.Size, &v.Features); err != nil {
			return nil, fmt.Errorf("error scanning dataset version: %w", err)
		}
		v.ImportedAt, err = time.Parse(time.RFC3339Nano, importedAt)
		if err != nil {
			return nil, fmt.Errorf("error parsing date %s: %w", importedAt, err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return versions, nil
}

// PruneDatasets keeps the newest keep versions of every kind and deletes the
// rest. It returns the number of deleted versions.
func (s *Storage) PruneDatasets(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be at least 1, got %d", keep)
	}

	s.log.Info("Pruning old dataset versions", "keep", keep)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM datasets WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY kind ORDER BY id DESC) AS rn
				FROM datasets
			) WHERE rn > ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("error deleting old datasets: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading affected rows: %w", err)
	}

	s.cache.Delete(latestDatasetsKey)
	s.log.Info("Completed dataset cleanup", "deleted_count", deleted)
	return deleted, nil
}

func (s *Storage) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA incremental_vacuum(1000)")
	if err != nil {
		return fmt.Errorf("error performing incremental vacuum: %w", err)
	}

	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func configureSQLitePragmas(ctx context.Context, db *sql.DB, cacheSize int) error {
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 10000;"); err != nil {
		return fmt.Errorf("error setting busy timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("error setting journal mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA auto_vacuum = INCREMENTAL;"); err != nil {
		return fmt.Errorf("error setting auto vacuum: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA temp_store = FILE;"); err != nil {
		return fmt.Errorf("error setting temp store: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA mmap_size = 0;"); err != nil {
		return fmt.Errorf("error disabling mmap: %w", err)
	}

	// 64MB
	if _, err := db.ExecContext(ctx, "PRAGMA soft_heap_limit = 67108864;"); err != nil {
		return fmt.Errorf("error setting soft heap limit: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		return fmt.Errorf("error setting synchronous: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA cache_size = %d;", cacheSize)); err != nil {
		return fmt.Errorf("error setting cache size: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA page_size = %d;", defaultPageSize)); err != nil {
		return fmt.Errorf("error setting page size: %w", err)
	}
	return nil
}
