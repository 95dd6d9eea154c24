package features

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rubiojr/rentgeo/pkg/geo"
	"github.com/rubiojr/rentgeo/pkg/spatial"
)

const (
	defaultCacheExpiration = 10 * time.Minute
	defaultCacheCleanup    = 30 * time.Minute
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	Resolver        Options
	CacheExpiration time.Duration
	CacheCleanup    time.Duration
}

type generation struct {
	id       uint64
	resolver *Resolver
}

// Engine serves feature records from the current reference context. The
// context can be replaced at runtime with Reload; calls already running keep
// the context they started with. Records served by Features and Enrich are
// memoised per exact coordinate.
type Engine struct {
	current atomic.Pointer[generation]
	nextID  atomic.Uint64
	opts    Options
	cache   *cache.Cache
	log     *slog.Logger
}

// NewEngine creates an engine serving ref.
func NewEngine(ref *spatial.ReferenceContext, opts EngineOptions, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	expiration := opts.CacheExpiration
	if expiration == 0 {
		expiration = defaultCacheExpiration
	}
	cleanup := opts.CacheCleanup
	if cleanup == 0 {
		cleanup = defaultCacheCleanup
	}

	e := &Engine{
		opts:  opts.Resolver.withDefaults(),
		cache: cache.New(expiration, cleanup),
		log:   logger,
	}
	e.Reload(ref)
	return e
}

// Reload atomically swaps in a new reference context and drops memoised
// records of the previous one.
func (e *Engine) Reload(ref *spatial.ReferenceContext) {
	gen := &generation{id: e.nextID.Add(1), resolver: NewResolver(ref, e.opts)}
	e.current.Store(gen)
	e.cache.Flush()
	e.log.Debug("Reference context loaded", "generation", gen.id, "summary", ref.String())
}

// Resolver returns the resolver bound to the current reference context.
func (e *Engine) Resolver() *Resolver { return e.current.Load().resolver }

// K returns the number of station slots in every record.
func (e *Engine) K() int { return e.opts.K }

// Features returns the feature record of c. The returned record is a copy
// the caller may modify.
func (e *Engine) Features(c geo.Coordinate) FeatureRecord {
	gen := e.current.Load()
	key := cacheKey(gen.id, c)

	if cached, found := e.cache.Get(key); found {
		e.log.Debug("Using cached features", "key", key)
		return cached.(FeatureRecord).Clone()
	}

	rec := gen.resolver.Features(c)
	e.cache.Set(key, rec, cache.DefaultExpiration)
	return rec.Clone()
}

// Enrich implements Enricher using memoised feature records.
func (e *Engine) Enrich(row Row) (Row, error) {
	return enrich(row, e.Features)
}

// EnrichBatch enriches rows against the current reference context. Batch
// rows bypass the memo cache: bulk files rarely repeat exact coordinates and
// would otherwise fill it with one entry per row.
func (e *Engine) EnrichBatch(ctx context.Context, rows []Row, opts BatchOptions) ([]Result, error) {
	start := time.Now()
	results, err := EnrichBatch(ctx, e.Resolver(), rows, opts)
	e.log.Debug("Batch enriched",
		"rows", len(rows),
		"failed", len(Errors(results)),
		"workers", opts.Workers,
		"duration", time.Since(start))
	return results, err
}

func cacheKey(gen uint64, c geo.Coordinate) string {
	return strconv.FormatUint(gen, 10) + "|" +
		strconv.FormatFloat(c.Lat, 'g', -1, 64) + "|" +
		strconv.FormatFloat(c.Lon, 'g', -1, 64)
}
