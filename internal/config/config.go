// Package config handles configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rubiojr/rentgeo/pkg/features"
	"github.com/rubiojr/rentgeo/pkg/geo"
	"github.com/rubiojr/rentgeo/pkg/spatial"
)

// Config represents the root configuration file structure.
type Config struct {
	DataDir     string                  `yaml:"data_dir"`
	Database    string                  `yaml:"database"`
	Center      geo.Coordinate          `yaml:"center"`
	Stations    Stations                `yaml:"stations"`
	Files       spatial.DatasetFiles    `yaml:"files"`
	Sources     map[spatial.Kind]string `yaml:"sources,omitempty"`
	Attributes  features.Attributes     `yaml:"attributes"`
	Cache       Cache                   `yaml:"cache"`
	Batch       Batch                   `yaml:"batch"`
	Model       features.ModelContract  `yaml:"model"`
	Passthrough []string                `yaml:"passthrough"`
}

// Stations configures the nearest station search.
type Stations struct {
	K                 int                       `yaml:"k"`
	MaxDistanceMeters float64                   `yaml:"max_distance_meters"`
	Properties        spatial.StationProperties `yaml:"properties"`
}

// Cache configures the feature memo cache used by single lookups. Entries are
// keyed by exact coordinate and nothing caps their number, so memory grows
// with the distinct points seen within Expiration; batch enrichment does not
// populate it.
type Cache struct {
	Expiration time.Duration `yaml:"expiration"`
	Cleanup    time.Duration `yaml:"cleanup"`
}

// Batch configures batch enrichment.
type Batch struct {
	Workers  int  `yaml:"workers"`
	FailFast bool `yaml:"fail_fast"`
}

// Default returns the configuration the price model was trained with.
func Default() *Config {
	opts := features.DefaultOptions()
	return &Config{
		DataDir:  "data/geo",
		Database: "rentgeo.db",
		Center:   opts.Center,
		Stations: Stations{
			K:                 opts.K,
			MaxDistanceMeters: opts.MaxStationDistanceMeters,
			Properties:        spatial.DefaultStationProperties(),
		},
		Files:      spatial.DefaultFiles(),
		Attributes: opts.Attributes,
		Cache: Cache{
			Expiration: 10 * time.Minute,
			Cleanup:    30 * time.Minute,
		},
		Batch:       Batch{Workers: 4},
		Model:       features.DefaultContract(),
		Passthrough: features.DefaultPassthrough(),
	}
}

// Load reads the YAML configuration file at path. Settings absent from the
// file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Stations.K < 1 {
		return fmt.Errorf("stations.k must be at least 1, got %d", c.Stations.K)
	}
	if c.Stations.MaxDistanceMeters <= 0 {
		return fmt.Errorf("stations.max_distance_meters must be positive, got %v", c.Stations.MaxDistanceMeters)
	}
	if err := c.Center.Validate(); err != nil {
		return fmt.Errorf("center: %w", err)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers)
	}
	if c.Cache.Expiration < 0 || c.Cache.Cleanup < 0 {
		return errors.New("cache durations must not be negative")
	}
	for kind := range c.Files {
		if _, err := spatial.ParseKind(string(kind)); err != nil {
			return fmt.Errorf("files: %w", err)
		}
	}
	for kind := range c.Sources {
		if _, err := spatial.ParseKind(string(kind)); err != nil {
			return fmt.Errorf("sources: %w", err)
		}
	}
	return nil
}

// CheckContract verifies that the configured model features match the
// records built for the configured number of stations.
func (c *Config) CheckContract() error {
	return c.Model.Validate(c.Stations.K, c.Passthrough)
}

func (c *Config) ResolverOptions() features.Options {
	return features.Options{
		Center:                   c.Center,
		K:                        c.Stations.K,
		MaxStationDistanceMeters: c.Stations.MaxDistanceMeters,
		Attributes:               c.Attributes,
	}
}

func (c *Config) LoadOptions() spatial.LoadOptions {
	return spatial.LoadOptions{Files: c.Files, Stations: c.Stations.Properties}
}

func (c *Config) EngineOptions() features.EngineOptions {
	return features.EngineOptions{
		Resolver:        c.ResolverOptions(),
		CacheExpiration: c.Cache.Expiration,
		CacheCleanup:    c.Cache.Cleanup,
	}
}

func (c *Config) BatchOptions() features.BatchOptions {
	return features.BatchOptions{Workers: c.Batch.Workers, FailFast: c.Batch.FailFast}
}
