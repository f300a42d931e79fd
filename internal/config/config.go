// Package config loads page-store tuning parameters from YAML, the same
// library the teacher used for its cluster manifests (gopkg.in/yaml.v3), now
// pointed at storage configuration instead.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPageSize           = 1 << 20 // 1 MiB, spec §4.1
	defaultCacheCapacity      = 10      // pages, spec §4.1
	defaultRootFlushInterval  = 10 * time.Second
	defaultWriterPollInterval = 100 * time.Millisecond
)

// Store holds page-store tuning parameters.
type Store struct {
	PageSize           int           `yaml:"pageSize"`
	CacheCapacity      int           `yaml:"cacheCapacity"`
	RootFlushInterval  time.Duration `yaml:"rootFlushInterval"`
	WriterPollInterval time.Duration `yaml:"writerPollInterval"`
}

// Default returns the built-in defaults, which pagestore.Open uses when it
// is given a nil config.
func Default() *Store {
	return &Store{
		PageSize:           defaultPageSize,
		CacheCapacity:      defaultCacheCapacity,
		RootFlushInterval:  defaultRootFlushInterval,
		WriterPollInterval: defaultWriterPollInterval,
	}
}

// Load reads a YAML config file and fills in defaults for any field left
// unset (zero-valued) in the file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Store{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	def := Default()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = def.CacheCapacity
	}
	if cfg.RootFlushInterval <= 0 {
		cfg.RootFlushInterval = def.RootFlushInterval
	}
	if cfg.WriterPollInterval <= 0 {
		cfg.WriterPollInterval = def.WriterPollInterval
	}
	return cfg, nil
}
