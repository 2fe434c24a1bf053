package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"memkv/pkg/dberrors"
)

const (
	MiB = 1 << 20

	// maxSegmentLimit keeps every record offset addressable by a directory
	// slot.
	maxSegmentLimit = 1<<24 - 1
)

// Config is the root configuration shared by the binaries.
type Config struct {
	Logger LoggerConfig `yaml:"logger"`
	Store  StoreConfig  `yaml:"store"`
	Bench  BenchConfig  `yaml:"bench"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type StoreConfig struct {
	// Ceil is the record alignment inside segments.
	Ceil uint32 `yaml:"ceil"`
	// SegmentLimit is the size past which the writable segment is sealed.
	SegmentLimit int `yaml:"segment_limit"`
	// InitialCapacity is the starting number of directory slots.
	InitialCapacity int `yaml:"initial_capacity"`
}

type BenchConfig struct {
	Iterations  int    `yaml:"iterations"`
	Backend     string `yaml:"backend"`
	Keys        string `yaml:"keys"`
	ReportEvery int    `yaml:"report_every"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Store: DefaultStore(),
		Bench: BenchConfig{
			Iterations:  1_000_000,
			Backend:     "m",
			Keys:        "seq",
			ReportEvery: 10_000,
		},
	}
}

func DefaultStore() StoreConfig {
	return StoreConfig{
		Ceil:            16,
		SegmentLimit:    4 * MiB,
		InitialCapacity: 16,
	}
}

// Load reads a YAML config from path on top of Default. A missing file is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, cfg.Store.Validate()
}

func (c StoreConfig) Validate() error {
	if c.Ceil == 0 || c.Ceil&(c.Ceil-1) != 0 {
		return fmt.Errorf("%w: ceil %d is not a power of two", dberrors.ErrInvalidArgument, c.Ceil)
	}
	if c.InitialCapacity < 2 || c.InitialCapacity&(c.InitialCapacity-1) != 0 {
		return fmt.Errorf("%w: initial capacity %d is not a power of two >= 2", dberrors.ErrInvalidArgument, c.InitialCapacity)
	}
	if c.SegmentLimit <= 0 || c.SegmentLimit > maxSegmentLimit {
		return fmt.Errorf("%w: segment limit %d outside (0, %d]", dberrors.ErrInvalidArgument, c.SegmentLimit, maxSegmentLimit)
	}
	return nil
}
