// Package config provides configuration management for the columnar engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config represents the global configuration for engine operations.
type Config struct {
	// Parallel processing
	ParallelThreshold int `json:"parallel_threshold" yaml:"parallel_threshold"` // Minimum rows to trigger parallel kernels
	WorkerPoolSize    int `json:"worker_pool_size" yaml:"worker_pool_size"`     // Number of worker goroutines (0 = one per CPU)
	ChunkSize         int `json:"chunk_size" yaml:"chunk_size"`                 // Rows per kernel partition (0 = auto)

	// Ingestion
	InferenceSampleRows int    `json:"inference_sample_rows" yaml:"inference_sample_rows"` // Records sampled before locking the schema
	NullToken           string `json:"null_token" yaml:"null_token"`                       // Field value treated as null (besides empty)

	// Memory management
	MemoryThreshold int64 `json:"memory_threshold" yaml:"memory_threshold"` // Soft memory budget in bytes (0 = unlimited)

	// Debugging
	VerboseLogging bool `json:"verbose_logging" yaml:"verbose_logging"` // Enable debug-level logging
}

// Default configuration values.
const (
	DefaultParallelThreshold   = 1000
	DefaultChunkSize           = 8192
	DefaultInferenceSampleRows = 1000
)

// Global configuration instance.
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values.
func NewConfig() Config {
	return Config{
		ParallelThreshold:   DefaultParallelThreshold,
		WorkerPoolSize:      0, // one per CPU
		ChunkSize:           DefaultChunkSize,
		InferenceSampleRows: DefaultInferenceSampleRows,
		NullToken:           "",
		MemoryThreshold:     0,
		VerboseLogging:      false,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.ParallelThreshold <= 0 {
		return fmt.Errorf("ParallelThreshold must be positive, got %d", c.ParallelThreshold)
	}
	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("WorkerPoolSize must be non-negative, got %d", c.WorkerPoolSize)
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("ChunkSize must be non-negative, got %d", c.ChunkSize)
	}
	if c.InferenceSampleRows <= 0 {
		return fmt.Errorf("InferenceSampleRows must be positive, got %d", c.InferenceSampleRows)
	}
	if c.MemoryThreshold < 0 {
		return fmt.Errorf("MemoryThreshold must be non-negative, got %d", c.MemoryThreshold)
	}
	return nil
}

// WithDefaults returns a new configuration with default values filled in
// for zero values.
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.ParallelThreshold == 0 {
		c.ParallelThreshold = defaults.ParallelThreshold
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = defaults.ChunkSize
	}
	if c.InferenceSampleRows == 0 {
		c.InferenceSampleRows = defaults.InferenceSampleRows
	}

	return c
}

// SetGlobalConfig sets the global configuration.
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration.
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromJSON loads configuration from JSON data.
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a JSON or YAML file.
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from PARDOX_* environment variables.
func LoadFromEnv() Config {
	config := NewConfig()

	if val := os.Getenv("PARDOX_PARALLEL_THRESHOLD"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.ParallelThreshold = parsed
		}
	}

	if val := os.Getenv("PARDOX_WORKER_POOL_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.WorkerPoolSize = parsed
		}
	}

	if val := os.Getenv("PARDOX_CHUNK_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.ChunkSize = parsed
		}
	}

	if val := os.Getenv("PARDOX_INFERENCE_SAMPLE_ROWS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.InferenceSampleRows = parsed
		}
	}

	if val, ok := os.LookupEnv("PARDOX_NULL_TOKEN"); ok {
		config.NullToken = val
	}

	if val := os.Getenv("PARDOX_MEMORY_THRESHOLD"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.MemoryThreshold = parsed
		}
	}

	if val := os.Getenv("PARDOX_VERBOSE_LOGGING"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.VerboseLogging = parsed
		}
	}

	return config
}
