package hierarchy

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the geometry and memory timing of the hierarchy.
type Config struct {
	// NumSets is the number of direct-mapped L1 sets. Must be a power of
	// two. Default: 64.
	NumSets int `json:"num_sets"`

	// NumWays is the number of fully-associative victim cache ways.
	// Default: 4.
	NumWays int `json:"num_ways"`

	// LineBytes is the cache line size in bytes, the unit of transfer
	// between all tiers. Must be a power of two, at least 4. Default: 16.
	LineBytes int `json:"line_bytes"`

	// MemReadLatency is the backing-store read latency in cycles.
	// Default: 10.
	MemReadLatency uint64 `json:"mem_read_latency"`

	// MemWriteLatency is the backing-store write latency in cycles.
	// Default: 10.
	MemWriteLatency uint64 `json:"mem_write_latency"`
}

// DefaultConfig returns the default hierarchy configuration.
func DefaultConfig() *Config {
	return &Config{
		NumSets:         64,
		NumWays:         4,
		LineBytes:       16,
		MemReadLatency:  10,
		MemWriteLatency: 10,
	}
}

// LoadConfig loads a configuration from a JSON file. Missing fields keep
// their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Validate checks the configuration for usable geometry.
func (c *Config) Validate() error {
	if c.NumSets <= 0 || !isPowerOfTwo(c.NumSets) {
		return fmt.Errorf("num_sets must be a positive power of two, got %d", c.NumSets)
	}
	if c.NumWays <= 0 {
		return fmt.Errorf("num_ways must be positive, got %d", c.NumWays)
	}
	if c.LineBytes < 4 || !isPowerOfTwo(c.LineBytes) {
		return fmt.Errorf("line_bytes must be a power of two >= 4, got %d", c.LineBytes)
	}
	if c.MemReadLatency == 0 || c.MemWriteLatency == 0 {
		return fmt.Errorf("memory latencies must be at least 1 cycle")
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
