// Package config holds the synergy engine configuration.
//
// Configuration can be loaded from:
//   - Environment variables (recommended for Docker/K8s)
//   - YAML configuration file
//   - Programmatic defaults
//
// Environment Variables:
//
//	HOMEIQ_SYNERGY_MIN_CONFIDENCE          - Pairwise emission threshold (default: 0.6)
//	HOMEIQ_SYNERGY_SAME_AREA_REQUIRED      - Restrict pairs to one area (default: false)
//	HOMEIQ_SYNERGY_ARCHETYPES_FILE         - Extra archetype YAML file (default: unset)
//	HOMEIQ_SYNERGY_TOP_PAIRS_FOR_CHAINS    - Pairs seeding chain search (default: 1000)
//	HOMEIQ_SYNERGY_MAX_THREE_DEVICE_CHAINS - 3-device chain cap (default: 200)
//	HOMEIQ_SYNERGY_MAX_FOUR_DEVICE_CHAINS  - 4-device chain cap (default: 100)
//	HOMEIQ_SYNERGY_CACHE_BACKEND           - none, memory, or badger (default: memory)
//	HOMEIQ_SYNERGY_CACHE_MAX_ENTRIES       - Memory backend size (default: 1000)
//	HOMEIQ_SYNERGY_CACHE_TTL               - Cached chain lifetime (default: 1h)
//	HOMEIQ_SYNERGY_CACHE_DATA_DIR          - Badger backend directory (default: ./data/synergy-cache)
//	HOMEIQ_SYNERGY_CACHE_IN_MEMORY         - Run badger without disk (default: false)
//	HOMEIQ_SYNERGY_CACHE_SYNC_WRITES       - Flush badger on every write (default: false)
//
// Example Docker Usage:
//
//	docker run -e HOMEIQ_SYNERGY_CACHE_BACKEND=badger \
//	           -e HOMEIQ_SYNERGY_CACHE_DATA_DIR=/data/synergy-cache \
//	           -e HOMEIQ_SYNERGY_SAME_AREA_REQUIRED=true \
//	           -v ./data:/data \
//	           homeiq/synergy
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wtthornton/HomeIQ-sub003/pkg/chains"
	"github.com/wtthornton/HomeIQ-sub003/pkg/inference"
)

// Cache backend names accepted by CacheConfig.Backend.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Duration wraps time.Duration so YAML values can be written as "90s" or
// "1h30m" as well as plain nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	case int64:
		*d = Duration(v)
	case float64:
		*d = Duration(v)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config holds all synergy engine settings.
//
// Example:
//
//	// Load from environment (Docker/K8s friendly)
//	cfg := config.LoadFromEnv()
//
//	// Or load from YAML file
//	cfg, err := config.LoadConfig("./synergy.yaml")
//
//	// Or use defaults
//	cfg := config.DefaultConfig()
type Config struct {
	// Discovery controls pairwise synergy generation.
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Chains bounds the chain search.
	Chains ChainsConfig `yaml:"chains"`

	// Cache selects and sizes the chain result cache.
	Cache CacheConfig `yaml:"cache"`
}

// DiscoveryConfig controls pairwise synergy generation.
type DiscoveryConfig struct {
	// MinConfidence is the emission threshold for rule-based pairs.
	MinConfidence float64 `yaml:"min_confidence"`
	// SameAreaRequired restricts matching to entities sharing an area.
	SameAreaRequired bool `yaml:"same_area_required"`
	// ArchetypesFile optionally points at a YAML file whose archetypes
	// are merged over the built-in catalog.
	ArchetypesFile string `yaml:"archetypes_file"`
}

// ChainsConfig bounds the chain search.
type ChainsConfig struct {
	// TopPairsForChains caps how many quality-ranked pairs seed the search.
	TopPairsForChains int `yaml:"top_pairs_for_chains"`
	// MaxThreeDeviceChains stops the 3-device pass.
	MaxThreeDeviceChains int `yaml:"max_three_device_chains"`
	// MaxFourDeviceChains stops the 4-device pass.
	MaxFourDeviceChains int `yaml:"max_four_device_chains"`
}

// CacheConfig selects the chain result cache.
type CacheConfig struct {
	// Backend is one of none, memory, badger.
	Backend string `yaml:"backend"`
	// MaxEntries bounds the memory backend.
	MaxEntries int `yaml:"max_entries"`
	// TTL expires cached chains. Zero keeps them forever.
	TTL Duration `yaml:"ttl"`
	// DataDir is where the badger backend keeps its files.
	DataDir string `yaml:"data_dir"`
	// InMemory runs the badger backend without touching disk.
	InMemory bool `yaml:"in_memory"`
	// SyncWrites makes the badger backend flush every write.
	SyncWrites bool `yaml:"sync_writes"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			MinConfidence: inference.DefaultMinConfidence,
		},
		Chains: ChainsConfig{
			TopPairsForChains:    chains.DefaultTopPairsForChains,
			MaxThreeDeviceChains: chains.DefaultMaxThreeDeviceChains,
			MaxFourDeviceChains:  chains.DefaultMaxFourDeviceChains,
		},
		Cache: CacheConfig{
			Backend:    BackendMemory,
			MaxEntries: 1000,
			TTL:        Duration(time.Hour),
			DataDir:    "./data/synergy-cache",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
//
// This is the recommended approach for Docker/Kubernetes deployments.
// All values have defaults, so LoadFromEnv can be called with nothing set.
//
// Example:
//
//	os.Setenv("HOMEIQ_SYNERGY_MIN_CONFIDENCE", "0.75")
//	os.Setenv("HOMEIQ_SYNERGY_CACHE_BACKEND", "badger")
//	cfg := config.LoadFromEnv()
func LoadFromEnv() *Config {
	return applyEnv(DefaultConfig())
}

// LoadConfig loads configuration from a YAML file. Fields absent from the
// file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadConfigOrDefault loads config from file, or returns defaults if the
// file cannot be read.
func LoadConfigOrDefault(path string) *Config {
	cfg, err := LoadConfig(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// LoadFromEnvOrFile loads config from the file first, then overrides with
// environment variables. Environment variables take precedence.
func LoadFromEnvOrFile(path string) *Config {
	return applyEnv(LoadConfigOrDefault(path))
}

// applyEnv overrides cfg with any environment variables that are set.
// Unparseable values leave the current setting untouched.
func applyEnv(cfg *Config) *Config {
	if val := os.Getenv("HOMEIQ_SYNERGY_MIN_CONFIDENCE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Discovery.MinConfidence = f
		}
	}
	if val := os.Getenv("HOMEIQ_SYNERGY_SAME_AREA_REQUIRED"); val != "" {
		cfg.Discovery.SameAreaRequired = parseBool(val, cfg.Discovery.SameAreaRequired)
	}
	if val := os.Getenv("HOMEIQ_SYNERGY_ARCHETYPES_FILE"); val != "" {
		cfg.Discovery.ArchetypesFile = val
	}

	if val := os.Getenv("HOMEIQ_SYNERGY_TOP_PAIRS_FOR_CHAINS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Chains.TopPairsForChains = n
		}
	}
	if val := os.Getenv("HOMEIQ_SYNERGY_MAX_THREE_DEVICE_CHAINS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Chains.MaxThreeDeviceChains = n
		}
	}
	if val := os.Getenv("HOMEIQ_SYNERGY_MAX_FOUR_DEVICE_CHAINS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Chains.MaxFourDeviceChains = n
		}
	}

	if val := os.Getenv("HOMEIQ_SYNERGY_CACHE_BACKEND"); val != "" {
		cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(val))
	}
	if val := os.Getenv("HOMEIQ_SYNERGY_CACHE_MAX_ENTRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Cache.MaxEntries = n
		}
	}
	if val := os.Getenv("HOMEIQ_SYNERGY_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.TTL = Duration(d)
		}
	}
	if val := os.Getenv("HOMEIQ_SYNERGY_CACHE_DATA_DIR"); val != "" {
		cfg.Cache.DataDir = val
	}
	if val := os.Getenv("HOMEIQ_SYNERGY_CACHE_IN_MEMORY"); val != "" {
		cfg.Cache.InMemory = parseBool(val, cfg.Cache.InMemory)
	}
	if val := os.Getenv("HOMEIQ_SYNERGY_CACHE_SYNC_WRITES"); val != "" {
		cfg.Cache.SyncWrites = parseBool(val, cfg.Cache.SyncWrites)
	}

	return cfg
}

// Validate checks the configuration for invalid values.
//
// Call Validate after loading and before handing the config to the engine.
func (c *Config) Validate() error {
	if c.Discovery.MinConfidence < 0 || c.Discovery.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0, 1], got %v", c.Discovery.MinConfidence)
	}

	if c.Chains.TopPairsForChains < 0 {
		return fmt.Errorf("top_pairs_for_chains must not be negative, got %d", c.Chains.TopPairsForChains)
	}
	if c.Chains.MaxThreeDeviceChains < 0 {
		return fmt.Errorf("max_three_device_chains must not be negative, got %d", c.Chains.MaxThreeDeviceChains)
	}
	if c.Chains.MaxFourDeviceChains < 0 {
		return fmt.Errorf("max_four_device_chains must not be negative, got %d", c.Chains.MaxFourDeviceChains)
	}

	switch c.Cache.Backend {
	case BackendNone, BackendMemory, BackendBadger:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max_entries must not be negative, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative, got %v", time.Duration(c.Cache.TTL))
	}
	if c.Cache.Backend == BackendBadger && !c.Cache.InMemory && c.Cache.DataDir == "" {
		return fmt.Errorf("badger cache backend requires data_dir unless in_memory is set")
	}

	return nil
}

// String returns a compact representation suitable for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{MinConfidence: %.2f, SameAreaRequired: %v, TopPairs: %d, MaxChains: %d/%d, Cache: %s}",
		c.Discovery.MinConfidence,
		c.Discovery.SameAreaRequired,
		c.Chains.TopPairsForChains,
		c.Chains.MaxThreeDeviceChains,
		c.Chains.MaxFourDeviceChains,
		c.Cache.Backend,
	)
}

// parseBool parses a boolean from string with a default value.
func parseBool(s string, defaultVal bool) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultVal
	}
}

// ExampleConfigYAML documents the configuration file layout accepted by
// LoadConfig.
const ExampleConfigYAML = `# HomeIQ synergy engine configuration

discovery:
  # Emission threshold for rule-based pairs
  min_confidence: 0.6
  # Only pair devices that share an area
  same_area_required: false
  # Extra relationship archetypes merged over the built-in catalog
  archetypes_file: ./archetypes.yaml

chains:
  # Pairs seeding the chain search, picked by quality
  top_pairs_for_chains: 1000
  max_three_device_chains: 200
  max_four_device_chains: 100

cache:
  # none, memory, or badger
  backend: memory
  max_entries: 1000
  ttl: 1h
  # Badger backend only
  data_dir: ./data/synergy-cache
  in_memory: false
  sync_writes: false
`
