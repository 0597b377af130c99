package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synergy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.6, cfg.Discovery.MinConfidence)
	assert.False(t, cfg.Discovery.SameAreaRequired)
	assert.Equal(t, 1000, cfg.Chains.TopPairsForChains)
	assert.Equal(t, 200, cfg.Chains.MaxThreeDeviceChains)
	assert.Equal(t, 100, cfg.Chains.MaxFourDeviceChains)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, Duration(time.Hour), cfg.Cache.TTL)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		t.Setenv("HOMEIQ_SYNERGY_MIN_CONFIDENCE", "0.75")
		t.Setenv("HOMEIQ_SYNERGY_SAME_AREA_REQUIRED", "yes")
		t.Setenv("HOMEIQ_SYNERGY_ARCHETYPES_FILE", "/etc/homeiq/archetypes.yaml")
		t.Setenv("HOMEIQ_SYNERGY_MAX_THREE_DEVICE_CHAINS", "50")
		t.Setenv("HOMEIQ_SYNERGY_CACHE_BACKEND", "Badger")
		t.Setenv("HOMEIQ_SYNERGY_CACHE_TTL", "30m")
		t.Setenv("HOMEIQ_SYNERGY_CACHE_IN_MEMORY", "true")

		cfg := LoadFromEnv()

		assert.Equal(t, 0.75, cfg.Discovery.MinConfidence)
		assert.True(t, cfg.Discovery.SameAreaRequired)
		assert.Equal(t, "/etc/homeiq/archetypes.yaml", cfg.Discovery.ArchetypesFile)
		assert.Equal(t, 50, cfg.Chains.MaxThreeDeviceChains)
		assert.Equal(t, 1000, cfg.Chains.TopPairsForChains, "untouched values keep defaults")
		assert.Equal(t, BackendBadger, cfg.Cache.Backend, "backend names are normalized")
		assert.Equal(t, Duration(30*time.Minute), cfg.Cache.TTL)
		assert.True(t, cfg.Cache.InMemory)
	})

	t.Run("garbage values keep defaults", func(t *testing.T) {
		t.Setenv("HOMEIQ_SYNERGY_MIN_CONFIDENCE", "not-a-number")
		t.Setenv("HOMEIQ_SYNERGY_MAX_FOUR_DEVICE_CHAINS", "many")
		t.Setenv("HOMEIQ_SYNERGY_CACHE_TTL", "soon")

		cfg := LoadFromEnv()

		assert.Equal(t, 0.6, cfg.Discovery.MinConfidence)
		assert.Equal(t, 100, cfg.Chains.MaxFourDeviceChains)
		assert.Equal(t, Duration(time.Hour), cfg.Cache.TTL)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("partial file keeps defaults elsewhere", func(t *testing.T) {
		path := writeConfigFile(t, `
discovery:
  min_confidence: 0.8
cache:
  backend: badger
  in_memory: true
  ttl: 90s
`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, 0.8, cfg.Discovery.MinConfidence)
		assert.Equal(t, BackendBadger, cfg.Cache.Backend)
		assert.True(t, cfg.Cache.InMemory)
		assert.Equal(t, Duration(90*time.Second), cfg.Cache.TTL)
		assert.Equal(t, 200, cfg.Chains.MaxThreeDeviceChains, "untouched section keeps defaults")
		assert.NoError(t, cfg.Validate())
	})

	t.Run("integer ttl is taken as nanoseconds", func(t *testing.T) {
		path := writeConfigFile(t, "cache:\n  ttl: 1500000000\n")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, Duration(1500*time.Millisecond), cfg.Cache.TTL)
	})

	t.Run("example config parses", func(t *testing.T) {
		path := writeConfigFile(t, ExampleConfigYAML)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "./archetypes.yaml", cfg.Discovery.ArchetypesFile)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "discovery: [not a mapping")
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("bad duration string", func(t *testing.T) {
		path := writeConfigFile(t, "cache:\n  ttl: soonish\n")
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestLoadConfigOrDefault(t *testing.T) {
	cfg := LoadConfigOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromEnvOrFile(t *testing.T) {
	path := writeConfigFile(t, `
discovery:
  min_confidence: 0.9
cache:
  backend: badger
  in_memory: true
`)
	t.Setenv("HOMEIQ_SYNERGY_CACHE_BACKEND", "memory")

	cfg := LoadFromEnvOrFile(path)

	assert.Equal(t, 0.9, cfg.Discovery.MinConfidence, "file value survives")
	assert.Equal(t, BackendMemory, cfg.Cache.Backend, "environment wins over the file")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return DefaultConfig() }

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"confidence above one", func(c *Config) { c.Discovery.MinConfidence = 1.5 }},
		{"confidence below zero", func(c *Config) { c.Discovery.MinConfidence = -0.1 }},
		{"negative top pairs", func(c *Config) { c.Chains.TopPairsForChains = -1 }},
		{"negative three chain cap", func(c *Config) { c.Chains.MaxThreeDeviceChains = -1 }},
		{"negative four chain cap", func(c *Config) { c.Chains.MaxFourDeviceChains = -1 }},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }},
		{"negative max entries", func(c *Config) { c.Cache.MaxEntries = -1 }},
		{"negative ttl", func(c *Config) { c.Cache.TTL = Duration(-time.Second) }},
		{"badger without data dir", func(c *Config) {
			c.Cache.Backend = BackendBadger
			c.Cache.DataDir = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("badger in memory needs no data dir", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.Backend = BackendBadger
		cfg.Cache.DataDir = ""
		cfg.Cache.InMemory = true
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_String(t *testing.T) {
	s := DefaultConfig().String()

	assert.Contains(t, s, "memory")
	assert.Contains(t, s, "0.60")
	assert.NotContains(t, s, "data_dir", "paths stay out of log lines")
}
