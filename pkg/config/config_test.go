package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "1d", c.Ingestion.Period)
	assert.Equal(t, "1m", c.Ingestion.Interval)
	assert.Equal(t, 9*time.Minute, c.Ingestion.RunLockTTL)
	assert.Equal(t, DefaultUniverse, c.Ingestion.Universe)
	assert.Equal(t, 30*time.Second, c.Cache.PriceTTL)
	assert.Equal(t, 9, c.Signals.FastPeriod)
	assert.Equal(t, 21, c.Signals.SlowPeriod)
}

func TestLoadKeepsFileValues(t *testing.T) {
	p := writeConfig(t, `
ingestion:
  universe: [AAPL, MSFT]
  interval: 15m
storage:
  backend: fs
  root: /tmp/bars
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Ingestion.Universe)
	assert.Equal(t, "15m", c.Ingestion.Interval)
	assert.Equal(t, "1d", c.Ingestion.Period)
	assert.Equal(t, "/tmp/bars", c.Storage.Root)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [not, a, map]"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BUCKET_NAME", "bars-bucket")
	t.Setenv("STOCKPILOT_SYMBOLS", " nvda, AAPL ,,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("STOCKPILOT_PORT", "9090")

	c, err := LoadWithEnv("", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.Equal(t, "bars-bucket", c.Storage.Bucket)
	assert.Equal(t, []string{"nvda", "AAPL"}, c.Ingestion.Universe)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, 9090, c.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		c, err := Load("")
		require.NoError(t, err)
		c.Storage.Bucket = "b"
		return c
	}

	require.NoError(t, valid(t).Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		isErr  error
	}{
		{"missing bucket", func(c *Config) { c.Storage.Bucket = " " }, ErrMissingBucket},
		{"fs without root", func(c *Config) { c.Storage.Backend = "fs"; c.Storage.Root = "" }, ErrMissingBucket},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, nil},
		{"slow not above fast", func(c *Config) { c.Signals.SlowPeriod = c.Signals.FastPeriod }, nil},
		{"volume ratios inverted", func(c *Config) { c.Signals.LowVolumeRatio = 2 }, nil},
		{"empty universe", func(c *Config) { c.Ingestion.Universe = nil }, nil},
		{"bad policy", func(c *Config) { c.Ingestion.OHLCPolicy = "drop" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid(t)
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			if tt.isErr != nil {
				assert.ErrorIs(t, err, tt.isErr)
			}
		})
	}
}
