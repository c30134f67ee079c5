// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "figmaconvert", cfg.Logger.ServiceName)
	assert.True(t, cfg.Capture.Headless)
	assert.Equal(t, 1280, cfg.Capture.ViewportWidth)
	assert.Equal(t, 90*time.Second, cfg.Capture.NavigationTimeout)
	assert.Equal(t, 0.01, cfg.Geometry.Precision)
	assert.Equal(t, 1.5, cfg.Geometry.VerifyTolerance)
	assert.Equal(t, 0.1, cfg.Geometry.ScrollStepError)
	assert.Equal(t, 0.05, cfg.Geometry.CanvasStepError)
	assert.Equal(t, 0.02, cfg.Geometry.OffsetStepError)
	assert.Equal(t, 8, cfg.Extract.WorkerConcurrency)
	assert.Equal(t, 1.0, cfg.Output.Precision)
	assert.True(t, cfg.Output.IncludeScrollOffset)
	assert.Equal(t, "none", cfg.Output.Compression)
	assert.Equal(t, 150.0, cfg.Output.TargetSizeMB)
	assert.Empty(t, cfg.Database.URL, "persistence is opt-in")
}

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, NewDefaultConfig().Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero viewport",
			mutate:  func(c *Config) { c.Capture.ViewportWidth = 0 },
			wantErr: "capture viewport must be positive",
		},
		{
			name:    "screenshot quality out of range",
			mutate:  func(c *Config) { c.Capture.ScreenshotQuality = 101 },
			wantErr: "screenshot_quality",
		},
		{
			name:    "non-positive precision",
			mutate:  func(c *Config) { c.Geometry.Precision = 0 },
			wantErr: "geometry.precision",
		},
		{
			name:    "non-positive verify tolerance",
			mutate:  func(c *Config) { c.Geometry.VerifyTolerance = -1 },
			wantErr: "geometry.verify_tolerance",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Extract.WorkerConcurrency = 0 },
			wantErr: "extract.worker_concurrency",
		},
		{
			name:    "zero queue",
			mutate:  func(c *Config) { c.Extract.QueueSize = 0 },
			wantErr: "extract.queue_size",
		},
		{
			name:    "unknown compression",
			mutate:  func(c *Config) { c.Output.Compression = "zstd" },
			wantErr: "output.compression",
		},
		{
			name:    "zero target size",
			mutate:  func(c *Config) { c.Output.TargetSizeMB = 0 },
			wantErr: "output.target_size_mb",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("yaml overrides defaults", func(t *testing.T) {
		yamlBytes := []byte(`
logger:
  level: debug
capture:
  viewport_width: 1920
  viewport_height: 1080
geometry:
  verify_tolerance: 2.0
output:
  compression: brotli
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logger.Level)
		assert.Equal(t, 1920, cfg.Capture.ViewportWidth)
		assert.Equal(t, 2.0, cfg.Geometry.VerifyTolerance)
		assert.Equal(t, "brotli", cfg.Output.Compression)
		// Untouched keys keep their defaults.
		assert.Equal(t, 0.01, cfg.Geometry.Precision)
		assert.True(t, cfg.Capture.Headless)
	})

	t.Run("validation failure surfaces the offending key", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("extract.worker_concurrency", 0) // Intentionally invalid

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "extract.worker_concurrency")
	})

	t.Run("database url binds from the environment", func(t *testing.T) {
		// The URL carries credentials, so it never lives in the config
		// file; the env var is the only expected source.
		t.Setenv("FIGMACONVERT_DATABASE_URL", "postgres://u:p@localhost:5432/figmaconvert")

		v := viper.New()
		SetDefaults(v)
		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@localhost:5432/figmaconvert", cfg.Database.URL)
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/figmaconvert.log
capture:
  settle_timeout: 5s
  browser_args: ["--disable-extensions"]
geometry:
  scroll_step_error: 0.2
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "/var/log/figmaconvert.log", cfg.Logger.LogFile)
	assert.Equal(t, 5*time.Second, cfg.Capture.SettleTimeout)
	assert.Contains(t, cfg.Capture.BrowserArgs, "--disable-extensions")
	assert.Equal(t, 0.2, cfg.Geometry.ScrollStepError)
}
