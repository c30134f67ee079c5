// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration. Values come from defaults,
// an optional YAML file and FIGMACONVERT_* environment variables, in that
// order of precedence.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Geometry GeometryConfig `mapstructure:"geometry" yaml:"geometry"`
	Extract  ExtractConfig  `mapstructure:"extract" yaml:"extract"`
	Assets   AssetsConfig   `mapstructure:"assets" yaml:"assets"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for console log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the capture-history database connection details.
// An empty URL disables persistence entirely.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// CaptureConfig holds settings for the headless browser session.
type CaptureConfig struct {
	Headless           bool          `mapstructure:"headless" yaml:"headless"`
	ViewportWidth      int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight     int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	DevicePixelRatio   float64       `mapstructure:"device_pixel_ratio" yaml:"device_pixel_ratio"`
	FullPage           bool          `mapstructure:"full_page" yaml:"full_page"`
	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleTimeout      time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
	SettlePollInterval time.Duration `mapstructure:"settle_poll_interval" yaml:"settle_poll_interval"`
	ScreenshotQuality  int           `mapstructure:"screenshot_quality" yaml:"screenshot_quality"`
	UserAgent          string        `mapstructure:"user_agent" yaml:"user_agent"`
	BrowserArgs        []string      `mapstructure:"browser_args" yaml:"browser_args"`
}

// GeometryConfig tunes the coordinate engine. The step error values are
// empirical per-step drift bounds; changing them changes every precision
// estimate in the output, so they live in config rather than code.
type GeometryConfig struct {
	Precision       float64 `mapstructure:"precision" yaml:"precision"`
	SizeTolerance   float64 `mapstructure:"size_tolerance" yaml:"size_tolerance"`
	VerifyTolerance float64 `mapstructure:"verify_tolerance" yaml:"verify_tolerance"`
	BoundLimit      float64 `mapstructure:"bound_limit" yaml:"bound_limit"`
	ScrollStepError float64 `mapstructure:"scroll_step_error" yaml:"scroll_step_error"`
	CanvasStepError float64 `mapstructure:"canvas_step_error" yaml:"canvas_step_error"`
	OffsetStepError float64 `mapstructure:"offset_step_error" yaml:"offset_step_error"`
	MatrixStepError float64 `mapstructure:"matrix_step_error" yaml:"matrix_step_error"`
	BaseStepError   float64 `mapstructure:"base_step_error" yaml:"base_step_error"`
}

// ExtractConfig configures the element processing pipeline.
type ExtractConfig struct {
	WorkerConcurrency int  `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`
	QueueSize         int  `mapstructure:"queue_size" yaml:"queue_size"`
	SkipInvisible     bool `mapstructure:"skip_invisible" yaml:"skip_invisible"`
}

// AssetsConfig bounds asset collection from the captured page.
type AssetsConfig struct {
	MaxImageKB       int           `mapstructure:"max_image_kb" yaml:"max_image_kb"`
	MaxSVGKB         int           `mapstructure:"max_svg_kb" yaml:"max_svg_kb"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency" yaml:"fetch_concurrency"`
	FetchRateLimit   float64       `mapstructure:"fetch_rate_limit" yaml:"fetch_rate_limit"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

// OutputConfig controls finalization and emission of the document.
type OutputConfig struct {
	// Precision is the rounding grid for final geometry; 1.0 produces
	// whole-pixel output.
	Precision           float64 `mapstructure:"precision" yaml:"precision"`
	IncludeScrollOffset bool    `mapstructure:"include_scroll_offset" yaml:"include_scroll_offset"`
	EnableRounding      bool    `mapstructure:"enable_rounding" yaml:"enable_rounding"`
	// Compression selects the on-disk encoding: none, gzip or brotli.
	Compression  string  `mapstructure:"compression" yaml:"compression"`
	TargetSizeMB float64 `mapstructure:"target_size_mb" yaml:"target_size_mb"`
	Aggressive   bool    `mapstructure:"aggressive" yaml:"aggressive"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; failing to unmarshal them is a programming
		// error, not a runtime condition.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "figmaconvert")
	v.SetDefault("logger.log_file", "figmaconvert.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Capture --
	v.SetDefault("capture.headless", true)
	v.SetDefault("capture.viewport_width", 1280)
	v.SetDefault("capture.viewport_height", 800)
	v.SetDefault("capture.device_pixel_ratio", 1.0)
	v.SetDefault("capture.full_page", false)
	v.SetDefault("capture.navigation_timeout", "90s")
	v.SetDefault("capture.settle_timeout", "10s")
	v.SetDefault("capture.settle_poll_interval", "250ms")
	v.SetDefault("capture.screenshot_quality", 80)

	// -- Geometry --
	v.SetDefault("geometry.precision", 0.01)
	v.SetDefault("geometry.size_tolerance", 1.0)
	v.SetDefault("geometry.verify_tolerance", 1.5)
	v.SetDefault("geometry.bound_limit", 50000.0)
	v.SetDefault("geometry.scroll_step_error", 0.1)
	v.SetDefault("geometry.canvas_step_error", 0.05)
	v.SetDefault("geometry.offset_step_error", 0.02)
	v.SetDefault("geometry.matrix_step_error", 0.05)
	v.SetDefault("geometry.base_step_error", 0.001)

	// -- Extract --
	v.SetDefault("extract.worker_concurrency", 8)
	v.SetDefault("extract.queue_size", 1024)
	v.SetDefault("extract.skip_invisible", true)

	// -- Assets --
	v.SetDefault("assets.max_image_kb", 2048)
	v.SetDefault("assets.max_svg_kb", 512)
	v.SetDefault("assets.fetch_concurrency", 4)
	v.SetDefault("assets.fetch_rate_limit", 10.0)
	v.SetDefault("assets.fetch_timeout", "30s")

	// -- Output --
	v.SetDefault("output.precision", 1.0)
	v.SetDefault("output.include_scroll_offset", true)
	v.SetDefault("output.enable_rounding", true)
	v.SetDefault("output.compression", "none")
	v.SetDefault("output.target_size_mb", 150.0)
	v.SetDefault("output.aggressive", false)
}

// NewConfigFromViper creates a validated configuration from a viper
// instance that has already read its sources.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// The database URL carries credentials; bind it explicitly so it is
	// never expected to appear in a config file.
	_ = v.BindEnv("database.url", "FIGMACONVERT_DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Capture.ViewportWidth <= 0 || c.Capture.ViewportHeight <= 0 {
		return fmt.Errorf("capture viewport must be positive, got %dx%d", c.Capture.ViewportWidth, c.Capture.ViewportHeight)
	}
	if c.Capture.ScreenshotQuality < 0 || c.Capture.ScreenshotQuality > 100 {
		return fmt.Errorf("capture.screenshot_quality must be between 0 and 100")
	}
	if c.Geometry.Precision <= 0 {
		return fmt.Errorf("geometry.precision must be a positive value")
	}
	if c.Geometry.VerifyTolerance <= 0 {
		return fmt.Errorf("geometry.verify_tolerance must be a positive value")
	}
	if c.Extract.WorkerConcurrency <= 0 {
		return fmt.Errorf("extract.worker_concurrency must be a positive integer")
	}
	if c.Extract.QueueSize <= 0 {
		return fmt.Errorf("extract.queue_size must be a positive integer")
	}
	switch c.Output.Compression {
	case "none", "gzip", "brotli":
	default:
		return fmt.Errorf("output.compression must be one of none, gzip or brotli, got %q", c.Output.Compression)
	}
	if c.Output.TargetSizeMB <= 0 {
		return fmt.Errorf("output.target_size_mb must be a positive value")
	}
	return nil
}
