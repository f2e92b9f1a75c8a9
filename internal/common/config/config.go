// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Output   OutputConfig   `mapstructure:"output"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// --- Core App Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// PipelineConfig holds the transformation defaults threaded through every run.
type PipelineConfig struct {
	// RootMarker is the substring the structure document's root tag must carry.
	RootMarker string `mapstructure:"root_marker"`
	// ExpansionFactor caps the expanded document size at factor x input size.
	ExpansionFactor int64 `mapstructure:"expansion_factor"`
	// RegistryPath points at the category/hierarchy registry JSON.
	RegistryPath string `mapstructure:"registry_path"`
	// DefaultLanguage is the tier-3 fallback for label resolution.
	DefaultLanguage string `mapstructure:"default_language"`
	// InjectedFields maps known element ids to an event-date field id that is
	// synthesized when the element does not declare it.
	InjectedFields map[string]string `mapstructure:"injected_fields"`
}

// OutputConfig holds artifact rendering settings.
type OutputConfig struct {
	Encoding   string `mapstructure:"encoding"`    // utf-8, utf-8-sig, iso-8859-1, windows-1252
	HeaderMode string `mapstructure:"header_mode"` // technical, descriptive, both
	Delimiter  string `mapstructure:"delimiter"`
}

// CacheConfig holds the optional parsed-document cache settings.
type CacheConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	TTLDays int         `mapstructure:"ttl_days"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

func validateConfig(cfg *Config) error {
	if cfg.Pipeline.ExpansionFactor <= 0 {
		return fmt.Errorf("pipeline.expansion_factor must be positive, got %d", cfg.Pipeline.ExpansionFactor)
	}
	switch cfg.Output.HeaderMode {
	case "technical", "descriptive", "both":
	default:
		return fmt.Errorf("output.header_mode must be technical, descriptive or both, got %q", cfg.Output.HeaderMode)
	}
	if len(cfg.Output.Delimiter) != 1 {
		return fmt.Errorf("output.delimiter must be a single character, got %q", cfg.Output.Delimiter)
	}
	if cfg.Cache.Enabled && cfg.Cache.Redis.Address == "" {
		return fmt.Errorf("cache.redis.address is required when cache is enabled")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "goldenrecord-engine"
	}
	if cfg.Pipeline.RootMarker == "" {
		cfg.Pipeline.RootMarker = "hris"
	}
	if cfg.Pipeline.ExpansionFactor == 0 {
		cfg.Pipeline.ExpansionFactor = 10
	}
	if cfg.Pipeline.DefaultLanguage == "" {
		cfg.Pipeline.DefaultLanguage = "en-us"
	}
	if cfg.Output.Encoding == "" {
		cfg.Output.Encoding = "utf-8-sig"
	}
	if cfg.Output.HeaderMode == "" {
		cfg.Output.HeaderMode = "both"
	}
	if cfg.Output.Delimiter == "" {
		cfg.Output.Delimiter = ","
	}
	if cfg.Cache.TTLDays == 0 {
		cfg.Cache.TTLDays = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}
}
