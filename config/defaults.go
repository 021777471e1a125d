package config

import (
	"github.com/spf13/viper"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Paths defaults
	v.SetDefault("paths.executable_path", "")
	v.SetDefault("paths.last_spreadsheet_dir", "")
	v.SetDefault("paths.last_artifact_dir", "")
	v.SetDefault("paths.database_path", "ezmark.db")

	// Settings defaults
	v.SetDefault("settings.auto_start", false)
	v.SetDefault("settings.minimize_on_start", false)
	v.SetDefault("settings.auto_trigger", false)
	v.SetDefault("settings.batch_process", false)
	v.SetDefault("settings.max_concurrency", 1)
	v.SetDefault("settings.multiple_instances", false)
	v.SetDefault("settings.spreadsheet_pattern", "*.xls;*.xlsx")
	v.SetDefault("settings.artifact_pattern", "*.ezd")
	v.SetDefault("settings.connect_attempts", 15)
	v.SetDefault("settings.connect_interval_ms", 1000)
	v.SetDefault("settings.settle_delay_ms", 500)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.watch_directory", "")
	v.SetDefault("monitoring.recursive", false)
}

// Default returns a Config populated entirely from defaults
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	// Unmarshal over defaults cannot fail with matching struct tags, but
	// keep the error path honest
	if err := v.Unmarshal(&cfg); err != nil {
		panic(errors.Wrap(err, "default config unmarshal"))
	}
	return &cfg
}

// Validate checks configuration invariants that other subsystems rely on
func (c *Config) Validate() error {
	if c.Settings.MaxConcurrency < 1 {
		return errors.Newf("settings.max_concurrency must be >= 1, got %d", c.Settings.MaxConcurrency)
	}
	if c.Settings.ConnectAttempts < 1 {
		return errors.Newf("settings.connect_attempts must be >= 1, got %d", c.Settings.ConnectAttempts)
	}
	return nil
}
