// Package config manages the automation system's durable configuration:
// load/save with rotating backups, named profiles, and file-pattern
// matching for watched artifacts.
package config

// Config represents the full application configuration
type Config struct {
	Paths      PathsConfig      `mapstructure:"paths" toml:"paths"`
	Settings   SettingsConfig   `mapstructure:"settings" toml:"settings"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" toml:"monitoring"`
}

// PathsConfig holds filesystem locations
type PathsConfig struct {
	ExecutablePath     string `mapstructure:"executable_path" toml:"executable_path"`           // EZCAD2 executable
	LastSpreadsheetDir string `mapstructure:"last_spreadsheet_dir" toml:"last_spreadsheet_dir"` // last directory a spreadsheet was opened from
	LastArtifactDir    string `mapstructure:"last_artifact_dir" toml:"last_artifact_dir"`       // last directory an .ezd file was opened from
	DatabasePath       string `mapstructure:"database_path" toml:"database_path"`               // job store location
}

// SettingsConfig holds processing behavior
type SettingsConfig struct {
	AutoStart          bool   `mapstructure:"auto_start" toml:"auto_start"`
	MinimizeOnStart    bool   `mapstructure:"minimize_on_start" toml:"minimize_on_start"`
	AutoTrigger        bool   `mapstructure:"auto_trigger" toml:"auto_trigger"` // file notifications enqueue jobs automatically
	BatchProcess       bool   `mapstructure:"batch_process" toml:"batch_process"`
	MaxConcurrency     int    `mapstructure:"max_concurrency" toml:"max_concurrency"` // worker pool size (>= 1)
	MultipleInstances  bool   `mapstructure:"multiple_instances" toml:"multiple_instances"`
	SpreadsheetPattern string `mapstructure:"spreadsheet_pattern" toml:"spreadsheet_pattern"` // e.g. "*.xls;*.xlsx"
	ArtifactPattern    string `mapstructure:"artifact_pattern" toml:"artifact_pattern"`       // e.g. "*.ezd"
	ConnectAttempts    int    `mapstructure:"connect_attempts" toml:"connect_attempts"`       // window-connect retry budget
	ConnectIntervalMS  int    `mapstructure:"connect_interval_ms" toml:"connect_interval_ms"` // sleep between connect attempts
	SettleDelayMS      int    `mapstructure:"settle_delay_ms" toml:"settle_delay_ms"`         // focus/keystroke settle delay
}

// MonitoringConfig holds directory-watch behavior
type MonitoringConfig struct {
	Enabled        bool   `mapstructure:"enabled" toml:"enabled"`
	WatchDirectory string `mapstructure:"watch_directory" toml:"watch_directory"`
	Recursive      bool   `mapstructure:"recursive" toml:"recursive"`
}
