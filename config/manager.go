package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

// Manager owns a configuration file and its profiles directory. It is
// constructed explicitly and passed by reference; there is no package-level
// config singleton.
//
// The active config pointer is swapped by Reload/Reset/LoadProfile, which
// can run on a watcher goroutine while other goroutines call Active; the
// mutex guards that swap.
type Manager struct {
	configPath  string
	profilesDir string

	mu        sync.RWMutex
	active    *Config
	saveHooks []func()
}

// NewManager creates a manager for the given config file. The profiles
// directory is created next to it if missing. The active configuration is
// loaded from disk, or initialized from defaults (and persisted) when the
// file does not exist yet.
func NewManager(configPath, profilesDir string) (*Manager, error) {
	if err := os.MkdirAll(profilesDir, 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create profiles directory")
	}

	m := &Manager{
		configPath:  configPath,
		profilesDir: profilesDir,
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		m.active = Default()
		if err := m.Save(); err != nil {
			return nil, errors.Wrap(err, "failed to write default config")
		}
		return m, nil
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	m.active = cfg
	return m, nil
}

// LoadFromFile loads configuration from a specific file path, applying
// defaults for any keys the file omits.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	return &cfg, nil
}

// LoadWithViper loads configuration from a provided viper instance.
// Useful for tests that need isolation from files and environment.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

// Active returns the currently loaded configuration
func (m *Manager) Active() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Path returns the config file path
func (m *Manager) Path() string {
	return m.configPath
}

// OnSave registers a hook invoked immediately before every config write.
// The config watcher uses this to suppress reload loops on its own writes.
func (m *Manager) OnSave(hook func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveHooks = append(m.saveHooks, hook)
}

// Save persists the active configuration to disk, rotating backups first
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.active
	m.mu.RUnlock()
	return m.save(cfg)
}

// save writes cfg to disk. Never called with m.mu held.
func (m *Manager) save(cfg *Config) error {
	m.mu.RLock()
	hooks := make([]func(), len(m.saveHooks))
	copy(hooks, m.saveHooks)
	m.mu.RUnlock()
	for _, hook := range hooks {
		hook()
	}

	if err := createBackup(m.configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", m.configPath)
	}

	return nil
}

// Reload replaces the active configuration with the on-disk contents
func (m *Manager) Reload() error {
	cfg, err := LoadFromFile(m.configPath)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.active = cfg
	m.mu.Unlock()
	return nil
}

// Reset repopulates every section from defaults and persists the result in
// one write, so a crash mid-reset never leaves a half-default file.
func (m *Manager) Reset() error {
	cfg := Default()
	m.mu.Lock()
	m.active = cfg
	m.mu.Unlock()
	return m.save(cfg)
}

// createBackup creates rotating backups (.back1, .back2, .back3) before
// modifying the config file
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // no file to back up
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete oldest backup")
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, 0644); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// sanitizeProfileName keeps profile filenames flat and predictable
func sanitizeProfileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, string(filepath.Separator), "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}
