package commands

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Yunusemreunal45/ezcad2-wscad/config"
	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
	"github.com/Yunusemreunal45/ezcad2-wscad/queue/schema"
)

// defaultConfigDir is where config, profiles, and the default database live
func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, ".ezmark"), nil
}

// loadManager creates the config manager against the standard config layout,
// creating the directory and a default config file on first run.
func loadManager() (*config.Manager, error) {
	dir, err := defaultConfigDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create config directory %s", dir)
	}
	return config.NewManager(filepath.Join(dir, "config.toml"), filepath.Join(dir, "profiles"))
}

// openDatabase opens and migrates the job database. If dbPath is empty the
// configured path is used, falling back to jobs.db in the config directory.
func openDatabase(cfg *config.Config, dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = cfg.Paths.DatabasePath
	}
	if dbPath == "" {
		dir, err := defaultConfigDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(dir, "jobs.db")
	}

	if parent := filepath.Dir(dbPath); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create database directory %s", parent)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}
	if err := schema.Apply(db); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to apply schema on %s", dbPath)
	}
	return db, nil
}
