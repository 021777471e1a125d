package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(filepath.Join(dir, "config.toml"), filepath.Join(dir, "profiles"))
	require.NoError(t, err)
	return m
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "*.xls;*.xlsx", cfg.Settings.SpreadsheetPattern)
	assert.Equal(t, "*.ezd", cfg.Settings.ArtifactPattern)
	assert.Equal(t, 15, cfg.Settings.ConnectAttempts)
	assert.Equal(t, 1000, cfg.Settings.ConnectIntervalMS)
	assert.Equal(t, 1, cfg.Settings.MaxConcurrency)
	assert.False(t, cfg.Settings.AutoTrigger)
	assert.False(t, cfg.Settings.MultipleInstances)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Settings.MaxConcurrency = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Settings.ConnectAttempts = 0
	assert.Error(t, cfg.Validate())
}

func TestManager_FirstRunWritesDefaults(t *testing.T) {
	m := newTestManager(t)

	_, err := os.Stat(m.Path())
	require.NoError(t, err, "config file should be created on first run")

	assert.Equal(t, Default().Settings, m.Active().Settings)
}

func TestManager_SaveReloadRoundTrip(t *testing.T) {
	m := newTestManager(t)

	m.Active().Settings.MaxConcurrency = 4
	m.Active().Monitoring.WatchDirectory = "/watch/here"
	require.NoError(t, m.Save())

	// A second manager over the same file sees the saved values
	m2, err := NewManager(m.Path(), filepath.Join(filepath.Dir(m.Path()), "profiles"))
	require.NoError(t, err)
	assert.Equal(t, 4, m2.Active().Settings.MaxConcurrency)
	assert.Equal(t, "/watch/here", m2.Active().Monitoring.WatchDirectory)
}

func TestManager_SaveRotatesBackups(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Save())
	require.NoError(t, m.Save())

	_, err := os.Stat(m.Path() + ".back1")
	assert.NoError(t, err, "second save should leave a .back1 of the previous file")
}

func TestManager_Reset(t *testing.T) {
	m := newTestManager(t)

	m.Active().Settings.MaxConcurrency = 8
	require.NoError(t, m.Save())

	require.NoError(t, m.Reset())
	assert.Equal(t, Default().Settings.MaxConcurrency, m.Active().Settings.MaxConcurrency)

	require.NoError(t, m.Reload())
	assert.Equal(t, Default().Settings.MaxConcurrency, m.Active().Settings.MaxConcurrency,
		"reset must persist to disk")
}

func TestManager_ConcurrentActiveAndReload(t *testing.T) {
	m := newTestManager(t)

	var wg sync.WaitGroup
	done := make(chan struct{})

	// Readers poll the active config while reloads swap it underneath, the
	// way the scheduler bridge reads it while the config watcher reloads
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_ = m.Active().Settings.MaxConcurrency
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		require.NoError(t, m.Reload())
	}
	close(done)
	wg.Wait()
}

func TestManager_ProfileRoundTrip(t *testing.T) {
	m := newTestManager(t)

	m.Active().Settings.MaxConcurrency = 3
	m.Active().Settings.AutoTrigger = true
	m.Active().Paths.ExecutablePath = `C:\EzCad2\EzCad2.exe`

	path, err := m.SaveProfile("fast lane")
	require.NoError(t, err)
	assert.Equal(t, "fast_lane.toml", filepath.Base(path), "profile names are sanitized")

	// Wipe the active config, then restore from the profile
	require.NoError(t, m.Reset())
	require.Equal(t, 1, m.Active().Settings.MaxConcurrency)

	require.NoError(t, m.LoadProfile("fast lane"))
	assert.Equal(t, 3, m.Active().Settings.MaxConcurrency)
	assert.True(t, m.Active().Settings.AutoTrigger)
	assert.Equal(t, `C:\EzCad2\EzCad2.exe`, m.Active().Paths.ExecutablePath)
}

func TestManager_ListProfiles(t *testing.T) {
	m := newTestManager(t)

	names, err := m.ListProfiles()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = m.SaveProfile("alpha")
	require.NoError(t, err)
	_, err = m.SaveProfile("beta")
	require.NoError(t, err)

	names, err = m.ListProfiles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
}

func TestManager_LoadMissingProfile(t *testing.T) {
	m := newTestManager(t)
	err := m.LoadProfile("nope")
	require.Error(t, err)
}

func TestParsePatterns(t *testing.T) {
	p := ParsePatterns("*.xls;*.xlsx", "*.ezd")

	assert.True(t, p.Matches("/data/parts.XLSX"), "matching is case-insensitive")
	assert.True(t, p.Matches(`C:\designs\bracket.ezd`))
	assert.True(t, p.Matches("/data/book.xls"))
	assert.False(t, p.Matches("/data/parts.xlsx.bak"))
	assert.False(t, p.Matches("/data/readme.txt"))
	assert.False(t, p.Matches("/data/parts"))

	assert.ElementsMatch(t, []string{".xls", ".xlsx", ".ezd"}, p.Suffixes())
	assert.False(t, p.Empty())
	assert.True(t, ParsePatterns("").Empty())
}

func TestTrackedPatterns(t *testing.T) {
	cfg := Default()
	tracked := cfg.TrackedPatterns()

	assert.True(t, tracked.Matches("a.xlsx"))
	assert.True(t, tracked.Matches("a.ezd"))
	assert.False(t, tracked.Matches("a.csv"), "csv is loadable but not watched by default")
}
