package config

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWatcher(t *testing.T) (*Manager, *Watcher) {
	t.Helper()
	m := newTestManager(t)
	w, err := NewWatcher(m, zap.NewNop().Sugar())
	require.NoError(t, err)
	w.debouncePeriod = 50 * time.Millisecond
	t.Cleanup(func() { w.Stop() })
	return m, w
}

func TestWatcher_ReloadsOnExternalEdit(t *testing.T) {
	m, w := newTestWatcher(t)

	var reloads atomic.Int32
	w.OnReload(func(cfg *Config) error {
		reloads.Add(1)
		return nil
	})
	w.Start()

	// Simulate an external editor changing the file
	edited := Default()
	edited.Settings.MaxConcurrency = 7
	data, err := toml.Marshal(edited)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(m.Path(), data, 0o644))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if reloads.Load() > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Greater(t, reloads.Load(), int32(0), "external edit should trigger a reload")
	assert.Equal(t, 7, m.Active().Settings.MaxConcurrency)
}

func TestWatcher_SuppressesOwnWrites(t *testing.T) {
	m, w := newTestWatcher(t)

	var reloads atomic.Int32
	w.OnReload(func(cfg *Config) error {
		reloads.Add(1)
		return nil
	})
	w.Start()

	require.NoError(t, m.Save())

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), reloads.Load(), "saves through the manager must not reload")
}

func TestIsBackupFile(t *testing.T) {
	assert.True(t, isBackupFile("/x/config.toml.back1"))
	assert.True(t, isBackupFile("/x/config.toml.back3"))
	assert.False(t, isBackupFile("/x/config.toml"))
	assert.False(t, isBackupFile(".back1"))
}
