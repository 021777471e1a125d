package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

// ProfileMetadata records when and under what name a profile was saved
type ProfileMetadata struct {
	Name    string    `toml:"name"`
	Created time.Time `toml:"created"`
}

// Profile is a full configuration snapshot plus metadata. Loading a profile
// replaces the active configuration wholesale; sections absent from the
// profile come back as zero values, never merged from the previous config.
type Profile struct {
	Metadata ProfileMetadata `toml:"metadata"`
	Config                   // embedded: sections serialize at top level, like the live config file
}

// SaveProfile snapshots the active configuration under the given name.
// Returns the path of the written profile file.
func (m *Manager) SaveProfile(name string) (string, error) {
	name = sanitizeProfileName(name)
	if name == "" {
		return "", errors.New("profile name cannot be empty")
	}

	profile := Profile{
		Metadata: ProfileMetadata{
			Name:    name,
			Created: time.Now(),
		},
		Config: *m.Active(),
	}

	data, err := toml.Marshal(profile)
	if err != nil {
		return "", errors.Wrapf(err, "failed to marshal profile %q", name)
	}

	path := filepath.Join(m.profilesDir, name+".toml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write profile %q", name)
	}

	return path, nil
}

// LoadProfile replaces the active configuration with the named profile's
// snapshot and persists it as the current config.
func (m *Manager) LoadProfile(name string) error {
	name = sanitizeProfileName(name)
	path := filepath.Join(m.profilesDir, name+".toml")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return errors.NewNotFoundError("profile %q not found", name)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read profile %q", name)
	}

	var profile Profile
	if err := toml.Unmarshal(data, &profile); err != nil {
		return errors.Wrapf(err, "failed to parse profile %q", name)
	}

	cfg := profile.Config
	m.mu.Lock()
	m.active = &cfg
	m.mu.Unlock()
	return m.save(&cfg)
}

// ListProfiles returns the names of all saved profiles
func (m *Manager) ListProfiles() ([]string, error) {
	entries, err := os.ReadDir(m.profilesDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read profiles directory")
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".toml"))
	}
	return names, nil
}
