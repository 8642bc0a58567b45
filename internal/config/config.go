// internal/config/config.go

// Package config persists the host roster as a JSON file under the
// per-user config directory. All mutating operations write the whole
// registry back atomically.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"loon/internal/apperr"
	"loon/internal/models"
)

const (
	DefaultConfigFileName = "host.json"
	DefaultConfigDir      = ".config/loon"
	DefaultFilePerms      = 0600
)

type Manager struct {
	configPath string
	registry   models.Registry
}

// GetDefaultConfigPath returns ~/.config/loon/host.json without creating
// anything on disk.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", apperr.New(apperr.ConfigError, "could not get home directory", err)
	}
	return filepath.Join(homeDir, DefaultConfigDir, DefaultConfigFileName), nil
}

func NewManager(configPath string) *Manager {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			configPath = defaultPath
		} else {
			configPath = DefaultConfigFileName
		}
	}
	return &Manager{configPath: configPath}
}

func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the registry file. A missing file yields an empty registry.
// Duplicate available records are removed and, when anything was removed,
// the cleaned registry is persisted exactly once.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.registry = models.Registry{}
			return nil
		}
		return apperr.New(apperr.ConfigError, "failed to read host file", err)
	}

	var reg models.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return apperr.New(apperr.ConfigError, "failed to parse host file", err)
	}
	m.registry = reg

	if m.registry.Dedup() {
		return m.Save()
	}
	return nil
}

// Save writes the registry with a temp-file-then-rename so a crash can
// never leave a truncated host file behind.
func (m *Manager) Save() error {
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return apperr.New(apperr.ConfigError, "failed to create config directory", err)
	}

	data, err := json.Marshal(m.registry)
	if err != nil {
		return apperr.New(apperr.ConfigError, "failed to marshal host file", err)
	}

	tmp, err := os.CreateTemp(configDir, DefaultConfigFileName+".*")
	if err != nil {
		return apperr.New(apperr.ConfigError, "failed to create temp host file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperr.New(apperr.ConfigError, "failed to write host file", err)
	}
	if err := tmp.Chmod(DefaultFilePerms); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperr.New(apperr.ConfigError, "failed to set host file permissions", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperr.New(apperr.ConfigError, "failed to close host file", err)
	}
	if err := os.Rename(tmpPath, m.configPath); err != nil {
		os.Remove(tmpPath)
		return apperr.New(apperr.ConfigError, "failed to replace host file", err)
	}
	return nil
}

func (m *Manager) Registry() models.Registry {
	return m.registry
}

func (m *Manager) Hosts() []models.HostRecord {
	return m.registry.Available
}

func (m *Manager) Active() models.HostRecord {
	return m.registry.Active
}

// HasActive reports whether an active host is configured.
func (m *Manager) HasActive() bool {
	return !m.registry.Active.IsZero()
}

// Add appends a new record. An identical record is a no-op (added=false).
// A different record reusing an existing alias is rejected. The first
// record ever added becomes the active host.
func (m *Manager) Add(host models.HostRecord) (added bool, err error) {
	for _, h := range m.registry.Available {
		if h.Equal(host) {
			return false, nil
		}
		if h.Alias == host.Alias {
			return false, apperr.Newf(apperr.ConfigError,
				"alias %q already in use by %s", host.Alias, h.String())
		}
	}
	m.registry.Available = append(m.registry.Available, host)
	if m.registry.Active.IsZero() {
		m.registry.Active = host
	}
	return true, m.Save()
}

// Find resolves a record by alias, or by (username, address, port) when
// alias is empty.
func (m *Manager) Find(alias, username, address string, port int) (models.HostRecord, error) {
	i := m.registry.Find(alias, username, address, port)
	if i < 0 {
		return models.HostRecord{}, apperr.Newf(apperr.NotFoundError,
			"host does not exist, please check input with the list command")
	}
	return m.registry.Available[i], nil
}

// Delete removes the matching record. When the active host is removed the
// first remaining record is promoted, or the active host is cleared.
func (m *Manager) Delete(alias, username, address string, port int) (models.HostRecord, error) {
	i := m.registry.Find(alias, username, address, port)
	if i < 0 {
		return models.HostRecord{}, apperr.Newf(apperr.NotFoundError,
			"host does not exist, please check input with the list command")
	}
	removed := m.registry.Available[i]
	m.registry.Available = append(m.registry.Available[:i], m.registry.Available[i+1:]...)
	if removed.Equal(m.registry.Active) {
		if len(m.registry.Available) > 0 {
			m.registry.Active = m.registry.Available[0]
		} else {
			m.registry.Active = models.HostRecord{}
		}
	}
	return removed, m.Save()
}

// Switch sets the matching record as active.
func (m *Manager) Switch(alias, username, address string, port int) (models.HostRecord, error) {
	host, err := m.Find(alias, username, address, port)
	if err != nil {
		return models.HostRecord{}, err
	}
	m.registry.Active = host
	return host, m.Save()
}

// Rename changes a record's alias. Renaming the active record updates the
// active entry too.
func (m *Manager) Rename(oldAlias, newAlias string) (models.HostRecord, error) {
	i := m.registry.Find(oldAlias, "", "", 0)
	if i < 0 {
		return models.HostRecord{}, apperr.Newf(apperr.NotFoundError,
			"host does not exist, please check input with the list command")
	}
	if j := m.registry.Find(newAlias, "", "", 0); j >= 0 && j != i {
		return models.HostRecord{}, apperr.Newf(apperr.ConfigError,
			"alias %q already in use by %s", newAlias, m.registry.Available[j].String())
	}
	wasActive := m.registry.Available[i].Equal(m.registry.Active)
	m.registry.Available[i].Alias = newAlias
	if wasActive {
		m.registry.Active.Alias = newAlias
	}
	return m.registry.Available[i], m.Save()
}
