package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("invalid profile")
	ErrDirNotFound     = errors.New("profile directory does not exist")
)

// ProfileInfo summarizes a stored profile for listings.
type ProfileInfo struct {
	Filename    string `json:"filename"`
	ProfileID   string `json:"profile_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ServerURL   string `json:"server_url"`
}

// Manager handles profile loading and caching
type Manager struct {
	dir            string
	defaultProfile *Profile
	profiles       map[string]*Profile
	mu             sync.RWMutex
}

// NewManager creates a profile manager over dir
func NewManager(dir string) (*Manager, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrDirNotFound, dir)
	}

	m := &Manager{
		dir:      dir,
		profiles: make(map[string]*Profile),
	}

	if err := m.loadDefaultProfile(); err != nil {
		return nil, fmt.Errorf("failed to load default profile: %w", err)
	}

	return m, nil
}

// LoadProfile loads a profile by name
func (m *Manager) LoadProfile(name string) (*Profile, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if profile, exists := m.profiles[name]; exists {
		m.mu.RUnlock()
		return profile, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(name)
}

func (m *Manager) loadLocked(name string) (*Profile, error) {
	if profile, exists := m.profiles[name]; exists {
		return profile, nil
	}

	data, err := os.ReadFile(m.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
		}
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if profile.Name == "" {
		profile.Name = name
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	m.profiles[name] = &profile
	return &profile, nil
}

// ListProfiles returns every valid profile in the directory, sorted by id
func (m *Manager) ListProfiles() ([]*ProfileInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile directory: %w", err)
	}

	var infos []*ProfileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		profile, err := m.LoadProfile(id)
		if err != nil {
			// Skip invalid profiles
			continue
		}

		infos = append(infos, &ProfileInfo{
			Filename:    entry.Name(),
			ProfileID:   id,
			Name:        profile.Name,
			Description: profile.Description,
			ServerURL:   profile.ServerURL,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ProfileID < infos[j].ProfileID })
	return infos, nil
}

// GetDefault returns the default profile
func (m *Manager) GetDefault() *Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultProfile
}

// SetDefault sets the default profile by name
func (m *Manager) SetDefault(name string) error {
	profile, err := m.LoadProfile(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultProfile = profile
	return nil
}

// RefreshCache drops cached profiles and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.profiles = make(map[string]*Profile)
	m.mu.Unlock()

	return m.loadDefaultProfile()
}

// SaveProfile validates and writes a profile to disk
func (m *Manager) SaveProfile(name string, profile *Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	name = strings.TrimSuffix(name, ".json")

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.WriteFile(m.path(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}

	m.mu.Lock()
	m.profiles[name] = profile
	m.mu.Unlock()

	return nil
}

// loadDefaultProfile picks default.json, then the first valid profile, then
// the built-in profile.
func (m *Manager) loadDefaultProfile() error {
	profile, err := m.LoadProfile("default")
	if err != nil {
		infos, listErr := m.ListProfiles()
		if listErr != nil || len(infos) == 0 {
			profile = DefaultProfile()
		} else if profile, err = m.LoadProfile(infos[0].ProfileID); err != nil {
			profile = DefaultProfile()
		}
	}

	m.mu.Lock()
	m.defaultProfile = profile
	m.mu.Unlock()
	return nil
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, name+".json")
}
