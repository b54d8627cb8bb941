// Package config loads and validates the YAML robot description that the
// framework is assembled from: transmissions, hardware drives and
// controllers. Parsing happens once at configuration time; the control path
// only ever sees the resulting typed structures.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"controlcore/internal/logging"
	"controlcore/pkg/types"
)

// DefaultUpdateRate is used when the description does not set one.
const DefaultUpdateRate = 100

// Manager owns the parsed robot description and notifies registered
// callbacks on reload.
type Manager struct {
	mu          sync.RWMutex
	path        string
	description types.Description
	watchers    []func(types.Description)
	logger      *logging.Logger
}

// NewManager creates a description manager for the given file path.
func NewManager(path string) *Manager {
	return &Manager{
		path:   path,
		logger: logging.GetLogger("config"),
	}
}

// Load reads, parses and validates the description file.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read description file: %w", err)
	}

	description, err := Parse(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.description = description
	m.mu.Unlock()

	m.logger.Info("Robot description loaded", "path", m.path, "name", description.Name)
	return nil
}

// Reload re-reads the description file and notifies the watchers.
func (m *Manager) Reload() error {
	if err := m.Load(); err != nil {
		return err
	}
	m.notifyWatchers()
	return nil
}

// Description returns the current parsed description.
func (m *Manager) Description() types.Description {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.description
}

// OnChange registers a callback invoked after every successful Reload.
func (m *Manager) OnChange(callback func(types.Description)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, callback)
}

func (m *Manager) notifyWatchers() {
	m.mu.RLock()
	watchers := make([]func(types.Description), len(m.watchers))
	copy(watchers, m.watchers)
	description := m.description
	m.mu.RUnlock()

	for _, callback := range watchers {
		callback(description)
	}
}

// Parse unmarshals and validates a robot description.
func Parse(data []byte) (types.Description, error) {
	var description types.Description
	if err := yaml.Unmarshal(data, &description); err != nil {
		return types.Description{}, fmt.Errorf("failed to parse description: %w", err)
	}

	if err := validate(&description); err != nil {
		return types.Description{}, fmt.Errorf("description validation failed: %w", err)
	}
	return description, nil
}

func validate(d *types.Description) error {
	if d.Name == "" {
		return fmt.Errorf("description requires a name")
	}
	if d.UpdateRate < 0 {
		return fmt.Errorf("update_rate must be positive, got %d", d.UpdateRate)
	}
	if d.UpdateRate == 0 {
		d.UpdateRate = DefaultUpdateRate
	}

	transmissions := make(map[string]struct{}, len(d.Transmissions))
	for _, info := range d.Transmissions {
		if info.Name == "" {
			return fmt.Errorf("every transmission requires a name")
		}
		if info.Type == "" {
			return fmt.Errorf("transmission %q has no type", info.Name)
		}
		if _, dup := transmissions[info.Name]; dup {
			return fmt.Errorf("duplicate transmission name %q", info.Name)
		}
		transmissions[info.Name] = struct{}{}
	}

	drives := make(map[string]struct{}, len(d.Drives))
	for _, drive := range d.Drives {
		if drive.Name == "" {
			return fmt.Errorf("every drive requires a name")
		}
		if _, dup := drives[drive.Name]; dup {
			return fmt.Errorf("duplicate drive name %q", drive.Name)
		}
		drives[drive.Name] = struct{}{}
		if drive.Joint == "" {
			return fmt.Errorf("drive %q has no joint", drive.Name)
		}
		if drive.Transmission != "" {
			if _, ok := transmissions[drive.Transmission]; !ok {
				return fmt.Errorf("drive %q references unknown transmission %q", drive.Name, drive.Transmission)
			}
		}
	}

	controllers := make(map[string]struct{}, len(d.Controllers))
	for _, ctrl := range d.Controllers {
		if ctrl.Name == "" {
			return fmt.Errorf("every controller requires a name")
		}
		if ctrl.Type == "" {
			return fmt.Errorf("controller %q has no type", ctrl.Name)
		}
		if _, dup := controllers[ctrl.Name]; dup {
			return fmt.Errorf("duplicate controller name %q", ctrl.Name)
		}
		controllers[ctrl.Name] = struct{}{}
	}

	return nil
}
