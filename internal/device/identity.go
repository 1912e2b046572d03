package device

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/mise/clients/counter/internal/models"
)

// Identity is what one physical install presents to the backend so it can
// target or acknowledge specific screens.
type Identity struct {
	DeviceID   string            `json:"deviceId"`
	DeviceType models.DeviceType `json:"deviceType"`
}

// Manager loads or creates the install's device id. The id is generated
// once and persisted to a small JSON file; if the file cannot be written
// the session runs on an in-memory id, which is degraded but never fatal.
type Manager struct {
	path       string
	deviceType models.DeviceType

	mu     sync.Mutex
	cached *Identity
}

// NewManager returns a manager persisting to path.
func NewManager(path string, deviceType models.DeviceType) *Manager {
	return &Manager{path: path, deviceType: deviceType}
}

// Identity returns the stable device identity, creating and persisting it
// on first use.
func (m *Manager) Identity() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil {
		return *m.cached
	}

	if id, err := m.load(); err == nil {
		m.cached = &id
		return id
	}

	id := Identity{
		DeviceID:   uuid.New().String(),
		DeviceType: m.deviceType,
	}
	if err := m.persist(id); err != nil {
		log.Warn().Err(err).Str("path", m.path).
			Msg("Failed to persist device id, continuing with in-memory id")
	}

	m.cached = &id
	return id
}

func (m *Manager) load() (Identity, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return Identity{}, errors.Wrap(err, "failed to read device id file")
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, errors.Wrap(err, "failed to parse device id file")
	}
	if id.DeviceID == "" {
		return Identity{}, errors.New("device id file is empty")
	}

	// The role can change between installs of the same file; the id never
	// does.
	id.DeviceType = m.deviceType
	return id, nil
}

func (m *Manager) persist(id Identity) error {
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create device id directory")
		}
	}

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode device id")
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write device id file")
	}
	return nil
}
