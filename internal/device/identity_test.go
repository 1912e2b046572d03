package device

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/mise/clients/counter/internal/models"
)

func TestIdentityIsStableAcrossManagers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")

	first := NewManager(path, models.DevicePOS).Identity()
	require.NotEmpty(t, first.DeviceID)
	require.Equal(t, models.DevicePOS, first.DeviceType)

	// A fresh manager on the same file, as after a process restart.
	second := NewManager(path, models.DevicePOS).Identity()
	require.Equal(t, first.DeviceID, second.DeviceID)
}

func TestIdentityCachedWithinManager(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "device.json"), models.DeviceKDS)
	require.Equal(t, m.Identity().DeviceID, m.Identity().DeviceID)
}

func TestPersistenceFailureFallsBackToMemory(t *testing.T) {
	// A directory path that cannot exist as a file.
	dir := t.TempDir()
	m := NewManager(dir, models.DeviceKDS)

	id := m.Identity()
	require.NotEmpty(t, id.DeviceID)

	// Still stable for the life of the session.
	require.Equal(t, id.DeviceID, m.Identity().DeviceID)
}
