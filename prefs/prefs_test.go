package prefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveAutoConnectDevice("uuid-1", "AA:BB:CC:DD:EE:FF", 1))
	require.NoError(t, s.SaveWifiCredentials("office", "hunter2"))
	require.NoError(t, s.SetBool(ApNotReminderKey, true))

	// reopen and read everything back
	s2, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", s2.String(AutoConnectDeviceIdentifierKey))
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", s2.String(AutoConnectDeviceMacKey))
	assert.Equal(t, 1, s2.Int(AutoConnectDeviceConnTypeKey))
	assert.Equal(t, "office", s2.String(WifiNameKey))
	assert.Equal(t, "hunter2", s2.String(WifiPasswordKey))
	assert.True(t, s2.Bool(ApNotReminderKey))
	assert.False(t, s2.Bool(ExitEditNotReminderKey), "unset keys read zero")
}

func TestStore_delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetString(WifiNameKey, "office"))
	require.NoError(t, s.Delete(WifiNameKey))
	assert.Empty(t, s.String(WifiNameKey))
}

func TestOpen_missingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, s.String(WifiNameKey))
}
