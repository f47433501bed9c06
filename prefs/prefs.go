// Package prefs persists the handful of host preferences the SDK reads back
// at startup: which device to auto-connect, stored Wi-Fi credentials, and
// reminder suppressions. Values live in one JSON file.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Preference keys.
const (
	AutoConnectDeviceIdentifierKey = "autoConnectDeviceIdentifierKey"
	AutoConnectDeviceMacKey        = "autoConnectDeviceMacKey"
	AutoConnectDeviceConnTypeKey   = "autoConnectDeviceConnTypeKey"

	WifiNameKey     = "wifiNameKey"
	WifiPasswordKey = "wifiPasswordKey"

	ExitEditNotReminderKey        = "exitEditNotReminderKey"
	ApNotReminderKey              = "apNotReminderKey"
	DocSupperDeviceNotReminderKey = "docSupperDeviceNotReminderKey"
	AutoPowerOffNotReminderKey    = "autoPowerOffNotReminderKey"
)

// Store is a file-backed preference map. Writes flush immediately.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]any
}

// Open loads (or initialises) the store at path.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]any)}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := json.Unmarshal(b, &s.values); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	return s, nil
}

// OpenDefault opens the store in the user config directory.
func OpenDefault() (*Store, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "mxprint")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return Open(filepath.Join(dir, "prefs.json"))
}

func (s *Store) flush() error {
	b, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

func (s *Store) SetString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

func (s *Store) String(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.values[key].(string)
	return v
}

func (s *Store) SetBool(key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

func (s *Store) Bool(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.values[key].(bool)
	return v
}

func (s *Store) SetInt(key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

func (s *Store) Int(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := s.values[key].(type) {
	case int:
		return v
	case float64: // json numbers decode as float64
		return int(v)
	}
	return 0
}

// Delete removes a key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return s.flush()
}

// SaveAutoConnectDevice records the identity of the device to reconnect on
// next launch. Empty strings clear it.
func (s *Store) SaveAutoConnectDevice(identifier, mac string, connType int) error {
	if err := s.SetString(AutoConnectDeviceIdentifierKey, identifier); err != nil {
		return err
	}
	if err := s.SetString(AutoConnectDeviceMacKey, mac); err != nil {
		return err
	}
	return s.SetInt(AutoConnectDeviceConnTypeKey, connType)
}

// SaveWifiCredentials records the last provisioned network.
func (s *Store) SaveWifiCredentials(ssid, password string) error {
	if err := s.SetString(WifiNameKey, ssid); err != nil {
		return err
	}
	return s.SetString(WifiPasswordKey, password)
}
