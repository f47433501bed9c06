// Package fileman manages the SDK's on-disk cache. Row data, previews and
// templates are written under a root directory with timestamped random names,
// so concurrent writers never collide; cleanup is bulk-clear per directory.
package fileman

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Cache subdirectories.
const (
	DirImage = "image"
	DirData  = "data"
	DirMx    = "mx"
	DirDocs  = "docs"
)

// DataSuffix is the extension of packed row data files.
const DataSuffix = ".data"

type Manager struct {
	root string
}

// New creates a cache manager rooted at dir, creating the cache
// subdirectories as needed.
func New(dir string) (*Manager, error) {
	m := &Manager{root: dir}
	for _, sub := range []string{DirImage, DirData, DirMx, DirDocs} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	return m, nil
}

// Default returns a manager rooted in the user cache directory.
func Default() (*Manager, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return New(filepath.Join(base, "mxprint"))
}

func (m *Manager) Root() string { return m.root }

func (m *Manager) Dir(sub string) string {
	return filepath.Join(m.root, sub)
}

// NewFile returns a fresh pathname in the given cache subdirectory. The name
// embeds a timestamp and a random component.
func (m *Manager) NewFile(sub, suffix string) string {
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], suffix)
	return filepath.Join(m.root, sub, name)
}

// NewDataFile returns a fresh pathname for packed row data.
func (m *Manager) NewDataFile() string {
	return m.NewFile(DirData, DataSuffix)
}

// NewImageFile returns a fresh pathname for a preview image.
func (m *Manager) NewImageFile() string {
	return m.NewFile(DirImage, ".png")
}

// Clear removes every file in the given cache subdirectory. The directory
// itself is kept.
func (m *Manager) Clear(sub string) error {
	dir := m.Dir(sub)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll clears all cache subdirectories.
func (m *Manager) ClearAll() error {
	for _, sub := range []string{DirImage, DirData, DirMx, DirDocs} {
		if err := m.Clear(sub); err != nil {
			return err
		}
	}
	return nil
}
