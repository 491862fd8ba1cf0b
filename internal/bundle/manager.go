package bundle

import (
	"sync/atomic"
	"time"

	"github.com/commonshub/commonshub-web/internal/content"
)

// snapshot is one installed bundle: the loader rooted at its extraction
// directory plus identity for headers and metrics.
type snapshot struct {
	loader   *content.Loader
	hash     string
	loadedAt time.Time
}

// Manager holds the active bundle behind an atomic pointer so the content
// API keeps serving the old bundle until a verified new one is swapped in.
type Manager struct {
	active atomic.Pointer[snapshot]
}

func NewManager() *Manager { return &Manager{} }

// Set installs a loader for the bundle identified by hash as the active one.
func (m *Manager) Set(loader *content.Loader, hash string) {
	if loader == nil {
		return
	}
	m.active.Store(&snapshot{
		loader:   loader,
		hash:     hash,
		loadedAt: time.Now().UTC(),
	})
}

// Loader returns the active bundle's loader, or nil before the first swap.
// Implements contenthttp.LoaderSource.
func (m *Manager) Loader() *content.Loader {
	s := m.active.Load()
	if s == nil {
		return nil
	}
	return s.loader
}

// Hash returns the active bundle's SHA256, or empty before the first swap.
func (m *Manager) Hash() string {
	s := m.active.Load()
	if s == nil {
		return ""
	}
	return s.hash
}

// LoadedAt returns when the active bundle was installed.
func (m *Manager) LoadedAt() time.Time {
	s := m.active.Load()
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}
