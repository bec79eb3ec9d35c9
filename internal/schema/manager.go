package schema

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Manager owns the current catalog snapshot and is the only writer. Readers
// call Catalog() once per request and keep using that snapshot; Reload swaps
// in a fully built replacement atomically, so in-flight readers never observe
// a partially loaded catalog. A failed reload keeps the old snapshot serving.
type Manager struct {
	path    string
	current atomic.Pointer[Catalog]
	logger  *zap.Logger
}

// NewManager loads the initial catalog from path. Errors here are fatal to
// startup: there is no older snapshot to fall back to.
func NewManager(path string, logger *zap.Logger) (*Manager, error) {
	m := &Manager{path: path, logger: logger}
	cat, err := LoadFile(path, snapshotVersion())
	if err != nil {
		return nil, fmt.Errorf("load schema catalog: %w", err)
	}
	m.current.Store(cat)
	logger.Info("schema catalog loaded",
		zap.String("path", path),
		zap.String("version", cat.Version()),
		zap.Int("tables", cat.Size()),
	)
	return m, nil
}

// NewManagerWith wraps an already built catalog; used by tests and by callers
// that construct catalogs from other sources.
func NewManagerWith(cat *Catalog, logger *zap.Logger) *Manager {
	m := &Manager{logger: logger}
	m.current.Store(cat)
	return m
}

// Catalog returns the current snapshot. The returned catalog stays valid for
// the life of the request even if a reload happens concurrently.
func (m *Manager) Catalog() *Catalog {
	return m.current.Load()
}

// Reload builds a new snapshot from the source file and swaps it in.
// On failure the previous snapshot remains active and the error is returned.
func (m *Manager) Reload() error {
	if m.path == "" {
		return fmt.Errorf("schema manager has no source path")
	}
	cat, err := LoadFile(m.path, snapshotVersion())
	if err != nil {
		m.logger.Warn("schema reload failed, keeping previous snapshot",
			zap.String("path", m.path), zap.Error(err))
		return fmt.Errorf("reload schema catalog: %w", err)
	}
	old := m.current.Swap(cat)
	m.logger.Info("schema catalog reloaded",
		zap.String("old_version", old.Version()),
		zap.String("new_version", cat.Version()),
		zap.Int("tables", cat.Size()),
	)
	return nil
}

func snapshotVersion() string {
	return time.Now().UTC().Format("20060102T150405.000000000")
}
