package corpus

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/metrics"
)

// Manager owns the current corpus snapshot. Retrieval acquires the snapshot
// once per call; Reload swaps in a fully built replacement atomically, so a
// hit never dangles across an index swap. A failed reload keeps the old
// snapshot serving.
type Manager struct {
	store   *Store
	current atomic.Pointer[Snapshot]
	logger  *zap.Logger
}

// NewManager builds the initial snapshot from the store. Errors are fatal to
// startup: an empty or unreadable corpus leaves nothing to serve.
func NewManager(ctx context.Context, store *Store, logger *zap.Logger) (*Manager, error) {
	m := &Manager{store: store, logger: logger}
	snap, err := m.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus index: %w", err)
	}
	m.current.Store(snap)
	logger.Info("corpus index loaded",
		zap.String("version", snap.Version()),
		zap.Int("documents", snap.Size()),
		zap.Int("dimensions", snap.Dimensions()),
	)
	return m, nil
}

// NewManagerWith wraps an already built snapshot; used by tests.
func NewManagerWith(snap *Snapshot, logger *zap.Logger) *Manager {
	m := &Manager{logger: logger}
	m.current.Store(snap)
	return m
}

// Snapshot returns the current corpus snapshot. The returned snapshot stays
// valid for the life of the request even if a reload happens concurrently.
func (m *Manager) Snapshot() *Snapshot {
	return m.current.Load()
}

// Reload rebuilds the snapshot from the store and swaps it in. On failure
// the previous snapshot remains active and the error is returned.
func (m *Manager) Reload(ctx context.Context) error {
	if m.store == nil {
		return fmt.Errorf("corpus manager has no store")
	}
	snap, err := m.build(ctx)
	if err != nil {
		metrics.SnapshotReloadsTotal.WithLabelValues("corpus", "error").Inc()
		m.logger.Warn("corpus reload failed, keeping previous snapshot", zap.Error(err))
		return fmt.Errorf("reload corpus index: %w", err)
	}
	old := m.current.Swap(snap)
	metrics.SnapshotReloadsTotal.WithLabelValues("corpus", "success").Inc()
	m.logger.Info("corpus index reloaded",
		zap.String("old_version", old.Version()),
		zap.String("new_version", snap.Version()),
		zap.Int("documents", snap.Size()),
	)
	// The old snapshot is not closed: in-flight retrievals may still hold it,
	// and its in-memory indexes are reclaimed by GC once they release it.
	return nil
}

func (m *Manager) build(ctx context.Context) (*Snapshot, error) {
	docs, err := m.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	version := time.Now().UTC().Format("20060102T150405.000000000")
	return BuildSnapshot(ctx, version, docs)
}
