// Package integration exercises snapshot hot reload across real files, the
// fsnotify watcher, and the snapshot managers.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/schema"
	"github.com/hyperjump/kotae/internal/watcher"
)

const (
	schemaV1 = "table_id,column,datatype\nanalytics.orders,order_id,INT64\nanalytics.orders,total,NUMERIC\n"
	schemaV2 = schemaV1 + "billing.invoices,invoice_id,INT64\nbilling.invoices,amount,NUMERIC\n"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestSchemaHotReloadViaWatcher(t *testing.T) {
	dir := t.TempDir()
	logger := zap.NewNop()
	schemaPath := filepath.Join(dir, "schema.csv")
	if err := os.WriteFile(schemaPath, []byte(schemaV1), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr, err := schema.NewManager(schemaPath, logger)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	if mgr.Catalog().HasTable("billing.invoices") {
		t.Fatal("v1 schema should not contain billing.invoices")
	}

	w := watcher.NewWatcher(50*time.Millisecond, logger)
	if err := w.Watch(schemaPath, func() { _ = mgr.Reload() }); err != nil {
		t.Fatalf("watch: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(schemaPath, []byte(schemaV2), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return mgr.Catalog().HasTable("billing.invoices") }) {
		t.Fatal("catalog never picked up billing.invoices after file change")
	}
}

func TestSchemaReloadFailureKeepsPreviousCatalog(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.csv")
	if err := os.WriteFile(schemaPath, []byte(schemaV2), 0o644); err != nil {
		t.Fatal(err)
	}
	mgr, err := schema.NewManager(schemaPath, zap.NewNop())
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}

	if err := os.WriteFile(schemaPath, []byte("not,a,schema\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Reload(); err == nil {
		t.Fatal("expected reload error for broken schema file")
	}
	if !mgr.Catalog().HasTable("analytics.orders") || !mgr.Catalog().HasTable("billing.invoices") {
		t.Error("previous catalog should keep serving after a failed reload")
	}
}

func TestCorpusReloadAfterReingest(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	logger := zap.NewNop()

	store, err := corpus.NewStore(filepath.Join(dir, "corpus.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	embedder := embedding.NewMockEmbedder(8)
	records := []models.CorpusRecord{
		{ID: "q1", Query: "SELECT COUNT(*) FROM analytics.orders", Description: "order count"},
	}
	if _, err := corpus.Ingest(ctx, records, embedder, store, logger); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	mgr, err := corpus.NewManager(ctx, store, logger)
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	if mgr.Snapshot().Size() != 1 {
		t.Fatalf("snapshot size = %d, want 1", mgr.Snapshot().Size())
	}
	firstVersion := mgr.Snapshot().Version()

	records = append(records, models.CorpusRecord{
		ID: "q2", Query: "SELECT SUM(total) FROM analytics.orders", Description: "revenue total",
	})
	if _, err := corpus.Ingest(ctx, records, embedder, store, logger); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if err := mgr.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if mgr.Snapshot().Size() != 2 {
		t.Errorf("snapshot size after reload = %d, want 2", mgr.Snapshot().Size())
	}
	if mgr.Snapshot().Version() == firstVersion {
		t.Error("reload should produce a new snapshot version")
	}
}
