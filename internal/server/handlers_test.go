package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/packer"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/rewrite"
	"github.com/hyperjump/kotae/internal/schema"
	"github.com/hyperjump/kotae/internal/sqlcheck"
)

type stubSchemaMgr struct {
	cat       *schema.Catalog
	reloadErr error
	reloads   int
}

func (m *stubSchemaMgr) Catalog() *schema.Catalog { return m.cat }
func (m *stubSchemaMgr) Reload() error {
	m.reloads++
	return m.reloadErr
}

type stubCorpusMgr struct {
	snap      *corpus.Snapshot
	reloadErr error
	reloads   int
}

func (m *stubCorpusMgr) Snapshot() *corpus.Snapshot { return m.snap }
func (m *stubCorpusMgr) Reload(ctx context.Context) error {
	m.reloads++
	return m.reloadErr
}

func serverSnapshot(t *testing.T) *corpus.Snapshot {
	t.Helper()
	embedder := embedding.NewMockEmbedder(32)
	docs := []*models.CorpusDocument{
		{
			ID:          "q1",
			QueryText:   "SELECT SUM(total) FROM analytics.orders",
			Description: "total revenue",
			TablesUsed:  []string{"analytics.orders"},
		},
	}
	for _, doc := range docs {
		vec, err := embedder.Embed(context.Background(), doc.SearchText())
		if err != nil {
			t.Fatal(err)
		}
		doc.Embedding = vec
	}
	snap, err := corpus.BuildSnapshot(context.Background(), "test", docs)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = snap.Close() })
	return snap
}

func newTestServer(t *testing.T, gen llm.Generator) (*Server, *stubSchemaMgr, *stubCorpusMgr) {
	t.Helper()
	schemaMgr := &stubSchemaMgr{cat: schema.NewCatalog("v1", []schema.Table{
		{Name: "analytics.orders", Columns: []schema.Column{
			{Name: "order_id", Type: "INT64"},
			{Name: "total", Type: "NUMERIC"},
		}},
	})}
	corpusMgr := &stubCorpusMgr{snap: serverSnapshot(t)}

	retriever := retrieval.NewRetriever(
		corpusMgr,
		schemaMgr,
		embedding.NewMockEmbedder(32),
		retrieval.Config{TopKCandidates: 50, DefaultK: 5, MaxK: 50},
		zap.NewNop(),
	)
	validator := sqlcheck.NewValidator(schemaMgr, zap.NewNop())
	assistant := pipeline.NewAssistant(
		rewrite.NewRewriter(nil, 0, zap.NewNop()),
		retriever,
		packer.NewPacker(packer.Config{TokenBudget: 1000}, zap.NewNop()),
		validator,
		gen,
		schemaMgr,
		pipeline.Config{K: 5},
		zap.NewNop(),
	)
	srv := NewServer(assistant, retriever, validator, schemaMgr, corpusMgr, nil,
		&config.ServerConfig{Host: "localhost", Port: 0}, zap.NewNop())
	return srv, schemaMgr, corpusMgr
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, &llm.MockGenerator{Responses: []string{"SELECT 1"}})
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleAsk(t *testing.T) {
	gen := &llm.MockGenerator{Responses: []string{"SELECT SUM(total) FROM analytics.orders"}}
	srv, _, _ := newTestServer(t, gen)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/ask",
		askRequest{Question: "what is the total revenue"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res pipeline.AskResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.SQL == "" || res.Validation == nil || !res.Validation.IsValid {
		t.Errorf("result = %+v", res)
	}
}

func TestHandleAsk_BadBody(t *testing.T) {
	srv, _, _ := newTestServer(t, &llm.MockGenerator{Responses: []string{"SELECT 1"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleRetrieve(t *testing.T) {
	srv, _, _ := newTestServer(t, &llm.MockGenerator{Responses: []string{"SELECT 1"}})
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/retrieve",
		models.RetrieveRequest{Query: "total revenue", K: 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Hits []*models.RetrievalHit `json:"hits"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) == 0 {
		t.Error("expected hits")
	}
}

func TestHandleValidate(t *testing.T) {
	srv, _, _ := newTestServer(t, &llm.MockGenerator{Responses: []string{"SELECT 1"}})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/validate",
		validateRequest{SQL: "SELECT * FROM ghost", Level: "strict"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var res models.ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.IsValid || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}

	rec = doJSON(t, srv.Router(), http.MethodPost, "/api/v1/validate",
		validateRequest{SQL: "SELECT * FROM ghost", Level: "nonsense"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown level status = %d", rec.Code)
	}
}

func TestHandleReload(t *testing.T) {
	srv, schemaMgr, corpusMgr := newTestServer(t, &llm.MockGenerator{Responses: []string{"SELECT 1"}})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/reload", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if schemaMgr.reloads != 1 || corpusMgr.reloads != 1 {
		t.Errorf("reloads = %d/%d", schemaMgr.reloads, corpusMgr.reloads)
	}

	schemaMgr.reloadErr = errors.New("schema file corrupted")
	rec = doJSON(t, srv.Router(), http.MethodPost, "/api/v1/reload", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("failed reload status = %d", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _, _ := newTestServer(t, &llm.MockGenerator{Responses: []string{"SELECT 1"}})
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var res map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res["corpus_documents"].(float64) != 1 || res["schema_tables"].(float64) != 1 {
		t.Errorf("status = %v", res)
	}
}

func TestFixSessionFlow(t *testing.T) {
	gen := &llm.MockGenerator{Responses: []string{"SELECT total FROM analytics.orders"}}
	srv, _, _ := newTestServer(t, gen)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/fix",
		fixOpenRequest{Question: "revenue", SQL: "SELECT * FROM ghost"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open status = %d, body %s", rec.Code, rec.Body.String())
	}
	var session pipeline.FixSession
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatal(err)
	}
	if session.State != pipeline.StateValidationFailed {
		t.Fatalf("state = %s", session.State)
	}

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/fix/%s/propose", session.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("propose status = %d, body %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatal(err)
	}
	if session.State != pipeline.StateFixProposed || session.Proposed == "" {
		t.Fatalf("after propose: %+v", session)
	}

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/fix/%s/apply", session.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatal(err)
	}
	if session.State != pipeline.StateApplied || session.SQL != "SELECT total FROM analytics.orders" {
		t.Errorf("after apply: %+v", session)
	}

	// applied sessions allow no further transitions
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/fix/%s/reject", session.ID), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("reject after apply status = %d", rec.Code)
	}
}

func TestFixSession_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, &llm.MockGenerator{Responses: []string{"SELECT 1"}})
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/fix/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}
