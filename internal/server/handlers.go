package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
)

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question))
	result, err := s.assistant.Ask(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("retrieve request", zap.String("query", req.Query), zap.Int("k", req.K))
	hits, err := s.retriever.Retrieve(r.Context(), &req)
	if err != nil {
		s.logger.Error("retrieve failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"hits": hits})
}

type validateRequest struct {
	SQL   string `json:"sql"`
	Level string `json:"level,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	level, err := models.ParseValidationLevel(req.Level)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result := s.validator.Validate(req.SQL, level)
	s.respondJSON(w, http.StatusOK, result)
}

// handleReload rebuilds both snapshots. A failed reload reports the error but
// leaves the previous snapshot serving.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"schema": "reloaded", "corpus": "reloaded"}
	status := http.StatusOK

	if err := s.schemaMgr.Reload(); err != nil {
		s.logger.Error("schema reload failed, previous snapshot kept", zap.Error(err))
		resp["schema"] = err.Error()
		status = http.StatusInternalServerError
	}
	if err := s.corpusMgr.Reload(r.Context()); err != nil {
		s.logger.Error("corpus reload failed, previous snapshot kept", zap.Error(err))
		resp["corpus"] = err.Error()
		status = http.StatusInternalServerError
	}
	s.respondJSON(w, status, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.corpusMgr.Snapshot()
	catalog := s.schemaMgr.Catalog()
	resp := map[string]interface{}{
		"corpus_version":   snap.Version(),
		"corpus_documents": snap.Size(),
		"embedding_dims":   snap.Dimensions(),
		"schema_version":   catalog.Version(),
		"schema_tables":    catalog.Size(),
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type fixOpenRequest struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
	Level    string `json:"level,omitempty"`
}

func (s *Server) handleFixOpen(w http.ResponseWriter, r *http.Request) {
	var req fixOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SQL == "" {
		s.respondError(w, http.StatusBadRequest, "sql is required")
		return
	}
	level, err := models.ParseValidationLevel(req.Level)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result := s.validator.Validate(req.SQL, level)
	session := pipeline.NewFixSession(req.Question, req.SQL, result)
	s.sessions.Put(session)
	s.respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleFixGet(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleFixPropose(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err := session.ProposeFix(r.Context(), s.assistant); err != nil {
		s.logger.Error("fix proposal failed", zap.Error(err))
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleFixApply(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err := session.Apply(); err != nil {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleFixReject(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err := session.Reject(); err != nil {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
