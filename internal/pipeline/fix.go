package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/models"
)

// FixState is the phase of one fix round.
type FixState string

const (
	// StateGenerated: the SQL validated cleanly; no fix round needed.
	StateGenerated FixState = "GENERATED"
	// StateValidationFailed: the SQL failed validation; a fix may be proposed.
	StateValidationFailed FixState = "VALIDATION_FAILED"
	// StateFixProposed: a corrected query awaits the caller's decision.
	StateFixProposed FixState = "FIX_PROPOSED"
	// StateApplied: the caller accepted the proposed fix.
	StateApplied FixState = "APPLIED"
	// StateRejected: the caller declined the proposed fix.
	StateRejected FixState = "REJECTED"
)

// ErrInvalidTransition is returned when a session operation is called in a
// state that does not allow it.
var ErrInvalidTransition = errors.New("invalid fix session transition")

// FixSession is one caller-driven repair round over a generated query. The
// retry is never automatic: the caller decides whether to request, apply or
// reject a fix. A session is not safe for concurrent use; callers serialize
// operations on one session.
type FixSession struct {
	ID       string                   `json:"id"`
	Question string                   `json:"question"`
	SQL      string                   `json:"sql"`
	Proposed string                   `json:"proposed_sql,omitempty"`
	Result   *models.ValidationResult `json:"validation"`
	State    FixState                 `json:"state"`
}

// NewFixSession opens a session for question/sql with its validation result.
// A clean result starts at GENERATED, a failed one at VALIDATION_FAILED.
func NewFixSession(question, sql string, result *models.ValidationResult) *FixSession {
	state := StateGenerated
	if result != nil && !result.IsValid {
		state = StateValidationFailed
	}
	return &FixSession{
		ID:       uuid.NewString(),
		Question: question,
		SQL:      sql,
		Result:   result,
		State:    state,
	}
}

// ProposeFix asks the assistant for a corrected query. Allowed only from
// VALIDATION_FAILED; moves to FIX_PROPOSED with the proposal and its own
// validation result. The session's accepted SQL does not change yet.
func (s *FixSession) ProposeFix(ctx context.Context, a *Assistant) error {
	if s.State != StateValidationFailed {
		return fmt.Errorf("%w: propose from %s", ErrInvalidTransition, s.State)
	}

	packed := a.packer.PackSchema(s.Result.TablesFound, a.catalogs.Catalog())
	out, err := a.generator.Generate(ctx, buildFixPrompt(packed, s.SQL, s.Result.Errors))
	if err != nil {
		return fmt.Errorf("fix sql: %w", err)
	}

	s.Proposed = extractSQL(out)
	s.Result = a.validator.Validate(s.Proposed, a.cfg.Level)
	s.State = StateFixProposed
	return nil
}

// Apply accepts the proposed fix as the session's SQL. Allowed only from
// FIX_PROPOSED.
func (s *FixSession) Apply() error {
	if s.State != StateFixProposed {
		return fmt.Errorf("%w: apply from %s", ErrInvalidTransition, s.State)
	}
	s.SQL = s.Proposed
	s.Proposed = ""
	s.State = StateApplied
	return nil
}

// Reject declines the proposed fix, keeping the original SQL. Allowed only
// from FIX_PROPOSED.
func (s *FixSession) Reject() error {
	if s.State != StateFixProposed {
		return fmt.Errorf("%w: reject from %s", ErrInvalidTransition, s.State)
	}
	s.Proposed = ""
	s.State = StateRejected
	return nil
}

// SessionStore keeps open fix sessions by id.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*FixSession
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*FixSession)}
}

// Put stores a session.
func (st *SessionStore) Put(s *FixSession) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
}

// Get returns the session with id, or false.
func (st *SessionStore) Get(id string) (*FixSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete removes the session with id.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}
