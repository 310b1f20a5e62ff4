package steprun

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// SessionStore is the client-side state container for sandbox sessions:
// the known session list, the currently selected session, the last
// execution result, and loading/error flags. Like AuthStore it is a
// single-writer container; no client-side state machine governs session
// status transitions — status is whatever the backend last reported.
//
// List maintenance is optimistic: create appends and trusts the server,
// delete filters and trusts the server. There is no reconciliation
// against concurrent mutation from another process; that is a known
// limitation, not a bug to paper over.
type SessionStore struct {
	mu     sync.Mutex
	api    *SessionAPI
	logger *slog.Logger

	sessions        []Session
	currentSession  *Session
	executionResult *ExecResult
	isLoading       bool
	err             string

	subMu  sync.Mutex
	subs   map[int]func(SessionSnapshot)
	nextID int
}

// SessionSnapshot is a point-in-time copy of the session store's state.
type SessionSnapshot struct {
	Sessions        []Session
	CurrentSession  *Session
	ExecutionResult *ExecResult
	IsLoading       bool
	Err             string
}

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithSessionLogger sets a structured logger for store operations.
// If not set, no logs are emitted.
func WithSessionLogger(l *slog.Logger) SessionStoreOption {
	return func(s *SessionStore) { s.logger = l }
}

// NewSessionStore creates a SessionStore backed by client.
func NewSessionStore(client *Client, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		api:    NewSessionAPI(client),
		logger: nopLogger,
		subs:   make(map[int]func(SessionSnapshot)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *SessionStore) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *SessionStore) snapshotLocked() SessionSnapshot {
	var current *Session
	if s.currentSession != nil {
		c := *s.currentSession
		current = &c
	}
	var result *ExecResult
	if s.executionResult != nil {
		r := *s.executionResult
		result = &r
	}
	return SessionSnapshot{
		Sessions:        slices.Clone(s.sessions),
		CurrentSession:  current,
		ExecutionResult: result,
		IsLoading:       s.isLoading,
		Err:             s.err,
	}
}

// Subscribe registers fn to run after every state change. The returned
// function cancels the subscription.
func (s *SessionStore) Subscribe(fn func(SessionSnapshot)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *SessionStore) notify(snap SessionSnapshot) {
	s.subMu.Lock()
	subs := make([]func(SessionSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (s *SessionStore) mutate(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *SessionStore) begin() {
	s.mutate(func() {
		s.isLoading = true
		s.err = ""
	})
}

func (s *SessionStore) fail(err error) {
	s.mutate(func() {
		s.err = err.Error()
		s.isLoading = false
	})
}

// CreateSession provisions a new sandbox for the given runtime tag,
// appends it to the session list, and makes it the current session.
func (s *SessionStore) CreateSession(ctx context.Context, runtime string) (Session, error) {
	s.begin()
	sess, err := s.api.Create(ctx, runtime)
	if err != nil {
		s.fail(err)
		return Session{}, err
	}
	s.mutate(func() {
		s.sessions = append(s.sessions, sess)
		current := sess
		s.currentSession = &current
		s.isLoading = false
	})
	return sess, nil
}

// GetSessions fetches the session list and replaces local state with it
// — unless the result is empty, in which case local state is left
// untouched and the empty list is returned. A transient empty response
// from the backend reads as "no change"; this avoids flickering an
// already-rendered list away, and it is a policy choice, not an
// oversight.
func (s *SessionStore) GetSessions(ctx context.Context, params ListParams) ([]Session, error) {
	s.begin()
	sessions, err := s.api.List(ctx, params)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.mutate(func() {
		if len(sessions) > 0 {
			s.sessions = slices.Clone(sessions)
		}
		s.isLoading = false
	})
	return sessions, nil
}

// DeleteSession destroys the session remotely and removes exactly the
// matching entry from the local list. When the deleted session was the
// current one, the current selection is cleared.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	s.begin()
	if err := s.api.Delete(ctx, id); err != nil {
		s.fail(err)
		return err
	}
	s.mutate(func() {
		s.sessions = slices.DeleteFunc(s.sessions, func(sess Session) bool {
			return sess.SessionID == id
		})
		if s.currentSession != nil && s.currentSession.SessionID == id {
			s.currentSession = nil
		}
		s.isLoading = false
	})
	return nil
}

// ExecuteCode runs code in the current session. Without a current
// session it returns ErrNoSession before any network call.
//
// A reachable execution never yields an error: backend failure is
// converted into an ExecResult with Status "error" and the message in
// Stderr, stored as the execution result and returned with a nil error.
// Callers distinguish outcomes via the Status field.
func (s *SessionStore) ExecuteCode(ctx context.Context, code string) (ExecResult, error) {
	s.mu.Lock()
	current := s.currentSession
	s.mu.Unlock()
	if current == nil {
		return ExecResult{}, ErrNoSession
	}

	s.mutate(func() {
		s.isLoading = true
		s.err = ""
		s.executionResult = nil
	})

	result, err := s.api.Exec(ctx, current.SessionID, code)
	if err == nil && (result.Stdout != "" || result.Stderr != "") {
		if result.Status == "" {
			result.Status = "success"
		}
		s.mutate(func() {
			res := result
			s.executionResult = &res
			s.isLoading = false
		})
		return result, nil
	}

	msg := "Failed to execute code"
	if err != nil {
		msg = err.Error()
	}
	errResult := ExecResult{Status: "error", Stderr: msg}
	s.mutate(func() {
		res := errResult
		s.executionResult = &res
		s.err = msg
		s.isLoading = false
	})
	return errResult, nil
}

// InstallPackages installs packages into the current session. Without a
// current session it returns ErrNoSession before any network call.
func (s *SessionStore) InstallPackages(ctx context.Context, packages []string) (InstallResult, error) {
	s.mu.Lock()
	current := s.currentSession
	s.mu.Unlock()
	if current == nil {
		return InstallResult{}, ErrNoSession
	}

	s.begin()
	result, err := s.api.InstallPackages(ctx, current.SessionID, packages)
	if err != nil {
		s.fail(err)
		return InstallResult{}, err
	}
	s.mutate(func() {
		s.isLoading = false
	})
	return result, nil
}

// Hibernate snapshots and stops the session, marking it hibernated
// locally. The returned snapshot id is required to Restore.
func (s *SessionStore) Hibernate(ctx context.Context, id string) (Snapshot, error) {
	s.begin()
	snap, err := s.api.Hibernate(ctx, id)
	if err != nil {
		s.fail(err)
		return Snapshot{}, err
	}
	s.mutate(func() {
		s.setStatusLocked(id, SessionHibernated)
		s.isLoading = false
	})
	return snap, nil
}

// Restore brings a hibernated session back from a snapshot and marks it
// started locally.
func (s *SessionStore) Restore(ctx context.Context, id, snapshotID string) error {
	s.begin()
	if err := s.api.Restore(ctx, id, snapshotID); err != nil {
		s.fail(err)
		return err
	}
	s.mutate(func() {
		s.setStatusLocked(id, SessionStarted)
		s.isLoading = false
	})
	return nil
}

// setStatusLocked updates the locally mirrored status of a session in
// both the list and the current selection. The backend remains the
// authority; this only keeps the mirror coherent until the next fetch.
func (s *SessionStore) setStatusLocked(id string, status SessionStatus) {
	for i := range s.sessions {
		if s.sessions[i].SessionID == id {
			s.sessions[i].Status = status
		}
	}
	if s.currentSession != nil && s.currentSession.SessionID == id {
		s.currentSession.Status = status
	}
}

// SetCurrentSession replaces the current selection. Synchronous; used
// to restore a selection from a saved session id.
func (s *SessionStore) SetCurrentSession(sess *Session) {
	s.mutate(func() {
		if sess == nil {
			s.currentSession = nil
			return
		}
		c := *sess
		s.currentSession = &c
	})
}

// ClearError resets the error state. Synchronous, no side effects.
func (s *SessionStore) ClearError() {
	s.mutate(func() {
		s.err = ""
	})
}
