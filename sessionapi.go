package steprun

import (
	"context"
	"net/url"
	"strconv"
)

// SessionAPI wraps the sandbox-session endpoints.
type SessionAPI struct {
	c *Client
}

// NewSessionAPI returns a SessionAPI using c.
func NewSessionAPI(c *Client) *SessionAPI {
	return &SessionAPI{c: c}
}

type createSessionRequest struct {
	Runtime string `json:"runtime"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// Create provisions a sandbox for the given runtime tag
// (e.g. "python3.9") and returns its server-assigned id.
func (s *SessionAPI) Create(ctx context.Context, runtime string) (Session, error) {
	var out createSessionResponse
	if err := s.c.post(ctx, "/api/v1/sessions", createSessionRequest{Runtime: runtime}, &out); err != nil {
		return Session{}, err
	}
	return Session{SessionID: out.SessionID, Runtime: runtime}, nil
}

// ListParams filters the session list. Zero values are omitted.
type ListParams struct {
	Skip  int
	Limit int
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// List returns the user's sessions, newest first.
func (s *SessionAPI) List(ctx context.Context, params ListParams) ([]Session, error) {
	var out []Session
	if err := s.c.get(ctx, "/api/v1/sessions", params.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete destroys the sandbox and removes the session record.
func (s *SessionAPI) Delete(ctx context.Context, id string) error {
	return s.c.delete(ctx, "/api/v1/sessions/"+url.PathEscape(id))
}

type execRequest struct {
	Code string `json:"code"`
}

// Exec runs code inside the session and returns captured stdout/stderr.
func (s *SessionAPI) Exec(ctx context.Context, id, code string) (ExecResult, error) {
	var out ExecResult
	err := s.c.post(ctx, "/api/v1/sessions/"+url.PathEscape(id)+"/exec", execRequest{Code: code}, &out)
	return out, err
}

type installRequest struct {
	Packages []string `json:"packages"`
}

// InstallPackages installs packages into the session's environment.
func (s *SessionAPI) InstallPackages(ctx context.Context, id string, packages []string) (InstallResult, error) {
	var out InstallResult
	err := s.c.post(ctx, "/api/v1/sessions/"+url.PathEscape(id)+"/packages", installRequest{Packages: packages}, &out)
	return out, err
}

// Hibernate snapshots the session and stops it, returning the snapshot
// id needed for Restore.
func (s *SessionAPI) Hibernate(ctx context.Context, id string) (Snapshot, error) {
	var out Snapshot
	err := s.c.post(ctx, "/api/v1/sessions/"+url.PathEscape(id)+"/hibernate", nil, &out)
	return out, err
}

type restoreRequest struct {
	SnapshotID string `json:"snapshot_id"`
}

// Restore brings a hibernated session back from a snapshot.
func (s *SessionAPI) Restore(ctx context.Context, id, snapshotID string) error {
	return s.c.post(ctx, "/api/v1/sessions/"+url.PathEscape(id)+"/restore", restoreRequest{SnapshotID: snapshotID}, nil)
}
