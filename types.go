package steprun

// User is the account profile returned by the backend.
type User struct {
	ID          string `json:"id"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
}

// APIKey is an opaque bearer credential issued per user for programmatic
// API access, distinct from the login token. The key string itself is
// the identifier; the backend guarantees no separate id.
type APIKey struct {
	Name string `json:"name,omitempty"`
	Key  string `json:"api_key"`
}

// SessionStatus is the backend-reported lifecycle state of a sandbox
// session. No client-side state machine enforces transitions; the
// status is whatever the server last said.
type SessionStatus string

const (
	SessionStarted    SessionStatus = "started"
	SessionStopped    SessionStatus = "stopped"
	SessionHibernated SessionStatus = "hibernated"
	SessionDestroyed  SessionStatus = "destroyed"
)

// Session is a server-managed sandbox execution context. The client
// only mirrors its id and status, never its execution semantics.
type Session struct {
	SessionID string        `json:"session_id"`
	Status    SessionStatus `json:"status,omitempty"`
	Runtime   string        `json:"runtime,omitempty"`
	CreatedAt string        `json:"created_at,omitempty"`
	ExpiresAt string        `json:"expires_at,omitempty"`
}

// ExecResult is the outcome of one code execution. It is overwritten by
// each subsequent execution and never persisted.
type ExecResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	// Status distinguishes success from failure ("success" or "error").
	// Callers inspect it instead of an error return; see
	// SessionStore.ExecuteCode.
	Status string `json:"status,omitempty"`
}

// InstallResult reports a package installation run inside a session.
type InstallResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Snapshot identifies a hibernated session image that can be restored
// later.
type Snapshot struct {
	SnapshotID string `json:"snapshot_id"`
}
