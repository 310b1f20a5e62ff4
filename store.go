package steprun

import "context"

// AuthState is the persisted subset of the auth store: the current user
// and the API-key list. Loading flags and error state are never
// persisted and reset to defaults on restart.
type AuthState struct {
	User    *User    `json:"user"`
	APIKeys []APIKey `json:"api_keys"`
}

// StateStore is durable client-side persistence for auth state and the
// access token. It is the systems-side analogue of the web product's
// local storage: written on every auth-store mutation, read on startup,
// and consulted by the HTTP client for the bearer token on every
// outgoing request.
//
// Implementations live in store/sqlite.
type StateStore interface {
	// SaveAuth persists the user and API-key list, replacing any prior
	// state.
	SaveAuth(ctx context.Context, state AuthState) error
	// LoadAuth returns the persisted auth state. A store with nothing
	// persisted returns the zero AuthState and no error.
	LoadAuth(ctx context.Context) (AuthState, error)

	// SaveToken persists the login access token.
	SaveToken(ctx context.Context, token string) error
	// LoadToken returns the persisted access token, or "" when absent.
	LoadToken(ctx context.Context) (string, error)
	// ClearToken removes the persisted access token.
	ClearToken(ctx context.Context) error
}

// TokenSource supplies the bearer token the Client attaches to outgoing
// requests. An empty string means no Authorization header.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed-token TokenSource, useful for API-key access
// and tests.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// StateTokenSource reads the token from a StateStore on every request,
// so a login in the same process (or a prior one) is picked up without
// rewiring the client. Load errors read as "no token".
func StateTokenSource(s StateStore) TokenSource {
	return stateTokenSource{s: s}
}

type stateTokenSource struct {
	s StateStore
}

func (ts stateTokenSource) Token() string {
	token, err := ts.s.LoadToken(context.Background())
	if err != nil {
		return ""
	}
	return token
}
