package steprun

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// AuthStore is the client-side state container for the account concern:
// the current user, the API-key list, and loading/error flags. It is a
// single-writer container — every operation takes the store lock, so
// concurrent calls serialize rather than interleave.
//
// User and APIKeys are written through the configured StateStore on
// every mutation; IsLoading and Err are in-memory only and reset to
// defaults on restart.
//
// Error convention: operations report failure as a Go error return and
// additionally record the message in the Err field. Login and UserInfo
// keep their boolean contract (false on failure, error recorded). The
// original web client mixed throw/boolean/string returns per action;
// that inconsistency is deliberately collapsed here.
type AuthStore struct {
	mu     sync.Mutex
	auth   *AuthAPI
	keys   *KeyAPI
	state  StateStore
	logger *slog.Logger

	user      *User
	apiKeys   []APIKey
	isLoading bool
	err       string

	subMu  sync.Mutex
	subs   map[int]func(AuthSnapshot)
	nextID int
}

// AuthSnapshot is a point-in-time copy of the auth store's state.
type AuthSnapshot struct {
	User      *User
	APIKeys   []APIKey
	IsLoading bool
	Err       string
}

// AuthStoreOption configures an AuthStore.
type AuthStoreOption func(*AuthStore)

// WithAuthState sets durable persistence for the user and API-key list.
// Persisted state is loaded immediately; the access token written on
// login lands in the same store.
func WithAuthState(s StateStore) AuthStoreOption {
	return func(a *AuthStore) { a.state = s }
}

// WithAuthLogger sets a structured logger for store operations.
// If not set, no logs are emitted.
func WithAuthLogger(l *slog.Logger) AuthStoreOption {
	return func(a *AuthStore) { a.logger = l }
}

// NewAuthStore creates an AuthStore backed by client. When a StateStore
// is configured, previously persisted user/API-key state is restored.
func NewAuthStore(client *Client, opts ...AuthStoreOption) *AuthStore {
	a := &AuthStore{
		auth:   NewAuthAPI(client),
		keys:   NewKeyAPI(client),
		logger: nopLogger,
		subs:   make(map[int]func(AuthSnapshot)),
	}
	for _, o := range opts {
		o(a)
	}
	if a.state != nil {
		st, err := a.state.LoadAuth(context.Background())
		if err != nil {
			a.logger.Warn("authstore: load persisted state failed", "err", err)
		} else {
			a.user = st.User
			a.apiKeys = st.APIKeys
		}
	}
	return a
}

// Snapshot returns a copy of the current state.
func (a *AuthStore) Snapshot() AuthSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *AuthStore) snapshotLocked() AuthSnapshot {
	var user *User
	if a.user != nil {
		u := *a.user
		user = &u
	}
	return AuthSnapshot{
		User:      user,
		APIKeys:   slices.Clone(a.apiKeys),
		IsLoading: a.isLoading,
		Err:       a.err,
	}
}

// Subscribe registers fn to run after every state change. The returned
// function cancels the subscription.
func (a *AuthStore) Subscribe(fn func(AuthSnapshot)) (cancel func()) {
	a.subMu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	a.subMu.Unlock()
	return func() {
		a.subMu.Lock()
		delete(a.subs, id)
		a.subMu.Unlock()
	}
}

func (a *AuthStore) notify(snap AuthSnapshot) {
	a.subMu.Lock()
	subs := make([]func(AuthSnapshot), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.subMu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// mutate runs fn under the store lock, then notifies subscribers.
func (a *AuthStore) mutate(fn func()) {
	a.mu.Lock()
	fn()
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.notify(snap)
}

// begin marks an operation in flight: loading on, error cleared.
func (a *AuthStore) begin() {
	a.mutate(func() {
		a.isLoading = true
		a.err = ""
	})
}

// fail records the failure message and clears the loading flag.
func (a *AuthStore) fail(err error) {
	a.mutate(func() {
		a.err = err.Error()
		a.isLoading = false
	})
}

// finish clears the loading flag.
func (a *AuthStore) finish() {
	a.mutate(func() {
		a.isLoading = false
	})
}

// persistLocked writes user+apiKeys through the StateStore. Persistence
// failures are logged, not propagated — the in-memory state is already
// the source of truth for this process.
func (a *AuthStore) persistLocked(ctx context.Context) {
	if a.state == nil {
		return
	}
	st := AuthState{User: a.user, APIKeys: slices.Clone(a.apiKeys)}
	if err := a.state.SaveAuth(ctx, st); err != nil {
		a.logger.Warn("authstore: persist failed", "err", err)
	}
}

// Login exchanges credentials for an access token and persists the
// token for subsequent requests. It does not fetch the user profile;
// call UserInfo separately. Returns false on failure with the message
// recorded in Err.
func (a *AuthStore) Login(ctx context.Context, username, password string) bool {
	a.begin()
	resp, err := a.auth.Login(ctx, username, password)
	if err != nil {
		a.fail(err)
		return false
	}
	if resp.AccessToken == "" {
		a.fail(errors.New("Invalid credentials"))
		return false
	}
	if a.state != nil {
		if err := a.state.SaveToken(ctx, resp.AccessToken); err != nil {
			a.fail(err)
			return false
		}
	}
	a.finish()
	return true
}

// UserInfo fetches the current user and stores it. Returns false on
// failure.
func (a *AuthStore) UserInfo(ctx context.Context) bool {
	a.begin()
	user, err := a.auth.CurrentUser(ctx)
	if err != nil {
		a.fail(err)
		return false
	}
	a.mutate(func() {
		a.user = &user
		a.isLoading = false
		a.persistLocked(ctx)
	})
	return true
}

// Register signs up a new account.
func (a *AuthStore) Register(ctx context.Context, fullName, email, password string) error {
	a.begin()
	if err := a.auth.Register(ctx, fullName, email, password); err != nil {
		a.fail(err)
		return err
	}
	a.finish()
	return nil
}

// Recovery requests a password-reset email. Success is keyed on the
// backend returning a message field.
func (a *AuthStore) Recovery(ctx context.Context, email string) error {
	a.begin()
	resp, err := a.auth.RequestPasswordReset(ctx, email)
	if err != nil {
		a.fail(err)
		return err
	}
	if resp.Message == "" {
		err := errors.New(fallbackMessage)
		a.fail(err)
		return err
	}
	a.finish()
	return nil
}

// ResetPassword sets a new password using an emailed reset token.
// Success is keyed on the backend returning a message field.
func (a *AuthStore) ResetPassword(ctx context.Context, token, newPassword string) error {
	a.begin()
	resp, err := a.auth.ResetPassword(ctx, token, newPassword)
	if err != nil {
		a.fail(err)
		return err
	}
	if resp.Message == "" {
		err := errors.New(fallbackMessage)
		a.fail(err)
		return err
	}
	a.finish()
	return nil
}

// AddAPIKey creates a new API key and appends it to the local list.
// Requires a logged-in user: without one it returns ErrNotAuthenticated
// before any network call and without touching store state.
func (a *AuthStore) AddAPIKey(ctx context.Context, name string) (APIKey, error) {
	a.mu.Lock()
	authed := a.user != nil
	a.mu.Unlock()
	if !authed {
		return APIKey{}, ErrNotAuthenticated
	}

	a.begin()
	key, err := a.keys.Create(ctx, name)
	if err != nil {
		a.fail(err)
		return APIKey{}, err
	}
	if key.Key == "" {
		err := errors.New("Failed to create API key")
		a.fail(err)
		return APIKey{}, err
	}
	a.mutate(func() {
		a.apiKeys = append(a.apiKeys, key)
		a.isLoading = false
		a.persistLocked(ctx)
	})
	return key, nil
}

// DeleteAPIKey revokes a key and removes it from the local list by
// exact match on the key string. Requires a logged-in user.
func (a *AuthStore) DeleteAPIKey(ctx context.Context, key string) error {
	a.mu.Lock()
	authed := a.user != nil
	a.mu.Unlock()
	if !authed {
		return ErrNotAuthenticated
	}

	a.begin()
	if err := a.keys.Delete(ctx, key); err != nil {
		a.fail(err)
		return err
	}
	a.mutate(func() {
		a.apiKeys = slices.DeleteFunc(a.apiKeys, func(k APIKey) bool {
			return k.Key == key
		})
		a.isLoading = false
		a.persistLocked(ctx)
	})
	return nil
}

// Logout invalidates the session server-side (best effort) and clears
// the local user, API keys, and persisted token.
func (a *AuthStore) Logout(ctx context.Context) error {
	a.begin()
	if err := a.auth.Logout(ctx); err != nil {
		// Local state is cleared regardless: a dead token server-side
		// must not keep the client logged in.
		a.logger.Warn("authstore: server logout failed", "err", err)
	}
	var clearErr error
	a.mutate(func() {
		a.user = nil
		a.apiKeys = nil
		a.isLoading = false
		a.persistLocked(ctx)
		if a.state != nil {
			clearErr = a.state.ClearToken(ctx)
		}
	})
	return clearErr
}

// ClearError resets the error state. Synchronous, no side effects.
func (a *AuthStore) ClearError() {
	a.mutate(func() {
		a.err = ""
	})
}
