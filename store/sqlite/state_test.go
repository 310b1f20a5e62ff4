package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Callgent/steprun"
)

func testStateStore(t *testing.T) *StateStore {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "state.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAuthStateRoundTrip(t *testing.T) {
	s := testStateStore(t)
	ctx := context.Background()

	saved := steprun.AuthState{
		User: &steprun.User{ID: "u1", FullName: "Ada", Email: "ada@example.com", IsActive: true},
		APIKeys: []steprun.APIKey{
			{Name: "ci", Key: "sk-live-1"},
			{Key: "sk-live-2"},
		},
	}
	if err := s.SaveAuth(ctx, saved); err != nil {
		t.Fatalf("SaveAuth: %v", err)
	}

	loaded, err := s.LoadAuth(ctx)
	if err != nil {
		t.Fatalf("LoadAuth: %v", err)
	}
	if loaded.User == nil || *loaded.User != *saved.User {
		t.Errorf("user mismatch: %+v", loaded.User)
	}
	if len(loaded.APIKeys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(loaded.APIKeys))
	}
	// Append order must survive the round trip.
	if loaded.APIKeys[0].Key != "sk-live-1" || loaded.APIKeys[1].Key != "sk-live-2" {
		t.Errorf("key order lost: %+v", loaded.APIKeys)
	}
	if loaded.APIKeys[0].Name != "ci" {
		t.Errorf("key name lost: %+v", loaded.APIKeys[0])
	}
}

func TestLoadAuthEmpty(t *testing.T) {
	s := testStateStore(t)
	state, err := s.LoadAuth(context.Background())
	if err != nil {
		t.Fatalf("LoadAuth: %v", err)
	}
	if state.User != nil || len(state.APIKeys) != 0 {
		t.Errorf("expected zero state, got %+v", state)
	}
}

func TestSaveAuthReplacesPriorState(t *testing.T) {
	s := testStateStore(t)
	ctx := context.Background()

	s.SaveAuth(ctx, steprun.AuthState{
		User:    &steprun.User{ID: "u1"},
		APIKeys: []steprun.APIKey{{Key: "sk-old"}},
	})
	s.SaveAuth(ctx, steprun.AuthState{
		User:    &steprun.User{ID: "u1"},
		APIKeys: []steprun.APIKey{{Key: "sk-new"}},
	})

	loaded, err := s.LoadAuth(ctx)
	if err != nil {
		t.Fatalf("LoadAuth: %v", err)
	}
	if len(loaded.APIKeys) != 1 || loaded.APIKeys[0].Key != "sk-new" {
		t.Errorf("save must replace, not merge: %+v", loaded.APIKeys)
	}
}

func TestSaveAuthNilUserClearsUser(t *testing.T) {
	s := testStateStore(t)
	ctx := context.Background()

	s.SaveAuth(ctx, steprun.AuthState{User: &steprun.User{ID: "u1"}})
	s.SaveAuth(ctx, steprun.AuthState{})

	loaded, err := s.LoadAuth(ctx)
	if err != nil {
		t.Fatalf("LoadAuth: %v", err)
	}
	if loaded.User != nil {
		t.Errorf("expected cleared user, got %+v", loaded.User)
	}
}

func TestTokenLifecycle(t *testing.T) {
	s := testStateStore(t)
	ctx := context.Background()

	token, err := s.LoadToken(ctx)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if token != "" {
		t.Errorf("expected no token, got %q", token)
	}

	if err := s.SaveToken(ctx, "tok-1"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if err := s.SaveToken(ctx, "tok-2"); err != nil {
		t.Fatalf("SaveToken overwrite: %v", err)
	}
	token, err = s.LoadToken(ctx)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if token != "tok-2" {
		t.Errorf("expected latest token, got %q", token)
	}

	if err := s.ClearToken(ctx); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	token, _ = s.LoadToken(ctx)
	if token != "" {
		t.Errorf("expected cleared token, got %q", token)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")
	ctx := context.Background()

	s := New(path)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	s.SaveToken(ctx, "tok-1")
	s.Close()

	// Reopen: data survives, Init does not reset anything.
	s2 := New(path)
	defer s2.Close()
	if err := s2.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	token, err := s2.LoadToken(ctx)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if token != "tok-1" {
		t.Errorf("state lost across reopen, got %q", token)
	}
}

func TestStateTokenSourceReadsLiveValue(t *testing.T) {
	s := testStateStore(t)
	ctx := context.Background()

	ts := steprun.StateTokenSource(s)
	if got := ts.Token(); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
	s.SaveToken(ctx, "tok-live")
	if got := ts.Token(); got != "tok-live" {
		t.Errorf("token source must read the current value, got %q", got)
	}
}
