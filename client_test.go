package steprun

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockBackend creates a test server that records requests and serves
// canned handlers by method+path.
func mockBackend(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := mockBackend(t, map[string]http.HandlerFunc{
		"GET /api/v1/users/me": func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			writeJSON(t, w, 200, User{ID: "u1"})
		},
	})
	defer srv.Close()

	client := NewClient(srv.URL, WithTokenSource(StaticToken("tok-123")))
	if _, err := NewAuthAPI(client).CurrentUser(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var hasAuth bool
	srv := mockBackend(t, map[string]http.HandlerFunc{
		"GET /api/v1/users/me": func(w http.ResponseWriter, r *http.Request) {
			_, hasAuth = r.Header["Authorization"]
			writeJSON(t, w, 200, User{ID: "u1"})
		},
	})
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := NewAuthAPI(client).CurrentUser(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hasAuth {
		t.Error("Authorization header sent without a token")
	}
}

func TestClient_ServerMessageSurfacedVerbatim(t *testing.T) {
	srv := mockBackend(t, map[string]http.HandlerFunc{
		"GET /api/v1/users/me": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, 401, map[string]string{"message": "Could not validate credentials"})
		},
	})
	defer srv.Close()

	var notified []string
	client := NewClient(srv.URL, WithNotifier(NotifierFunc(func(msg string) {
		notified = append(notified, msg)
	})))

	_, err := NewAuthAPI(client).CurrentUser(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Could not validate credentials" {
		t.Errorf("expected verbatim server message, got %q", err.Error())
	}
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) || httpErr.Status != 401 {
		t.Errorf("expected *ErrHTTP with status 401, got %#v", err)
	}
	if len(notified) != 1 || notified[0] != "Could not validate credentials" {
		t.Errorf("expected one notification with the message, got %v", notified)
	}
}

func TestClient_FallbackMessageWhenBodyUnusable(t *testing.T) {
	srv := mockBackend(t, map[string]http.HandlerFunc{
		"GET /api/v1/users/me": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(500)
			w.Write([]byte("<html>oops</html>"))
		},
	})
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := NewAuthAPI(client).CurrentUser(context.Background())
	if err == nil || err.Error() != "Request failed" {
		t.Errorf("expected fallback message, got %v", err)
	}
}

func TestClient_FastAPIDetailField(t *testing.T) {
	srv := mockBackend(t, map[string]http.HandlerFunc{
		"DELETE /api/v1/sessions/s1": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, 404, map[string]string{"detail": "Session not found"})
		},
	})
	defer srv.Close()

	client := NewClient(srv.URL)
	err := NewSessionAPI(client).Delete(context.Background(), "s1")
	if err == nil || err.Error() != "Session not found" {
		t.Errorf("expected detail field surfaced, got %v", err)
	}
}

func TestClient_NetworkFailureIsFixedString(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL)
	_, err := NewAuthAPI(client).CurrentUser(context.Background())
	if err != ErrNoResponse {
		t.Errorf("expected ErrNoResponse, got %v", err)
	}
}

func TestClient_NoNotificationOnSuccess(t *testing.T) {
	srv := mockBackend(t, map[string]http.HandlerFunc{
		"GET /api/v1/users/me": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, 200, User{ID: "u1"})
		},
	})
	defer srv.Close()

	notified := 0
	client := NewClient(srv.URL, WithNotifier(NotifierFunc(func(string) { notified++ })))
	if _, err := NewAuthAPI(client).CurrentUser(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notified != 0 {
		t.Errorf("expected no notifications on success, got %d", notified)
	}
}

func TestClient_RequestIDStamped(t *testing.T) {
	seen := map[string]bool{}
	srv := mockBackend(t, map[string]http.HandlerFunc{
		"GET /api/v1/users/me": func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				t.Error("missing X-Request-ID")
			}
			seen[id] = true
			writeJSON(t, w, 200, User{ID: "u1"})
		},
	})
	defer srv.Close()

	client := NewClient(srv.URL)
	api := NewAuthAPI(client)
	api.CurrentUser(context.Background())
	api.CurrentUser(context.Background())
	if len(seen) != 2 {
		t.Errorf("expected unique request ids, got %d", len(seen))
	}
}
