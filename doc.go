// Package steprun is the Go client for the steprun hosted code-sandbox
// service.
//
// It provides a typed API client over the service's REST surface and
// per-concern state stores that mirror the hosted product's account and
// session lifecycle: authentication and API-key management, and sandbox
// sessions with code execution.
//
// # Quick Start
//
// Create a client and the stores, then drive them from your application:
//
//	client := steprun.NewClient("https://api.steprun.dev",
//		steprun.WithTokenSource(steprun.StateTokenSource(state)),
//	)
//
//	auth := steprun.NewAuthStore(client, steprun.WithAuthState(state))
//	sessions := steprun.NewSessionStore(client)
//
//	if ok := auth.Login(ctx, "user@example.com", password); ok {
//		auth.UserInfo(ctx)
//	}
//
//	sess, err := sessions.CreateSession(ctx, "python3.9")
//	result, _ := sessions.ExecuteCode(ctx, `print("hello")`)
//
// # Core Pieces
//
//   - [Client] — HTTP adapter: bearer-token attachment, error
//     normalization, user-facing notifications
//   - [AuthAPI], [KeyAPI], [SessionAPI] — one method per REST endpoint,
//     no logic beyond request shaping
//   - [AuthStore] — current user and API keys, persisted via [StateStore]
//   - [SessionStore] — session list, current session, last execution
//     result
//   - [StateStore] — durable client-side persistence contract
//     (SQLite implementation in store/sqlite)
//
// Sandbox execution semantics live entirely on the server; this package
// only mirrors session ids and statuses reported by the backend.
package steprun
