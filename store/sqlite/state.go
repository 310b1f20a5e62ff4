// Package sqlite implements steprun.StateStore using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Callgent/steprun"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// schemaVersion is bumped when the persisted shape changes. The web
// client this replaces had no migration story at all; recording the
// version now means a future change can migrate instead of guessing.
const schemaVersion = 1

// StateStoreOption configures a StateStore.
type StateStoreOption func(*StateStore)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StateStoreOption {
	return func(s *StateStore) { s.logger = l }
}

// StateStore implements steprun.StateStore backed by a local SQLite
// file. It holds the persisted auth state (user, API keys) and the
// login access token.
type StateStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ steprun.StateStore = (*StateStore)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a StateStore using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so
// that all goroutines serialize through one connection, eliminating
// SQLITE_BUSY errors caused by concurrent writers opening independent
// connections.
func New(dbPath string, opts ...StateStoreOption) *StateStore {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &StateStore{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: state store opened", "path", dbPath)
	return s
}

// Init creates all required tables and records the schema version.
func (s *StateStore) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS auth_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			user_json TEXT,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			api_key TEXT PRIMARY KEY,
			name TEXT,
			position INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS access_token (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schema_info (
			version INTEGER NOT NULL
		)`,
	}
	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_info LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_info (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version > schemaVersion:
		return fmt.Errorf("state db schema version %d is newer than supported %d", version, schemaVersion)
	}

	s.logger.Debug("sqlite: init done", "took", time.Since(start))
	return nil
}

// Close closes the underlying database.
func (s *StateStore) Close() error {
	return s.db.Close()
}

// SaveAuth persists the user and API-key list, replacing prior state.
func (s *StateStore) SaveAuth(ctx context.Context, state steprun.AuthState) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var userJSON sql.NullString
	if state.User != nil {
		data, err := json.Marshal(state.User)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		userJSON = sql.NullString{String: string(data), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO auth_state (id, user_json, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET user_json = excluded.user_json, updated_at = excluded.updated_at`,
		userJSON, steprun.NowUnix()); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM api_keys`); err != nil {
		return fmt.Errorf("clear api keys: %w", err)
	}
	for i, key := range state.APIKeys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO api_keys (api_key, name, position) VALUES (?, ?, ?)`,
			key.Key, key.Name, i); err != nil {
			return fmt.Errorf("save api key: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("sqlite: auth state saved", "keys", len(state.APIKeys), "took", time.Since(start))
	return nil
}

// LoadAuth returns the persisted auth state. Nothing persisted yields
// the zero AuthState.
func (s *StateStore) LoadAuth(ctx context.Context) (steprun.AuthState, error) {
	start := time.Now()
	var state steprun.AuthState

	var userJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT user_json FROM auth_state WHERE id = 1`).Scan(&userJSON)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return steprun.AuthState{}, fmt.Errorf("load user: %w", err)
	}
	if userJSON.Valid {
		var user steprun.User
		if err := json.Unmarshal([]byte(userJSON.String), &user); err != nil {
			return steprun.AuthState{}, fmt.Errorf("unmarshal user: %w", err)
		}
		state.User = &user
	}

	rows, err := s.db.QueryContext(ctx, `SELECT api_key, name FROM api_keys ORDER BY position`)
	if err != nil {
		return steprun.AuthState{}, fmt.Errorf("load api keys: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key steprun.APIKey
		var name sql.NullString
		if err := rows.Scan(&key.Key, &name); err != nil {
			return steprun.AuthState{}, fmt.Errorf("scan api key: %w", err)
		}
		key.Name = name.String
		state.APIKeys = append(state.APIKeys, key)
	}
	if err := rows.Err(); err != nil {
		return steprun.AuthState{}, fmt.Errorf("iterate api keys: %w", err)
	}

	s.logger.Debug("sqlite: auth state loaded", "keys", len(state.APIKeys), "took", time.Since(start))
	return state, nil
}

// SaveToken persists the login access token.
func (s *StateStore) SaveToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO access_token (id, token, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		token, steprun.NowUnix())
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.logger.Debug("sqlite: token saved")
	return nil
}

// LoadToken returns the persisted access token, or "" when absent.
func (s *StateStore) LoadToken(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM access_token WHERE id = 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

// ClearToken removes the persisted access token.
func (s *StateStore) ClearToken(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM access_token`); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	s.logger.Debug("sqlite: token cleared")
	return nil
}
