// Command steprun is the command-line front-end for the steprun hosted
// code-sandbox service: account management, API keys, and sandbox
// sessions with code execution.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Callgent/steprun"
	"github.com/Callgent/steprun/internal/config"
	"github.com/Callgent/steprun/observer"
	"github.com/Callgent/steprun/store/sqlite"
)

var version = "0.1.0"

// app holds the wired client and stores shared by all commands.
// Initialization is deferred to PersistentPreRunE so that `steprun
// version` and help work without touching config or the state db.
type app struct {
	cfg      config.Config
	state    *sqlite.StateStore
	client   *steprun.Client
	auth     *steprun.AuthStore
	sessions *steprun.SessionStore
	shutdown func(context.Context) error
}

var (
	configPath string
	verbose    bool
)

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "steprun",
		Short: "Client for the steprun code-sandbox service",
		Long:  "Manage your steprun account, API keys, and sandbox sessions, and execute code in remote sandboxes.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close(cmd.Context())
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.steprun/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging to stderr")

	rootCmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newRegisterCmd(a),
		newWhoamiCmd(a),
		newForgotPasswordCmd(a),
		newResetPasswordCmd(a),
		newKeysCmd(a),
		newSessionsCmd(a),
		newExecCmd(a),
		newInstallCmd(a),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) init(ctx context.Context) error {
	if configPath == "" {
		configPath = os.Getenv("STEPRUN_CONFIG")
	}
	a.cfg = config.Load(configPath)

	logger := steprunLogger()

	if err := os.MkdirAll(filepath.Dir(a.cfg.State.Path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	a.state = sqlite.New(a.cfg.State.Path, sqlite.WithLogger(logger))
	if err := a.state.Init(ctx); err != nil {
		return fmt.Errorf("init state db: %w", err)
	}

	hc := &http.Client{Timeout: time.Duration(a.cfg.API.TimeoutSecs) * time.Second}
	if a.cfg.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx)
		if err != nil {
			return fmt.Errorf("init observer: %w", err)
		}
		a.shutdown = shutdown
		hc.Transport = observer.NewTransport(nil, inst)
	}

	var tokens steprun.TokenSource = steprun.StateTokenSource(a.state)
	if a.cfg.API.Token != "" {
		tokens = steprun.StaticToken(a.cfg.API.Token)
	}

	a.client = steprun.NewClient(a.cfg.API.BaseURL,
		steprun.WithHTTPClient(hc),
		steprun.WithTokenSource(tokens),
		steprun.WithNotifier(steprun.NotifierFunc(func(msg string) {
			fmt.Fprintln(os.Stderr, "error:", msg)
		})),
		steprun.WithLogger(logger),
	)
	a.auth = steprun.NewAuthStore(a.client,
		steprun.WithAuthState(a.state),
		steprun.WithAuthLogger(logger),
	)
	a.sessions = steprun.NewSessionStore(a.client,
		steprun.WithSessionLogger(logger),
	)
	return nil
}

func (a *app) close(ctx context.Context) error {
	var err error
	if a.shutdown != nil {
		err = a.shutdown(ctx)
	}
	if a.state != nil {
		if cerr := a.state.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func steprunLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("steprun", version)
		},
	}
}
