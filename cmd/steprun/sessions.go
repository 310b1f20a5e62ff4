package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Callgent/steprun"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage sandbox sessions",
	}
	cmd.AddCommand(
		newSessionsListCmd(a),
		newSessionsCreateCmd(a),
		newSessionsDeleteCmd(a),
		newSessionsHibernateCmd(a),
		newSessionsRestoreCmd(a),
	)
	return cmd
}

func newSessionsListCmd(a *app) *cobra.Command {
	var skip, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your sandbox sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := a.sessions.GetSessions(cmd.Context(), steprun.ListParams{Skip: skip, Limit: limit})
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions. Create one with `steprun sessions create`.")
				return nil
			}
			for _, s := range sessions {
				status := s.Status
				if status == "" {
					status = steprun.SessionStarted
				}
				fmt.Printf("%s\t%s\t%s\n", s.SessionID, status, s.CreatedAt)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "Skip the first N sessions")
	cmd.Flags().IntVar(&limit, "limit", 0, "Return at most N sessions")
	return cmd
}

func newSessionsCreateCmd(a *app) *cobra.Command {
	var runtime string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new sandbox session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.sessions.CreateSession(cmd.Context(), runtime)
			if err != nil {
				return err
			}
			fmt.Println(sess.SessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&runtime, "runtime", "python3.9", "Runtime tag for the sandbox")
	return cmd
}

func newSessionsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Destroy a sandbox session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Session destroyed")
			return nil
		},
	}
}

func newSessionsHibernateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hibernate <session-id>",
		Short: "Snapshot and stop a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.sessions.Hibernate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println("Snapshot:", snap.SnapshotID)
			return nil
		},
	}
}

func newSessionsRestoreCmd(a *app) *cobra.Command {
	var snapshotID string
	cmd := &cobra.Command{
		Use:   "restore <session-id>",
		Short: "Restore a hibernated session from a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.Restore(cmd.Context(), args[0], snapshotID); err != nil {
				return err
			}
			fmt.Println("Session restored")
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshotID, "snapshot", "", "Snapshot id from `steprun sessions hibernate`")
	cmd.MarkFlagRequired("snapshot")
	return cmd
}
