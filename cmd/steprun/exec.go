package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Callgent/steprun"
)

func newExecCmd(a *app) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "exec [file]",
		Short: "Execute code in a sandbox session",
		Long:  "Execute code from a file (or stdin when no file is given) in the selected sandbox session and print stdout/stderr.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readCode(args)
			if err != nil {
				return err
			}
			a.sessions.SetCurrentSession(&steprun.Session{SessionID: sessionID})

			result, err := a.sessions.ExecuteCode(cmd.Context(), code)
			if err != nil {
				return err
			}
			if result.Stdout != "" {
				fmt.Print(result.Stdout)
			}
			if result.Stderr != "" {
				fmt.Fprint(os.Stderr, result.Stderr)
			}
			if result.Status == "error" {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (from `steprun sessions create`)")
	cmd.MarkFlagRequired("session")
	return cmd
}

func newInstallCmd(a *app) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "install <package>...",
		Short: "Install packages into a sandbox session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.sessions.SetCurrentSession(&steprun.Session{SessionID: sessionID})

			result, err := a.sessions.InstallPackages(cmd.Context(), args)
			if err != nil {
				return err
			}
			if result.Output != "" {
				fmt.Print(result.Output)
			}
			if !result.Success && result.Error != "" {
				return fmt.Errorf("install failed: %s", result.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (from `steprun sessions create`)")
	cmd.MarkFlagRequired("session")
	return cmd
}

func readCode(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}
