package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and store the access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			if ok := a.auth.Login(cmd.Context(), args[0], password); !ok {
				return errors.New(a.auth.Snapshot().Err)
			}
			if ok := a.auth.UserInfo(cmd.Context()); !ok {
				return errors.New(a.auth.Snapshot().Err)
			}
			user := a.auth.Snapshot().User
			fmt.Printf("Logged in as %s <%s>\n", user.FullName, user.Email)
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and discard the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var fullName string
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPasswordConfirmed()
			if err != nil {
				return err
			}
			if err := a.auth.Register(cmd.Context(), fullName, args[0], password); err != nil {
				return err
			}
			fmt.Println("Account created; check your inbox to verify, then run `steprun login`.")
			return nil
		},
	}
	cmd.Flags().StringVar(&fullName, "name", "", "Display name")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ok := a.auth.UserInfo(cmd.Context()); !ok {
				return errors.New(a.auth.Snapshot().Err)
			}
			user := a.auth.Snapshot().User
			fmt.Printf("%s <%s>\n", user.FullName, user.Email)
			if user.IsSuperuser {
				fmt.Println("role: superuser")
			}
			return nil
		},
	}
}

func newForgotPasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password-reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Recovery(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Reset email sent; use the token with `steprun reset-password`.")
			return nil
		},
	}
}

func newResetPasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password using an emailed reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPasswordConfirmed()
			if err != nil {
				return err
			}
			if err := a.auth.ResetPassword(cmd.Context(), args[0], password); err != nil {
				return err
			}
			fmt.Println("Password updated")
			return nil
		},
	}
}
