package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	cmd.AddCommand(
		newKeysListCmd(a),
		newKeysCreateCmd(a),
		newKeysDeleteCmd(a),
	)
	return cmd
}

func newKeysListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys known to this client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := a.auth.Snapshot().APIKeys
			if len(keys) == 0 {
				fmt.Println("No API keys. Create one with `steprun keys create`.")
				return nil
			}
			for _, k := range keys {
				name := k.Name
				if name == "" {
					name = "(unnamed)"
				}
				fmt.Printf("%s\t%s\n", name, redact(k.Key))
			}
			return nil
		},
	}
}

func newKeysCreateCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.auth.AddAPIKey(cmd.Context(), name)
			if err != nil {
				return err
			}
			// The full key is only ever shown here.
			fmt.Println(key.Key)
			fmt.Fprintln(cmd.ErrOrStderr(), "Store this key now; it will not be shown again.")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name for the key")
	return cmd
}

func newKeysDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.DeleteAPIKey(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Key revoked")
			return nil
		},
	}
}

// redact shows only the first and last four characters of a key.
func redact(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "…" + key[len(key)-4:]
}
