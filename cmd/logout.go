// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutYes bool

// logoutCmd clears the local session, downloads and saved filters.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove offline videos",
	Long: `The logout command signs this device out. It asks the backend to invalidate
the session (best-effort) and always clears local state:

- Authentication tokens and the session record in the OS keychain
- Downloaded videos and the downloads catalog
- Saved library filters
- The permission refresh timestamp`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !logoutYes {
			items, err := a.catalog.List(ctx)
			if err == nil && len(items) > 0 {
				prompt := fmt.Sprintf("Signing out deletes %d downloaded video(s). Continue? [y/N] ", len(items))
				if !confirm(prompt) {
					fmt.Println("Logout aborted.")
					return nil
				}
			}
		}

		wasLoggedIn := a.ctrl.Snapshot().LoggedIn()
		a.ctrl.Logout(ctx)

		if wasLoggedIn {
			fmt.Println("👋 Logged out. Local credentials and downloads removed.")
		} else {
			fmt.Println("Nothing to do: you were not logged in. Local data cleared.")
		}
		return nil
	},
}

func init() {
	logoutCmd.Flags().BoolVarP(&logoutYes, "yes", "y", false, "Do not ask before deleting downloads")
	rootCmd.AddCommand(logoutCmd)
}
