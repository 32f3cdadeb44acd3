// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"emitron/cli/internal/backend"
	"emitron/cli/internal/httperrors"
	"emitron/cli/internal/session"
)

// whoamiCmd shows the signed-in account and its cached entitlements.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show current authenticated account",
	Long: `The whoami command displays the signed-in account together with the
permissions cached on this device and when they were last refreshed.
Profile details are fetched from the backend when online; otherwise the
cached session is shown.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		snap := a.ctrl.Snapshot()
		if !snap.LoggedIn() {
			printNotLoggedIn()
			return nil
		}
		s := snap.Session

		identifier := s.UserID
		if a.online() {
			u, err := a.api.GetMe(ctx, s.Token)
			switch {
			case err == nil:
				if u.Email != "" {
					identifier = u.Email
				}
			case errors.Is(err, backend.ErrUnauthorized):
				pterm.Warning.Println("Your session has expired. Run 'emitron login' to sign in again.")
			case httperrors.IsNetwork(err):
				_ = httperrors.FormatNetworkError(err, "fetching your profile", httperrors.HostFromURL(a.api.BaseURL()))
			default:
				a.log.Warn("get me failed", "error", err.Error())
			}
		}

		fmt.Printf("👤 Current user: %s\n", identifier)
		fmt.Println(describeSession(snap))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

// describeSession renders the permission part of whoami.
func describeSession(snap session.Snapshot) string {
	s := snap.Session
	var b strings.Builder
	if !s.HasPermissions() {
		b.WriteString("   Permissions: not loaded yet (run 'emitron refresh')")
		return b.String()
	}

	tags := make([]string, 0, s.Permissions.Len())
	for _, p := range s.Permissions.List() {
		tags = append(tags, string(p))
	}
	sort.Strings(tags)
	if len(tags) == 0 {
		tags = []string{"none"}
	}
	fmt.Fprintf(&b, "   Permissions: %s\n", strings.Join(tags, ", "))

	downloads := "no"
	if s.CanDownload {
		downloads = "yes"
	}
	fmt.Fprintf(&b, "   Offline downloads: %s", downloads)

	if !snap.LastRefreshedAt.IsZero() {
		fmt.Fprintf(&b, "\n   Last refreshed: %s", snap.LastRefreshedAt.Local().Format("2006-01-02 15:04"))
	}
	return b.String()
}
