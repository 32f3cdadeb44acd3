// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"emitron/cli/internal/logging"
	"emitron/cli/internal/permissions"
	"emitron/cli/internal/session"
)

// refreshCmd reloads entitlements when the refresh interval has elapsed.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh your subscription permissions if due",
	Long: `The refresh command reloads your subscription permissions from the backend.
Refreshes are throttled: if the last one happened within the configured
session.refresh_interval (24h by default) nothing is fetched. Losing the
download permission removes offline videos from this device.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		before := a.ctrl.Snapshot()
		if !before.LoggedIn() {
			printNotLoggedIn()
			return nil
		}

		ch, unsubscribe := a.ctrl.Subscribe(4)
		defer unsubscribe()

		a.ctrl.RefreshPermissionsIfDue(ctx)
		wctx, cancel := context.WithTimeout(ctx, permissions.DefaultTimeout+5*time.Second)
		defer cancel()
		// The gate check runs before WaitIdle returns; a fetch completes later.
		if err := a.ctrl.WaitIdle(wctx); err != nil {
			return err
		}
		var res settled
		if s := a.ctrl.Snapshot(); s.RefreshSkipped {
			res = settled{snap: s, skipped: true}
		} else {
			stop := startSpinner("Refreshing permissions")
			res, err = awaitSettled(wctx, a.ctrl, ch)
			stop()
			if err != nil {
				return err
			}
		}

		switch {
		case res.skipped:
			fmt.Printf("Permissions are up to date. Next refresh after %s.\n", res.snap.NextRefreshAt.Local().Format("2006-01-02 15:04"))
			return nil
		case res.snap.Status == session.StatusFailed:
			logging.PresentFailure(session.TagPermissions, res.snap.Reason)
			return fmt.Errorf("refresh failed")
		case res.deferred:
			pterm.Warning.Println("You're offline. Permissions will refresh when you're back online.")
			return nil
		}

		pterm.Success.Println("Permissions refreshed.")
		fmt.Println(describeSession(res.snap))
		if before.Session.CanDownload && !res.snap.Session.CanDownload {
			pterm.Warning.Println("Your plan no longer includes offline downloads. Downloaded videos were removed.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
