// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"emitron/cli/internal/logging"
	"emitron/cli/internal/session"
)

// loginCmd signs in through the browser and loads the user's entitlements.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in via browser and load your subscription",
	Long: `The login command signs this device in to Emitron. It prints a link and
opens your browser; once you approve the device the CLI stores your tokens in
the OS keychain and loads your subscription permissions.

If you are already signed in the browser step is skipped. Without network
access the CLI keeps your cached session and refreshes it later.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		before := a.ctrl.Snapshot()
		if before.LoggedIn() && before.Session.HasPermissions() {
			fmt.Printf("Already logged in as %s\n", displayName(ctx, a, before.Session))
			return nil
		}

		ch, unsubscribe := a.ctrl.Subscribe(4)
		defer unsubscribe()

		var spinner spinnerSlot
		a.surface.presented = func() { spinner.start("Waiting for browser approval") }
		a.ctrl.Login(ctx)
		res, err := awaitSettled(ctx, a.ctrl, ch)
		spinner.Stop()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				a.ctrl.Logout(context.Background())
				return fmt.Errorf("login cancelled; cleaned up")
			}
			return err
		}

		switch {
		case res.snap.Status == session.StatusFailed:
			logging.PresentFailure(failedTag(res.snap), res.snap.Reason)
			return fmt.Errorf("login failed")
		case res.deferred:
			pterm.Warning.Println("You're offline. Using your saved session; permissions will refresh when you're back online.")
			if res.snap.Status == session.StatusLoading {
				return nil
			}
		}

		fmt.Println(loginGreeting(displayName(ctx, a, res.snap.Session)))
		if s := res.snap.Session; s != nil && s.HasPermissions() && !s.CanDownload {
			pterm.Info.Println("Your plan does not include offline downloads.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

// failedTag maps a failed snapshot to the log tag used for its title.
func failedTag(s session.Snapshot) string {
	if s.LoggedIn() {
		return session.TagPermissions
	}
	return session.TagLogin
}

// displayName prefers the account email, then the user id.
func displayName(ctx context.Context, a *app, s *session.Session) string {
	if s == nil {
		return "there"
	}
	if !a.online() {
		return s.UserID
	}
	if u, err := a.api.GetMe(ctx, s.Token); err == nil && u.Email != "" {
		return u.Email
	}
	return s.UserID
}
