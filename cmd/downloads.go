// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var downloadTitle string

var downloadsCmd = &cobra.Command{
	Use:     "downloads",
	Aliases: []string{"dl"},
	Short:   "Manage videos kept for offline playback",
}

var downloadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloaded videos",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.catalog.List(ctx)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No downloaded videos.")
			return nil
		}

		data := pterm.TableData{{"Content", "Title", "Size", "Downloaded"}}
		var total int64
		for _, it := range items {
			data = append(data, []string{it.ContentID, it.Title, formatBytes(it.Bytes), it.CreatedAt.Local().Format("2006-01-02 15:04")})
			total += it.Bytes
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
		fmt.Printf("\n%d video(s), %s in %s\n", len(items), formatBytes(total), a.catalog.Dir())
		return nil
	},
}

var downloadsAddCmd = &cobra.Command{
	Use:   "add <content-id> <file>",
	Short: "Register a downloaded file in the catalog",
	Long: `The add command records a video file that was saved for offline playback.
Relative paths are resolved against the download directory. Your plan must
include offline downloads.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		snap := a.ctrl.Snapshot()
		switch {
		case !snap.LoggedIn():
			printNotLoggedIn()
			return nil
		case !snap.Session.HasPermissions():
			return errors.New("permissions not loaded yet; run 'emitron refresh' first")
		case !snap.Session.CanDownload:
			return errors.New("your plan does not include offline downloads")
		}

		it, err := a.catalog.Record(ctx, args[0], downloadTitle, args[1])
		if err != nil {
			return err
		}
		pterm.Success.Printf("Recorded %s (%s)\n", it.ContentID, formatBytes(it.Bytes))
		return nil
	},
}

var downloadsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every downloaded video",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.catalog.PurgeAll(ctx); err != nil {
			return err
		}
		pterm.Success.Println("Downloaded videos removed.")
		return nil
	},
}

func init() {
	downloadsAddCmd.Flags().StringVar(&downloadTitle, "title", "", "Human-readable title")
	downloadsCmd.AddCommand(downloadsListCmd, downloadsAddCmd, downloadsPurgeCmd)
	rootCmd.AddCommand(downloadsCmd)
}
