// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the Emitron CLI.
// It implements subcommands for signing in, refreshing entitlements, managing
// offline downloads and signing out using the Cobra CLI framework. Every command
// drives a single session controller built by newApp.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"emitron/cli/internal/logging"
)

var (
	showVersion bool
	offline     bool
	logLevel    string
	logFormat   string
	configPath  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "emitron",
	Short:         "Emitron CLI for signing in and managing offline videos",
	Long:          `Emitron is a command-line client for the Emitron video library. It signs you in through the browser, keeps your subscription entitlements fresh and removes offline videos your plan no longer covers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("emitron %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application. Ctrl-C cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	c, err := rootCmd.ExecuteContextC(ctx)
	stop()
	if err != nil {
		name := ""
		if c != nil && c != rootCmd {
			name = c.Name()
		}
		fmt.Fprintln(os.Stderr, logging.PresentError(name, err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version information")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Treat the network as unreachable")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace|debug|info|warn|error|disabled")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text|json")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json")
}
