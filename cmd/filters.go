// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"emitron/cli/internal/prefs"
)

// filtersPattern matches every saved filter in prefs.ClearKeys.
const filtersPattern = "filters.*"

// filtersCmd edits the saved library filters. They are removed on logout.
var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Show or change saved library filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := prefs.Open()
		if err != nil {
			return err
		}
		keys, err := st.Keys()
		if err != nil {
			return err
		}
		shown := 0
		for _, k := range keys {
			if !strings.HasPrefix(k, "filters.") {
				continue
			}
			v, _, err := st.Get(k)
			if err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", strings.TrimPrefix(k, "filters."), v)
			shown++
		}
		if shown == 0 {
			fmt.Println("No saved filters.")
		}
		return nil
	},
}

var filtersSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Save a filter such as domains or sort",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := prefs.Open()
		if err != nil {
			return err
		}
		key := filterKey(args[0])
		if strings.Contains(key, "*") || key == "filters." {
			return fmt.Errorf("invalid filter name %q", args[0])
		}
		return st.Set(key, args[1])
	},
}

var filtersClearCmd = &cobra.Command{
	Use:   "clear [name...]",
	Short: "Remove saved filters; all of them without arguments",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := prefs.Open()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return st.ClearKeys(filtersPattern)
		}
		keys := make([]string, 0, len(args))
		for _, a := range args {
			keys = append(keys, filterKey(a))
		}
		return st.ClearKeys(keys...)
	},
}

func filterKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(name, "filters.") {
		return name
	}
	return "filters." + name
}

func init() {
	filtersCmd.AddCommand(filtersSetCmd, filtersClearCmd)
	rootCmd.AddCommand(filtersCmd)
}
