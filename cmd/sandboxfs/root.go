package main

import (
	"github.com/spf13/cobra"
)

// configPath is the --config flag shared by every command.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "sandboxfs",
	Short: "Origin-scoped sandboxed file system lock manager",
	Long: `sandboxfs hosts one private file tree per origin and arbitrates the
operations that compete for its entries: writable streams, synchronous
access handles, moves and removes. Conflicting requests fail immediately.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default is $XDG_CONFIG_HOME/sandboxfs/config.yaml)")
}
