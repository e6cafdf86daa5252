package main

import (
	"fmt"

	"github.com/marmos91/sandboxfs/pkg/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the sandboxfs configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every default value",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if err := config.InitConfigToPath(path, forceInit); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Configuration is valid")
		fmt.Fprintf(out, "  Tree store: %s\n", cfg.Tree.Type)
		fmt.Fprintf(out, "  Mixed shared modes: %v\n", cfg.Locking.MixedShared())
		for _, origin := range cfg.Origins {
			if origin.RequestsPerSecond > 0 {
				fmt.Fprintf(out, "  Origin: %s (%.2f req/s, burst %d)\n", origin.Name, origin.RequestsPerSecond, origin.Burst)
			} else {
				fmt.Fprintf(out, "  Origin: %s (unthrottled)\n", origin.Name)
			}
		}
		return nil
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema [output]",
	Short: "Write the JSON schema of the configuration file",
	Long: `Write the JSON schema of the configuration file to output, or to stdout
when no output is given. Editors use it to validate and complete config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := config.WriteSchema(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", args[0])
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing configuration file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configSchemaCmd)
	rootCmd.AddCommand(configCmd)
}
