package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"codefacts/internal/config"
	"codefacts/internal/errors"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create configuration",
	Long: `Configuration is merged from built-in defaults, the user config
($XDG_CONFIG_HOME/codefacts/config.{yaml,json,toml}), the project file
<root>/.codefacts.{yaml,json,toml}, a .env file in the root and CODEFACTS_*
environment variables, in increasing order of precedence.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot("")
		if err != nil {
			return err
		}
		cfg, err := config.Load(config.LoadOptions{ProjectRoot: root})
		if err != nil {
			return err
		}
		return writeResponse(cmd.OutOrStdout(), cfg, OutputFormat(formatFlag))
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .codefacts.toml with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot("")
		if err != nil {
			return err
		}
		path := filepath.Join(root, config.ProjectConfigName+".toml")
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return errors.New(errors.InvalidInput, "config file already exists (use --force to overwrite)", nil).WithPath(path)
		}

		path, err = config.DefaultConfig().Save(root)
		if err != nil {
			return errors.FromOS(err, path)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
