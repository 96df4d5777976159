// Package commands implements the ussdgw CLI command tree.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/ussdgw/cmd/ussdgw/commands/menu"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "ussdgw",
	Short: "USSD session gateway for mobile banking",
	Long: `ussdgw turns short-lived USSD turns from a telco aggregator into
calls against a core-banking backend, driven by a declarative menu
configuration.

Use "ussdgw [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (default: environment variables and built-in defaults)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(menu.Cmd)
}

// GetConfigFile returns the config file path from the global --config flag.
func GetConfigFile() string {
	return cfgFile
}
