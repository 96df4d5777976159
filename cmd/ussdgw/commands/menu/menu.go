// Package menu implements operator tooling for the declarative menu
// configuration: listing loaded nodes, validating a directory before
// deploying it, and emitting a JSON schema for editor support.
package menu

import (
	"github.com/spf13/cobra"
)

// Cmd is the menu subcommand.
var Cmd = &cobra.Command{
	Use:   "menu",
	Short: "Inspect and validate menu configuration",
	Long: `Inspect and validate the declarative menu configuration that
drives the USSD session gateway.

Subcommands:
  list      List the menu nodes loaded from a directory
  validate  Validate a menu directory without starting the server
  schema    Generate JSON schema for menu node files`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(schemaCmd)
}
