package menu

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/ussdgw/pkg/menu"
)

var validateDir string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a menu directory without starting the server",
	Long: `Parses every *.json file in the given directory as a menu node
and reports the first error encountered. It does not check that
navigation targets, handlers, or condition fields refer to anything
that actually exists -- only that each file is well-formed.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateDir, "dir", "", "menu configuration directory (required)")
	_ = validateCmd.MarkFlagRequired("dir")
}

func runValidate(cmd *cobra.Command, args []string) error {
	engine := menu.New(nil, nil)
	if err := engine.Load(validateDir); err != nil {
		return fmt.Errorf("menu configuration is invalid: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d node(s) loaded from %s\n", len(engine.Nodes()), validateDir)
	return nil
}
