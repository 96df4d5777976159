package menu

import (
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/marmos91/ussdgw/pkg/menu"
)

var listDir string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the menu nodes loaded from a directory",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listDir, "dir", "", "menu configuration directory (required)")
	_ = listCmd.MarkFlagRequired("dir")
}

func runList(cmd *cobra.Command, args []string) error {
	engine := menu.New(nil, nil)
	if err := engine.Load(listDir); err != nil {
		return err
	}

	names := engine.Nodes()
	sort.Strings(names)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"node"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, name := range names {
		table.Append([]string{name})
	}
	table.Render()

	fmt.Fprintf(cmd.ErrOrStderr(), "%d node(s)\n", len(names))
	return nil
}
