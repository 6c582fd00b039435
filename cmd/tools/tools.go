package tools

import (
	"github.com/spf13/cobra"
)

// ToolsCmd groups the commands that do not run a machine
var ToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Devector miscellaneous tools",
}
