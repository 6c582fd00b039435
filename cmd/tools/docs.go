package tools

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Manu343726/devector/pkg/hw/debugger"
	"github.com/Manu343726/devector/pkg/hw/machine"
	"github.com/Manu343726/devector/pkg/hw/memory"
	"github.com/Manu343726/devector/pkg/utils"
	"github.com/spf13/cobra"
)

type layoutDoc struct {
	title  string
	fields []utils.BitField
	width  int
}

func (d layoutDoc) String() string {
	frame, err := utils.DrawLayout(d.fields, d.width)
	if err != nil {
		return fmt.Sprintf("%s: %v", d.title, err)
	}
	return d.title + ":\n\n" + frame
}

func layouts(docs ...layoutDoc) func() string {
	return func() string {
		return strings.Join(utils.Map(docs, layoutDoc.String), "\n")
	}
}

func requestsDoc() string {
	var b strings.Builder
	for _, name := range machine.ReqNames() {
		req, _ := machine.ParseReq(name)
		scope := "machine"
		if req.IsDebug() {
			scope = "debugger"
		}
		fmt.Fprintf(&b, "%-30s %s\n", name, scope)
	}
	return b.String()
}

var supportedModules = map[string]func() string{
	"debugger.breakpoint": layouts(
		layoutDoc{"data0", debugger.BreakpointData0Layout, 32},
		layoutDoc{"data1", debugger.BreakpointData1Layout, 64},
	),
	"debugger.watchpoint": layouts(
		layoutDoc{"data0", debugger.WatchpointData0Layout, 64},
		layoutDoc{"data1", debugger.WatchpointData1Layout, 64},
	),
	"debugger.heat":    layouts(layoutDoc{"heat entry", debugger.HeatLayout, 32}),
	"memory.mapping":   layouts(layoutDoc{"ram-disk mode byte", memory.MappingLayout, 8}),
	"machine.requests": requestsDoc,
}

func moduleNames() []string {
	names := utils.Keys(supportedModules)
	sort.Strings(names)
	return names
}

func writeDocs(w io.Writer, module string) error {
	doc, ok := supportedModules[module]
	if !ok {
		return fmt.Errorf("unknown module '%s'", module)
	}
	_, err := fmt.Fprintln(w, doc())
	return err
}

var docsCmd = &cobra.Command{
	Use:   "docs module",
	Short: "Show devector documentation",
	Long: `Dumps the documentation of the specified devector module.
By default the tool dumps the documentation to stdout, but it can be redirected to a file using the --output flag.

Supported modules:
` + strings.Join(utils.Map(moduleNames(), func(module string) string { return "  " + module }), "\n"),
	Args:      cobra.MatchAll(cobra.OnlyValidArgs, cobra.ExactArgs(1)),
	ValidArgs: moduleNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile == "" {
			return writeDocs(cmd.OutOrStdout(), args[0])
		}

		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer file.Close()
		return writeDocs(file, args[0])
	},
}

func init() {
	ToolsCmd.AddCommand(docsCmd)
	docsCmd.Flags().StringP("output", "o", "", "Output file. If not specified, the documentation is dumped to stdout.")
}
