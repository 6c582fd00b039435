package vector

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var debugBreakpoints string

var DebugCmd = &cobra.Command{
	Use:   "debug <rom>",
	Short: "Run a ROM image under the interactive debugger",
	Long: `Interactive debugger for Vector-06c ROM images.

The machine starts stopped at the load address with the debugger attached.
Breakpoints, watchpoints and Lua scripts stop a running machine; Ctrl+C
stops it from the console.

Expressions accept registers (a, b, hl, sp, pc, cc...), symbols from the
debug file, numbers (0x1F, $1F, 0b101, 31), the operators + - * / % & | ^
<< >> and [expr] to read a byte from memory.

Example:
  devector debug game.rom
  devector debug game.rom --breakpoints game.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runDebug,
}

func init() {
	DebugCmd.Flags().StringVarP(&debugBreakpoints, "breakpoints", "b", "", "YAML file with symbols and breakpoints to load")
}

func runDebug(cmd *cobra.Command, args []string) error {
	s, err := newSession(sessionOptions{rom: args[0], attach: true, debugDoc: debugBreakpoints})
	if err != nil {
		return err
	}
	defer s.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT)
	defer signal.Stop(sigChan)

	c := newConsole(s, os.Stdout, sigChan)

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return runScript(c, os.Stdin)
	}

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(false)
	line.SetMultiLineMode(false)
	line.SetCompleter(func(input string) []string {
		var completions []string
		for _, name := range commandNames() {
			if strings.HasPrefix(name, strings.ToLower(input)) {
				completions = append(completions, name)
			}
		}
		return completions
	})

	historyFile := historyFilePath(s.settings.Debug.History)
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("ROM loaded at %s, %d symbols\n", colorAddr.Sprintf("0x%04X", s.settings.Machine.LoadAddress), len(s.symbols))
	colorSuccess.Println("Type 'help' for available commands.")
	fmt.Println()
	if err := c.showLocation(); err != nil {
		colorError.Println(err)
	}

	lastCommand := ""
	for !c.quit {
		input, err := line.Prompt("(devector) ")
		if err != nil {
			if err == io.EOF {
				colorSuccess.Println("\nExiting debugger.")
				break
			}
			if err == liner.ErrPromptAborted {
				fmt.Println()
				colorWarning.Println("Use 'quit' or 'exit' to leave the debugger.")
				continue
			}
			colorError.Printf("Error reading input: %v\n", err)
			break
		}

		// Drop a Ctrl+C pressed at the prompt so it does not stop the next run
		select {
		case <-sigChan:
		default:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			input = lastCommand
		}
		if input == "" {
			continue
		}
		if input != lastCommand {
			line.AppendHistory(input)
		}
		lastCommand = input
		c.execute(input)
	}

	if f, err := os.Create(historyFile); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
	return nil
}

// runScript executes console commands read from a non interactive input
func runScript(c *console, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for _, input := range strings.Split(string(data), "\n") {
		input = strings.TrimSpace(input)
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}
		fmt.Fprintf(c.out, "%s %s\n", colorPrompt.Sprint("(devector)"), input)
		c.execute(input)
		if c.quit {
			break
		}
	}
	return nil
}

// historyFilePath resolves the configured history file, relative paths live in the home directory
func historyFilePath(configured string) string {
	if configured == "" {
		configured = ".devector_history"
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return configured
	}
	return filepath.Join(homeDir, configured)
}
