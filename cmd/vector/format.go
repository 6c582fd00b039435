package vector

import (
	"fmt"
	"strings"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
	"github.com/Manu343726/devector/pkg/hw/machine"
	"github.com/fatih/color"
)

var (
	colorAddr       = color.New(color.FgCyan)
	colorInstr      = color.New(color.FgYellow)
	colorReg        = color.New(color.FgGreen)
	colorValue      = color.New(color.FgWhite, color.Bold)
	colorPrompt     = color.New(color.FgBlue, color.Bold)
	colorError      = color.New(color.FgRed, color.Bold)
	colorSuccess    = color.New(color.FgGreen)
	colorWarning    = color.New(color.FgYellow)
	colorHeader     = color.New(color.FgWhite, color.Bold, color.Underline)
	colorBreakpoint = color.New(color.FgRed, color.Bold)
	colorFlagSet    = color.New(color.FgGreen, color.Bold)
	colorFlagClear  = color.New(color.FgHiBlack)
	colorHiBlack    = color.New(color.FgHiBlack)
)

var regOrder = []string{"a", "f", "b", "c", "d", "e", "h", "l", "sp", "pc"}

// formatRegs renders a GET_REGS result on one line
func formatRegs(regs machine.Data) string {
	var b strings.Builder
	for _, name := range regOrder {
		value, _ := regs.Uint64(name)
		width := 2
		if name == "sp" || name == "pc" {
			width = 4
		}
		fmt.Fprintf(&b, "%s=%s ", colorReg.Sprint(strings.ToUpper(name)), colorValue.Sprintf("%0*X", width, value))
	}

	f, _ := regs.Uint64("f")
	for _, flag := range []struct {
		name string
		bit  uint8
	}{{"S", i8080.FlagS}, {"Z", i8080.FlagZ}, {"AC", i8080.FlagAC}, {"P", i8080.FlagP}, {"CY", i8080.FlagCY}} {
		if uint8(f)&flag.bit != 0 {
			b.WriteString(colorFlagSet.Sprint(flag.name))
		} else {
			b.WriteString(colorFlagClear.Sprint(strings.ToLower(flag.name)))
		}
		b.WriteByte(' ')
	}

	if inte, _ := regs.Bool("inte"); inte {
		b.WriteString(colorFlagSet.Sprint("EI "))
	}
	if hlta, _ := regs.Bool("hlta"); hlta {
		b.WriteString(colorWarning.Sprint("HALT "))
	}
	cc, _ := regs.Uint64("cc")
	fmt.Fprintf(&b, "CC=%d", cc)
	return b.String()
}

// colorizeInstruction highlights the mnemonic and the operands of a disassembled instruction
func colorizeInstruction(text string) string {
	mnemonic, operands, found := strings.Cut(text, " ")
	if !found {
		return colorInstr.Sprint(mnemonic)
	}
	return colorInstr.Sprint(mnemonic) + " " + colorValue.Sprint(operands)
}
