package vector

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
	"github.com/Manu343726/devector/pkg/hw/debugger"
	"github.com/Manu343726/devector/pkg/hw/machine"
	"github.com/Manu343726/devector/pkg/hw/memory"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// machineContext evaluates expressions against the live machine through requests
type machineContext struct {
	s *session
}

func (c machineContext) Register(name string) (uint64, error) {
	regs, err := c.s.request(machine.ReqGetRegs, nil)
	if err != nil {
		return 0, err
	}
	value, ok := regs.Uint64(strings.ToLower(name))
	if !ok {
		return 0, fmt.Errorf("unknown register: %s", name)
	}
	return value, nil
}

func (c machineContext) ReadMem(addr uint16) (uint8, error) {
	data, err := c.s.request(machine.ReqGetByteRam, machine.Data{"addr": addr})
	if err != nil {
		return 0, err
	}
	value, _ := data.Uint64("data")
	return uint8(value), nil
}

type command struct {
	names []string
	usage string
	help  string
	run   func(c *console, args []string) error
}

type console struct {
	s         *session
	out       io.Writer
	eval      *debugger.ExpressionEvaluator
	interrupt <-chan os.Signal
	quit      bool
}

func newConsole(s *session, out io.Writer, interrupt <-chan os.Signal) *console {
	return &console{
		s:         s,
		out:       out,
		eval:      debugger.NewExpressionEvaluator(machineContext{s}, s.symbols),
		interrupt: interrupt,
	}
}

var commands []command

func init() {
	commands = []command{
		{[]string{"continue", "c", "run"}, "", "Run until a breakpoint, a watchpoint, a script or Ctrl+C stops the machine", (*console).cmdContinue},
		{[]string{"stepi", "si", "s"}, "[count]", "Execute instructions", (*console).cmdStep},
		{[]string{"frame", "fr"}, "[count]", "Execute until the end of the frame", (*console).cmdFrame},
		{[]string{"regs", "r"}, "", "Show the CPU registers", (*console).cmdRegs},
		{[]string{"print", "p"}, "<expr>", "Evaluate an expression, e.g. p hl+2 or p [sp+1]<<8|[sp]", (*console).cmdPrint},
		{[]string{"x"}, "<expr> [count]", "Dump memory as the CPU sees it", (*console).cmdExamine},
		{[]string{"xg"}, "<expr> [count]", "Dump memory by global address", (*console).cmdExamineGlobal},
		{[]string{"disasm", "d"}, "[expr] [count]", "Disassemble from an address, PC by default", (*console).cmdDisasm},
		{[]string{"set"}, "<global expr> <byte>...", "Write bytes into memory", (*console).cmdSet},
		{[]string{"break", "b"}, "<expr> [if <operand> <cond> <expr>] [once] [pages n,n...]", "Add a breakpoint", (*console).cmdBreak},
		{[]string{"delete", "del"}, "<expr>|all", "Delete breakpoints", (*console).cmdDelete},
		{[]string{"enable"}, "<expr>", "Enable a breakpoint", (*console).cmdEnable},
		{[]string{"disable"}, "<expr>", "Disable a breakpoint", (*console).cmdDisable},
		{[]string{"breakpoints", "bl"}, "", "List breakpoints", (*console).cmdBreakpoints},
		{[]string{"watch", "w"}, "<r|w|rw> <global expr> [len|word] [<cond> <expr>]", "Add a watchpoint", (*console).cmdWatch},
		{[]string{"unwatch"}, "<id>|all", "Delete watchpoints", (*console).cmdUnwatch},
		{[]string{"watchpoints", "wl"}, "", "List watchpoints", (*console).cmdWatchpoints},
		{[]string{"script"}, "<lua source>", "Break when the script check() function returns true", (*console).cmdScript},
		{[]string{"unscript"}, "<id>", "Delete a script", (*console).cmdUnscript},
		{[]string{"scripts"}, "", "List scripts", (*console).cmdScripts},
		{[]string{"script-on"}, "<id>", "Activate a script, clearing its last error", (*console).cmdScriptOn},
		{[]string{"script-off"}, "<id>", "Deactivate a script", (*console).cmdScriptOff},
		{[]string{"trace", "t"}, "[count] [CALL|Ccc|JMP|Jcc|RET|Rcc|PCHL|RST|ALL]", "Show the last executed instructions", (*console).cmdTrace},
		{[]string{"heat"}, "[count]", "Show the most recently accessed addresses", (*console).cmdHeat},
		{[]string{"info", "i"}, "<display|pit|mapping|stats|speed>", "Show hardware state", (*console).cmdInfo},
		{[]string{"speed"}, "<1%|20%|50%|100%|200%|max>", "Change the emulation speed", (*console).cmdSpeed},
		{[]string{"gate"}, "<counter> <on|off>", "Drive the gate input of a timer counter", (*console).cmdGate},
		{[]string{"attach"}, "<on|off>", "Attach or detach the debugger", (*console).cmdAttach},
		{[]string{"reset"}, "", "Reset the machine and reload the ROM", (*console).cmdReset},
		{[]string{"restart"}, "", "Jump back to the load address and run", (*console).cmdRestart},
		{[]string{"help", "h"}, "", "Show this help", (*console).cmdHelp},
		{[]string{"quit", "q", "exit"}, "", "Exit the debugger", (*console).cmdQuit},
	}
}

func findCommand(name string) (command, bool) {
	for _, cmd := range commands {
		for _, alias := range cmd.names {
			if alias == name {
				return cmd, true
			}
		}
	}
	return command{}, false
}

func commandNames() []string {
	var names []string
	for _, cmd := range commands {
		names = append(names, cmd.names...)
	}
	sort.Strings(names)
	return names
}

// execute runs one console line
func (c *console) execute(line string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return
	}

	cmd, ok := findCommand(strings.ToLower(parts[0]))
	if !ok {
		colorError.Fprintf(c.out, "Unknown command '%s'. Type 'help' for available commands.\n", parts[0])
		return
	}
	if err := cmd.run(c, parts[1:]); err != nil {
		colorError.Fprintf(c.out, "%v\n", err)
	}
}

func (c *console) countArg(args []string, index int) (int, error) {
	if len(args) <= index {
		return 1, nil
	}
	n, err := c.eval.Eval(args[index])
	if err != nil {
		return 0, err
	}
	if n == 0 || n > 1<<20 {
		return 0, fmt.Errorf("invalid count %d", n)
	}
	return int(n), nil
}

// showLocation prints the instruction at PC
func (c *console) showLocation() error {
	regs, err := c.s.request(machine.ReqGetRegs, nil)
	if err != nil {
		return err
	}
	pc, _ := regs.Uint64("pc")
	return c.disasm(uint16(pc), 1)
}

func (c *console) disasm(addr uint16, count int) error {
	breakpoints, err := c.breakpoints()
	if err != nil {
		return err
	}
	regs, err := c.s.request(machine.ReqGetRegs, nil)
	if err != nil {
		return err
	}
	pc, _ := regs.Uint64("pc")

	for i := 0; i < count; i++ {
		data, err := c.s.request(machine.ReqGetThreeBytesRam, machine.Data{"addr": addr})
		if err != nil {
			return err
		}
		bytes, _ := data.Uint64("data")
		opcode, lo, hi := uint8(bytes), uint8(bytes>>8), uint8(bytes>>16)

		marker := "  "
		if bp, ok := breakpoints[addr]; ok {
			if bp.Status == debugger.BreakpointActive {
				marker = colorBreakpoint.Sprint("● ")
			} else {
				marker = colorHiBlack.Sprint("○ ")
			}
		}
		if uint64(addr) == pc {
			marker += colorSuccess.Sprint("=>")
		} else {
			marker += "  "
		}

		fmt.Fprintf(c.out, "%s %s: %s\n", marker, colorAddr.Sprintf("0x%04X", addr), colorizeInstruction(i8080.Disassemble(opcode, lo, hi)))
		addr += uint16(i8080.Length(opcode))
	}
	return nil
}

func (c *console) breakpoints() (map[uint16]debugger.Breakpoint, error) {
	data, err := c.s.request(machine.ReqDebugBreakpointGetAll, nil)
	if err != nil {
		return nil, err
	}
	list, _ := data["breakpoints"].([]machine.Data)
	result := make(map[uint16]debugger.Breakpoint, len(list))
	for _, item := range list {
		bp, err := debugger.BreakpointFromData(item)
		if err != nil {
			return nil, err
		}
		result[bp.Addr] = bp
	}
	return result, nil
}

func (c *console) cmdContinue(args []string) error {
	if _, err := c.s.request(machine.ReqRun, nil); err != nil {
		return err
	}
	colorHiBlack.Fprintln(c.out, "Running, Ctrl+C to stop")

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case <-c.interrupt:
			if _, err := c.s.request(machine.ReqStop, nil); err != nil {
				return err
			}
			colorWarning.Fprintln(c.out, "Interrupted")
			running = false
		case <-ticker.C:
			data, err := c.s.request(machine.ReqIsRunning, nil)
			if err != nil {
				return err
			}
			running, _ = data.Bool("isRunning")
		}
	}

	trace, err := c.s.request(machine.ReqDebugTraceLogGet, machine.Data{"lines": 1})
	if err == nil {
		if reason, _ := trace.Text("lastBreak"); reason != "" && reason != "none" {
			colorBreakpoint.Fprintf(c.out, "Stopped by %s\n", reason)
		}
	}
	return c.showLocation()
}

func (c *console) cmdStep(args []string) error {
	count, err := c.countArg(args, 0)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		data, err := c.s.request(machine.ReqExecuteInstr, nil)
		if err != nil {
			return err
		}
		if brk, _ := data.Bool("break"); brk && i < count-1 {
			colorBreakpoint.Fprintln(c.out, "Stopped by the debugger")
			break
		}
	}
	return c.showLocation()
}

func (c *console) cmdFrame(args []string) error {
	count, err := c.countArg(args, 0)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		data, err := c.s.request(machine.ReqExecuteFrame, nil)
		if err != nil {
			return err
		}
		if brk, _ := data.Bool("break"); brk {
			colorBreakpoint.Fprintln(c.out, "Stopped by the debugger")
			break
		}
	}
	return c.showLocation()
}

func (c *console) cmdRegs(args []string) error {
	regs, err := c.s.request(machine.ReqGetRegs, nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, formatRegs(regs))
	return nil
}

func (c *console) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <expr>")
	}
	expr := strings.Join(args, " ")
	value, err := c.eval.Eval(expr)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s = %s (%d)", expr, colorValue.Sprintf("0x%X", value), value)
	if value <= 0xFFFF {
		fmt.Fprintf(c.out, " %s", colorHiBlack.Sprint(debugger.FormatBinary(uint16(value))))
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *console) bytesPerLine() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width >= 80 {
		return 16
	}
	return 8
}

func (c *console) dump(args []string, global bool) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: x <expr> [count]")
	}
	start, err := c.eval.Eval(args[0])
	if err != nil {
		return err
	}
	count := 64
	if len(args) > 1 {
		if count, err = c.countArg(args, 1); err != nil {
			return err
		}
	}

	kind, key, limit := machine.ReqGetByteRam, "addr", uint64(0x10000)
	if global {
		kind, key, limit = machine.ReqGetByteGlobal, "globalAddr", memory.GlobalSize
	}

	perLine := c.bytesPerLine()
	for line := uint64(0); line < uint64(count); line += uint64(perLine) {
		addr := start + line
		if addr >= limit {
			break
		}
		if global {
			fmt.Fprint(c.out, colorAddr.Sprint(memory.FormatGlobal(uint32(addr))), "  ")
		} else {
			fmt.Fprint(c.out, colorAddr.Sprintf("0x%04X", addr), "  ")
		}

		ascii := make([]byte, 0, perLine)
		for i := uint64(0); i < uint64(perLine) && line+i < uint64(count) && addr+i < limit; i++ {
			data, err := c.s.request(kind, machine.Data{key: addr + i})
			if err != nil {
				return err
			}
			b, _ := data.Uint64("data")
			fmt.Fprintf(c.out, "%02X ", b)
			if b >= 0x20 && b < 0x7F {
				ascii = append(ascii, byte(b))
			} else {
				ascii = append(ascii, '.')
			}
		}
		fmt.Fprintln(c.out, "", colorHiBlack.Sprint(string(ascii)))
	}
	return nil
}

func (c *console) cmdExamine(args []string) error {
	return c.dump(args, false)
}

func (c *console) cmdExamineGlobal(args []string) error {
	return c.dump(args, true)
}

func (c *console) cmdDisasm(args []string) error {
	var addr uint16
	if len(args) > 0 {
		var err error
		if addr, err = c.eval.Eval16(args[0]); err != nil {
			return err
		}
	} else {
		pc, err := c.eval.Eval16("pc")
		if err != nil {
			return err
		}
		addr = pc
	}
	count := 10
	if len(args) > 1 {
		var err error
		if count, err = c.countArg(args, 1); err != nil {
			return err
		}
	}
	return c.disasm(addr, count)
}

func (c *console) cmdSet(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: set <global expr> <byte>...")
	}
	global, err := c.eval.Eval(args[0])
	if err != nil {
		return err
	}
	data := make([]byte, 0, len(args)-1)
	for _, arg := range args[1:] {
		value, err := c.eval.Eval(arg)
		if err != nil {
			return err
		}
		if value > 0xFF {
			return fmt.Errorf("0x%X is not a byte", value)
		}
		data = append(data, byte(value))
	}
	_, err = c.s.request(machine.ReqSetMem, machine.Data{"globalAddr": global, "data": data})
	return err
}

// parseBreakpoint reads "<expr> [if <operand> <cond> <expr>] [once] [pages n,n...]"
func (c *console) parseBreakpoint(args []string) (debugger.Breakpoint, error) {
	bp := debugger.Breakpoint{MemPages: debugger.PageMaskAll, Operand: debugger.OperandPC}
	if len(args) == 0 {
		pc, err := c.eval.Eval16("pc")
		bp.Addr = pc
		return bp, err
	}

	addr, err := c.eval.Eval16(args[0])
	if err != nil {
		return bp, err
	}
	bp.Addr = addr

	for rest := args[1:]; len(rest) > 0; {
		switch strings.ToLower(rest[0]) {
		case "if":
			if len(rest) < 4 {
				return bp, fmt.Errorf("usage: if <operand> <cond> <expr>")
			}
			if bp.Operand, err = debugger.ParseOperand(rest[1]); err != nil {
				return bp, err
			}
			if bp.Cond, err = debugger.ParseCondition(rest[2]); err != nil {
				return bp, err
			}
			if bp.Value, err = c.eval.Eval(rest[3]); err != nil {
				return bp, err
			}
			rest = rest[4:]
		case "once":
			bp.AutoDel = true
			rest = rest[1:]
		case "pages":
			if len(rest) < 2 {
				return bp, fmt.Errorf("usage: pages n,n...")
			}
			bp.MemPages = 0
			for _, field := range strings.Split(rest[1], ",") {
				page, err := strconv.Atoi(field)
				if err != nil || page < 0 || page >= memory.TotalPages {
					return bp, fmt.Errorf("invalid page '%s'", field)
				}
				bp.MemPages |= 1 << page
			}
			rest = rest[2:]
		default:
			return bp, fmt.Errorf("unexpected '%s'", rest[0])
		}
	}
	return bp, bp.Validate()
}

func (c *console) cmdBreak(args []string) error {
	bp, err := c.parseBreakpoint(args)
	if err != nil {
		return err
	}
	if _, err := c.s.request(machine.ReqDebugBreakpointAdd, debugger.BreakpointData(bp)); err != nil {
		return err
	}
	colorSuccess.Fprintf(c.out, "Breakpoint %s\n", bp)
	return nil
}

func (c *console) cmdDelete(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: delete <expr>|all")
	}
	if args[0] == "all" {
		_, err := c.s.request(machine.ReqDebugBreakpointDelAll, nil)
		return err
	}
	addr, err := c.eval.Eval16(args[0])
	if err != nil {
		return err
	}
	_, err = c.s.request(machine.ReqDebugBreakpointDel, machine.Data{"addr": addr})
	return err
}

func (c *console) setStatus(args []string, status debugger.BreakpointStatus) error {
	if len(args) == 0 {
		return fmt.Errorf("missing breakpoint address")
	}
	addr, err := c.eval.Eval16(args[0])
	if err != nil {
		return err
	}
	if _, err := c.s.request(machine.ReqDebugBreakpointSetStatus, machine.Data{"addr": addr, "status": uint64(status)}); err != nil {
		return fmt.Errorf("no breakpoint at 0x%04X", addr)
	}
	return nil
}

func (c *console) cmdEnable(args []string) error {
	return c.setStatus(args, debugger.BreakpointActive)
}

func (c *console) cmdDisable(args []string) error {
	return c.setStatus(args, debugger.BreakpointDisabled)
}

func (c *console) cmdBreakpoints(args []string) error {
	breakpoints, err := c.breakpoints()
	if err != nil {
		return err
	}
	if len(breakpoints) == 0 {
		colorHiBlack.Fprintln(c.out, "No breakpoints")
		return nil
	}
	addrs := make([]int, 0, len(breakpoints))
	for addr := range breakpoints {
		addrs = append(addrs, int(addr))
	}
	sort.Ints(addrs)

	colorHeader.Fprintln(c.out, "Breakpoints")
	for _, addr := range addrs {
		fmt.Fprintln(c.out, " ", breakpoints[uint16(addr)])
	}
	return nil
}

// parseWatchpoint reads "<r|w|rw> <global expr> [len|word] [<cond> <expr>]"
func (c *console) parseWatchpoint(args []string) (debugger.Watchpoint, error) {
	wp := debugger.Watchpoint{ID: -1, Len: 1, Active: true}
	if len(args) < 2 {
		return wp, fmt.Errorf("usage: watch <r|w|rw> <global expr> [len|word] [<cond> <expr>]")
	}

	var err error
	if wp.Access, err = debugger.ParseWatchAccess(args[0]); err != nil {
		return wp, err
	}
	global, err := c.eval.Eval(args[1])
	if err != nil {
		return wp, err
	}
	wp.GlobalAddr = uint32(global)

	rest := args[2:]
	if len(rest) > 0 && rest[0] != "" {
		if strings.EqualFold(rest[0], "word") {
			wp.Type = debugger.WatchWord
			rest = rest[1:]
		} else if _, condErr := debugger.ParseCondition(rest[0]); condErr != nil {
			length, err := c.eval.Eval(rest[0])
			if err != nil {
				return wp, err
			}
			if length > 0xFFFF {
				return wp, fmt.Errorf("length %d too large", length)
			}
			wp.Len = uint16(length)
			rest = rest[1:]
		}
	}
	if len(rest) >= 2 {
		if wp.Cond, err = debugger.ParseCondition(rest[0]); err != nil {
			return wp, err
		}
		value, err := c.eval.Eval(rest[1])
		if err != nil {
			return wp, err
		}
		if value > 0xFFFF {
			return wp, fmt.Errorf("value 0x%X too large", value)
		}
		wp.Value = uint16(value)
	} else if len(rest) == 1 {
		return wp, fmt.Errorf("unexpected '%s'", rest[0])
	}
	return wp, wp.Validate()
}

func (c *console) cmdWatch(args []string) error {
	wp, err := c.parseWatchpoint(args)
	if err != nil {
		return err
	}
	data, err := c.s.request(machine.ReqDebugWatchpointAdd, debugger.WatchpointData(wp))
	if err != nil {
		return err
	}
	wp.ID, _ = data.Int("id")
	colorSuccess.Fprintf(c.out, "Watchpoint %s\n", wp)
	return nil
}

func (c *console) cmdUnwatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: unwatch <id>|all")
	}
	if args[0] == "all" {
		_, err := c.s.request(machine.ReqDebugWatchpointDelAll, nil)
		return err
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	_, err = c.s.request(machine.ReqDebugWatchpointDel, machine.Data{"id": id})
	return err
}

func (c *console) cmdWatchpoints(args []string) error {
	data, err := c.s.request(machine.ReqDebugWatchpointGetAll, nil)
	if err != nil {
		return err
	}
	list, _ := data["watchpoints"].([]machine.Data)
	if len(list) == 0 {
		colorHiBlack.Fprintln(c.out, "No watchpoints")
		return nil
	}
	colorHeader.Fprintln(c.out, "Watchpoints")
	for _, item := range list {
		wp, err := debugger.WatchpointFromData(item)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, " ", wp)
	}
	return nil
}

func (c *console) cmdScript(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: script <lua source>")
	}
	data, err := c.s.request(machine.ReqDebugScriptAdd, machine.Data{"source": strings.Join(args, " ")})
	if err != nil {
		return err
	}
	colorSuccess.Fprintf(c.out, "Script #%v added\n", data["id"])
	return nil
}

func (c *console) cmdUnscript(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: unscript <id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	_, err = c.s.request(machine.ReqDebugScriptDel, machine.Data{"id": id})
	return err
}

func (c *console) setScriptActive(args []string, active bool) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: script-on|script-off <id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	_, err = c.s.request(machine.ReqDebugScriptSetActive, machine.Data{"id": id, "active": active})
	return err
}

func (c *console) cmdScriptOn(args []string) error {
	return c.setScriptActive(args, true)
}

func (c *console) cmdScriptOff(args []string) error {
	return c.setScriptActive(args, false)
}

func (c *console) cmdScripts(args []string) error {
	data, err := c.s.request(machine.ReqDebugScriptGetAll, nil)
	if err != nil {
		return err
	}
	scripts, _ := data["scripts"].([]debugger.Script)
	if len(scripts) == 0 {
		colorHiBlack.Fprintln(c.out, "No scripts")
		return nil
	}
	out, err := yaml.Marshal(scripts)
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, string(out))
	return nil
}

func (c *console) cmdTrace(args []string) error {
	count := 20
	if len(args) > 0 {
		var err error
		if count, err = c.countArg(args, 0); err != nil {
			return err
		}
	}
	filter := i8080.CategoryOther
	if len(args) > 1 {
		category, err := i8080.ParseCategory(args[1])
		if err != nil {
			return err
		}
		filter = category
	}

	data, err := c.s.request(machine.ReqDebugTraceLogGet, machine.Data{"lines": count, "filter": uint64(filter)})
	if err != nil {
		return err
	}
	lines, _ := data["lines"].([]debugger.TraceLine)
	for i := len(lines) - 1; i >= 0; i-- {
		fmt.Fprintf(c.out, "  %s  %s\n", colorAddr.Sprint(memory.FormatGlobal(lines[i].GlobalAddr)), colorizeInstruction(lines[i].Text))
	}
	return nil
}

func (c *console) cmdHeat(args []string) error {
	count := 16
	if len(args) > 0 {
		var err error
		if count, err = c.countArg(args, 0); err != nil {
			return err
		}
	}

	data, err := c.s.request(machine.ReqDebugMemoryHeatGet, nil)
	if err != nil {
		return err
	}
	heat, _ := data["heat"].(map[uint32]uint32)

	type entry struct {
		global      uint32
		read, write int
	}
	entries := make([]entry, 0, len(heat))
	for global, packed := range heat {
		read, write := debugger.UnpackHeat(packed)
		entries = append(entries, entry{global, read, write})
	}
	sort.Slice(entries, func(i, j int) bool {
		return max(entries[i].read, entries[i].write) > max(entries[j].read, entries[j].write)
	})
	if len(entries) > count {
		entries = entries[:count]
	}

	colorHeader.Fprintln(c.out, "Address     read  write")
	for _, e := range entries {
		fmt.Fprintf(c.out, "%s  %5d  %5d\n", colorAddr.Sprint(memory.FormatGlobal(e.global)), e.read, e.write)
	}
	return nil
}

func (c *console) cmdInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: info <display|pit|mapping|stats|speed>")
	}
	kinds := map[string]machine.Req{
		"display": machine.ReqGetDisplayData,
		"pit":     machine.ReqGetPIT,
		"mapping": machine.ReqGetMemoryMapping,
		"stats":   machine.ReqGetHWStats,
		"speed":   machine.ReqGetSpeed,
	}
	kind, ok := kinds[args[0]]
	if !ok {
		return fmt.Errorf("unknown info '%s'", args[0])
	}
	data, err := c.s.request(kind, nil)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(map[string]any(data))
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, string(out))
	return nil
}

func (c *console) cmdSpeed(args []string) error {
	if len(args) == 0 {
		return c.cmdInfo([]string{"speed"})
	}
	_, err := c.s.request(machine.ReqSetSpeed, machine.Data{"speed": args[0]})
	return err
}

func (c *console) cmdGate(args []string) error {
	if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
		return fmt.Errorf("usage: gate <counter> <on|off>")
	}
	counter, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	data, err := c.s.request(machine.ReqSetPITGate, machine.Data{"counter": counter, "level": args[1] == "on"})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "counter %d gate: %v\n", counter, data["gate"])
	return nil
}

func (c *console) cmdAttach(args []string) error {
	attach := len(args) == 0 || args[0] == "on"
	data, err := c.s.request(machine.ReqDebugAttach, machine.Data{"attach": attach})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "attached: %v\n", data["attached"])
	return nil
}

func (c *console) cmdReset(args []string) error {
	if _, err := c.s.request(machine.ReqReset, nil); err != nil {
		return err
	}
	return c.showLocation()
}

func (c *console) cmdRestart(args []string) error {
	if _, err := c.s.request(machine.ReqRestart, nil); err != nil {
		return err
	}
	return c.cmdContinue(nil)
}

func (c *console) cmdHelp(args []string) error {
	colorHeader.Fprintln(c.out, "Commands")
	for _, cmd := range commands {
		name := strings.Join(cmd.names, ", ")
		fmt.Fprintf(c.out, "  %s %s\n      %s\n", colorPrompt.Sprint(name), cmd.usage, cmd.help)
	}
	return nil
}

func (c *console) cmdQuit(args []string) error {
	c.quit = true
	return nil
}
