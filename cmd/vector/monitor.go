package vector

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Manu343726/devector/pkg/hw/machine"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
)

var monitorRefresh time.Duration

var MonitorCmd = &cobra.Command{
	Use:   "monitor <rom>",
	Short: "Run a ROM image with a live view of the machine state",
	Long: `Runs a ROM image and shows registers, code around PC, the trace log,
the most recently accessed memory and the hardware stats, refreshed while
the machine runs.

Keys:
  c, F5      continue
  space      stop
  s, F10     step one instruction
  f          run one frame
  r          reset
  q, Esc     quit`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

func init() {
	MonitorCmd.Flags().DurationVar(&monitorRefresh, "refresh", 100*time.Millisecond, "View refresh period")
	MonitorCmd.Flags().StringVarP(&debugBreakpoints, "breakpoints", "b", "", "YAML file with symbols and breakpoints to load")
}

type monitorSnapshot struct {
	regs, code, trace, heat, stats, status string
}

type monitor struct {
	app *tview.Application
	c   *console

	regs, code, trace, heat, stats, status *tview.TextView
}

func newPane(title string) *tview.TextView {
	view := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	view.SetBorder(true).SetTitle(" " + title + " ")
	return view
}

func newMonitor(s *session) *monitor {
	m := &monitor{
		app:    tview.NewApplication(),
		c:      newConsole(s, &bytes.Buffer{}, nil),
		regs:   newPane("Registers"),
		code:   newPane("Code"),
		trace:  newPane("Trace"),
		heat:   newPane("Memory heat"),
		stats:  newPane("Stats"),
		status: tview.NewTextView().SetDynamicColors(true),
	}

	middle := tview.NewFlex().
		AddItem(m.code, 0, 2, false).
		AddItem(m.trace, 0, 2, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(m.heat, 0, 1, false).
			AddItem(m.stats, 0, 1, false), 0, 1, false)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(m.regs, 3, 0, false).
		AddItem(middle, 0, 1, false).
		AddItem(m.status, 1, 0, false)

	m.app.SetRoot(layout, true).SetInputCapture(m.handleKey)
	return m
}

// render runs a console command into a string with tview color tags
func (m *monitor) render(cmd func(*console, []string) error, args ...string) string {
	var out bytes.Buffer
	m.c.out = &out
	if err := cmd(m.c, args); err != nil {
		return "[red]" + tview.Escape(err.Error()) + "[-]"
	}
	return tview.TranslateANSI(tview.Escape(out.String()))
}

func (m *monitor) snapshot() monitorSnapshot {
	snap := monitorSnapshot{
		regs:  m.render((*console).cmdRegs),
		code:  m.render((*console).cmdDisasm, "pc", "32"),
		trace: m.render((*console).cmdTrace, "32"),
		heat:  m.render((*console).cmdHeat, "16"),
		stats: m.render((*console).cmdInfo, "stats"),
	}

	running := false
	if data, err := m.c.s.request(machine.ReqIsRunning, nil); err == nil {
		running, _ = data.Bool("isRunning")
	}
	lastBreak := "none"
	if data, err := m.c.s.request(machine.ReqDebugTraceLogGet, machine.Data{"lines": 0}); err == nil {
		lastBreak, _ = data.Text("lastBreak")
	}

	state := "[red]stopped[-]"
	if running {
		state = "[green]running[-]"
	}
	snap.status = fmt.Sprintf(" %s  last break: %s   [::d]c continue  space stop  s step  f frame  r reset  q quit[::-]", state, lastBreak)
	return snap
}

func (m *monitor) show(snap monitorSnapshot) {
	m.regs.SetText(snap.regs)
	m.code.SetText(snap.code)
	m.trace.SetText(snap.trace)
	m.heat.SetText(snap.heat)
	m.stats.SetText(snap.stats)
	m.status.SetText(snap.status)
}

// handleKey issues the request bound to a key. Unbound keys pass through.
func (m *monitor) handleKey(event *tcell.EventKey) *tcell.EventKey {
	var req machine.Req
	switch event.Key() {
	case tcell.KeyEscape:
		m.app.Stop()
		return nil
	case tcell.KeyF5:
		req = machine.ReqRun
	case tcell.KeyF10:
		req = machine.ReqExecuteInstr
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q':
			m.app.Stop()
			return nil
		case 'c':
			req = machine.ReqRun
		case ' ':
			req = machine.ReqStop
		case 's':
			req = machine.ReqExecuteInstr
		case 'f':
			req = machine.ReqExecuteFrame
		case 'r':
			req = machine.ReqReset
		}
	}
	if req == machine.ReqNone {
		return event
	}

	if _, err := m.c.s.request(req, nil); err != nil {
		m.c.s.logger.Warn("monitor request failed", "req", req.String(), "error", err)
	}
	return nil
}

func (m *monitor) refreshLoop(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := m.snapshot()
			m.app.QueueUpdateDraw(func() { m.show(snap) })
		}
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	s, err := newSession(sessionOptions{rom: args[0], attach: true, run: true, debugDoc: debugBreakpoints})
	if err != nil {
		return err
	}
	defer s.Close()

	m := newMonitor(s)
	m.show(m.snapshot())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go m.refreshLoop(ctx, monitorRefresh)

	if err := m.app.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
