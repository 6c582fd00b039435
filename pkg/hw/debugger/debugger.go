package debugger

import (
	"fmt"
	"log/slog"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
	"github.com/Manu343726/devector/pkg/hw/machine"
	"github.com/Manu343726/devector/pkg/hw/memory"
	"github.com/Manu343726/devector/pkg/logging"
)

// BreakReason tells what stopped the machine last
type BreakReason uint8

const (
	BreakNone BreakReason = iota
	BreakBreakpoint
	BreakWatchpoint
	BreakScript
)

func (r BreakReason) String() string {
	switch r {
	case BreakBreakpoint:
		return "breakpoint"
	case BreakWatchpoint:
		return "watchpoint"
	case BreakScript:
		return "script"
	}
	return "none"
}

// Debugger is the machine.Debugger collecting every instrumentation of the
// execution goroutine. All its state is owned by that goroutine except the
// published memory heat.
type Debugger struct {
	logger *slog.Logger

	breakpoints *Breakpoints
	watchpoints *Watchpoints
	scripts     *Scripts
	traceLog    *TraceLog
	heat        *MemoryHeat

	watchHit  bool
	watchID   int
	lastFrame uint64
	lastBreak BreakReason
	breakAddr uint16
}

var _ machine.Debugger = (*Debugger)(nil)

func New(logger *slog.Logger) *Debugger {
	logger = logging.Component(logger, "debugger")
	return &Debugger{
		logger:      logger,
		breakpoints: NewBreakpoints(),
		watchpoints: NewWatchpoints(),
		scripts:     NewScripts(logger),
		traceLog:    NewTraceLog(),
		heat:        NewMemoryHeat(),
	}
}

// Heat gives other goroutines access to the published memory heat
func (d *Debugger) Heat() *MemoryHeat {
	return d.heat
}

// Close releases the script states. Call it once the machine is closed.
func (d *Debugger) Close() {
	d.scripts.Close()
}

func (d *Debugger) MemoryAccess(access memory.Access) {
	if id, ok := d.watchpoints.Check(access.Direction, access.Global, access.Value); ok && !d.watchHit {
		d.watchHit = true
		d.watchID = id
	}
}

func (d *Debugger) DebugHook(ctx *machine.DebugContext) bool {
	d.traceLog.Add(ctx.GlobalAddr, ctx.Instruction)
	d.heat.Update(ctx.Accesses)
	if ctx.Display.Frame != d.lastFrame {
		d.lastFrame = ctx.Display.Frame
		d.heat.Publish()
	}

	// All checks run on every instruction, even when an earlier one breaks
	watch := d.watchHit
	d.watchHit = false
	bp := d.breakpoints.Check(ctx.CPU, ctx.Memory)
	script := d.scripts.Check(ctx.CPU, ctx.Memory)

	pc := slog.String("pc", fmt.Sprintf("0x%04X", ctx.CPU.PC))
	reason := BreakNone
	switch {
	case watch:
		reason = BreakWatchpoint
		d.logger.Info("watchpoint hit", slog.Int("id", d.watchID), pc)
	case bp:
		reason = BreakBreakpoint
		d.logger.Info("breakpoint hit", pc)
	case script:
		reason = BreakScript
		d.logger.Info("script break", pc)
	}

	if reason == BreakNone {
		return false
	}
	d.lastBreak = reason
	d.breakAddr = ctx.CPU.PC
	return true
}

func (d *Debugger) HandleRequest(kind machine.Req, params machine.Data) (machine.Data, bool) {
	switch kind {
	case machine.ReqDebugReset:
		d.traceLog.Reset()
		d.heat.Reset()
		d.watchHit = false
		d.lastBreak = BreakNone
		return machine.Data{}, true

	case machine.ReqDebugBreakpointAdd:
		bp, err := BreakpointFromData(params)
		if err == nil {
			err = bp.Validate()
		}
		if err != nil {
			return d.reject(kind, err)
		}
		d.breakpoints.Add(bp)
		return machine.Data{"updates": d.breakpoints.UpdateCounter()}, true

	case machine.ReqDebugBreakpointDel:
		addr, ok := addrParam(params)
		if !ok {
			return nil, false
		}
		d.breakpoints.Del(addr)
		return machine.Data{"updates": d.breakpoints.UpdateCounter()}, true

	case machine.ReqDebugBreakpointDelAll:
		d.breakpoints.DelAll()
		return machine.Data{"updates": d.breakpoints.UpdateCounter()}, true

	case machine.ReqDebugBreakpointGetStatus:
		addr, ok := addrParam(params)
		if !ok {
			return nil, false
		}
		return machine.Data{"status": uint64(d.breakpoints.Status(addr))}, true

	case machine.ReqDebugBreakpointSetStatus:
		addr, ok := addrParam(params)
		status, statusOk := params.Uint64("status")
		if !ok || !statusOk || status > uint64(BreakpointDeleted) {
			return nil, false
		}
		if !d.breakpoints.SetStatus(addr, BreakpointStatus(status)) {
			return nil, false
		}
		return machine.Data{"updates": d.breakpoints.UpdateCounter()}, true

	case machine.ReqDebugBreakpointGetAll:
		all := d.breakpoints.All()
		list := make([]machine.Data, len(all))
		for i, bp := range all {
			list[i] = BreakpointData(bp)
		}
		return machine.Data{"breakpoints": list}, true

	case machine.ReqDebugBreakpointGetUpdates:
		return machine.Data{"updates": d.breakpoints.UpdateCounter()}, true

	case machine.ReqDebugWatchpointAdd:
		wp, err := WatchpointFromData(params)
		if err == nil {
			err = wp.Validate()
		}
		if err != nil {
			return d.reject(kind, err)
		}
		return machine.Data{"id": d.watchpoints.Add(wp), "updates": d.watchpoints.UpdateCounter()}, true

	case machine.ReqDebugWatchpointDel:
		id, ok := params.Int("id")
		if !ok {
			return nil, false
		}
		d.watchpoints.Del(id)
		return machine.Data{"updates": d.watchpoints.UpdateCounter()}, true

	case machine.ReqDebugWatchpointDelAll:
		d.watchpoints.DelAll()
		return machine.Data{"updates": d.watchpoints.UpdateCounter()}, true

	case machine.ReqDebugWatchpointGetAll:
		all := d.watchpoints.All()
		list := make([]machine.Data, len(all))
		for i, wp := range all {
			list[i] = WatchpointData(wp)
		}
		return machine.Data{"watchpoints": list}, true

	case machine.ReqDebugWatchpointGetUpdates:
		return machine.Data{"updates": d.watchpoints.UpdateCounter()}, true

	case machine.ReqDebugTraceLogGet:
		lines := int(params.Uint64Or("lines", 20))
		filter := i8080.Category(params.Uint64Or("filter", uint64(i8080.CategoryOther)))
		if filter > i8080.CategoryOther {
			return nil, false
		}
		return machine.Data{
			"lines":     d.traceLog.GetDisasm(lines, filter),
			"lastBreak": d.lastBreak.String(),
			"breakAddr": d.breakAddr,
		}, true

	case machine.ReqDebugMemoryHeatGet:
		d.heat.Publish()
		return machine.Data{"heat": d.heat.Snapshot(), "cleared": d.heat.TakeCleared()}, true

	case machine.ReqDebugScriptAdd:
		source, ok := params.Text("source")
		if !ok {
			return nil, false
		}
		comment, _ := params.Text("comment")
		id, err := d.scripts.Add(source, comment)
		if err != nil {
			return d.reject(kind, err)
		}
		return machine.Data{"id": id}, true

	case machine.ReqDebugScriptDel:
		id, ok := params.Int("id")
		if !ok || !d.scripts.Del(id) {
			return nil, false
		}
		return machine.Data{}, true

	case machine.ReqDebugScriptSetActive:
		id, ok := params.Int("id")
		active, hasActive := params.Bool("active")
		if !ok || !hasActive || !d.scripts.SetActive(id, active) {
			return nil, false
		}
		return machine.Data{}, true

	case machine.ReqDebugScriptGetAll:
		return machine.Data{"scripts": d.scripts.All()}, true
	}

	d.logger.Warn("unsupported debug request", slog.String("request", kind.String()))
	return nil, false
}

// Failed requests still carry the reason, so consoles can show it
func (d *Debugger) reject(kind machine.Req, err error) (machine.Data, bool) {
	d.logger.Warn("request rejected", slog.String("request", kind.String()), slog.Any("error", err))
	return machine.Data{"error": err.Error()}, false
}

func addrParam(params machine.Data) (uint16, bool) {
	addr, ok := params.Uint64("addr")
	if !ok || addr > 0xFFFF {
		return 0, false
	}
	return uint16(addr), true
}
