package machine

import (
	"fmt"
	"log/slog"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
	"github.com/Manu343726/devector/pkg/hw/memory"
	"github.com/Manu343726/devector/pkg/hw/pit"
)

// Serves a request on the execution goroutine
func (m *Machine) handle(kind Req, params Data) (Data, bool) {
	switch kind {
	case ReqRun:
		m.status = StatusRun
		return Data{}, true
	case ReqStop:
		m.status = StatusStop
		return Data{}, true
	case ReqExit:
		m.status = StatusExit
		return Data{}, true
	case ReqReset:
		m.reset()
		return Data{}, true
	case ReqRestart:
		m.cpu.Reset()
		m.setPC(m.loadAddress)
		m.status = StatusRun
		return Data{}, true
	case ReqExecuteInstr:
		return m.executeInstr()
	case ReqExecuteFrame:
		return m.executeFrame()
	case ReqIsRunning:
		return m.withError(Data{"isRunning": m.status == StatusRun}), true
	case ReqGetCC:
		return Data{"cc": m.cpu.State().CC}, true
	case ReqGetRegs:
		return m.withError(RegsData(m.cpu.State())), true
	case ReqGetRegPC:
		return Data{"pc": m.cpu.State().PC}, true
	case ReqGetByteGlobal:
		global, ok := params.Uint64("globalAddr")
		if !ok || global >= memory.GlobalSize {
			return nil, false
		}
		return Data{"data": m.mem.GetByteGlobal(uint32(global))}, true
	case ReqGetByteRam:
		addr, ok := ramAddr(params)
		if !ok {
			return nil, false
		}
		return Data{"data": m.mem.GetByteRam(addr)}, true
	case ReqGetThreeBytesRam:
		addr, ok := ramAddr(params)
		if !ok {
			return nil, false
		}
		data := uint32(m.mem.GetByteRam(addr)) |
			uint32(m.mem.GetByteRam(addr+1))<<8 |
			uint32(m.mem.GetByteRam(addr+2))<<16
		return Data{"data": data}, true
	case ReqGetWordStack:
		addr, ok := ramAddr(params)
		if !ok {
			return nil, false
		}
		lo := m.mem.GetByteGlobal(m.mem.GlobalAddr(addr, true))
		hi := m.mem.GetByteGlobal(m.mem.GlobalAddr(addr+1, true))
		return Data{"data": uint16(hi)<<8 | uint16(lo)}, true
	case ReqSetMem:
		return m.setMem(params)
	case ReqGetDisplayData:
		d := m.display.Data()
		return Data{
			"frame":   d.Frame,
			"line":    d.Line,
			"pos":     d.Pos,
			"border":  d.Border,
			"mode512": d.Mode512,
			"scroll":  d.Scroll,
			"palette": d.Palette[:],
		}, true
	case ReqGetMemoryMapping:
		modes := make([]uint8, memory.MaxRamDisks)
		for i := range modes {
			modes[i] = m.mem.Mapping(i).Byte()
		}
		return Data{"mappedDisk": m.mem.MappedDisk(), "ramDisks": m.mem.RamDisks(), "modes": modes}, true
	case ReqGetPIT:
		counters := make([]pit.CounterState, pit.Counters)
		for i := range counters {
			counters[i] = m.timer.Counter(i)
		}
		transitions := m.stats.PITTransitions
		return Data{"counters": counters, "transitions": transitions[:]}, true
	case ReqSetPITGate:
		counter, ok := params.Int("counter")
		level, hasLevel := params.Bool("level")
		if !ok || !hasLevel || counter < 0 || counter >= pit.Counters {
			return nil, false
		}
		m.timer.SetGate(counter, level)
		return Data{"gate": m.timer.Counter(counter).Gate}, true
	case ReqGetHWStats:
		ins, outs := m.ports.Counts()
		data := m.withError(Data{
			"status":         m.status.String(),
			"frames":         m.stats.Frames,
			"instructions":   m.stats.Instructions,
			"cc":             m.cpu.State().CC,
			"samples":        m.mixer.Samples(),
			"beeper":         m.ports.Beeper(),
			"pitTransitions": m.stats.PITTransitions[0] + m.stats.PITTransitions[1] + m.stats.PITTransitions[2],
			"portIns":        ins,
			"portOuts":       outs,
		})
		if err := m.mixer.Err(); err != nil {
			data["audioError"] = err.Error()
		}
		return data, true
	case ReqSetSpeed:
		return m.setSpeed(params)
	case ReqGetSpeed:
		return Data{"speed": int(m.speed), "name": m.speed.String()}, true
	case ReqLoadRom:
		return m.loadRom(params)
	case ReqDebugAttach:
		attach, ok := params.Bool("attach")
		if !ok || m.debugger == nil {
			return nil, false
		}
		m.attach(attach)
		return Data{"attached": m.attached}, true
	}

	if kind.IsDebug() && m.debugger != nil {
		return m.debugger.HandleRequest(kind, params)
	}

	return nil, false
}

func ramAddr(params Data) (uint16, bool) {
	addr, ok := params.Uint64("addr")
	if !ok || addr > 0xFFFF {
		return 0, false
	}
	return uint16(addr), true
}

func (m *Machine) withError(data Data) Data {
	if m.lastErr != nil {
		data["error"] = m.lastErr.Error()
	}
	return data
}

// Register snapshot as a request result
func RegsData(s i8080.State) Data {
	return Data{
		"a": s.A, "f": s.F, "b": s.B, "c": s.C, "d": s.D, "e": s.E, "h": s.H, "l": s.L,
		"psw": s.PSW(), "bc": s.BC(), "de": s.DE(), "hl": s.HL(),
		"sp": s.SP, "pc": s.PC,
		"inte": s.INTE, "hlta": s.HLTA,
		"cc": s.CC,
	}
}

func (m *Machine) reset() {
	m.mem.Init()
	if m.rom != nil {
		if err := m.mem.Load(m.rom, m.loadAddress); err != nil {
			m.logger.Error("cannot reload rom", slog.Any("error", err))
		}
	}
	m.cpu.Reset()
	m.cpu.SetState(i8080.State{PC: m.loadAddress})
	m.timer.Reset()
	m.display.Reset()
	m.ports.Reset()
	m.stats = Stats{}
	m.lastErr = nil

	if m.debugger != nil {
		m.debugger.HandleRequest(ReqDebugReset, Data{})
	}
}

func (m *Machine) executeInstr() (Data, bool) {
	if m.status == StatusRun {
		return nil, false
	}
	_, brk, _ := m.guardedStep()
	return m.withError(Data{"break": brk, "pc": m.cpu.State().PC}), true
}

func (m *Machine) executeFrame() (Data, bool) {
	if m.status == StatusRun {
		return nil, false
	}
	for {
		newFrame, brk, faulted := m.guardedStep()
		if brk || faulted || newFrame {
			return m.withError(Data{"break": brk, "pc": m.cpu.State().PC, "frames": m.stats.Frames}), true
		}
	}
}

func (m *Machine) setMem(params Data) (Data, bool) {
	global, ok := params.Uint64("globalAddr")
	data, hasData := params.Bytes("data")
	if !ok || !hasData || global+uint64(len(data)) > memory.GlobalSize {
		return nil, false
	}
	for i, b := range data {
		if err := m.mem.SetByteGlobal(uint32(global)+uint32(i), b); err != nil {
			m.logger.Warn("SET_MEM", slog.Any("error", err))
			return nil, false
		}
	}
	return Data{"size": len(data)}, true
}

func (m *Machine) setSpeed(params Data) (Data, bool) {
	if name, ok := params.Text("speed"); ok {
		speed, err := ParseSpeed(name)
		if err != nil {
			return nil, false
		}
		m.speed = speed
		return Data{"speed": int(m.speed)}, true
	}

	speed, ok := params.Int("speed")
	if !ok || speed < 0 || speed >= TotalSpeeds {
		return nil, false
	}
	m.speed = Speed(speed)
	return Data{"speed": int(m.speed)}, true
}

func (m *Machine) loadRom(params Data) (Data, bool) {
	data, ok := params.Bytes("data")
	if !ok {
		return nil, false
	}
	addr64 := params.Uint64Or("addr", uint64(m.loadAddress))
	if addr64 > 0xFFFF {
		return nil, false
	}
	addr := uint16(addr64)

	if err := m.mem.Load(data, addr); err != nil {
		m.logger.Warn("LOAD_ROM", slog.Any("error", err))
		return nil, false
	}

	m.rom = append([]byte(nil), data...)
	m.loadAddress = addr
	m.setPC(addr)

	path, _ := params.Text("path")
	m.logger.Info("rom loaded", slog.String("path", path), slog.Int("size", len(data)), slog.String("addr", formatAddr(addr)))
	return Data{"size": len(data), "addr": addr}, true
}

func formatAddr(addr uint16) string {
	return fmt.Sprintf("0x%04X", addr)
}
