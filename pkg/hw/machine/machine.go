// Package machine runs the emulated computer on a dedicated goroutine.
//
// The goroutine started by Start is the only one touching the CPU, memory and
// peripherals. Other goroutines query and control it through Request, which
// enqueues a request and waits for its response. Requests are served between
// instructions while running, and with a bounded wait while stopped.
package machine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Manu343726/devector/pkg/hw/audio"
	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
	"github.com/Manu343726/devector/pkg/hw/display"
	"github.com/Manu343726/devector/pkg/hw/memory"
	"github.com/Manu343726/devector/pkg/hw/pit"
	"github.com/Manu343726/devector/pkg/hw/ports"
	"github.com/Manu343726/devector/pkg/logging"
	"github.com/Manu343726/devector/pkg/utils"
)

// How long the stopped engine waits for a request before checking its state again
const StopWait = 100 * time.Millisecond

// CPU is the processor contract the engine drives
type CPU interface {
	Step() i8080.StepResult
	State() i8080.State
	SetState(i8080.State)
	Reset()
	SetInterrupt(level bool)
}

// Status of the execution goroutine
type Status int

const (
	StatusStop Status = iota
	StatusRun
	StatusExit
)

func (s Status) String() string {
	switch s {
	case StatusStop:
		return "stop"
	case StatusRun:
		return "run"
	case StatusExit:
		return "exit"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type Options struct {
	RamDisks    int
	LoadAddress uint16
	Speed       Speed
	// Start running instead of stopped
	Run    bool
	Logger *slog.Logger
	// Optional debugger, attached with a DEBUG_ATTACH request or with Attach
	Debugger Debugger
	Attach   bool
	// Destination of audio samples, nil discards them
	AudioSink audio.Sink
	// Silenced audio channels: 0 to 2 are timer counters, 3 is the beeper
	Mute []int
	// Replaces the built-in 8080 core
	NewCPU func(bus i8080.Bus) CPU
}

// Stats are the counters reported by GET_HW_STATS
type Stats struct {
	Frames       uint64
	Instructions uint64
	// Output transitions of each timer counter
	PITTransitions [pit.Counters]uint64
}

type Machine struct {
	logger *slog.Logger

	cpu     CPU
	mem     *memory.Memory
	timer   *pit.PIT
	display *display.Display
	ports   *ports.Ports
	mixer   *audio.Mixer

	// Owned by the execution goroutine
	status      Status
	speed       Speed
	stats       Stats
	lastErr     error
	debugger    Debugger
	attached    bool
	rom         []byte
	loadAddress uint16

	requests  *utils.Queue[request]
	responses *utils.Queue[response]
	// Serializes callers so each one gets its own response
	requestMu sync.Mutex
	started   sync.Once
	done      chan struct{}
}

type bus struct {
	mem   *memory.Memory
	ports *ports.Ports
}

func (b bus) Fetch(addr uint16) uint8                    { return b.mem.Fetch(addr) }
func (b bus) Read(addr uint16, stack bool) uint8         { return b.mem.Read(addr, stack) }
func (b bus) Write(addr uint16, value uint8, stack bool) { b.mem.Write(addr, value, stack) }
func (b bus) In(port uint8) uint8                        { return b.ports.In(port) }
func (b bus) Out(port uint8, value uint8)                { b.ports.Out(port, value) }

func New(opts Options) (*Machine, error) {
	mem, err := memory.New(opts.RamDisks)
	if err != nil {
		return nil, fmt.Errorf("cannot create memory: %w", err)
	}

	m := &Machine{
		logger:      logging.Component(opts.Logger, "machine"),
		mem:         mem,
		display:     display.New(),
		speed:       opts.Speed,
		debugger:    opts.Debugger,
		loadAddress: opts.LoadAddress,
		requests:    utils.NewQueue[request](),
		responses:   utils.NewQueue[response](),
		done:        make(chan struct{}),
	}

	m.timer = pit.New(m.timerOutput)
	m.mixer = audio.NewMixer(m.timer)
	m.mixer.SetSink(opts.AudioSink)
	for _, channel := range opts.Mute {
		m.mixer.Mute(channel, true)
	}
	m.ports = ports.New(m.mem, m.timer, m.display, m.mixer)

	b := bus{mem: m.mem, ports: m.ports}
	if opts.NewCPU != nil {
		m.cpu = opts.NewCPU(b)
	} else {
		m.cpu = i8080.New(b)
	}
	m.setPC(opts.LoadAddress)

	if opts.Run {
		m.status = StatusRun
	}
	if opts.Attach {
		m.attach(true)
	}

	return m, nil
}

func (m *Machine) timerOutput(counter int, level bool) {
	m.stats.PITTransitions[counter]++
	m.mixer.TimerOutput(counter, level)
}

// Launches the execution goroutine. Subsequent calls do nothing.
func (m *Machine) Start() {
	m.started.Do(func() {
		m.logger.Debug("starting execution goroutine", slog.String("status", m.status.String()), slog.String("speed", m.speed.String()))
		go m.loop()
	})
}

// Closed once the execution goroutine ends
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// Asks the execution goroutine to exit and waits for it
func (m *Machine) Close() error {
	m.Start()
	m.Request(ReqExit, nil)
	<-m.done
	return m.mixer.Flush()
}

// Request sends a request to the execution goroutine and waits for its
// response. The second result is false for unknown request kinds, malformed
// parameters, requests the machine cannot serve, and once the goroutine exited.
//
// Request must not be called from the execution goroutine, that is, from a
// debug hook or a request handler.
func (m *Machine) Request(kind Req, params Data) (Data, bool) {
	if !kind.Valid() {
		return nil, false
	}
	if params == nil {
		params = Data{}
	}

	m.requestMu.Lock()
	defer m.requestMu.Unlock()

	select {
	case <-m.done:
		return nil, false
	default:
	}

	m.requests.Push(request{kind: kind, params: params})

	for {
		if resp, ok := m.responses.PopTimeout(StopWait); ok {
			return resp.data, resp.ok
		}
		select {
		case <-m.done:
			if resp, ok := m.responses.TryPop(); ok {
				return resp.data, resp.ok
			}
			return nil, false
		default:
		}
	}
}

func (m *Machine) loop() {
	defer close(m.done)
	defer m.logger.Debug("execution goroutine finished")

	for m.status != StatusExit {
		if m.status == StatusRun {
			m.runFrame()
		} else {
			m.serveRequests(StopWait)
		}
	}

	// answer whatever arrived after EXIT
	for {
		req, ok := m.requests.TryPop()
		if !ok {
			break
		}
		m.logger.Debug("dropping request after exit", slog.String("request", req.kind.String()))
		m.responses.Push(response{})
	}
}

// Executes instructions until the frame ends or the machine stops running,
// then waits for the frame's time slot to elapse
func (m *Machine) runFrame() {
	defer m.recoverFault()

	frameStart := time.Now()
	for m.status == StatusRun {
		newFrame, brk := m.step()
		if brk {
			m.status = StatusStop
		}

		m.serveRequests(0)

		if newFrame {
			m.throttle(frameStart)
			return
		}
	}
}

// Sleeps until frameStart + frame duration, serving requests meanwhile
func (m *Machine) throttle(frameStart time.Time) {
	delay := m.speed.FrameDuration()
	if delay <= 0 {
		return
	}

	deadline := frameStart.Add(delay)
	for m.status == StatusRun {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if req, ok := m.requests.PopTimeout(remaining); ok {
			m.serve(req)
		}
	}
}

func (m *Machine) recoverFault() {
	if r := recover(); r != nil {
		m.fault(r)
	}
}

func (m *Machine) fault(cause any) {
	m.lastErr = fmt.Errorf("fault at 0x%04X: %v", m.cpu.State().PC, cause)
	m.status = StatusStop
	m.logger.Error("execution stopped", slog.Any("error", m.lastErr))
}

// Like step, but a fault stops the machine instead of unwinding the caller
func (m *Machine) guardedStep() (newFrame bool, brk bool, faulted bool) {
	defer func() {
		if r := recover(); r != nil {
			m.fault(r)
			faulted = true
		}
	}()

	newFrame, brk = m.step()
	return newFrame, brk, false
}

// Retires one instruction and runs the debug hook
func (m *Machine) step() (newFrame bool, brk bool) {
	m.mem.BeginInstruction()
	result := m.cpu.Step()
	m.stats.Instructions++

	m.mixer.Advance(result.Cycles)
	newFrame = m.display.Advance(result.Cycles)
	if newFrame {
		m.stats.Frames++
		m.cpu.SetInterrupt(true)
	} else if !m.display.IRQ() {
		m.cpu.SetInterrupt(false)
	}

	if m.attached && m.debugger != nil {
		ctx := m.debugContext(result)
		if m.debugger.DebugHook(&ctx) {
			m.logger.Debug("debugger break", slog.String("pc", fmt.Sprintf("0x%04X", ctx.CPU.PC)))
			brk = true
		}
	}

	return newFrame, brk
}

func (m *Machine) debugContext(result i8080.StepResult) DebugContext {
	log := m.mem.Log()

	global := m.mem.GlobalAddr(result.Instruction.Addr, false)
	if !result.Interrupt && log.Len > 0 && log.Entries[0].Fetch {
		global = log.Entries[0].Global
	}

	return DebugContext{
		CPU:         m.cpu.State(),
		Instruction: result.Instruction,
		GlobalAddr:  global,
		Accesses:    log,
		Display:     m.display.Data(),
		Memory:      m.mem,
	}
}

// Serves pending requests. With a positive wait, blocks up to wait for the first one.
func (m *Machine) serveRequests(wait time.Duration) {
	var req request
	var ok bool

	if wait > 0 {
		req, ok = m.requests.PopTimeout(wait)
	} else {
		req, ok = m.requests.TryPop()
	}

	for ok && m.status != StatusExit {
		m.serve(req)
		req, ok = m.requests.TryPop()
	}

	if ok {
		// EXIT was served while draining, req goes back through the exit path
		m.responses.Push(response{})
	}
}

func (m *Machine) serve(req request) {
	resp := response{}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("request failed", slog.String("request", req.kind.String()), slog.Any("panic", r))
			resp = response{}
		}
		m.responses.Push(resp)
	}()

	resp.data, resp.ok = m.handle(req.kind, req.params)
	if !resp.ok {
		m.logger.Debug("request not served", slog.String("request", req.kind.String()))
	}
}

func (m *Machine) setPC(pc uint16) {
	state := m.cpu.State()
	state.PC = pc
	m.cpu.SetState(state)
}

func (m *Machine) attach(attached bool) {
	m.attached = attached && m.debugger != nil
	if m.attached {
		m.mem.SetAccessHook(m.debugger.MemoryAccess)
	} else {
		m.mem.SetAccessHook(nil)
	}
}
