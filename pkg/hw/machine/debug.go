package machine

import (
	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
	"github.com/Manu343726/devector/pkg/hw/display"
	"github.com/Manu343726/devector/pkg/hw/memory"
)

// MemoryView is read access to memory without side effects
type MemoryView interface {
	// Page the CPU currently sees at addr, see memory.Memory.PageIndex
	PageIndex(addr uint16) int
	GetByteGlobal(global uint32) uint8
	GetByteRam(addr uint16) uint8
}

// DebugContext is what the debug hook sees after each retired instruction.
// Everything but Memory is a copy. Memory is only valid during the hook call.
type DebugContext struct {
	CPU         i8080.State
	Instruction i8080.Instruction
	// Global address the instruction was fetched from
	GlobalAddr uint32
	Accesses   memory.AccessLog
	Display    display.Data
	Memory     MemoryView
}

// RequestHandler serves the DEBUG_* requests. It is called on the execution
// goroutine and must not call Machine.Request.
type RequestHandler interface {
	HandleRequest(kind Req, params Data) (Data, bool)
}

// Debugger instruments the execution goroutine. Every method runs on it and
// none of them may call Machine.Request, the engine would wait on itself.
type Debugger interface {
	RequestHandler

	// Called after each retired instruction, true stops the machine before the next one
	DebugHook(ctx *DebugContext) bool
	// Called on every data memory access
	MemoryAccess(access memory.Access)
}
