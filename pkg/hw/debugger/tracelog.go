package debugger

import (
	"fmt"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
	"github.com/Manu343726/devector/pkg/hw/memory"
)

const TraceLogSize = 100000

// Global address no instruction can be fetched from, marks the end of the log
const traceLogEnd = ^uint32(0)

// TraceLogEntry is one retired instruction
type TraceLogEntry struct {
	GlobalAddr uint32
	Opcode     uint8
	Data       [2]uint8
}

func (e TraceLogEntry) empty() bool {
	return e.GlobalAddr == traceLogEnd
}

// TraceLine is the disassembly projection of an entry
type TraceLine struct {
	GlobalAddr uint32         `yaml:"globalAddr"`
	Category   i8080.Category `yaml:"-"`
	Text       string         `yaml:"text"`
}

func (l TraceLine) String() string {
	return fmt.Sprintf("%s  %s", memory.FormatGlobal(l.GlobalAddr), l.Text)
}

// TraceLog is a ring of the most recently retired instructions, newest first.
// Only the execution goroutine writes it.
type TraceLog struct {
	entries []TraceLogEntry
	cursor  int
}

func NewTraceLog() *TraceLog {
	return NewTraceLogSize(TraceLogSize)
}

func NewTraceLogSize(size int) *TraceLog {
	t := &TraceLog{entries: make([]TraceLogEntry, size)}
	t.Reset()
	return t
}

// Reset forgets the logged instructions by placing the end mark at the cursor
func (t *TraceLog) Reset() {
	t.entries[t.cursor].GlobalAddr = traceLogEnd
}

func (t *TraceLog) Add(global uint32, instr i8080.Instruction) {
	newest := &t.entries[t.cursor]
	if instr.Opcode == i8080.OpcodeHLT && !newest.empty() && newest.Opcode == i8080.OpcodeHLT {
		return
	}

	t.cursor--
	if t.cursor < 0 {
		t.cursor = len(t.entries) - 1
	}
	t.entries[t.cursor] = TraceLogEntry{GlobalAddr: global, Opcode: instr.Opcode, Data: instr.Data}
}

// Entries returns up to max entries, newest first
func (t *TraceLog) Entries(max int) []TraceLogEntry {
	var result []TraceLogEntry
	t.walk(func(e TraceLogEntry) bool {
		if len(result) >= max {
			return false
		}
		result = append(result, e)
		return true
	})
	return result
}

// GetDisasm projects up to maxLines entries newest first, keeping those whose
// category ordinal is at most filter. i8080.CategoryOther keeps everything.
func (t *TraceLog) GetDisasm(maxLines int, filter i8080.Category) []TraceLine {
	var lines []TraceLine
	t.walk(func(e TraceLogEntry) bool {
		if len(lines) >= maxLines {
			return false
		}
		category := i8080.Info(e.Opcode).Category
		if category <= filter {
			lines = append(lines, TraceLine{
				GlobalAddr: e.GlobalAddr,
				Category:   category,
				Text:       i8080.Disassemble(e.Opcode, e.Data[0], e.Data[1]),
			})
		}
		return true
	})
	return lines
}

func (t *TraceLog) walk(visit func(TraceLogEntry) bool) {
	for i := 0; i < len(t.entries); i++ {
		e := t.entries[(t.cursor+i)%len(t.entries)]
		if e.empty() || !visit(e) {
			return
		}
	}
}
