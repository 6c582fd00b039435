package debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
)

func instr(opcode uint8, data ...uint8) i8080.Instruction {
	i := i8080.Instruction{Opcode: opcode}
	copy(i.Data[:], data)
	return i
}

func TestTraceLog_NewestFirst(t *testing.T) {
	log := NewTraceLogSize(8)
	assert.Empty(t, log.Entries(8))

	log.Add(0x100, instr(0x00))
	log.Add(0x101, instr(0xC3, 0x00, 0x02))
	log.Add(0x200, instr(0xC9))

	entries := log.Entries(8)
	require.Len(t, entries, 3)
	assert.Equal(t, uint32(0x200), entries[0].GlobalAddr)
	assert.Equal(t, uint32(0x101), entries[1].GlobalAddr)
	assert.Equal(t, [2]uint8{0x00, 0x02}, entries[1].Data)
	assert.Equal(t, uint32(0x100), entries[2].GlobalAddr)

	assert.Len(t, log.Entries(2), 2)
}

func TestTraceLog_Wraps(t *testing.T) {
	log := NewTraceLogSize(4)

	for i := 0; i < 10; i++ {
		log.Add(uint32(i), instr(0x00))
	}

	entries := log.Entries(100)
	require.Len(t, entries, 4, "only the newest entries survive")
	assert.Equal(t, uint32(9), entries[0].GlobalAddr)
	assert.Equal(t, uint32(6), entries[3].GlobalAddr)

	log = NewTraceLogSize(4)
	for i := 0; i < 3; i++ {
		log.Add(uint32(i), instr(0x00))
	}
	assert.Len(t, log.Entries(100), 3)
}

func TestTraceLog_Reset(t *testing.T) {
	log := NewTraceLogSize(8)
	log.Add(0x100, instr(0x00))
	log.Add(0x101, instr(0x00))

	log.Reset()
	assert.Empty(t, log.Entries(8))

	log.Add(0x102, instr(0x00))
	entries := log.Entries(8)
	require.Len(t, entries, 1)
	assert.Equal(t, uint32(0x102), entries[0].GlobalAddr)
}

func TestTraceLog_HaltCoalesced(t *testing.T) {
	log := NewTraceLogSize(8)
	log.Add(0x100, instr(i8080.OpcodeHLT))
	log.Add(0x100, instr(i8080.OpcodeHLT))
	log.Add(0x100, instr(i8080.OpcodeHLT))
	assert.Len(t, log.Entries(8), 1)

	log.Add(0x38, instr(i8080.OpcodeRST7))
	log.Add(0x100, instr(i8080.OpcodeHLT))
	assert.Len(t, log.Entries(8), 3)
}

func TestTraceLog_GetDisasmFilter(t *testing.T) {
	log := NewTraceLogSize(16)
	log.Add(0x100, instr(0x3E, 0x42))       // MVI A
	log.Add(0x102, instr(0xCD, 0x00, 0x02)) // CALL
	log.Add(0x200, instr(0xC2, 0x00, 0x03)) // JNZ
	log.Add(0x203, instr(0xC9))             // RET

	all := log.GetDisasm(10, i8080.CategoryOther)
	require.Len(t, all, 4)
	assert.Equal(t, "RET", all[0].Text)
	assert.Equal(t, "MVI A, 0x42", all[3].Text)

	calls := log.GetDisasm(10, i8080.CategoryCALL)
	require.Len(t, calls, 1)
	assert.Equal(t, uint32(0x102), calls[0].GlobalAddr)

	jumps := log.GetDisasm(10, i8080.CategoryJcc)
	assert.Len(t, jumps, 2)

	assert.Len(t, log.GetDisasm(1, i8080.CategoryOther), 1)
}
