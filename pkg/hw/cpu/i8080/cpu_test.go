package i8080

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flatBus struct {
	mem    [0x10000]uint8
	stack  int
	out    map[uint8]uint8
	inputs map[uint8]uint8
}

func newFlatBus(program ...uint8) *flatBus {
	b := &flatBus{out: map[uint8]uint8{}, inputs: map[uint8]uint8{}}
	copy(b.mem[:], program)
	return b
}

func (b *flatBus) Fetch(addr uint16) uint8 { return b.mem[addr] }
func (b *flatBus) Read(addr uint16, stack bool) uint8 {
	if stack {
		b.stack++
	}
	return b.mem[addr]
}
func (b *flatBus) Write(addr uint16, value uint8, stack bool) {
	if stack {
		b.stack++
	}
	b.mem[addr] = value
}
func (b *flatBus) In(port uint8) uint8         { return b.inputs[port] }
func (b *flatBus) Out(port uint8, value uint8) { b.out[port] = value }

func run(cpu *CPU, steps int) {
	for i := 0; i < steps; i++ {
		cpu.Step()
	}
}

func TestCPU_CallReturn(t *testing.T) {
	bus := newFlatBus(
		0x31, 0x00, 0x10, // LXI SP, 0x1000
		0xCD, 0x10, 0x00, // CALL 0x0010
		0x76, // HLT
	)
	copy(bus.mem[0x10:], []uint8{
		0x3E, 0x42, // MVI A, 0x42
		0xC9, // RET
	})

	cpu := New(bus)
	run(cpu, 4)

	state := cpu.State()
	assert.Equal(t, uint16(0x0006), state.PC)
	assert.Equal(t, uint16(0x1000), state.SP)
	assert.Equal(t, uint8(0x42), state.A)
	assert.Equal(t, uint64(10+17+7+10), state.CC)
	assert.Equal(t, 4, bus.stack)
	assert.Equal(t, uint8(0xC9), state.Last.Opcode)
	assert.Equal(t, uint16(0x0012), state.Last.Addr)
}

func TestCPU_LastAddrIsInstructionStart(t *testing.T) {
	bus := newFlatBus(
		0x00,             // NOP
		0x21, 0x34, 0x12, // LXI H, 0x1234
		0x3E, 0x07, // MVI A, 0x07
	)
	cpu := New(bus)

	for _, want := range []uint16{0x0000, 0x0001, 0x0004} {
		cpu.Step()
		assert.Equal(t, want, cpu.State().Last.Addr)
	}
	assert.Equal(t, uint16(0x1234), cpu.State().HL())
}

func TestCPU_HaltRepeatsUntilInterrupt(t *testing.T) {
	bus := newFlatBus(
		0xFB, // EI
		0x76, // HLT
	)
	cpu := New(bus)
	cpu.SetState(State{SP: 0x2000})

	cpu.Step()
	assert.False(t, cpu.State().INTE, "EI takes effect after the next instruction")

	cpu.SetInterrupt(true)
	result := cpu.Step()
	assert.Equal(t, OpcodeHLT, result.Instruction.Opcode)
	assert.True(t, cpu.State().HLTA)
	assert.True(t, cpu.State().INTE)

	result = cpu.Step()
	require.True(t, result.Interrupt)
	state := cpu.State()
	assert.Equal(t, uint16(0x0038), state.PC)
	assert.False(t, state.HLTA)
	assert.False(t, state.INTE)
	assert.Equal(t, uint8(0x02), bus.mem[0x1FFE])
	assert.Equal(t, uint8(0x00), bus.mem[0x1FFF])
}

func TestCPU_HaltWithoutInterrupt(t *testing.T) {
	cpu := New(newFlatBus(0x76))

	cpu.Step()
	for i := 0; i < 3; i++ {
		result := cpu.Step()
		assert.Equal(t, OpcodeHLT, result.Instruction.Opcode)
		assert.Equal(t, uint16(0), result.Instruction.Addr)
		assert.Equal(t, 4, result.Cycles)
	}
	assert.Equal(t, uint16(1), cpu.State().PC)
}

func TestCPU_Arithmetic(t *testing.T) {
	tests := []struct {
		name    string
		a       uint8
		program []uint8
		wantA   uint8
		set     []uint8
		clear   []uint8
	}{
		{name: "add overflow", a: 0xFF, program: []uint8{0xC6, 0x01}, wantA: 0x00, set: []uint8{FlagZ, FlagCY, FlagAC, FlagP}, clear: []uint8{FlagS}},
		{name: "sub equal", a: 0x3E, program: []uint8{0xD6, 0x3E}, wantA: 0x00, set: []uint8{FlagZ, FlagP}, clear: []uint8{FlagCY, FlagS}},
		{name: "sub borrow", a: 0x01, program: []uint8{0xD6, 0x02}, wantA: 0xFF, set: []uint8{FlagS, FlagCY, FlagP}, clear: []uint8{FlagZ}},
		{name: "compare keeps accumulator", a: 0x10, program: []uint8{0xFE, 0x20}, wantA: 0x10, set: []uint8{FlagCY}, clear: []uint8{FlagZ}},
		{name: "and", a: 0xF0, program: []uint8{0xE6, 0x3C}, wantA: 0x30, set: []uint8{FlagP}, clear: []uint8{FlagCY, FlagZ}},
		{name: "xor self", a: 0x5A, program: []uint8{0xAF}, wantA: 0x00, set: []uint8{FlagZ, FlagP}, clear: []uint8{FlagCY, FlagAC}},
		{name: "decimal adjust", a: 0x9B, program: []uint8{0x27}, wantA: 0x01, set: []uint8{FlagCY, FlagAC}, clear: []uint8{FlagZ}},
		{name: "rotate left", a: 0x81, program: []uint8{0x07}, wantA: 0x03, set: []uint8{FlagCY}},
		{name: "increment wraps", a: 0xFF, program: []uint8{0x3C}, wantA: 0x00, set: []uint8{FlagZ, FlagAC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := New(newFlatBus(tt.program...))
			cpu.SetState(State{A: tt.a})
			cpu.Step()

			state := cpu.State()
			assert.Equal(t, tt.wantA, state.A)
			for _, flag := range tt.set {
				assert.True(t, state.Flag(flag), "flag %02X should be set", flag)
			}
			for _, flag := range tt.clear {
				assert.False(t, state.Flag(flag), "flag %02X should be clear", flag)
			}
		})
	}
}

func TestCPU_ConditionalCallCycles(t *testing.T) {
	program := []uint8{
		0xCC, 0x00, 0x20, // CZ 0x2000
	}

	t.Run("not taken", func(t *testing.T) {
		cpu := New(newFlatBus(program...))
		result := cpu.Step()
		assert.Equal(t, 11, result.Cycles)
		assert.Equal(t, uint16(3), cpu.State().PC)
	})

	t.Run("taken", func(t *testing.T) {
		cpu := New(newFlatBus(program...))
		cpu.SetState(State{F: FlagZ, SP: 0x100})
		result := cpu.Step()
		assert.Equal(t, 17, result.Cycles)
		assert.Equal(t, uint16(0x2000), cpu.State().PC)
	})
}

func TestCPU_PushPopPSW(t *testing.T) {
	bus := newFlatBus(
		0xF5, // PUSH PSW
		0xC1, // POP B
	)
	cpu := New(bus)
	cpu.SetState(State{A: 0x12, F: 0xFF, SP: 0x100})
	run(cpu, 2)

	state := cpu.State()
	assert.Equal(t, uint8(0x12), state.B)
	assert.Equal(t, uint8(0xD7), state.C, "bits 3 and 5 read as zero, bit 1 as one")
}

func TestCPU_IO(t *testing.T) {
	bus := newFlatBus(
		0xDB, 0x05, // IN 0x05
		0xD3, 0x02, // OUT 0x02
	)
	bus.inputs[0x05] = 0x77

	cpu := New(bus)
	run(cpu, 2)

	assert.Equal(t, uint8(0x77), cpu.State().A)
	assert.Equal(t, uint8(0x77), bus.out[0x02])
}

func TestCPU_Reset(t *testing.T) {
	cpu := New(newFlatBus(0x3E, 0x11, 0xFB, 0x00))
	run(cpu, 3)
	require.True(t, cpu.State().INTE)

	cpu.Reset()
	state := cpu.State()
	assert.Equal(t, uint16(0), state.PC)
	assert.False(t, state.INTE)
	assert.Equal(t, uint64(0), state.CC)
	assert.Equal(t, uint8(0x11), state.A)
}
