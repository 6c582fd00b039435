// Package i8080 implements an Intel 8080 core that retires one instruction per
// Step, plus the opcode metadata (length, category, mnemonic) shared by the
// disassembler and the debugger.
package i8080

import "fmt"

// Flag bits of the F register
const (
	FlagCY uint8 = 1 << 0
	flag1  uint8 = 1 << 1 // always set
	FlagP  uint8 = 1 << 2
	FlagAC uint8 = 1 << 4
	FlagZ  uint8 = 1 << 6
	FlagS  uint8 = 1 << 7
)

// Instruction identifies a retired instruction
type Instruction struct {
	// CPU address the opcode was fetched from
	Addr   uint16
	Opcode uint8
	// Immediate bytes, only the first Length-1 are meaningful
	Data [2]uint8
}

// Length in bytes, opcode included
func (i Instruction) Length() int {
	return Info(i.Opcode).Length
}

// Immediate operand value, 0 for single byte instructions
func (i Instruction) Immediate() uint16 {
	switch i.Length() {
	case 2:
		return uint16(i.Data[0])
	case 3:
		return uint16(i.Data[0]) | uint16(i.Data[1])<<8
	}
	return 0
}

func (i Instruction) String() string {
	return Disassemble(i.Opcode, i.Data[0], i.Data[1])
}

// State is a value snapshot of the CPU registers
type State struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	// Interrupts enabled
	INTE bool
	// Halted, waiting for an interrupt
	HLTA bool
	// Clock cycles elapsed since reset
	CC uint64
	// Last retired instruction
	Last Instruction
}

func (s State) BC() uint16  { return uint16(s.B)<<8 | uint16(s.C) }
func (s State) DE() uint16  { return uint16(s.D)<<8 | uint16(s.E) }
func (s State) HL() uint16  { return uint16(s.H)<<8 | uint16(s.L) }
func (s State) PSW() uint16 { return uint16(s.A)<<8 | uint16(s.F) }

// Flag returns whether a flag bit is set
func (s State) Flag(flag uint8) bool {
	return s.F&flag != 0
}

func (s State) String() string {
	return fmt.Sprintf("PC=%04X SP=%04X A=%02X F=%02X BC=%04X DE=%04X HL=%04X INTE=%v HLTA=%v CC=%d",
		s.PC, s.SP, s.A, s.F, s.BC(), s.DE(), s.HL(), s.INTE, s.HLTA, s.CC)
}

// FlagsString renders the flags as "SZ-A-P-C" with unset flags in lowercase
func (s State) FlagsString() string {
	out := []byte("szapc")
	for i, flag := range []uint8{FlagS, FlagZ, FlagAC, FlagP, FlagCY} {
		if s.Flag(flag) {
			out[i] -= 'a' - 'A'
		}
	}
	return string(out)
}
