package debugger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
	"github.com/Manu343726/devector/pkg/hw/memory"
	"github.com/Manu343726/devector/pkg/utils"
)

var (
	ErrInvalidValue = errors.New("invalid value")
	ErrOutOfRange   = errors.New("value out of range")
)

type BreakpointStatus uint8

const (
	BreakpointActive BreakpointStatus = iota
	BreakpointDisabled
	BreakpointDeleted
)

func (s BreakpointStatus) String() string {
	switch s {
	case BreakpointActive:
		return "active"
	case BreakpointDisabled:
		return "disabled"
	case BreakpointDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

func ParseBreakpointStatus(text string) (BreakpointStatus, error) {
	for s := BreakpointActive; s <= BreakpointDeleted; s++ {
		if strings.EqualFold(s.String(), strings.TrimSpace(text)) {
			return s, nil
		}
	}
	return BreakpointActive, utils.MakeError(ErrInvalidValue, "unknown breakpoint status '%s'", text)
}

// Operand is the CPU quantity a breakpoint compares
type Operand uint8

const (
	OperandA Operand = iota
	OperandF
	OperandB
	OperandC
	OperandD
	OperandE
	OperandH
	OperandL
	OperandPSW
	OperandBC
	OperandDE
	OperandHL
	OperandCC
	OperandSP
	OperandPC

	totalOperands
)

var operandNames = [totalOperands]string{"A", "F", "B", "C", "D", "E", "H", "L", "PSW", "BC", "DE", "HL", "CC", "SP", "PC"}

func (o Operand) String() string {
	if o < totalOperands {
		return operandNames[o]
	}
	return fmt.Sprintf("Operand(%d)", uint8(o))
}

func ParseOperand(text string) (Operand, error) {
	text = strings.ToUpper(strings.TrimSpace(text))
	for o, name := range operandNames {
		if name == text {
			return Operand(o), nil
		}
	}
	return OperandPC, utils.MakeError(ErrInvalidValue, "unknown operand '%s'", text)
}

// Largest value the operand can take
func (o Operand) Max() uint64 {
	switch {
	case o == OperandCC:
		return ^uint64(0)
	case o <= OperandL:
		return 0xFF
	}
	return 0xFFFF
}

// Value of the operand in a CPU state
func (o Operand) Value(s i8080.State) uint64 {
	switch o {
	case OperandA:
		return uint64(s.A)
	case OperandF:
		return uint64(s.F)
	case OperandB:
		return uint64(s.B)
	case OperandC:
		return uint64(s.C)
	case OperandD:
		return uint64(s.D)
	case OperandE:
		return uint64(s.E)
	case OperandH:
		return uint64(s.H)
	case OperandL:
		return uint64(s.L)
	case OperandPSW:
		return uint64(s.PSW())
	case OperandBC:
		return uint64(s.BC())
	case OperandDE:
		return uint64(s.DE())
	case OperandHL:
		return uint64(s.HL())
	case OperandCC:
		return s.CC
	case OperandSP:
		return uint64(s.SP)
	}
	return uint64(s.PC)
}

// PageMask selects the memory pages a breakpoint is sensitive to, bit i for page index i
type PageMask uint64

const PageMaskAll = PageMask(1)<<memory.TotalPages - 1

func (m PageMask) Has(page int) bool {
	return page >= 0 && page < memory.TotalPages && m&(1<<page) != 0
}

// Breakpoint halts execution when the CPU reaches Addr
type Breakpoint struct {
	Addr     uint16
	MemPages PageMask
	Status   BreakpointStatus
	AutoDel  bool
	Operand  Operand
	Cond     Condition
	Value    uint64
	Comment  string
}

// Layout of the first breakpoint word (32 bits)
var BreakpointData0Layout = []utils.BitField{
	{Name: "addr", Offset: 0, Width: 16},
	{Name: "status", Offset: 16, Width: 2},
	{Name: "autoDel", Offset: 18, Width: 1},
	{Name: "operand", Offset: 19, Width: 4},
	{Name: "cond", Offset: 23, Width: 3},
}

// Layout of the second breakpoint word (64 bits), the third one holds the value
var BreakpointData1Layout = []utils.BitField{
	{Name: "memPages", Offset: 0, Width: memory.TotalPages},
}

var (
	bpAddr     = BreakpointData0Layout[0]
	bpStatus   = BreakpointData0Layout[1]
	bpAutoDel  = BreakpointData0Layout[2]
	bpOperand  = BreakpointData0Layout[3]
	bpCond     = BreakpointData0Layout[4]
	bpMemPages = BreakpointData1Layout[0]
)

// Encode packs the breakpoint into its wire words
func (b Breakpoint) Encode() (data0 uint32, data1 uint64, data2 uint64) {
	var word uint64
	word = bpAddr.Set(word, uint64(b.Addr))
	word = bpStatus.Set(word, uint64(b.Status))
	word = bpAutoDel.Set(word, boolBit(b.AutoDel))
	word = bpOperand.Set(word, uint64(b.Operand))
	word = bpCond.Set(word, uint64(b.Cond))

	return uint32(word), bpMemPages.Set(0, uint64(b.MemPages)), b.Value
}

// Unpacks a breakpoint from its wire words
func DecodeBreakpoint(data0 uint32, data1 uint64, data2 uint64, comment string) Breakpoint {
	word := uint64(data0)
	return Breakpoint{
		Addr:     uint16(bpAddr.Get(word)),
		Status:   BreakpointStatus(bpStatus.Get(word)),
		AutoDel:  bpAutoDel.Get(word) != 0,
		Operand:  Operand(bpOperand.Get(word)),
		Cond:     Condition(bpCond.Get(word)),
		MemPages: PageMask(bpMemPages.Get(data1)),
		Value:    data2,
		Comment:  comment,
	}
}

// Validate rejects field values the engine cannot evaluate. The engine itself does not validate.
func (b Breakpoint) Validate() error {
	if b.Status > BreakpointDeleted {
		return utils.MakeError(ErrInvalidValue, "status %d", b.Status)
	}
	if b.Operand >= totalOperands {
		return utils.MakeError(ErrInvalidValue, "operand %d", b.Operand)
	}
	if !b.Cond.Valid() {
		return utils.MakeError(ErrInvalidValue, "condition %d", b.Cond)
	}
	if b.MemPages == 0 || b.MemPages&^PageMaskAll != 0 {
		return utils.MakeError(ErrOutOfRange, "page mask 0x%X", uint64(b.MemPages))
	}
	if b.Value > b.Operand.Max() {
		return utils.MakeError(ErrOutOfRange, "value 0x%X does not fit operand %s", b.Value, b.Operand)
	}
	return nil
}

// Check evaluates the breakpoint against the state after an instruction retired.
// pageOf is the oracle telling which page the CPU sees at an address.
func (b *Breakpoint) Check(state i8080.State, pageOf func(addr uint16) int) bool {
	if b.Status != BreakpointActive || state.PC != b.Addr {
		return false
	}
	if !b.MemPages.Has(pageOf(b.Addr)) {
		return false
	}
	if b.Cond == CondAny {
		return true
	}

	value := b.Value
	if b.Operand != OperandCC {
		value &= 0xFFFF
	}
	return b.Cond.Holds(b.Operand.Value(state), value)
}

func (b Breakpoint) String() string {
	text := fmt.Sprintf("0x%04X %s", b.Addr, b.Status)
	if b.Cond != CondAny {
		text += fmt.Sprintf(" if %s %s 0x%X", b.Operand, b.Cond, b.Value)
	}
	if b.MemPages != PageMaskAll {
		text += fmt.Sprintf(" pages 0x%X", uint64(b.MemPages))
	}
	if b.AutoDel {
		text += " once"
	}
	if b.Comment != "" {
		text += " ; " + b.Comment
	}
	return text
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
