package i8080

import (
	"fmt"
	"strings"
)

// Category groups opcodes by their effect on control flow. The ordinal order
// is the nesting order used by trace filters: a filter level includes every
// category whose ordinal is lower or equal.
type Category int

const (
	CategoryCALL Category = iota
	CategoryCcc
	CategoryJMP
	CategoryJcc
	CategoryRET
	CategoryRcc
	CategoryPCHL
	CategoryRST
	CategoryOther

	TotalCategories = int(CategoryOther) + 1
)

func (c Category) String() string {
	switch c {
	case CategoryCALL:
		return "CALL"
	case CategoryCcc:
		return "Ccc"
	case CategoryJMP:
		return "JMP"
	case CategoryJcc:
		return "Jcc"
	case CategoryRET:
		return "RET"
	case CategoryRcc:
		return "Rcc"
	case CategoryPCHL:
		return "PCHL"
	case CategoryRST:
		return "RST"
	case CategoryOther:
		return "ALL"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ParseCategory parses a category name as printed by String, case insensitive.
// "OTHER" is accepted as an alias of "ALL".
func ParseCategory(text string) (Category, error) {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "OTHER") {
		return CategoryOther, nil
	}
	for c := CategoryCALL; c <= CategoryOther; c++ {
		if strings.EqualFold(c.String(), text) {
			return c, nil
		}
	}
	return CategoryOther, fmt.Errorf("unknown instruction category '%s'", text)
}

// OpcodeInfo describes an opcode
type OpcodeInfo struct {
	Mnemonic string
	// Register operands, e.g. "B, C"
	Args string
	// Instruction length in bytes, 1 to 3
	Length   int
	Category Category
	// Clock cycles, for conditional calls and returns the cycles when not taken
	Cycles int
}

var opcodes [256]OpcodeInfo

// Info returns the metadata of an opcode
func Info(opcode uint8) OpcodeInfo {
	return opcodes[opcode]
}

// Length returns the length in bytes of the instruction starting with opcode
func Length(opcode uint8) int {
	return opcodes[opcode].Length
}

// Disassemble renders an instruction given its opcode and up to two immediate bytes
func Disassemble(opcode, lo, hi uint8) string {
	info := opcodes[opcode]

	args := make([]string, 0, 2)
	if info.Args != "" {
		args = append(args, info.Args)
	}
	switch info.Length {
	case 2:
		args = append(args, fmt.Sprintf("0x%02X", lo))
	case 3:
		args = append(args, fmt.Sprintf("0x%04X", uint16(hi)<<8|uint16(lo)))
	}

	if len(args) == 0 {
		return info.Mnemonic
	}
	return info.Mnemonic + " " + strings.Join(args, ", ")
}

const (
	OpcodeHLT  uint8 = 0x76
	OpcodeRST7 uint8 = 0xFF
)

var (
	regNames     = [8]string{"B", "C", "D", "E", "H", "L", "M", "A"}
	pairNames    = [4]string{"B", "D", "H", "SP"}
	pairPSWNames = [4]string{"B", "D", "H", "PSW"}
	condNames    = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	aluNames     = [8]string{"ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP"}
	aluImmNames  = [8]string{"ADI", "ACI", "SUI", "SBI", "ANI", "XRI", "ORI", "CPI"}
	rotNames     = [8]string{"RLC", "RRC", "RAL", "RAR", "DAA", "CMA", "STC", "CMC"}
)

var cycles = [256]uint8{
	4, 10, 7, 5, 5, 5, 7, 4, 4, 10, 7, 5, 5, 5, 7, 4,
	4, 10, 7, 5, 5, 5, 7, 4, 4, 10, 7, 5, 5, 5, 7, 4,
	4, 10, 16, 5, 5, 5, 7, 4, 4, 10, 16, 5, 5, 5, 7, 4,
	4, 10, 13, 5, 10, 10, 10, 4, 4, 10, 13, 5, 5, 5, 7, 4,
	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5,
	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5,
	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5,
	7, 7, 7, 7, 7, 7, 7, 7, 5, 5, 5, 5, 5, 5, 7, 5,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	5, 10, 10, 10, 11, 11, 7, 11, 5, 10, 10, 10, 11, 17, 7, 11,
	5, 10, 10, 10, 11, 11, 7, 11, 5, 10, 10, 10, 11, 17, 7, 11,
	5, 10, 10, 18, 11, 11, 7, 11, 5, 5, 10, 4, 11, 17, 7, 11,
	5, 10, 10, 4, 11, 11, 7, 11, 5, 5, 10, 4, 11, 17, 7, 11,
}

func describe(op uint8) OpcodeInfo {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	info := OpcodeInfo{Length: 1, Category: CategoryOther}
	set := func(mnemonic, args string, length int) {
		info.Mnemonic, info.Args, info.Length = mnemonic, args, length
	}

	switch x {
	case 0:
		switch z {
		case 0:
			set("NOP", "", 1)
		case 1:
			if q == 0 {
				set("LXI", pairNames[p], 3)
			} else {
				set("DAD", pairNames[p], 1)
			}
		case 2:
			switch {
			case p < 2 && q == 0:
				set("STAX", pairNames[p], 1)
			case p < 2:
				set("LDAX", pairNames[p], 1)
			case p == 2 && q == 0:
				set("SHLD", "", 3)
			case p == 2:
				set("LHLD", "", 3)
			case q == 0:
				set("STA", "", 3)
			default:
				set("LDA", "", 3)
			}
		case 3:
			if q == 0 {
				set("INX", pairNames[p], 1)
			} else {
				set("DCX", pairNames[p], 1)
			}
		case 4:
			set("INR", regNames[y], 1)
		case 5:
			set("DCR", regNames[y], 1)
		case 6:
			set("MVI", regNames[y], 2)
		case 7:
			set(rotNames[y], "", 1)
		}
	case 1:
		if op == OpcodeHLT {
			set("HLT", "", 1)
		} else {
			set("MOV", regNames[y]+", "+regNames[z], 1)
		}
	case 2:
		set(aluNames[y], regNames[z], 1)
	case 3:
		switch z {
		case 0:
			set("R"+condNames[y], "", 1)
			info.Category = CategoryRcc
		case 1:
			switch {
			case q == 0:
				set("POP", pairPSWNames[p], 1)
			case p <= 1:
				set("RET", "", 1)
				info.Category = CategoryRET
			case p == 2:
				set("PCHL", "", 1)
				info.Category = CategoryPCHL
			default:
				set("SPHL", "", 1)
			}
		case 2:
			set("J"+condNames[y], "", 3)
			info.Category = CategoryJcc
		case 3:
			switch y {
			case 0, 1:
				set("JMP", "", 3)
				info.Category = CategoryJMP
			case 2:
				set("OUT", "", 2)
			case 3:
				set("IN", "", 2)
			case 4:
				set("XTHL", "", 1)
			case 5:
				set("XCHG", "", 1)
			case 6:
				set("DI", "", 1)
			case 7:
				set("EI", "", 1)
			}
		case 4:
			set("C"+condNames[y], "", 3)
			info.Category = CategoryCcc
		case 5:
			if q == 0 {
				set("PUSH", pairPSWNames[p], 1)
			} else {
				set("CALL", "", 3)
				info.Category = CategoryCALL
			}
		case 6:
			set(aluImmNames[y], "", 2)
		case 7:
			set("RST", fmt.Sprint(y), 1)
			info.Category = CategoryRST
		}
	}

	info.Cycles = int(cycles[op])
	return info
}

func init() {
	for op := range opcodes {
		opcodes[op] = describe(uint8(op))
	}
}
