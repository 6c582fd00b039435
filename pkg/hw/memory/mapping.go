package memory

import (
	"fmt"
	"strings"

	"github.com/Manu343726/devector/pkg/utils"
)

// Layout of the RAM-disk mode byte
var MappingLayout = []utils.BitField{
	{Name: "stack page", Offset: 0, Width: 2},
	{Name: "ram page", Offset: 2, Width: 2},
	{Name: "stack", Offset: 4, Width: 1},
	{Name: "A000-DFFF", Offset: 5, Width: 1},
	{Name: "8000-9FFF", Offset: 6, Width: 1},
	{Name: "E000-FFFF", Offset: 7, Width: 1},
}

// Mapping is the decoded mode byte of a RAM-disk
type Mapping struct {
	StackPage  uint8
	RamPage    uint8
	Stack      bool
	WindowA000 bool
	Window8000 bool
	WindowE000 bool
}

func ParseMapping(mode uint8) Mapping {
	bits := uint64(mode)
	return Mapping{
		StackPage:  uint8(MappingLayout[0].Get(bits)),
		RamPage:    uint8(MappingLayout[1].Get(bits)),
		Stack:      MappingLayout[2].Get(bits) != 0,
		WindowA000: MappingLayout[3].Get(bits) != 0,
		Window8000: MappingLayout[4].Get(bits) != 0,
		WindowE000: MappingLayout[5].Get(bits) != 0,
	}
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Encodes the mapping back into a mode byte
func (m Mapping) Byte() uint8 {
	var bits uint64
	bits = MappingLayout[0].Set(bits, uint64(m.StackPage))
	bits = MappingLayout[1].Set(bits, uint64(m.RamPage))
	bits = MappingLayout[2].Set(bits, boolBit(m.Stack))
	bits = MappingLayout[3].Set(bits, boolBit(m.WindowA000))
	bits = MappingLayout[4].Set(bits, boolBit(m.Window8000))
	bits = MappingLayout[5].Set(bits, boolBit(m.WindowE000))
	return uint8(bits)
}

// Whether any mapping is enabled
func (m Mapping) Enabled() bool {
	return m.Stack || m.WindowA000 || m.Window8000 || m.WindowE000
}

// Whether a non stack access to addr is redirected to the RAM page
func (m Mapping) Maps(addr uint16) bool {
	switch {
	case addr >= 0xA000 && addr < 0xE000:
		return m.WindowA000
	case addr >= 0x8000 && addr < 0xA000:
		return m.Window8000
	case addr >= 0xE000:
		return m.WindowE000
	}
	return false
}

func (m Mapping) String() string {
	windows := []string{}
	if m.Window8000 {
		windows = append(windows, "8000-9FFF")
	}
	if m.WindowA000 {
		windows = append(windows, "A000-DFFF")
	}
	if m.WindowE000 {
		windows = append(windows, "E000-FFFF")
	}
	stack := "off"
	if m.Stack {
		stack = fmt.Sprintf("page %d", m.StackPage)
	}
	return fmt.Sprintf("ram page %d [%s], stack %s", m.RamPage, strings.Join(windows, " "), stack)
}
