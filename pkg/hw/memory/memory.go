// Package memory implements the banked memory of the machine: 64 KiB of main
// RAM plus up to 8 RAM-disks of four 64 KiB pages each, mapped into the CPU
// address space through per-disk mode bytes.
//
// Every byte of every bank has a global address: page index × 64 KiB + offset,
// where page index 0 is main RAM and 1 + disk×4 + page selects a RAM-disk page.
package memory

import (
	"errors"
	"fmt"

	"github.com/Manu343726/devector/pkg/utils"
)

const (
	PageSize       = 0x10000
	PagesPerDisk   = 4
	MaxRamDisks    = 8
	TotalPages     = 1 + MaxRamDisks*PagesPerDisk
	GlobalSize     = TotalPages * PageSize
	MaxLogAccesses = 8
)

var (
	ErrOutOfRange = errors.New("address out of range")
	ErrTooLarge   = errors.New("image too large")
)

type Direction uint8

const (
	Read Direction = iota
	Write
)

func (d Direction) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// Access is a single CPU memory access
type Access struct {
	Direction Direction
	Global    uint32
	Value     uint8
	// Opcode and immediate fetches
	Fetch bool
}

// AccessLog holds the accesses performed by the current instruction
type AccessLog struct {
	Entries [MaxLogAccesses]Access
	Len     int
}

func (l *AccessLog) add(a Access) {
	if l.Len < MaxLogAccesses {
		l.Entries[l.Len] = a
		l.Len++
	}
}

// Returns the logged accesses
func (l *AccessLog) Accesses() []Access {
	return l.Entries[:l.Len]
}

// AccessHook observes data accesses, fetches excluded
type AccessHook func(Access)

type Memory struct {
	main     []byte
	disks    []byte
	ramDisks int
	modes    [MaxRamDisks]Mapping
	// Disk currently mapped into the CPU address space, -1 if none
	mapped int
	log    AccessLog
	hook   AccessHook
}

// Creates memory with the given number of RAM-disks plugged in
func New(ramDisks int) (*Memory, error) {
	if ramDisks < 0 || ramDisks > MaxRamDisks {
		return nil, utils.MakeError(ErrOutOfRange, "%d RAM-disks requested, at most %d supported", ramDisks, MaxRamDisks)
	}

	return &Memory{
		main:     make([]byte, PageSize),
		disks:    make([]byte, ramDisks*PagesPerDisk*PageSize),
		ramDisks: ramDisks,
		mapped:   -1,
	}, nil
}

func (m *Memory) RamDisks() int {
	return m.ramDisks
}

// Clears every bank and unmaps all RAM-disks
func (m *Memory) Init() {
	clear(m.main)
	clear(m.disks)
	m.modes = [MaxRamDisks]Mapping{}
	m.mapped = -1
	m.log = AccessLog{}
}

// Copies an image into main RAM
func (m *Memory) Load(data []byte, addr uint16) error {
	if int(addr)+len(data) > PageSize {
		return utils.MakeError(ErrTooLarge, "%d bytes at 0x%04X exceed main RAM", len(data), addr)
	}
	copy(m.main[addr:], data)
	return nil
}

// Installs the data access observer, nil to remove it
func (m *Memory) SetAccessHook(hook AccessHook) {
	m.hook = hook
}

// Sets the mode byte of a RAM-disk. Enabling any mapping on a disk unmaps the
// previously mapped one, disabling all of them on the mapped disk leaves main RAM only.
func (m *Memory) SetRamDiskMode(disk int, mode uint8) {
	if disk < 0 || disk >= m.ramDisks {
		return
	}

	mapping := ParseMapping(mode)
	m.modes[disk] = mapping

	switch {
	case mapping.Enabled():
		m.mapped = disk
	case m.mapped == disk:
		m.mapped = -1
	}
}

// Mapping mode of a RAM-disk
func (m *Memory) Mapping(disk int) Mapping {
	if disk < 0 || disk >= MaxRamDisks {
		return Mapping{}
	}
	return m.modes[disk]
}

// Index of the mapped RAM-disk, -1 if none
func (m *Memory) MappedDisk() int {
	return m.mapped
}

// Translates a CPU address into a global address
func (m *Memory) GlobalAddr(addr uint16, stack bool) uint32 {
	if m.mapped < 0 {
		return uint32(addr)
	}

	mapping := m.modes[m.mapped]
	base := 1 + m.mapped*PagesPerDisk

	if stack {
		if mapping.Stack {
			return uint32(base+int(mapping.StackPage))*PageSize + uint32(addr)
		}
	} else if mapping.Maps(addr) {
		return uint32(base+int(mapping.RamPage))*PageSize + uint32(addr)
	}

	return uint32(addr)
}

// Index of the page the CPU sees at addr for non stack accesses: 0 for main RAM, 1 + disk*4 + page otherwise
func (m *Memory) PageIndex(addr uint16) int {
	return int(m.GlobalAddr(addr, false) / PageSize)
}

func (m *Memory) cell(global uint32) *byte {
	if global < PageSize {
		return &m.main[global]
	}
	offset := global - PageSize
	if int(offset) < len(m.disks) {
		return &m.disks[offset]
	}
	return nil
}

// Reads a byte by global address without side effects. Unplugged RAM-disks read as zero.
func (m *Memory) GetByteGlobal(global uint32) uint8 {
	if c := m.cell(global); c != nil {
		return *c
	}
	return 0
}

// Writes a byte by global address without side effects
func (m *Memory) SetByteGlobal(global uint32, value uint8) error {
	c := m.cell(global)
	if c == nil {
		return utils.MakeError(ErrOutOfRange, "global address 0x%06X", global)
	}
	*c = value
	return nil
}

// Reads a byte as the CPU would see it, without side effects
func (m *Memory) GetByteRam(addr uint16) uint8 {
	return m.GetByteGlobal(m.GlobalAddr(addr, false))
}

// Starts a new instruction, dropping the previous access log
func (m *Memory) BeginInstruction() {
	m.log.Len = 0
}

// Accesses performed since the last BeginInstruction
func (m *Memory) Log() AccessLog {
	return m.log
}

func (m *Memory) Fetch(addr uint16) uint8 {
	global := m.GlobalAddr(addr, false)
	value := m.GetByteGlobal(global)
	m.log.add(Access{Direction: Read, Global: global, Value: value, Fetch: true})
	return value
}

func (m *Memory) Read(addr uint16, stack bool) uint8 {
	global := m.GlobalAddr(addr, stack)
	value := m.GetByteGlobal(global)
	m.access(Access{Direction: Read, Global: global, Value: value})
	return value
}

func (m *Memory) Write(addr uint16, value uint8, stack bool) {
	global := m.GlobalAddr(addr, stack)
	if c := m.cell(global); c != nil {
		*c = value
	}
	m.access(Access{Direction: Write, Global: global, Value: value})
}

func (m *Memory) access(a Access) {
	m.log.add(a)
	if m.hook != nil {
		m.hook(a)
	}
}

// Renders a global address as "page:offset"
func FormatGlobal(global uint32) string {
	return fmt.Sprintf("%02d:%04X", global/PageSize, global%PageSize)
}
