package debugger

import (
	"sort"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
)

// PageOracle tells which memory page the CPU currently sees at an address
type PageOracle interface {
	PageIndex(addr uint16) int
}

// Breakpoints is the set of breakpoints keyed by address. It is only touched
// from the execution goroutine.
type Breakpoints struct {
	byAddr  map[uint16]*Breakpoint
	updates uint64
}

func NewBreakpoints() *Breakpoints {
	return &Breakpoints{byAddr: make(map[uint16]*Breakpoint)}
}

// Add inserts the breakpoint, replacing any other at the same address
func (b *Breakpoints) Add(bp Breakpoint) {
	if bp.Status == BreakpointDeleted {
		b.Del(bp.Addr)
		return
	}
	b.byAddr[bp.Addr] = &bp
	b.updates++
}

func (b *Breakpoints) Del(addr uint16) {
	delete(b.byAddr, addr)
	b.updates++
}

func (b *Breakpoints) DelAll() {
	clear(b.byAddr)
	b.updates++
}

// Status of the breakpoint at addr, BreakpointDeleted if there is none
func (b *Breakpoints) Status(addr uint16) BreakpointStatus {
	if bp, ok := b.byAddr[addr]; ok {
		return bp.Status
	}
	return BreakpointDeleted
}

// SetStatus changes the status of an existing breakpoint. Deleted removes it.
func (b *Breakpoints) SetStatus(addr uint16, status BreakpointStatus) bool {
	bp, ok := b.byAddr[addr]
	if !ok {
		return false
	}
	if status == BreakpointDeleted {
		b.Del(addr)
		return true
	}
	bp.Status = status
	b.updates++
	return true
}

// All breakpoints sorted by address
func (b *Breakpoints) All() []Breakpoint {
	result := make([]Breakpoint, 0, len(b.byAddr))
	for _, bp := range b.byAddr {
		result = append(result, *bp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Addr < result[j].Addr })
	return result
}

func (b *Breakpoints) Len() int {
	return len(b.byAddr)
}

// UpdateCounter increases on every change, so clients can tell when to refresh their views
func (b *Breakpoints) UpdateCounter() uint64 {
	return b.updates
}

// Check evaluates the breakpoint at the current PC, if any
func (b *Breakpoints) Check(state i8080.State, pages PageOracle) bool {
	bp, ok := b.byAddr[state.PC]
	if !ok || !bp.Check(state, pages.PageIndex) {
		return false
	}
	if bp.AutoDel {
		b.Del(bp.Addr)
	}
	return true
}
