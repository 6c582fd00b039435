package debugger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Manu343726/devector/pkg/hw/memory"
	"github.com/Manu343726/devector/pkg/utils"
)

// WatchAccess selects which memory access directions a watchpoint reacts to
type WatchAccess uint8

const (
	WatchRead WatchAccess = iota
	WatchWrite
	WatchReadWrite
)

func (a WatchAccess) String() string {
	switch a {
	case WatchRead:
		return "R"
	case WatchWrite:
		return "W"
	case WatchReadWrite:
		return "RW"
	}
	return fmt.Sprintf("WatchAccess(%d)", uint8(a))
}

func ParseWatchAccess(text string) (WatchAccess, error) {
	for a := WatchRead; a <= WatchReadWrite; a++ {
		if strings.EqualFold(a.String(), strings.TrimSpace(text)) {
			return a, nil
		}
	}
	return WatchRead, utils.MakeError(ErrInvalidValue, "unknown access '%s'", text)
}

func (a WatchAccess) Matches(d memory.Direction) bool {
	switch a {
	case WatchRead:
		return d == memory.Read
	case WatchWrite:
		return d == memory.Write
	}
	return a == WatchReadWrite
}

// WatchType tells how a watchpoint decodes the value it compares
type WatchType uint8

const (
	// Any byte in [GlobalAddr, GlobalAddr+Len) compared against Value
	WatchLen WatchType = iota
	// Little endian word at GlobalAddr compared against Value
	WatchWord
)

func (t WatchType) String() string {
	if t == WatchWord {
		return "WORD"
	}
	return "LEN"
}

// Watchpoint halts execution when memory in a global range is accessed
type Watchpoint struct {
	ID         int
	Access     WatchAccess
	GlobalAddr uint32
	Cond       Condition
	Value      uint16
	Type       WatchType
	Len        uint16
	Active     bool
	Comment    string

	// last seen bytes of a watched word
	lo, hi uint8
}

var WatchpointData0Layout = []utils.BitField{
	{Name: "id", Offset: 0, Width: 32},
	{Name: "access", Offset: 32, Width: 2},
	{Name: "type", Offset: 34, Width: 1},
	{Name: "active", Offset: 35, Width: 1},
}

var WatchpointData1Layout = []utils.BitField{
	{Name: "globalAddr", Offset: 0, Width: 24},
	{Name: "cond", Offset: 24, Width: 3},
	{Name: "value", Offset: 27, Width: 16},
	{Name: "len", Offset: 43, Width: 16},
}

var (
	wpID     = WatchpointData0Layout[0]
	wpAccess = WatchpointData0Layout[1]
	wpType   = WatchpointData0Layout[2]
	wpActive = WatchpointData0Layout[3]
	wpGlobal = WatchpointData1Layout[0]
	wpCond   = WatchpointData1Layout[1]
	wpValue  = WatchpointData1Layout[2]
	wpLen    = WatchpointData1Layout[3]
)

func (w Watchpoint) Encode() (data0 uint64, data1 uint64) {
	data0 = wpID.Set(data0, uint64(uint32(int32(w.ID))))
	data0 = wpAccess.Set(data0, uint64(w.Access))
	data0 = wpType.Set(data0, uint64(w.Type))
	data0 = wpActive.Set(data0, boolBit(w.Active))

	data1 = wpGlobal.Set(data1, uint64(w.GlobalAddr))
	data1 = wpCond.Set(data1, uint64(w.Cond))
	data1 = wpValue.Set(data1, uint64(w.Value))
	data1 = wpLen.Set(data1, uint64(w.Len))
	return data0, data1
}

// DecodeWatchpoint unpacks a watchpoint. An id of 0xFFFFFFFF decodes as -1.
func DecodeWatchpoint(data0 uint64, data1 uint64, comment string) Watchpoint {
	return Watchpoint{
		ID:         int(int32(uint32(wpID.Get(data0)))),
		Access:     WatchAccess(wpAccess.Get(data0)),
		Type:       WatchType(wpType.Get(data0)),
		Active:     wpActive.Get(data0) != 0,
		GlobalAddr: uint32(wpGlobal.Get(data1)),
		Cond:       Condition(wpCond.Get(data1)),
		Value:      uint16(wpValue.Get(data1)),
		Len:        uint16(wpLen.Get(data1)),
		Comment:    comment,
	}
}

func (w Watchpoint) Validate() error {
	if w.Access > WatchReadWrite {
		return utils.MakeError(ErrInvalidValue, "access %d", w.Access)
	}
	if !w.Cond.Valid() {
		return utils.MakeError(ErrInvalidValue, "condition %d", w.Cond)
	}
	if w.GlobalAddr >= memory.GlobalSize {
		return utils.MakeError(ErrOutOfRange, "global address 0x%06X", w.GlobalAddr)
	}
	switch w.Type {
	case WatchLen:
		if w.Len == 0 || uint32(w.GlobalAddr)+uint32(w.Len) > memory.GlobalSize {
			return utils.MakeError(ErrOutOfRange, "length %d at 0x%06X", w.Len, w.GlobalAddr)
		}
		if w.Value > 0xFF {
			return utils.MakeError(ErrOutOfRange, "byte value 0x%X", w.Value)
		}
	case WatchWord:
		if w.GlobalAddr+1 >= memory.GlobalSize {
			return utils.MakeError(ErrOutOfRange, "word at 0x%06X", w.GlobalAddr)
		}
	default:
		return utils.MakeError(ErrInvalidValue, "type %d", w.Type)
	}
	return nil
}

// Covers reports whether a global address falls in the watched range
func (w *Watchpoint) Covers(global uint32) bool {
	if w.Type == WatchWord {
		return global == w.GlobalAddr || global == w.GlobalAddr+1
	}
	return global >= w.GlobalAddr && global < w.GlobalAddr+uint32(w.Len)
}

// Check evaluates one memory access. The range is tested before any value is decoded.
func (w *Watchpoint) Check(direction memory.Direction, global uint32, value uint8) bool {
	if !w.Active || !w.Access.Matches(direction) || !w.Covers(global) {
		return false
	}

	if w.Type == WatchWord {
		if global == w.GlobalAddr {
			w.lo = value
		} else {
			w.hi = value
		}
		return w.Cond.Holds(uint64(w.hi)<<8|uint64(w.lo), uint64(w.Value))
	}
	return w.Cond.Holds(uint64(value), uint64(w.Value))
}

func (w Watchpoint) String() string {
	text := fmt.Sprintf("#%d %s %s %s", w.ID, memory.FormatGlobal(w.GlobalAddr), w.Access, w.Type)
	if w.Type == WatchLen {
		text += fmt.Sprintf("[%d]", w.Len)
	}
	if w.Cond != CondAny {
		text += fmt.Sprintf(" %s 0x%X", w.Cond, w.Value)
	}
	if !w.Active {
		text += " (inactive)"
	}
	if w.Comment != "" {
		text += " ; " + w.Comment
	}
	return text
}

// Watchpoints is the set of watchpoints keyed by id, only touched from the execution goroutine
type Watchpoints struct {
	byID    map[int]*Watchpoint
	nextID  int
	updates uint64
}

func NewWatchpoints() *Watchpoints {
	return &Watchpoints{byID: make(map[int]*Watchpoint)}
}

// Add stores the watchpoint and returns its id. A negative id assigns a new one,
// an existing id edits that watchpoint.
func (w *Watchpoints) Add(wp Watchpoint) int {
	if wp.ID < 0 {
		wp.ID = w.nextID
	}
	if wp.ID >= w.nextID {
		w.nextID = wp.ID + 1
	}
	if wp.Type == WatchWord {
		wp.Len = 2
	}
	w.byID[wp.ID] = &wp
	w.updates++
	return wp.ID
}

func (w *Watchpoints) Del(id int) {
	delete(w.byID, id)
	w.updates++
}

func (w *Watchpoints) DelAll() {
	clear(w.byID)
	w.updates++
}

// All watchpoints sorted by id
func (w *Watchpoints) All() []Watchpoint {
	result := make([]Watchpoint, 0, len(w.byID))
	for _, wp := range w.byID {
		result = append(result, *wp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (w *Watchpoints) Len() int {
	return len(w.byID)
}

func (w *Watchpoints) UpdateCounter() uint64 {
	return w.updates
}

// Check runs an access against every watchpoint and returns the id of the first match
func (w *Watchpoints) Check(direction memory.Direction, global uint32, value uint8) (int, bool) {
	hit, matched := 0, false
	for id, wp := range w.byID {
		// word watchpoints track both bytes even after another one matched
		if wp.Check(direction, global, value) && (!matched || id < hit) {
			hit, matched = id, true
		}
	}
	return hit, matched
}
