package debugger

import (
	"slices"
	"sync"

	"github.com/Manu343726/devector/pkg/hw/memory"
	"github.com/Manu343726/devector/pkg/utils"
)

// Number of distinct addresses ranked per access direction
const HeatSize = 1024

// Packed heat value: read rank in the low half, write rank in the high half.
// Rank HeatSize is the most recent access, 0 means not among the last HeatSize.
var HeatLayout = []utils.BitField{
	{Name: "readRank", Offset: 0, Width: 16},
	{Name: "writeRank", Offset: 16, Width: 16},
}

var (
	heatRead  = HeatLayout[0]
	heatWrite = HeatLayout[1]
)

func PackHeat(read, write int) uint32 {
	return uint32(heatWrite.Set(heatRead.Set(0, uint64(read)), uint64(write)))
}

func UnpackHeat(packed uint32) (read, write int) {
	return int(heatRead.Get(uint64(packed))), int(heatWrite.Get(uint64(packed)))
}

const noSlot = -1

type recencySlot struct {
	global     uint32
	prev, next int
}

// recencyRing is a fixed capacity LRU list over global addresses. Slots are
// linked by index so promotion and eviction never allocate.
type recencyRing struct {
	slots      []recencySlot
	index      map[uint32]int
	head, tail int
}

func newRecencyRing(capacity int) recencyRing {
	return recencyRing{
		slots: make([]recencySlot, 0, capacity),
		index: make(map[uint32]int, capacity),
		head:  noSlot,
		tail:  noSlot,
	}
}

func (r *recencyRing) unlink(i int) {
	s := &r.slots[i]
	if s.prev != noSlot {
		r.slots[s.prev].next = s.next
	} else {
		r.head = s.next
	}
	if s.next != noSlot {
		r.slots[s.next].prev = s.prev
	} else {
		r.tail = s.prev
	}
}

func (r *recencyRing) pushFront(i int) {
	s := &r.slots[i]
	s.prev, s.next = noSlot, r.head
	if r.head != noSlot {
		r.slots[r.head].prev = i
	}
	r.head = i
	if r.tail == noSlot {
		r.tail = i
	}
}

// touch makes global the most recent address, evicting the least recent one when full
func (r *recencyRing) touch(global uint32) {
	if i, ok := r.index[global]; ok {
		if i != r.head {
			r.unlink(i)
			r.pushFront(i)
		}
		return
	}

	var i int
	if len(r.slots) < cap(r.slots) {
		r.slots = append(r.slots, recencySlot{})
		i = len(r.slots) - 1
	} else {
		i = r.tail
		r.unlink(i)
		delete(r.index, r.slots[i].global)
	}
	r.slots[i].global = global
	r.index[global] = i
	r.pushFront(i)
}

// ranks visits addresses from the most recent one, which gets rank capacity
func (r *recencyRing) ranks(visit func(global uint32, rank int)) {
	rank := cap(r.slots)
	for i := r.head; i != noSlot; i = r.slots[i].next {
		visit(r.slots[i].global, rank)
		rank--
	}
}

func (r *recencyRing) reset() {
	r.slots = r.slots[:0]
	clear(r.index)
	r.head, r.tail = noSlot, noSlot
}

// MemoryHeat ranks the most recently read and written global addresses.
// Touch runs on the execution goroutine. Published snapshots are immutable and
// can be read from anywhere.
type MemoryHeat struct {
	reads  recencyRing
	writes recencyRing

	mu        sync.RWMutex
	published map[uint32]uint32
	old       map[uint32]uint32

	// cleared since the last TakeCleared, owned by the execution goroutine
	pending map[uint32]struct{}
}

func NewMemoryHeat() *MemoryHeat {
	return &MemoryHeat{
		reads:     newRecencyRing(HeatSize),
		writes:    newRecencyRing(HeatSize),
		published: map[uint32]uint32{},
		old:       map[uint32]uint32{},
		pending:   map[uint32]struct{}{},
	}
}

func (h *MemoryHeat) Touch(a memory.Access) {
	if a.Direction == memory.Write {
		h.writes.touch(a.Global)
	} else {
		h.reads.touch(a.Global)
	}
}

// Update touches every access of a retired instruction
func (h *MemoryHeat) Update(log memory.AccessLog) {
	for _, a := range log.Accesses() {
		h.Touch(a)
	}
}

// Publish builds a new snapshot from both rings and swaps it in. It returns the
// addresses present in the previous snapshot but absent from the new one.
func (h *MemoryHeat) Publish() []uint32 {
	next := make(map[uint32]uint32, len(h.reads.slots)+len(h.writes.slots))
	h.reads.ranks(func(global uint32, rank int) {
		next[global] = uint32(heatRead.Set(uint64(next[global]), uint64(rank)))
	})
	h.writes.ranks(func(global uint32, rank int) {
		next[global] = uint32(heatWrite.Set(uint64(next[global]), uint64(rank)))
	})

	h.mu.Lock()
	h.old, h.published = h.published, next
	h.mu.Unlock()

	var cleared []uint32
	for global := range h.old {
		if _, ok := next[global]; !ok {
			cleared = append(cleared, global)
			h.pending[global] = struct{}{}
		}
	}
	for global := range h.pending {
		if _, ok := next[global]; ok {
			delete(h.pending, global)
		}
	}
	return cleared
}

// TakeCleared returns every address dropped by the publishes since the previous
// call and still absent from the current snapshot.
func (h *MemoryHeat) TakeCleared() []uint32 {
	cleared := make([]uint32, 0, len(h.pending))
	for global := range h.pending {
		cleared = append(cleared, global)
	}
	clear(h.pending)
	slices.Sort(cleared)
	return cleared
}

// Snapshot returns the last published map. Callers must not modify it.
func (h *MemoryHeat) Snapshot() map[uint32]uint32 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.published
}

// Heat of a single address in the last published snapshot
func (h *MemoryHeat) Heat(global uint32) (read, write int) {
	return UnpackHeat(h.Snapshot()[global])
}

// Reset forgets every access. The next Publish reports the forgotten addresses as cleared.
func (h *MemoryHeat) Reset() {
	h.reads.reset()
	h.writes.reset()
}
