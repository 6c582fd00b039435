package debugger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Manu343726/devector/pkg/hw/memory"
)

func read(global uint32) memory.Access {
	return memory.Access{Direction: memory.Read, Global: global}
}

func write(global uint32) memory.Access {
	return memory.Access{Direction: memory.Write, Global: global}
}

func TestHeat_Pack(t *testing.T) {
	packed := PackHeat(HeatSize, 3)
	assert.Equal(t, uint32(3<<16|HeatSize), packed)

	r, w := UnpackHeat(packed)
	assert.Equal(t, HeatSize, r)
	assert.Equal(t, 3, w)
}

func TestMemoryHeat_Ranks(t *testing.T) {
	h := NewMemoryHeat()
	h.Touch(read(0x10))
	h.Touch(read(0x20))
	h.Touch(write(0x10))
	h.Publish()

	r, w := h.Heat(0x20)
	assert.Equal(t, HeatSize, r)
	assert.Equal(t, 0, w)

	r, w = h.Heat(0x10)
	assert.Equal(t, HeatSize-1, r)
	assert.Equal(t, HeatSize, w)

	h.Touch(read(0x10))
	h.Touch(read(0x10))
	h.Publish()
	r, _ = h.Heat(0x10)
	assert.Equal(t, HeatSize, r, "repeated accesses keep the top rank")
	r, _ = h.Heat(0x20)
	assert.Equal(t, HeatSize-1, r)
	assert.Len(t, h.reads.slots, 2)
}

func TestMemoryHeat_Evicts(t *testing.T) {
	h := NewMemoryHeat()
	for global := uint32(0); global < HeatSize+10; global++ {
		h.Touch(read(global))
	}
	h.Publish()

	snapshot := h.Snapshot()
	assert.Len(t, snapshot, HeatSize)
	for global := uint32(0); global < 10; global++ {
		assert.NotContains(t, snapshot, global, "least recent addresses are evicted")
	}
	assert.Equal(t, uint32(HeatSize), snapshot[HeatSize+9])
	assert.Equal(t, uint32(1), snapshot[10])
}

func TestMemoryHeat_Cleared(t *testing.T) {
	h := NewMemoryHeat()
	h.Update(memory.AccessLog{Entries: [memory.MaxLogAccesses]memory.Access{read(0x1), write(0x2)}, Len: 2})
	assert.Empty(t, h.Publish())

	h.Reset()
	for global := uint32(0x1000); global < 0x1000+HeatSize; global++ {
		h.Touch(read(global))
	}
	cleared := h.Publish()
	assert.ElementsMatch(t, []uint32{0x1, 0x2}, cleared)
}

func TestMemoryHeat_TakeClearedAccumulates(t *testing.T) {
	h := NewMemoryHeat()
	h.Touch(read(0x1))
	h.Touch(write(0x2))
	h.Publish()
	assert.Empty(t, h.TakeCleared())

	h.Reset()
	h.Touch(read(0x3))
	h.Publish()
	h.Touch(read(0x2))
	h.Publish()

	assert.Equal(t, []uint32{0x1}, h.TakeCleared(), "0x2 is back in the snapshot")
	assert.Empty(t, h.TakeCleared())
}

func TestMemoryHeat_SnapshotWhilePublishing(t *testing.T) {
	h := NewMemoryHeat()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			for global := range h.Snapshot() {
				assert.Less(t, global, uint32(100))
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		h.Touch(write(uint32(i % 100)))
		h.Publish()
	}
	wg.Wait()
}
