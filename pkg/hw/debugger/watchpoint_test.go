package debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Manu343726/devector/pkg/hw/memory"
)

func TestWatchpoint_EncodeDecode(t *testing.T) {
	wp := Watchpoint{
		ID:         -1,
		Access:     WatchReadWrite,
		GlobalAddr: 0x1_2345,
		Cond:       CondNE,
		Value:      0xABCD,
		Type:       WatchWord,
		Len:        2,
		Active:     true,
		Comment:    "sp",
	}

	data0, data1 := wp.Encode()
	assert.Equal(t, uint64(0xFFFFFFFF), data0&0xFFFFFFFF)
	assert.Equal(t, uint64(WatchReadWrite), data0>>32&0x3)
	assert.Equal(t, uint64(1), data0>>34&0x1)
	assert.Equal(t, uint64(1), data0>>35&0x1)
	assert.Equal(t, uint64(0x1_2345), data1&0xFFFFFF)
	assert.Equal(t, uint64(CondNE), data1>>24&0x7)
	assert.Equal(t, uint64(0xABCD), data1>>27&0xFFFF)
	assert.Equal(t, uint64(2), data1>>43&0xFFFF)

	assert.Equal(t, wp, DecodeWatchpoint(data0, data1, "sp"))
}

func TestWatchpoint_Validate(t *testing.T) {
	assert.NoError(t, Watchpoint{GlobalAddr: 0x100, Len: 4}.Validate())
	assert.NoError(t, Watchpoint{GlobalAddr: 0x100, Type: WatchWord, Value: 0xFFFF}.Validate())

	assert.Error(t, Watchpoint{GlobalAddr: 0x100}.Validate(), "zero length")
	assert.Error(t, Watchpoint{GlobalAddr: memory.GlobalSize, Len: 1}.Validate())
	assert.Error(t, Watchpoint{GlobalAddr: memory.GlobalSize - 1, Len: 2}.Validate())
	assert.Error(t, Watchpoint{GlobalAddr: 0x100, Len: 1, Value: 0x100}.Validate(), "byte value")
	assert.Error(t, Watchpoint{GlobalAddr: 0x100, Len: 1, Access: 3}.Validate())
	assert.Error(t, Watchpoint{GlobalAddr: 0x100, Len: 1, Cond: totalConditions}.Validate())
}

func TestWatchpoint_Check(t *testing.T) {
	tests := []struct {
		name   string
		wp     Watchpoint
		dir    memory.Direction
		global uint32
		value  uint8
		want   bool
	}{
		{"read in range", Watchpoint{Access: WatchRead, GlobalAddr: 0x100, Len: 4, Active: true}, memory.Read, 0x103, 0, true},
		{"read past range", Watchpoint{Access: WatchRead, GlobalAddr: 0x100, Len: 4, Active: true}, memory.Read, 0x104, 0, false},
		{"write on read watch", Watchpoint{Access: WatchRead, GlobalAddr: 0x100, Len: 4, Active: true}, memory.Write, 0x100, 0, false},
		{"write on rw watch", Watchpoint{Access: WatchReadWrite, GlobalAddr: 0x100, Len: 4, Active: true}, memory.Write, 0x100, 0, true},
		{"inactive", Watchpoint{Access: WatchReadWrite, GlobalAddr: 0x100, Len: 4}, memory.Write, 0x100, 0, false},
		{"value match", Watchpoint{Access: WatchWrite, GlobalAddr: 0x100, Len: 1, Cond: CondEQ, Value: 0x42, Active: true}, memory.Write, 0x100, 0x42, true},
		{"value mismatch", Watchpoint{Access: WatchWrite, GlobalAddr: 0x100, Len: 1, Cond: CondEQ, Value: 0x42, Active: true}, memory.Write, 0x100, 0x41, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.wp.Check(tt.dir, tt.global, tt.value))
		})
	}
}

func TestWatchpoint_WordValue(t *testing.T) {
	wp := Watchpoint{Access: WatchWrite, GlobalAddr: 0x200, Type: WatchWord, Cond: CondEQ, Value: 0x1234, Active: true}

	assert.False(t, wp.Check(memory.Write, 0x200, 0x34))
	assert.True(t, wp.Check(memory.Write, 0x201, 0x12))
	assert.False(t, wp.Check(memory.Write, 0x202, 0x12), "outside the word")
	assert.False(t, wp.Check(memory.Write, 0x200, 0x35))
}

func TestWatchpoints_Ids(t *testing.T) {
	w := NewWatchpoints()

	first := w.Add(Watchpoint{ID: -1, GlobalAddr: 0x10, Len: 1, Active: true})
	second := w.Add(Watchpoint{ID: -1, GlobalAddr: 0x20, Type: WatchWord, Active: true})
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, uint16(2), w.All()[1].Len, "word watchpoints cover two bytes")

	edited := w.Add(Watchpoint{ID: first, GlobalAddr: 0x30, Len: 1, Active: true})
	assert.Equal(t, first, edited)
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, uint32(0x30), w.All()[0].GlobalAddr)

	id, hit := w.Check(memory.Read, 0x21, 0)
	assert.True(t, hit)
	assert.Equal(t, second, id)

	_, hit = w.Check(memory.Read, 0x10, 0)
	assert.False(t, hit)

	w.Del(second)
	w.DelAll()
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, uint64(5), w.UpdateCounter())
	assert.Equal(t, 2, w.Add(Watchpoint{ID: -1, GlobalAddr: 0x10, Len: 1}), "ids are not reused")
}
