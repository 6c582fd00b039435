package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsTooManyRamDisks(t *testing.T) {
	_, err := New(9)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestMapping_RoundTrip(t *testing.T) {
	for mode := 0; mode < 256; mode++ {
		assert.Equal(t, uint8(mode), ParseMapping(uint8(mode)).Byte())
	}
}

func TestMemory_GlobalAddr(t *testing.T) {
	mem, err := New(2)
	require.NoError(t, err)

	assert.Equal(t, uint32(0xA000), mem.GlobalAddr(0xA000, false), "nothing mapped")

	// disk 1: ram page 2 on A000-DFFF, stack page 3
	mem.SetRamDiskMode(1, Mapping{RamPage: 2, StackPage: 3, Stack: true, WindowA000: true}.Byte())

	tests := []struct {
		name  string
		addr  uint16
		stack bool
		want  uint32
	}{
		{"below window", 0x9FFF, false, 0x9FFF},
		{"window start", 0xA000, false, (1+4+2)*PageSize + 0xA000},
		{"window end", 0xDFFF, false, (1+4+2)*PageSize + 0xDFFF},
		{"above window", 0xE000, false, 0xE000},
		{"stack", 0x0100, true, (1+4+3)*PageSize + 0x0100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mem.GlobalAddr(tt.addr, tt.stack))
		})
	}

	assert.Equal(t, 7, mem.PageIndex(0xC000))
	assert.Equal(t, 0, mem.PageIndex(0x0000))
}

func TestMemory_OnlyOneDiskMapped(t *testing.T) {
	mem, err := New(8)
	require.NoError(t, err)

	mem.SetRamDiskMode(0, Mapping{Window8000: true}.Byte())
	assert.Equal(t, 0, mem.MappedDisk())

	mem.SetRamDiskMode(5, Mapping{Window8000: true, RamPage: 1}.Byte())
	assert.Equal(t, 5, mem.MappedDisk())
	assert.Equal(t, 1+5*4+1, mem.PageIndex(0x8000))

	mem.SetRamDiskMode(0, 0)
	assert.Equal(t, 5, mem.MappedDisk(), "disabling an unmapped disk keeps the current one")

	mem.SetRamDiskMode(5, 0)
	assert.Equal(t, -1, mem.MappedDisk())
	assert.Equal(t, 0, mem.PageIndex(0x8000))
}

func TestMemory_UnpluggedDiskIgnored(t *testing.T) {
	mem, err := New(1)
	require.NoError(t, err)

	mem.SetRamDiskMode(3, Mapping{WindowE000: true}.Byte())
	assert.Equal(t, -1, mem.MappedDisk())
	assert.Error(t, mem.SetByteGlobal(uint32(1+3*4)*PageSize, 1))
}

func TestMemory_AccessLogAndHook(t *testing.T) {
	mem, err := New(0)
	require.NoError(t, err)
	require.NoError(t, mem.Load([]byte{0x3A, 0x00, 0x20}, 0))

	var seen []Access
	mem.SetAccessHook(func(a Access) { seen = append(seen, a) })

	mem.BeginInstruction()
	assert.Equal(t, uint8(0x3A), mem.Fetch(0))
	mem.Write(0x2000, 0x55, false)
	assert.Equal(t, uint8(0x55), mem.Read(0x2000, false))

	log := mem.Log()
	require.Equal(t, 3, log.Len)
	assert.True(t, log.Entries[0].Fetch)
	assert.Equal(t, Access{Direction: Write, Global: 0x2000, Value: 0x55}, log.Entries[1])
	assert.Equal(t, Access{Direction: Read, Global: 0x2000, Value: 0x55}, log.Entries[2])

	require.Len(t, seen, 2, "fetches are not reported to the hook")
	assert.Equal(t, Write, seen[0].Direction)

	mem.BeginInstruction()
	assert.Equal(t, 0, mem.Log().Len)
}

func TestMemory_LoadTooLarge(t *testing.T) {
	mem, err := New(0)
	require.NoError(t, err)

	assert.ErrorIs(t, mem.Load(make([]byte, 16), 0xFFF8), ErrTooLarge)
}

func TestFormatGlobal(t *testing.T) {
	assert.Equal(t, "00:1234", FormatGlobal(0x1234))
	assert.Equal(t, "07:C000", FormatGlobal(7*PageSize+0xC000))
}
