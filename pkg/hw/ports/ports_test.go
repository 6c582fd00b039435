package ports

import (
	"testing"

	"github.com/Manu343726/devector/pkg/hw/display"
	"github.com/Manu343726/devector/pkg/hw/memory"
	"github.com/Manu343726/devector/pkg/hw/pit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type beeperLevels []bool

func (b *beeperLevels) SetBeeper(level bool) {
	*b = append(*b, level)
}

func newPorts(t *testing.T) (*Ports, *memory.Memory, *pit.PIT, *display.Display) {
	mem, err := memory.New(8)
	require.NoError(t, err)
	timer := pit.New(nil)
	d := display.New()
	return New(mem, timer, d, nil), mem, timer, d
}

func TestPorts_RamDisk(t *testing.T) {
	p, mem, _, _ := newPorts(t)

	mode := memory.Mapping{WindowA000: true, RamPage: 1}.Byte()
	p.Out(0x13, mode)

	assert.Equal(t, 3, mem.MappedDisk())
	assert.Equal(t, mode, p.In(0x13))
	assert.Equal(t, 1+3*4+1, mem.PageIndex(0xA000))
}

func TestPorts_PIT(t *testing.T) {
	p, _, timer, _ := newPorts(t)

	// counter 0 through port 0x0B, lsb only, mode 2
	p.Out(PortPITControl, 0x14)
	p.Out(0x0B, 5)
	timer.Tick()

	assert.Equal(t, uint8(2), timer.Counter(0).Mode)
	assert.Equal(t, uint8(4), p.In(0x0B))

	// counter 2 through port 0x09
	p.Out(PortPITControl, 0x94)
	p.Out(0x09, 7)
	assert.Equal(t, uint16(7), timer.Counter(2).Latch)
}

func TestPorts_Display(t *testing.T) {
	p, _, _, d := newPorts(t)

	p.Out(PortBorder, 0x05)
	p.Out(0x0E, 0xC3)
	p.Out(PortScroll, 0x10)

	data := d.Data()
	assert.Equal(t, uint8(5), data.Border)
	assert.Equal(t, uint8(0xC3), data.Palette[5])
	assert.Equal(t, uint8(0x10), data.Scroll)
}

func TestPorts_Beeper(t *testing.T) {
	mem, err := memory.New(0)
	require.NoError(t, err)
	levels := &beeperLevels{}
	p := New(mem, pit.New(nil), display.New(), levels)

	p.Out(PortPPIC, 0x01)
	p.Out(PortPPIC, 0x81) // bit 0 unchanged
	assert.True(t, p.Beeper())
	assert.Equal(t, uint8(0x81), p.In(PortPPIC))

	// bit set/reset through the control word
	p.Out(PortPPIControl, 0x00)
	assert.False(t, p.Beeper())
	p.Out(PortPPIControl, 0x01)
	assert.True(t, p.Beeper())
	p.Out(PortPPIControl, 0x8B) // mode word leaves port C alone
	assert.True(t, p.Beeper())

	p.Reset()
	assert.False(t, p.Beeper())
	assert.Equal(t, beeperLevels{true, false, true, false}, *levels)
}

func TestPorts_OpenBus(t *testing.T) {
	p, _, _, _ := newPorts(t)
	assert.Equal(t, OpenBus, p.In(0x80))

	ins, outs := p.Counts()
	assert.Equal(t, uint64(1), ins)
	assert.Zero(t, outs)
}
