package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplay_Advance(t *testing.T) {
	d := New()

	assert.False(t, d.Advance(CyclesPerFrame-4))
	assert.False(t, d.IRQ())
	assert.True(t, d.Advance(8))
	assert.Equal(t, uint64(1), d.Frame())
	assert.Equal(t, 4, d.Pos())
	assert.True(t, d.IRQ())

	d.Advance(InterruptCycles)
	assert.False(t, d.IRQ())
}

func TestDisplay_Registers(t *testing.T) {
	d := New()
	d.SetBorder(0x13)
	d.SetPalette(0xAB)
	d.SetScroll(0x20)
	d.Advance(CyclesPerLine*3 + 5)

	data := d.Data()
	assert.Equal(t, uint8(3), data.Border)
	assert.True(t, data.Mode512)
	assert.Equal(t, uint8(0xAB), data.Palette[3])
	assert.Equal(t, uint8(0x20), data.Scroll)
	assert.Equal(t, 3, data.Line)
	assert.Equal(t, 5, data.Pos)

	d.Reset()
	assert.Equal(t, uint8(0xFF), d.Data().Scroll)
}
