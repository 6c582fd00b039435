// Package display tracks video timing and the display registers. Pixels are not
// rendered: the machine only needs the frame boundaries, the frame interrupt and
// the register values for inspection.
package display

const (
	LinesPerFrame  = 312
	CyclesPerLine  = 192
	CyclesPerFrame = LinesPerFrame * CyclesPerLine
	// The frame interrupt request stays active for this many cycles after the frame starts
	InterruptCycles = CyclesPerLine / 2
	PaletteSize     = 16
)

// Data is a snapshot of the display state
type Data struct {
	Frame   uint64             `yaml:"frame"`
	Line    int                `yaml:"line"`
	Pos     int                `yaml:"pos"`
	Border  uint8              `yaml:"border"`
	Mode512 bool               `yaml:"mode512"`
	Scroll  uint8              `yaml:"scroll"`
	Palette [PaletteSize]uint8 `yaml:"palette,flow"`
}

type Display struct {
	frame   uint64
	pos     int
	border  uint8
	mode512 bool
	scroll  uint8
	palette [PaletteSize]uint8
}

func New() *Display {
	return &Display{scroll: 0xFF}
}

func (d *Display) Reset() {
	*d = Display{scroll: 0xFF}
}

// Advances the beam by a number of CPU cycles and returns whether a new frame started
func (d *Display) Advance(cycles int) bool {
	d.pos += cycles
	if d.pos < CyclesPerFrame {
		return false
	}
	d.pos -= CyclesPerFrame
	d.frame++
	return true
}

// Whether the frame interrupt request is active
func (d *Display) IRQ() bool {
	return d.pos < InterruptCycles
}

func (d *Display) Frame() uint64 {
	return d.frame
}

// Cycles elapsed since the current frame started
func (d *Display) Pos() int {
	return d.pos
}

// Low nibble selects the border colour, bit 4 the 512 pixel mode
func (d *Display) SetBorder(value uint8) {
	d.border = value & 0x0F
	d.mode512 = value&0x10 != 0
}

func (d *Display) SetScroll(value uint8) {
	d.scroll = value
}

// Writes the palette entry selected by the border colour
func (d *Display) SetPalette(value uint8) {
	d.palette[d.border] = value
}

func (d *Display) Data() Data {
	return Data{
		Frame:   d.frame,
		Line:    d.pos / CyclesPerLine,
		Pos:     d.pos % CyclesPerLine,
		Border:  d.border,
		Mode512: d.mode512,
		Scroll:  d.scroll,
		Palette: d.palette,
	}
}
