// Package ports decodes the CPU I/O space and routes port accesses to the
// devices behind them.
package ports

import (
	"github.com/Manu343726/devector/pkg/hw/display"
	"github.com/Manu343726/devector/pkg/hw/memory"
	"github.com/Manu343726/devector/pkg/hw/pit"
)

const (
	// Keyboard PPI control word, bit 7 clear sets or resets one bit of port C
	PortPPIControl uint8 = 0x00
	// Keyboard PPI port C, bit 0 drives the beeper
	PortPPIC       uint8 = 0x01
	PortBorder     uint8 = 0x02
	PortScroll     uint8 = 0x03
	PortPITControl uint8 = 0x08
	// Counters 2, 1 and 0 in that order
	PortPITCounter2 uint8 = 0x09
	PortPITCounter0 uint8 = 0x0B
	PortPaletteLo   uint8 = 0x0C
	PortPaletteHi   uint8 = 0x0F
	PortRamDiskLo   uint8 = 0x10
	PortRamDiskHi   uint8 = 0x17

	// Value read from ports no device answers
	OpenBus uint8 = 0xFF
)

// Beeper receives the level of the 1 bit speaker output
type Beeper interface {
	SetBeeper(level bool)
}

type Ports struct {
	mem     *memory.Memory
	timer   *pit.PIT
	display *display.Display
	beeper  Beeper
	portC   uint8
	outs    uint64
	ins     uint64
}

// New decodes the ports of the given devices. beeper may be nil.
func New(mem *memory.Memory, timer *pit.PIT, d *display.Display, beeper Beeper) *Ports {
	return &Ports{mem: mem, timer: timer, display: d, beeper: beeper}
}

func pitCounter(port uint8) int {
	return int(PortPITCounter0 - port)
}

func (p *Ports) In(port uint8) uint8 {
	p.ins++

	switch {
	case port == PortPPIC:
		return p.portC
	case port >= PortPITCounter2 && port <= PortPITCounter0:
		return p.timer.ReadCounter(pitCounter(port))
	case port >= PortRamDiskLo && port <= PortRamDiskHi:
		return p.mem.Mapping(int(port - PortRamDiskLo)).Byte()
	}
	return OpenBus
}

func (p *Ports) Out(port uint8, value uint8) {
	p.outs++

	switch {
	case port == PortPPIControl:
		if value&0x80 == 0 {
			bit := uint8(1) << ((value >> 1) & 7)
			if value&1 != 0 {
				p.setPortC(p.portC | bit)
			} else {
				p.setPortC(p.portC &^ bit)
			}
		}
	case port == PortPPIC:
		p.setPortC(value)
	case port == PortBorder:
		p.display.SetBorder(value)
	case port == PortScroll:
		p.display.SetScroll(value)
	case port == PortPITControl:
		p.timer.WriteControl(value)
	case port >= PortPITCounter2 && port <= PortPITCounter0:
		p.timer.WriteCounter(pitCounter(port), value)
	case port >= PortPaletteLo && port <= PortPaletteHi:
		p.display.SetPalette(value)
	case port >= PortRamDiskLo && port <= PortRamDiskHi:
		p.mem.SetRamDiskMode(int(port-PortRamDiskLo), value)
	}
}

func (p *Ports) setPortC(value uint8) {
	beep := value&1 != 0
	changed := beep != (p.portC&1 != 0)
	p.portC = value
	if changed && p.beeper != nil {
		p.beeper.SetBeeper(beep)
	}
}

// Current level of the beeper bit
func (p *Ports) Beeper() bool {
	return p.portC&1 != 0
}

// Number of IN and OUT accesses since reset
func (p *Ports) Counts() (ins, outs uint64) {
	return p.ins, p.outs
}

func (p *Ports) Reset() {
	p.setPortC(0)
	p.ins, p.outs = 0, 0
}
