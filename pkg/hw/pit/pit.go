// Package pit emulates a 8253/8254 programmable interval timer: three 16 bit
// down counters, each with a gate input and an output line.
package pit

import "fmt"

const Counters = 3

// Byte order used to read and write a counter
type RWMode uint8

const (
	RWLatch RWMode = iota
	RWLSB
	RWMSB
	RWLSBMSB
)

func (m RWMode) String() string {
	switch m {
	case RWLatch:
		return "latch"
	case RWLSB:
		return "lsb"
	case RWMSB:
		return "msb"
	case RWLSBMSB:
		return "lsb+msb"
	}
	return fmt.Sprintf("RWMode(%d)", uint8(m))
}

// OutputChanged is called on every output transition of a counter
type OutputChanged func(counter int, level bool)

// CounterState is a snapshot of a counter, for inspection
type CounterState struct {
	Count             uint32
	Latch             uint16
	Mode              uint8
	BCD               bool
	RWMode            RWMode
	Output            bool
	Gate              bool
	WaitingForCount   bool
	WaitingForTrigger bool
	NullCount         bool
}

type counter struct {
	index int
	// Current count, up to 0x10000 when the latch value 0 was loaded
	count             uint32
	latch             uint16
	mode              uint8
	bcd               bool
	rwMode            RWMode
	output            bool
	gate              bool
	triggered         bool
	waitingForCount   bool
	waitingForTrigger bool
	nullCount         bool
	// write phase of 2 byte loads
	phase uint8
	// read phase of 2 byte reads
	readPhase     uint8
	latchedCount  bool
	readLatch     uint16
	latchedStatus bool
	status        uint8
	// output goes back high on the next tick
	pulse bool
}

type PIT struct {
	counters [Counters]counter
	callback OutputChanged
}

// New returns a reset PIT. Every output starts high, and the callback only
// hears about later transitions.
func New(callback OutputChanged) *PIT {
	p := &PIT{}
	p.Reset()
	p.callback = callback
	return p
}

// Reset puts every counter in its power on state: unprogrammed, gate high, output high.
// Outputs that were low report their rise.
func (p *PIT) Reset() {
	for i := range p.counters {
		c := &p.counters[i]
		low := !c.output
		*c = counter{index: i, gate: true, waitingForCount: true}
		if low {
			p.setOutput(c, true)
		} else {
			c.output = true
		}
	}
}

func (p *PIT) setOutput(c *counter, level bool) {
	if c.output == level {
		return
	}
	c.output = level
	if p.callback != nil {
		p.callback(c.index, level)
	}
}

// Handles a write to the control register
func (p *PIT) WriteControl(value uint8) {
	selector := value >> 6
	rw := RWMode((value >> 4) & 3)
	mode := (value >> 1) & 7
	bcd := value&1 != 0

	if selector == 3 {
		p.readBack(value)
		return
	}

	c := &p.counters[selector]

	if rw == RWLatch {
		p.latchCount(c)
		return
	}

	if mode >= 6 {
		mode -= 4
	}

	c.rwMode = rw
	c.mode = mode
	c.bcd = bcd
	c.phase = 0
	c.readPhase = 0
	c.latchedCount = false
	c.latchedStatus = false
	c.waitingForCount = true
	c.nullCount = true
	c.triggered = false
	c.waitingForTrigger = mode == 1 || mode == 5
	c.pulse = false
	p.setOutput(c, mode != 0)
}

// Read-back command: bit 5 low latches the counts, bit 4 low latches the status,
// bits 1 to 3 select counters 0 to 2
func (p *PIT) readBack(value uint8) {
	for i := range p.counters {
		if value&(2<<i) == 0 {
			continue
		}
		c := &p.counters[i]
		if value&0x20 == 0 {
			p.latchCount(c)
		}
		if value&0x10 == 0 && !c.latchedStatus {
			c.status = c.statusByte()
			c.latchedStatus = true
		}
	}
}

func (p *PIT) latchCount(c *counter) {
	if c.latchedCount {
		return
	}
	c.readLatch = c.wireCount()
	c.latchedCount = true
	c.readPhase = 0
}

func (c *counter) statusByte() uint8 {
	status := c.mode<<1 | uint8(c.rwMode)<<4
	if c.bcd {
		status |= 1
	}
	if c.nullCount {
		status |= 0x40
	}
	if c.output {
		status |= 0x80
	}
	return status
}

// Count as read through the data port
func (c *counter) wireCount() uint16 {
	count := c.count
	if c.bcd {
		return BinToBCD(count % 10000)
	}
	return uint16(count)
}

// Value loaded on reload
func (c *counter) reloadValue() uint32 {
	if c.latch == 0 {
		if c.bcd {
			return 10000
		}
		return 0x10000
	}
	if c.bcd {
		return uint32(BCDToBin(c.latch))
	}
	return uint32(c.latch)
}

// Handles a write to the data port of a counter
func (p *PIT) WriteCounter(index int, value uint8) {
	if index < 0 || index >= Counters {
		return
	}
	c := &p.counters[index]

	switch c.rwMode {
	case RWLSB:
		c.latch = uint16(value)
	case RWMSB:
		c.latch = uint16(value) << 8
	case RWLSBMSB:
		if c.phase == 0 {
			c.latch = c.latch&0xFF00 | uint16(value)
			c.phase = 1
			if c.mode == 0 {
				c.waitingForCount = true
				p.setOutput(c, false)
			}
			return
		}
		c.latch = c.latch&0x00FF | uint16(value)<<8
		c.phase = 0
	default:
		return
	}

	p.load(c)
}

func (p *PIT) load(c *counter) {
	first := c.waitingForCount
	c.waitingForCount = false
	c.nullCount = true

	switch c.mode {
	case 0:
		c.count = 0
		p.setOutput(c, false)
	case 4:
		c.count = 0
	case 2, 3:
		// a new count on a running counter is taken at the next reload
		if first {
			c.count = 0
		}
	}
}

// Handles a read from the data port of a counter
func (p *PIT) ReadCounter(index int) uint8 {
	if index < 0 || index >= Counters {
		return 0
	}
	c := &p.counters[index]

	if c.latchedStatus {
		c.latchedStatus = false
		return c.status
	}

	value := c.wireCount()
	if c.latchedCount {
		value = c.readLatch
	}

	var out uint8
	switch c.rwMode {
	case RWMSB:
		out = uint8(value >> 8)
		c.latchedCount = false
	case RWLSBMSB:
		if c.readPhase == 0 {
			out = uint8(value)
			c.readPhase = 1
			return out
		}
		out = uint8(value >> 8)
		c.readPhase = 0
		c.latchedCount = false
	default:
		out = uint8(value)
		c.latchedCount = false
	}
	return out
}

// Drives the gate input of a counter
func (p *PIT) SetGate(index int, level bool) {
	if index < 0 || index >= Counters {
		return
	}
	c := &p.counters[index]
	rising := level && !c.gate
	c.gate = level

	switch c.mode {
	case 1, 5:
		if rising {
			c.triggered = true
		}
	case 2, 3:
		if !level {
			p.setOutput(c, true)
		} else if rising {
			c.count = 0
			c.nullCount = true
		}
	}
}

// Advances every counter by one clock
func (p *PIT) Tick() {
	for i := range p.counters {
		p.tick(&p.counters[i])
	}
}

func (p *PIT) tick(c *counter) {
	if c.pulse {
		c.pulse = false
		p.setOutput(c, true)
	}

	if c.waitingForCount {
		return
	}
	if !c.gate && c.mode != 0 && c.mode != 4 {
		return
	}

	if c.mode == 1 || c.mode == 5 {
		if c.triggered {
			c.triggered = false
			c.waitingForTrigger = false
			c.count = c.reloadValue()
			c.nullCount = false
			if c.mode == 1 {
				p.setOutput(c, false)
			}
		} else if c.waitingForTrigger {
			return
		}
	}

	if c.count == 0 && c.nullCount {
		c.count = c.reloadValue()
		c.nullCount = false
	}

	prev := c.count
	if c.count > 0 {
		c.count--
	}
	terminal := prev == 1 && c.count == 0

	switch c.mode {
	case 0:
		if terminal {
			p.setOutput(c, true)
		}
	case 1:
		if terminal {
			p.setOutput(c, true)
			c.waitingForTrigger = true
		}
	case 2:
		if c.count == 1 {
			p.setOutput(c, false)
		} else if terminal {
			p.setOutput(c, true)
			c.nullCount = true
		}
	case 3:
		if terminal {
			p.setOutput(c, !c.output)
			c.nullCount = true
		} else if c.count == c.reloadValue()/2 {
			p.setOutput(c, !c.output)
		}
	case 4, 5:
		if terminal {
			p.setOutput(c, false)
			c.pulse = true
			if c.mode == 5 {
				c.waitingForTrigger = true
			}
		}
	}
}

// Output level of a counter
func (p *PIT) Output(index int) bool {
	return p.counters[index].output
}

// Snapshot of a counter
func (p *PIT) Counter(index int) CounterState {
	c := &p.counters[index]
	return CounterState{
		Count:             c.count,
		Latch:             c.latch,
		Mode:              c.mode,
		BCD:               c.bcd,
		RWMode:            c.rwMode,
		Output:            c.output,
		Gate:              c.gate,
		WaitingForCount:   c.waitingForCount,
		WaitingForTrigger: c.waitingForTrigger,
		NullCount:         c.nullCount,
	}
}

// Converts a 4 digit packed decimal value into binary
func BCDToBin(v uint16) uint16 {
	return (v>>12&0xF)*1000 + (v>>8&0xF)*100 + (v>>4&0xF)*10 + v&0xF
}

// Converts a binary value below 10000 into 4 digit packed decimal
func BinToBCD(v uint32) uint16 {
	return uint16(v/1000%10)<<12 | uint16(v/100%10)<<8 | uint16(v/10%10)<<4 | uint16(v%10)
}
