package i8080

import "math/bits"

// Bus connects the CPU to memory and I/O ports.
// Stack accesses (push, pop, call, return, XTHL, interrupts) are flagged so
// banked memory can map them separately.
type Bus interface {
	// Reads an opcode or immediate byte
	Fetch(addr uint16) uint8
	Read(addr uint16, stack bool) uint8
	Write(addr uint16, value uint8, stack bool)
	In(port uint8) uint8
	Out(port uint8, value uint8)
}

// StepResult contains the result of executing a single instruction
type StepResult struct {
	// Cycles is the number of clock cycles consumed by the instruction
	Cycles int
	// Instruction is the retired instruction
	Instruction Instruction
	// Whether the step accepted an interrupt instead of executing from memory
	Interrupt bool
}

// CPU is an Intel 8080 core. It is not safe for concurrent use.
type CPU struct {
	state     State
	bus       Bus
	irq       bool
	eiPending bool
}

func New(bus Bus) *CPU {
	c := &CPU{bus: bus}
	c.state.F = flag1
	return c
}

// Returns a copy of the registers
func (c *CPU) State() State {
	return c.state
}

// Replaces the registers
func (c *CPU) SetState(s State) {
	c.state = s
	c.state.F = (c.state.F &^ 0x28) | flag1
}

// Reset clears the program counter and interrupt state. Other registers keep their value.
func (c *CPU) Reset() {
	c.state.PC = 0
	c.state.INTE = false
	c.state.HLTA = false
	c.state.CC = 0
	c.state.Last = Instruction{}
	c.irq = false
	c.eiPending = false
}

// Drives the interrupt request line. A request is served at the next instruction
// boundary where interrupts are enabled, as a RST 7.
func (c *CPU) SetInterrupt(level bool) {
	c.irq = level
}

// Executes one instruction, or accepts a pending interrupt
func (c *CPU) Step() StepResult {
	enable := c.eiPending
	c.eiPending = false

	var result StepResult

	switch {
	case c.irq && c.state.INTE:
		result = c.acceptInterrupt()
	case c.state.HLTA:
		result = StepResult{Cycles: 4, Instruction: Instruction{Addr: c.state.PC - 1, Opcode: OpcodeHLT}}
	default:
		addr := c.state.PC
		instr := Instruction{Addr: addr, Opcode: c.fetch()}
		for i := 1; i < Length(instr.Opcode); i++ {
			instr.Data[i-1] = c.fetch()
		}
		result = StepResult{Cycles: c.execute(instr), Instruction: instr}
	}

	if enable {
		c.state.INTE = true
	}

	c.state.CC += uint64(result.Cycles)
	c.state.Last = result.Instruction
	return result
}

func (c *CPU) acceptInterrupt() StepResult {
	c.irq = false
	c.state.INTE = false
	c.state.HLTA = false
	instr := Instruction{Addr: c.state.PC, Opcode: OpcodeRST7}
	c.push(c.state.PC)
	c.state.PC = 0x38
	return StepResult{Cycles: 11, Instruction: instr, Interrupt: true}
}

func (c *CPU) fetch() uint8 {
	v := c.bus.Fetch(c.state.PC)
	c.state.PC++
	return v
}

func (c *CPU) reg(i uint8) uint8 {
	switch i {
	case 0:
		return c.state.B
	case 1:
		return c.state.C
	case 2:
		return c.state.D
	case 3:
		return c.state.E
	case 4:
		return c.state.H
	case 5:
		return c.state.L
	case 6:
		return c.bus.Read(c.state.HL(), false)
	}
	return c.state.A
}

func (c *CPU) setReg(i uint8, v uint8) {
	switch i {
	case 0:
		c.state.B = v
	case 1:
		c.state.C = v
	case 2:
		c.state.D = v
	case 3:
		c.state.E = v
	case 4:
		c.state.H = v
	case 5:
		c.state.L = v
	case 6:
		c.bus.Write(c.state.HL(), v, false)
	default:
		c.state.A = v
	}
}

func (c *CPU) pair(p uint8) uint16 {
	switch p {
	case 0:
		return c.state.BC()
	case 1:
		return c.state.DE()
	case 2:
		return c.state.HL()
	}
	return c.state.SP
}

func (c *CPU) setPair(p uint8, v uint16) {
	hi, lo := uint8(v>>8), uint8(v)
	switch p {
	case 0:
		c.state.B, c.state.C = hi, lo
	case 1:
		c.state.D, c.state.E = hi, lo
	case 2:
		c.state.H, c.state.L = hi, lo
	default:
		c.state.SP = v
	}
}

func (c *CPU) push(v uint16) {
	c.state.SP--
	c.bus.Write(c.state.SP, uint8(v>>8), true)
	c.state.SP--
	c.bus.Write(c.state.SP, uint8(v), true)
}

func (c *CPU) pop() uint16 {
	lo := c.bus.Read(c.state.SP, true)
	c.state.SP++
	hi := c.bus.Read(c.state.SP, true)
	c.state.SP++
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) setFlag(flag uint8, on bool) {
	if on {
		c.state.F |= flag
	} else {
		c.state.F &^= flag
	}
}

func (c *CPU) setSZP(v uint8) {
	c.setFlag(FlagS, v&0x80 != 0)
	c.setFlag(FlagZ, v == 0)
	c.setFlag(FlagP, bits.OnesCount8(v)%2 == 0)
}

func (c *CPU) add(v uint8, carry bool) {
	a := c.state.A
	sum := uint16(a) + uint16(v)
	if carry {
		sum++
	}
	res := uint8(sum)
	c.setSZP(res)
	c.setFlag(FlagCY, sum > 0xFF)
	c.setFlag(FlagAC, (a^v^res)&0x10 != 0)
	c.state.A = res
}

// Subtraction through two's complement addition, as the 8080 ALU does
func (c *CPU) sub(v uint8, borrow bool) uint8 {
	a := c.state.A
	nv := ^v
	sum := uint16(a) + uint16(nv)
	if !borrow {
		sum++
	}
	res := uint8(sum)
	c.setSZP(res)
	c.setFlag(FlagCY, sum <= 0xFF)
	c.setFlag(FlagAC, (a^nv^res)&0x10 != 0)
	return res
}

func (c *CPU) alu(op uint8, v uint8) {
	a := c.state.A
	cy := c.state.Flag(FlagCY)

	switch op {
	case 0:
		c.add(v, false)
	case 1:
		c.add(v, cy)
	case 2:
		c.state.A = c.sub(v, false)
	case 3:
		c.state.A = c.sub(v, cy)
	case 4:
		c.state.A = a & v
		c.setSZP(c.state.A)
		c.setFlag(FlagCY, false)
		c.setFlag(FlagAC, (a|v)&0x08 != 0)
	case 5:
		c.state.A = a ^ v
		c.setSZP(c.state.A)
		c.setFlag(FlagCY, false)
		c.setFlag(FlagAC, false)
	case 6:
		c.state.A = a | v
		c.setSZP(c.state.A)
		c.setFlag(FlagCY, false)
		c.setFlag(FlagAC, false)
	case 7:
		c.sub(v, false)
	}
}

func (c *CPU) condition(y uint8) bool {
	switch y {
	case 0:
		return !c.state.Flag(FlagZ)
	case 1:
		return c.state.Flag(FlagZ)
	case 2:
		return !c.state.Flag(FlagCY)
	case 3:
		return c.state.Flag(FlagCY)
	case 4:
		return !c.state.Flag(FlagP)
	case 5:
		return c.state.Flag(FlagP)
	case 6:
		return !c.state.Flag(FlagS)
	}
	return c.state.Flag(FlagS)
}

func (c *CPU) rotate(y uint8) {
	a := c.state.A
	cy := c.state.Flag(FlagCY)

	switch y {
	case 0: // RLC
		c.state.A = a<<1 | a>>7
		c.setFlag(FlagCY, a&0x80 != 0)
	case 1: // RRC
		c.state.A = a>>1 | a<<7
		c.setFlag(FlagCY, a&1 != 0)
	case 2: // RAL
		c.state.A = a << 1
		if cy {
			c.state.A |= 1
		}
		c.setFlag(FlagCY, a&0x80 != 0)
	case 3: // RAR
		c.state.A = a >> 1
		if cy {
			c.state.A |= 0x80
		}
		c.setFlag(FlagCY, a&1 != 0)
	case 4:
		c.daa()
	case 5:
		c.state.A = ^a
	case 6:
		c.setFlag(FlagCY, true)
	case 7:
		c.setFlag(FlagCY, !cy)
	}
}

func (c *CPU) daa() {
	a := c.state.A
	cy := c.state.Flag(FlagCY)
	lsb, msb := a&0x0F, a>>4

	var correction uint8
	if c.state.Flag(FlagAC) || lsb > 9 {
		correction += 0x06
	}
	if cy || msb > 9 || (msb >= 9 && lsb > 9) {
		correction += 0x60
		cy = true
	}

	c.add(correction, false)
	c.setFlag(FlagCY, cy)
}

// Executes a decoded instruction and returns the cycles it took
func (c *CPU) execute(instr Instruction) int {
	op := instr.Opcode
	imm := instr.Immediate()
	cycles := Info(op).Cycles
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch x {
	case 0:
		switch z {
		case 1:
			if q == 0 {
				c.setPair(p, imm)
			} else {
				sum := uint32(c.state.HL()) + uint32(c.pair(p))
				c.setFlag(FlagCY, sum > 0xFFFF)
				c.setPair(2, uint16(sum))
			}
		case 2:
			switch {
			case p < 2 && q == 0:
				c.bus.Write(c.pair(p), c.state.A, false)
			case p < 2:
				c.state.A = c.bus.Read(c.pair(p), false)
			case p == 2 && q == 0:
				c.bus.Write(imm, c.state.L, false)
				c.bus.Write(imm+1, c.state.H, false)
			case p == 2:
				c.state.L = c.bus.Read(imm, false)
				c.state.H = c.bus.Read(imm+1, false)
			case q == 0:
				c.bus.Write(imm, c.state.A, false)
			default:
				c.state.A = c.bus.Read(imm, false)
			}
		case 3:
			if q == 0 {
				c.setPair(p, c.pair(p)+1)
			} else {
				c.setPair(p, c.pair(p)-1)
			}
		case 4:
			v := c.reg(y) + 1
			c.setReg(y, v)
			c.setSZP(v)
			c.setFlag(FlagAC, v&0x0F == 0)
		case 5:
			v := c.reg(y) - 1
			c.setReg(y, v)
			c.setSZP(v)
			c.setFlag(FlagAC, v&0x0F != 0x0F)
		case 6:
			c.setReg(y, uint8(imm))
		case 7:
			c.rotate(y)
		}
	case 1:
		if op == OpcodeHLT {
			c.state.HLTA = true
		} else {
			c.setReg(y, c.reg(z))
		}
	case 2:
		c.alu(y, c.reg(z))
	case 3:
		switch z {
		case 0:
			if c.condition(y) {
				c.state.PC = c.pop()
				cycles += 6
			}
		case 1:
			switch {
			case q == 0 && p == 3:
				v := c.pop()
				c.state.A = uint8(v >> 8)
				c.state.F = (uint8(v) &^ 0x28) | flag1
			case q == 0:
				c.setPair(p, c.pop())
			case p <= 1:
				c.state.PC = c.pop()
			case p == 2:
				c.state.PC = c.state.HL()
			default:
				c.state.SP = c.state.HL()
			}
		case 2:
			if c.condition(y) {
				c.state.PC = imm
			}
		case 3:
			switch y {
			case 0, 1:
				c.state.PC = imm
			case 2:
				c.bus.Out(uint8(imm), c.state.A)
			case 3:
				c.state.A = c.bus.In(uint8(imm))
			case 4:
				lo := c.bus.Read(c.state.SP, true)
				hi := c.bus.Read(c.state.SP+1, true)
				c.bus.Write(c.state.SP, c.state.L, true)
				c.bus.Write(c.state.SP+1, c.state.H, true)
				c.state.H, c.state.L = hi, lo
			case 5:
				c.state.D, c.state.H = c.state.H, c.state.D
				c.state.E, c.state.L = c.state.L, c.state.E
			case 6:
				c.state.INTE = false
			case 7:
				c.eiPending = true
			}
		case 4:
			if c.condition(y) {
				c.push(c.state.PC)
				c.state.PC = imm
				cycles += 6
			}
		case 5:
			switch {
			case q == 0 && p == 3:
				c.push(c.state.PSW())
			case q == 0:
				c.push(c.pair(p))
			default:
				c.push(c.state.PC)
				c.state.PC = imm
			}
		case 6:
			c.alu(y, uint8(imm))
		case 7:
			c.push(c.state.PC)
			c.state.PC = uint16(y) * 8
		}
	}

	return cycles
}
