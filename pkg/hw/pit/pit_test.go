package pit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transition struct {
	tick    int
	counter int
	level   bool
}

type recorder struct {
	tick        int
	transitions []transition
}

func (r *recorder) callback(counter int, level bool) {
	r.transitions = append(r.transitions, transition{tick: r.tick, counter: counter, level: level})
}

func newTestPIT() (*PIT, *recorder) {
	r := &recorder{}
	return New(r.callback), r
}

func (r *recorder) run(p *PIT, ticks int) {
	for i := 0; i < ticks; i++ {
		r.tick++
		p.Tick()
	}
}

func control(counter int, rw RWMode, mode uint8, bcd bool) uint8 {
	v := uint8(counter)<<6 | uint8(rw)<<4 | mode<<1
	if bcd {
		v |= 1
	}
	return v
}

func TestPIT_Mode3_SquareWave(t *testing.T) {
	p, r := newTestPIT()
	p.WriteControl(control(0, RWLSB, 3, false))
	p.WriteCounter(0, 10)
	r.transitions = nil

	r.run(p, 10)

	require.Len(t, r.transitions, 2)
	assert.Equal(t, transition{tick: 5, counter: 0, level: false}, r.transitions[0])
	assert.Equal(t, transition{tick: 10, counter: 0, level: true}, r.transitions[1])

	r.run(p, 10)
	assert.Len(t, r.transitions, 4, "the period repeats")
}

func TestPIT_ModeAliases(t *testing.T) {
	p, _ := newTestPIT()
	p.WriteControl(control(1, RWLSB, 6, false))
	assert.Equal(t, uint8(2), p.Counter(1).Mode)

	p.WriteControl(control(1, RWLSB, 7, false))
	assert.Equal(t, uint8(3), p.Counter(1).Mode)
}

func TestPIT_BCD(t *testing.T) {
	p, r := newTestPIT()
	p.WriteControl(control(2, RWLSB, 0, true))
	p.WriteCounter(2, 0x25)

	r.run(p, 1)
	assert.Equal(t, uint32(24), p.Counter(2).Count, "counts down from decimal 25")
	assert.Equal(t, uint8(0x24), p.ReadCounter(2))

	r.transitions = nil
	r.run(p, 24)
	require.Len(t, r.transitions, 1)
	assert.Equal(t, transition{tick: 25, counter: 2, level: true}, r.transitions[0])
}

func TestPIT_Mode0(t *testing.T) {
	p, r := newTestPIT()
	p.WriteControl(control(0, RWLSBMSB, 0, false))
	assert.False(t, p.Output(0))

	p.WriteCounter(0, 0x03)
	p.WriteCounter(0, 0x00)
	r.transitions = nil

	r.run(p, 2)
	assert.False(t, p.Output(0))
	r.run(p, 1)
	assert.True(t, p.Output(0))

	r.run(p, 10)
	assert.Len(t, r.transitions, 1, "output stays high after terminal count")
}

func TestPIT_ResetReportsRisingOutputs(t *testing.T) {
	p, r := newTestPIT()
	assert.Empty(t, r.transitions, "power on levels are not reported")

	p.WriteControl(control(1, RWLSB, 0, false))
	require.False(t, p.Output(1))
	r.transitions = nil

	p.Reset()
	assert.True(t, p.Output(1))
	assert.Equal(t, []transition{{counter: 1, level: true}}, r.transitions)
}

func TestPIT_Mode0_LoadDeassertsOutput(t *testing.T) {
	p, r := newTestPIT()
	p.WriteControl(control(0, RWLSB, 0, false))
	p.WriteCounter(0, 1)
	r.run(p, 1)
	require.True(t, p.Output(0))

	p.WriteCounter(0, 2)
	assert.False(t, p.Output(0))
	r.run(p, 2)
	assert.True(t, p.Output(0))
}

func TestPIT_Mode1_OneShot(t *testing.T) {
	p, r := newTestPIT()
	p.WriteControl(control(1, RWLSB, 1, false))
	p.WriteCounter(1, 3)

	r.run(p, 5)
	assert.True(t, p.Output(1), "nothing happens before the trigger")
	assert.Empty(t, r.transitions)

	p.SetGate(1, false)
	p.SetGate(1, true)

	r.run(p, 3)
	require.Len(t, r.transitions, 2)
	assert.Equal(t, transition{tick: 6, counter: 1, level: false}, r.transitions[0])
	assert.Equal(t, transition{tick: 8, counter: 1, level: true}, r.transitions[1])

	r.run(p, 5)
	assert.Len(t, r.transitions, 2, "re-armed, waiting for the next trigger")

	p.SetGate(1, false)
	p.SetGate(1, true)
	r.run(p, 3)
	assert.Len(t, r.transitions, 4)
}

func TestPIT_Mode2_RateGenerator(t *testing.T) {
	p, r := newTestPIT()
	p.WriteControl(control(0, RWLSB, 2, false))
	p.WriteCounter(0, 3)

	r.run(p, 6)
	assert.Equal(t, []transition{
		{tick: 2, counter: 0, level: false},
		{tick: 3, counter: 0, level: true},
		{tick: 5, counter: 0, level: false},
		{tick: 6, counter: 0, level: true},
	}, r.transitions)
}

func TestPIT_Mode4_SoftwareStrobe(t *testing.T) {
	p, r := newTestPIT()
	p.WriteControl(control(0, RWLSB, 4, false))
	p.WriteCounter(0, 2)

	r.run(p, 6)
	assert.Equal(t, []transition{
		{tick: 2, counter: 0, level: false},
		{tick: 3, counter: 0, level: true},
	}, r.transitions)
}

func TestPIT_Mode5_HardwareStrobe(t *testing.T) {
	p, r := newTestPIT()
	p.WriteControl(control(0, RWLSB, 5, false))
	p.WriteCounter(0, 2)
	r.run(p, 3)
	assert.Empty(t, r.transitions)

	p.SetGate(0, false)
	p.SetGate(0, true)
	r.run(p, 3)
	assert.Equal(t, []transition{
		{tick: 5, counter: 0, level: false},
		{tick: 6, counter: 0, level: true},
	}, r.transitions)
}

func TestPIT_GateLowStopsCounting(t *testing.T) {
	p, r := newTestPIT()
	p.WriteControl(control(0, RWLSB, 3, false))
	p.WriteCounter(0, 10)
	r.run(p, 1)
	require.Equal(t, uint32(9), p.Counter(0).Count)

	p.SetGate(0, false)
	r.run(p, 5)
	assert.Equal(t, uint32(9), p.Counter(0).Count)
}

func TestPIT_LatchZeroLoadsMaximum(t *testing.T) {
	t.Run("binary", func(t *testing.T) {
		p, r := newTestPIT()
		p.WriteControl(control(0, RWLSBMSB, 2, false))
		p.WriteCounter(0, 0)
		p.WriteCounter(0, 0)
		r.run(p, 1)
		assert.Equal(t, uint32(0xFFFF), p.Counter(0).Count)
	})

	t.Run("bcd", func(t *testing.T) {
		p, r := newTestPIT()
		p.WriteControl(control(0, RWLSBMSB, 2, true))
		p.WriteCounter(0, 0)
		p.WriteCounter(0, 0)
		r.run(p, 1)
		assert.Equal(t, uint32(9999), p.Counter(0).Count)
		assert.Equal(t, uint8(0x99), p.ReadCounter(0))
		assert.Equal(t, uint8(0x99), p.ReadCounter(0))
	})
}

func TestPIT_CounterLatchCommand(t *testing.T) {
	p, r := newTestPIT()
	p.WriteControl(control(0, RWLSBMSB, 2, false))
	p.WriteCounter(0, 0x34)
	p.WriteCounter(0, 0x12)
	r.run(p, 1)

	p.WriteControl(control(0, RWLatch, 0, false))
	r.run(p, 10)

	assert.Equal(t, uint8(0x33), p.ReadCounter(0))
	assert.Equal(t, uint8(0x12), p.ReadCounter(0))

	// latch released, live count now
	assert.Equal(t, uint8(0x29), p.ReadCounter(0))
}

func TestPIT_ReadBack(t *testing.T) {
	p, r := newTestPIT()
	p.WriteControl(control(0, RWLSB, 3, false))
	p.WriteCounter(0, 10)
	p.WriteControl(control(1, RWLSB, 2, true))
	p.WriteCounter(1, 0x20)
	r.run(p, 2)

	t.Run("counts only", func(t *testing.T) {
		// select counters 0 and 1, skip status
		p.WriteControl(0xC0 | 0x10 | 0x02 | 0x04)
		r.run(p, 3)

		assert.Equal(t, uint8(8), p.ReadCounter(0))
		assert.Equal(t, uint8(0x18), p.ReadCounter(1))
	})

	t.Run("status only", func(t *testing.T) {
		p.WriteControl(0xC0 | 0x20 | 0x02)

		status := p.ReadCounter(0)
		assert.Equal(t, uint8(3), (status>>1)&7, "mode")
		assert.Equal(t, uint8(RWLSB), (status>>4)&3, "rw mode")
		assert.Zero(t, status&1, "binary")

		// status consumed, count is read next
		assert.Equal(t, uint8(5), p.ReadCounter(0))
	})
}

func TestBCD(t *testing.T) {
	assert.Equal(t, uint16(25), BCDToBin(0x0025))
	assert.Equal(t, uint16(9999), BCDToBin(0x9999))
	assert.Equal(t, uint16(0x1234), BinToBCD(1234))
	for v := uint32(0); v < 10000; v += 37 {
		assert.Equal(t, uint16(v), BCDToBin(BinToBCD(v)))
	}
}
