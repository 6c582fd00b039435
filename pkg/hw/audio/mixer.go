// Package audio turns the timer outputs into PCM samples.
//
// The timer is clocked at half the CPU frequency. Every timer tick the levels of
// the three counter outputs and the beeper bit are summed, and every sample
// period the average level is emitted as a signed 16 bit sample.
package audio

import (
	"github.com/Manu343726/devector/pkg/hw/pit"
)

const (
	CPUClock   = 3000000
	SampleRate = 50000
	// CPU cycles per output sample
	CyclesPerSample = CPUClock / SampleRate
	// CPU cycles per timer tick
	CyclesPerTick = 2
	// Samples buffered before they are handed to the sink
	BufferSize = 1024

	channels  = pit.Counters + 1
	amplitude = 0x7FFF
)

// Sink receives batches of mono signed 16 bit samples
type Sink interface {
	WriteSamples(samples []int) error
}

type Mixer struct {
	timer  *pit.PIT
	sink   Sink
	levels [channels]bool
	muted  [channels]bool

	tickCycles   int
	sampleCycles int
	levelSum     int
	levelCount   int

	buffer  []int
	samples uint64
	err     error
}

func NewMixer(timer *pit.PIT) *Mixer {
	m := &Mixer{
		timer:  timer,
		buffer: make([]int, 0, BufferSize),
	}
	for i := 0; i < pit.Counters; i++ {
		m.levels[i] = timer.Output(i)
	}
	return m
}

// Sets the destination of the samples, nil discards them
func (m *Mixer) SetSink(sink Sink) {
	m.sink = sink
}

// TimerOutput follows a counter output. Use it as the timer transition callback.
func (m *Mixer) TimerOutput(counter int, level bool) {
	if counter >= 0 && counter < pit.Counters {
		m.levels[counter] = level
	}
}

// Sets the level of the 1 bit beeper
func (m *Mixer) SetBeeper(level bool) {
	m.levels[pit.Counters] = level
}

// Mutes a channel: 0 to 2 are timer counters, 3 is the beeper
func (m *Mixer) Mute(channel int, muted bool) {
	if channel >= 0 && channel < channels {
		m.muted[channel] = muted
	}
}

// Clocks the timer and produces the samples for a number of CPU cycles.
// Each sample averages the levels of the ticks inside its own period.
func (m *Mixer) Advance(cycles int) {
	for ; cycles > 0; cycles-- {
		m.tickCycles++
		if m.tickCycles == CyclesPerTick {
			m.tickCycles = 0
			m.timer.Tick()
			m.levelSum += m.level()
			m.levelCount++
		}

		m.sampleCycles++
		if m.sampleCycles == CyclesPerSample {
			m.sampleCycles = 0
			m.emit()
		}
	}
}

func (m *Mixer) level() int {
	level := 0
	for i, high := range m.levels {
		if high && !m.muted[i] {
			level++
		}
	}
	return level
}

func (m *Mixer) emit() {
	sample := 0
	if m.levelCount > 0 {
		// levels in [0, channels] mapped to [-amplitude, amplitude]
		sample = (2*m.levelSum*amplitude)/(m.levelCount*channels) - amplitude
	}
	m.levelSum, m.levelCount = 0, 0

	m.buffer = append(m.buffer, sample)
	m.samples++
	if len(m.buffer) == BufferSize {
		m.Flush()
	}
}

// Hands the buffered samples to the sink
func (m *Mixer) Flush() error {
	if m.sink != nil && len(m.buffer) > 0 && m.err == nil {
		m.err = m.sink.WriteSamples(m.buffer)
	}
	m.buffer = m.buffer[:0]
	return m.err
}

// Total samples produced
func (m *Mixer) Samples() uint64 {
	return m.samples
}

// First error returned by the sink, recording stops after it
func (m *Mixer) Err() error {
	return m.err
}
