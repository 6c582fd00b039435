package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Manu343726/devector/pkg/hw/pit"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	samples []int
}

func (s *captureSink) WriteSamples(samples []int) error {
	s.samples = append(s.samples, samples...)
	return nil
}

func TestMixer_SilenceIsCentered(t *testing.T) {
	timer := pit.New(nil)
	sink := &captureSink{}

	mixer := NewMixer(timer)
	mixer.SetSink(sink)
	for i := 0; i < 3; i++ {
		mixer.Mute(i, true)
	}

	mixer.Advance(CyclesPerSample * 10)
	require.NoError(t, mixer.Flush())

	require.Len(t, sink.samples, 10)
	for _, s := range sink.samples {
		assert.Equal(t, -amplitude, s)
	}
	assert.Equal(t, uint64(10), mixer.Samples())
}

func TestMixer_AllHigh(t *testing.T) {
	timer := pit.New(nil)
	sink := &captureSink{}

	mixer := NewMixer(timer)
	mixer.SetSink(sink)
	mixer.SetBeeper(true)

	mixer.Advance(CyclesPerSample)
	require.NoError(t, mixer.Flush())

	require.Len(t, sink.samples, 1)
	assert.Equal(t, amplitude, sink.samples[0])
}

func TestMixer_FollowsTimerOutputs(t *testing.T) {
	timer := pit.New(nil)
	sink := &captureSink{}

	mixer := NewMixer(timer)
	mixer.SetSink(sink)
	mixer.Mute(1, true)
	mixer.Mute(2, true)

	mixer.TimerOutput(0, false)
	mixer.Advance(CyclesPerSample)
	mixer.TimerOutput(0, true)
	mixer.Advance(CyclesPerSample * 4)
	require.NoError(t, mixer.Flush())

	// one of four channels high
	quarter := (2*amplitude)/channels - amplitude
	assert.Equal(t, []int{-amplitude, quarter, quarter, quarter, quarter}, sink.samples)
}

type failingSink struct {
	calls int
}

func (s *failingSink) WriteSamples([]int) error {
	s.calls++
	return errors.New("disk full")
}

func TestMixer_SinkErrorStopsRecording(t *testing.T) {
	sink := &failingSink{}
	mixer := NewMixer(pit.New(nil))
	mixer.SetSink(sink)

	mixer.Advance(CyclesPerSample * BufferSize * 2)
	assert.EqualError(t, mixer.Err(), "disk full")
	assert.EqualError(t, mixer.Flush(), "disk full")
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, uint64(2*BufferSize), mixer.Samples())
}

func TestMixer_ClocksTimerAtHalfCPU(t *testing.T) {
	ticks := 0
	timer := pit.New(func(int, bool) { ticks++ })
	timer.WriteControl(0x36) // counter 0, lsb+msb, mode 3
	timer.WriteCounter(0, 4)
	timer.WriteCounter(0, 0)

	mixer := NewMixer(timer)
	mixer.Advance(16)

	// 8 timer ticks, a 4 tick square wave toggles 4 times
	assert.Equal(t, 4, ticks)
}

func TestRecorder_WritesWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	rec, err := CreateRecorder(path)
	require.NoError(t, err)
	require.NoError(t, rec.WriteSamples([]int{0, 1000, -1000, 0}))
	require.NoError(t, rec.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	dec := wav.NewDecoder(file)
	require.True(t, dec.IsValidFile())
	assert.Equal(t, uint32(SampleRate), dec.SampleRate)
	assert.Equal(t, uint16(1), dec.NumChans)
	assert.Equal(t, uint16(bitDepth), dec.BitDepth)
}
