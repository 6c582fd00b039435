package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

// Recorder is a Sink writing a mono 16 bit WAV stream
type Recorder struct {
	out     io.WriteSeeker
	closer  io.Closer
	encoder *wav.Encoder
	format  *goaudio.Format
}

// Creates a recorder writing to an arbitrary seekable stream
func NewRecorder(out io.WriteSeeker) *Recorder {
	return &Recorder{
		out:     out,
		encoder: wav.NewEncoder(out, SampleRate, bitDepth, 1, 1),
		format:  &goaudio.Format{NumChannels: 1, SampleRate: SampleRate},
	}
}

// Creates a recorder writing to a new file
func CreateRecorder(path string) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create wav file: %w", err)
	}

	r := NewRecorder(file)
	r.closer = file
	return r, nil
}

func (r *Recorder) WriteSamples(samples []int) error {
	return r.encoder.Write(&goaudio.IntBuffer{
		Format:         r.format,
		Data:           samples,
		SourceBitDepth: bitDepth,
	})
}

// Finalizes the WAV header and closes the underlying file, if the recorder owns it
func (r *Recorder) Close() error {
	if err := r.encoder.Close(); err != nil {
		return fmt.Errorf("cannot finalize wav stream: %w", err)
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
