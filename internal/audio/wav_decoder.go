package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVDecoder reads PCM WAV files through go-audio
type WAVDecoder struct {
	file    *os.File
	dec     *wav.Decoder
	pcm     *audio.IntBuffer
	full    float64 // Magnitude of a full-scale sample at the file's bit depth
	rate    int
	chans   int
	samples int64
}

// NewWAVDecoder opens filename and positions the reader at the PCM chunk
func NewWAVDecoder(filename string) (*WAVDecoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	d, err := newWAVDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return d, nil
}

func newWAVDecoder(f *os.File) (*WAVDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to seek to PCM data: %w", err)
	}

	chans, depth := int(dec.NumChans), int(dec.BitDepth)
	if chans <= 0 || depth <= 0 || depth%8 != 0 {
		return nil, fmt.Errorf("unsupported WAV format: %d channels, %d bits", chans, depth)
	}

	// PCMLen is in bytes
	frameBytes := int64(depth/8) * int64(chans)

	return &WAVDecoder{
		file:    f,
		dec:     dec,
		pcm:     &audio.IntBuffer{Format: &audio.Format{NumChannels: chans, SampleRate: int(dec.SampleRate)}},
		full:    float64(audio.IntMaxSignedValue(depth)),
		rate:    int(dec.SampleRate),
		chans:   chans,
		samples: int64(dec.PCMLen()) / frameBytes,
	}, nil
}

// ReadChunk returns up to numSamples samples of the first channel
func (d *WAVDecoder) ReadChunk(numSamples int) ([]float64, error) {
	want := numSamples * d.chans
	if cap(d.pcm.Data) < want {
		d.pcm.Data = make([]int, want)
	}
	d.pcm.Data = d.pcm.Data[:want]

	n, err := d.dec.PCMBuffer(d.pcm)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if n == 0 {
		return nil, io.EOF
	}

	return firstChannel(make([]float64, 0, n/d.chans), d.pcm.Data[:n], d.chans, d.full), nil
}

func (d *WAVDecoder) SampleRate() int {
	return d.rate
}

// NumSamples is derived from the PCM chunk length
func (d *WAVDecoder) NumSamples() int64 {
	return d.samples
}

func (d *WAVDecoder) NumChannels() int {
	return d.chans
}

func (d *WAVDecoder) Close() error {
	return d.file.Close()
}
