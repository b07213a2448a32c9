package audio

import (
	"fmt"
	"io"
	"time"
)

// readChunkSize is the number of samples requested per decoder read
const readChunkSize = 4096

// SampleBuffer holds mono PCM samples normalised to roughly [-1, 1].
// It is treated as immutable once loaded.
type SampleBuffer struct {
	Samples    []float64
	SampleRate int
}

// Len returns the number of samples
func (b *SampleBuffer) Len() int {
	return len(b.Samples)
}

// Duration returns the length of the buffer in seconds
func (b *SampleBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// LoadProgress is called while decoding with the samples read so far, the
// expected total (0 if unknown) and the time spent
type LoadProgress func(read, total int64, elapsed time.Duration)

// Load decodes an entire audio file into a mono SampleBuffer
func Load(filename string, progressCb LoadProgress) (*SampleBuffer, error) {
	dec, err := NewDecoder(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}
	defer dec.Close()

	return Decode(dec, progressCb)
}

// Decode drains dec into a SampleBuffer
func Decode(dec AudioDecoder, progressCb LoadProgress) (*SampleBuffer, error) {
	if dec.SampleRate() <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", dec.SampleRate())
	}

	total := dec.NumSamples()
	samples := make([]float64, 0, max(total, 0))

	startTime := time.Now()
	reads := 0
	for {
		chunk, err := dec.ReadChunk(readChunkSize)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading audio at sample %d: %w", len(samples), err)
		}
		samples = append(samples, chunk...)

		reads++
		if progressCb != nil && reads%16 == 0 {
			progressCb(int64(len(samples)), total, time.Since(startTime))
		}
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio data in file")
	}

	if progressCb != nil {
		progressCb(int64(len(samples)), int64(len(samples)), time.Since(startTime))
	}

	return &SampleBuffer{
		Samples:    samples,
		SampleRate: dec.SampleRate(),
	}, nil
}
