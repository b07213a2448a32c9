package audio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AudioDecoder defines the interface for all audio format decoders.
// Decoders keep only the first channel, so a transient on the left of a
// stereo track is analysed at full strength.
type AudioDecoder interface {
	// ReadChunk reads up to numSamples mono samples as float64.
	// Returns io.EOF when the stream is exhausted.
	ReadChunk(numSamples int) ([]float64, error)

	// SampleRate returns the audio sample rate in Hz
	SampleRate() int

	// NumSamples returns the total number of mono samples
	// Returns 0 if the length is unknown
	NumSamples() int64

	// NumChannels returns the number of channels in the source (1=mono, 2=stereo)
	NumChannels() int

	// Close closes the decoder and releases resources
	Close() error
}

// NewDecoder opens filename with the pure Go decoder matching its extension,
// falling back to FFmpeg for anything else
func NewDecoder(filename string) (AudioDecoder, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".wav", ".wave":
		return NewWAVDecoder(filename)
	case ".mp3":
		return NewMP3Decoder(filename)
	case ".flac":
		return NewFLACDecoder(filename)
	case "":
		return nil, fmt.Errorf("cannot detect audio format of %s: no file extension", filename)
	default:
		return NewFFmpegDecoder(filename)
	}
}

// firstChannel appends channel 0 of interleaved integer frames to dst,
// scaling each value by 1/full. A trailing partial frame is dropped.
func firstChannel(dst []float64, data []int, channels int, full float64) []float64 {
	frames := len(data) / channels
	dst = dst[:0]
	for i := range frames {
		dst = append(dst, float64(data[i*channels])/full)
	}
	return dst
}
