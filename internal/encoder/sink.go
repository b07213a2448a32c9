package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
)

// SinkConfig describes where and how a Sink encodes
type SinkConfig struct {
	Dir       string // Scratch directory, os.TempDir() when empty
	Width     int
	Height    int
	Framerate int
	Bitrate   int64
	Codec     string
}

// Sink encodes frames into a scratch WebM file and hands back its bytes.
// The scratch file never outlives the sink.
type Sink struct {
	config SinkConfig
	path   string
	enc    *Encoder
	packed []byte
}

// NewSink creates a sink whose scratch file is named after runID
func NewSink(config SinkConfig, runID string) (*Sink, error) {
	if runID == "" {
		return nil, errors.New("run id cannot be empty")
	}
	dir := config.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	return &Sink{
		config: config,
		path:   filepath.Join(dir, "beatreel-"+runID+".webm"),
	}, nil
}

// Path returns the scratch file location
func (s *Sink) Path() string {
	return s.path
}

// CodecName returns the encoder chosen when the sink was opened
func (s *Sink) CodecName() string {
	if s.enc == nil {
		return ""
	}
	return s.enc.CodecName()
}

// Open initialises the encoder and writes the container header
func (s *Sink) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.enc != nil {
		return errors.New("sink already open")
	}

	enc, err := New(Config{
		OutputPath: s.path,
		Width:      s.config.Width,
		Height:     s.config.Height,
		Framerate:  s.config.Framerate,
		Bitrate:    s.config.Bitrate,
		Codec:      s.config.Codec,
	})
	if err != nil {
		return err
	}
	if err := enc.Initialize(); err != nil {
		enc.Abort()
		os.Remove(s.path)
		return err
	}
	s.enc = enc
	return nil
}

// WriteFrame encodes one canvas-sized frame
func (s *Sink) WriteFrame(frame *image.RGBA) error {
	if s.enc == nil {
		return errors.New("sink not open")
	}

	b := frame.Bounds()
	if b.Dx() != s.config.Width || b.Dy() != s.config.Height {
		return fmt.Errorf("frame is %dx%d, expected %dx%d", b.Dx(), b.Dy(), s.config.Width, s.config.Height)
	}

	return s.enc.WriteFrameRGBA(s.pack(frame))
}

// pack returns tightly packed RGBA bytes, copying only when the frame
// is a sub-image or has padded rows
func (s *Sink) pack(frame *image.RGBA) []byte {
	rowBytes := s.config.Width * 4
	if frame.Stride == rowBytes && frame.Rect.Min == (image.Point{}) {
		return frame.Pix[:rowBytes*s.config.Height]
	}

	if s.packed == nil {
		s.packed = make([]byte, rowBytes*s.config.Height)
	}
	b := frame.Bounds()
	for y := 0; y < s.config.Height; y++ {
		off := frame.PixOffset(b.Min.X, b.Min.Y+y)
		copy(s.packed[y*rowBytes:(y+1)*rowBytes], frame.Pix[off:off+rowBytes])
	}
	return s.packed
}

// Finalize flushes the encoder, returns the finished file's bytes and
// removes the scratch file
func (s *Sink) Finalize() ([]byte, error) {
	if s.enc == nil {
		return nil, errors.New("sink not open")
	}
	defer os.Remove(s.path)

	err := s.enc.Close()
	s.enc = nil
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoded output: %w", err)
	}
	return data, nil
}

// Abort discards everything written so far
func (s *Sink) Abort() error {
	if s.enc != nil {
		s.enc.Abort()
		s.enc = nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", s.path, err)
	}
	return nil
}
