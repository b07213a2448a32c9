package encoder

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"testing"
)

// requireEncoder skips the test when this FFmpeg build has no WebM encoder
func requireEncoder(t *testing.T) string {
	t.Helper()
	name, err := SelectEncoder("")
	if err != nil {
		t.Skipf("no WebM encoder available: %v", err)
	}
	return name
}

func TestNew_Validation(t *testing.T) {
	testCases := []struct {
		name   string
		config Config
	}{
		{"zero width", Config{OutputPath: "x.webm", Width: 0, Height: 720, Framerate: 30}},
		{"odd height", Config{OutputPath: "x.webm", Width: 1280, Height: 721, Framerate: 30}},
		{"zero framerate", Config{OutputPath: "x.webm", Width: 1280, Height: 720}},
		{"negative bitrate", Config{OutputPath: "x.webm", Width: 1280, Height: 720, Framerate: 30, Bitrate: -1}},
		{"no output", Config{Width: 1280, Height: 720, Framerate: 30}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.config); err == nil {
				t.Errorf("New(%+v) expected error", tc.config)
			}
		})
	}
}

func TestWriteFrameRGBA_NotInitialized(t *testing.T) {
	enc, err := New(Config{OutputPath: "x.webm", Width: 64, Height: 64, Framerate: 30})
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteFrameRGBA(make([]byte, 64*64*4)); err == nil {
		t.Error("WriteFrameRGBA before Initialize expected error")
	}
}

// TestSink_EncodesWebM encodes a short clip and checks for the EBML magic
func TestSink_EncodesWebM(t *testing.T) {
	codec := requireEncoder(t)

	sink, err := NewSink(SinkConfig{
		Dir:       t.TempDir(),
		Width:     320,
		Height:    180,
		Framerate: 30,
		Bitrate:   500_000,
	}, "test-run")
	if err != nil {
		t.Fatal(err)
	}

	if err := sink.Open(context.Background()); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Logf("Encoding with %s", sink.CodecName())
	if sink.CodecName() != codec {
		t.Errorf("CodecName() = %q, want %q", sink.CodecName(), codec)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 320, 180))
	for i := range 15 {
		c := color.RGBA{uint8(i * 16), 0, 255 - uint8(i*16), 255}
		for p := 0; p < len(frame.Pix); p += 4 {
			frame.Pix[p], frame.Pix[p+1], frame.Pix[p+2], frame.Pix[p+3] = c.R, c.G, c.B, c.A
		}
		if err := sink.WriteFrame(frame); err != nil {
			t.Fatalf("WriteFrame(%d) error: %v", i, err)
		}
	}

	data, err := sink.Finalize()
	if err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}) {
		t.Errorf("output does not start with EBML header: % x", data[:min(4, len(data))])
	}
	if _, err := os.Stat(sink.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("scratch file %s still exists after Finalize", sink.Path())
	}
	t.Logf("Encoded %d bytes", len(data))
}

// TestSink_EmptyClip finalises without any frames
func TestSink_EmptyClip(t *testing.T) {
	requireEncoder(t)

	sink, err := NewSink(SinkConfig{Dir: t.TempDir(), Width: 320, Height: 180, Framerate: 30}, "empty")
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Open(context.Background()); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	data, err := sink.Finalize()
	if err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}
	if len(data) == 0 {
		t.Error("empty clip produced no bytes")
	}
}

func TestSink_AbortRemovesScratch(t *testing.T) {
	requireEncoder(t)

	sink, err := NewSink(SinkConfig{Dir: t.TempDir(), Width: 320, Height: 180, Framerate: 30}, "abort")
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Open(context.Background()); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := sink.WriteFrame(image.NewRGBA(image.Rect(0, 0, 320, 180))); err != nil {
		t.Fatal(err)
	}
	if err := sink.Abort(); err != nil {
		t.Fatalf("Abort() error: %v", err)
	}
	if _, err := os.Stat(sink.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("scratch file %s still exists after Abort", sink.Path())
	}
	if err := sink.WriteFrame(image.NewRGBA(image.Rect(0, 0, 320, 180))); err == nil {
		t.Error("WriteFrame after Abort expected error")
	}
}

func TestSink_RejectsWrongSize(t *testing.T) {
	sink, err := NewSink(SinkConfig{Dir: t.TempDir(), Width: 320, Height: 180, Framerate: 30}, "size")
	if err != nil {
		t.Fatal(err)
	}
	sink.enc = &Encoder{}
	if err := sink.WriteFrame(image.NewRGBA(image.Rect(0, 0, 100, 100))); err == nil {
		t.Error("WriteFrame with wrong size expected error")
	}
}

func TestSink_PackSubImage(t *testing.T) {
	sink := &Sink{config: SinkConfig{Width: 2, Height: 2}}

	parent := image.NewRGBA(image.Rect(0, 0, 4, 4))
	parent.SetRGBA(1, 1, color.RGBA{1, 2, 3, 4})
	parent.SetRGBA(2, 2, color.RGBA{5, 6, 7, 8})
	sub := parent.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)

	got := sink.pack(sub)
	want := []byte{
		1, 2, 3, 4, 0, 0, 0, 0,
		0, 0, 0, 0, 5, 6, 7, 8,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("pack() = %v, want %v", got, want)
	}
}

func TestNewSink_RequiresRunID(t *testing.T) {
	if _, err := NewSink(SinkConfig{}, ""); err == nil {
		t.Error("NewSink with empty run id expected error")
	}
}

func TestGetEncoderStatus(t *testing.T) {
	status := GetEncoderStatus()
	t.Logf("\n%s", status)

	for _, spec := range webmEncoderPriority {
		if !bytes.Contains([]byte(status), []byte(spec.name)) {
			t.Errorf("status missing %s", spec.name)
		}
	}
}

func TestSelectEncoder_UnknownPreferred(t *testing.T) {
	if _, err := SelectEncoder("no-such-encoder"); err == nil {
		t.Error("SelectEncoder with unknown name expected error")
	}
}
