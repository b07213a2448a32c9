package audio

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV encodes interleaved 16-bit PCM to a temporary file
func writeWAV(t *testing.T, data []int, sampleRate, numChans int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clicks.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, numChans, 1)
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: numChans, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write WAV: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close WAV encoder: %v", err)
	}
	return path
}

func TestLoad_WAVMono(t *testing.T) {
	data := make([]int, 10000)
	for _, p := range []int{1000, 3000, 5000, 7000, 9000} {
		data[p] = 30000
	}
	path := writeWAV(t, data, 44100, 1)

	var calls int
	buf, err := Load(path, func(read, total int64, _ time.Duration) { calls++ })
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if buf.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", buf.SampleRate)
	}
	if buf.Len() != len(data) {
		t.Errorf("Len() = %d, want %d", buf.Len(), len(data))
	}
	if calls == 0 {
		t.Error("progress callback was never called")
	}

	a := Analyze(buf)
	bpm, ok := a.Tempo.BPM()
	if !ok || math.Abs(bpm-1323) > 0.01 {
		t.Errorf("tempo = %v, want ≈1323 BPM", a.Tempo)
	}
}

func TestLoad_WAVStereoFirstChannel(t *testing.T) {
	// L = +0.5 full scale, R = -0.5 full scale: only L is kept
	data := make([]int, 2*1000)
	for i := 0; i < 1000; i++ {
		data[2*i] = 16384
		data[2*i+1] = -16384
	}
	path := writeWAV(t, data, 22050, 2)

	dec, err := NewDecoder(path)
	if err != nil {
		t.Fatalf("NewDecoder() error: %v", err)
	}
	defer dec.Close()

	if dec.NumChannels() != 2 {
		t.Errorf("NumChannels() = %d, want 2", dec.NumChannels())
	}
	if dec.NumSamples() != 1000 {
		t.Errorf("NumSamples() = %d, want 1000", dec.NumSamples())
	}

	chunk, err := dec.ReadChunk(500)
	if err != nil {
		t.Fatalf("ReadChunk() error: %v", err)
	}
	if len(chunk) != 500 {
		t.Fatalf("len(chunk) = %d, want 500", len(chunk))
	}
	for i, s := range chunk {
		if math.Abs(s-0.5) > 1e-4 {
			t.Fatalf("chunk[%d] = %v, want 0.5", i, s)
		}
	}
}

// TestLoad_WAVLeftOnlyClicks checks that clicks in the left channel alone
// keep their full level through analysis
func TestLoad_WAVLeftOnlyClicks(t *testing.T) {
	const frames = 44100
	data := make([]int, 2*frames)
	for p := 2205; p < frames; p += 4410 {
		data[2*p] = 26000
	}
	path := writeWAV(t, data, 44100, 2)

	buf, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	a := Analyze(buf)
	if len(a.Peaks) != 10 {
		t.Errorf("len(Peaks) = %d, want 10", len(a.Peaks))
	}
	bpm, ok := a.Tempo.BPM()
	if !ok || math.Abs(bpm-600) > 0.01 {
		t.Errorf("tempo = %v, want 600 BPM", a.Tempo)
	}
}

func TestNewDecoder_Errors(t *testing.T) {
	if _, err := NewDecoder("song"); err == nil {
		t.Error("expected error for missing extension")
	}
	if _, err := NewDecoder(filepath.Join(t.TempDir(), "missing.ogg")); err == nil {
		t.Error("expected error for missing file through FFmpeg")
	}
	if _, err := Load("nonexistent.wav", nil); err == nil {
		t.Error("expected error for nonexistent file")
	}

	bogus := filepath.Join(t.TempDir(), "bogus.wav")
	if err := os.WriteFile(bogus, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDecoder(bogus); err == nil {
		t.Error("expected error for invalid WAV")
	}
}

// TestLoad_Fixtures decodes the optional fixtures in testdata/
func TestLoad_Fixtures(t *testing.T) {
	for _, name := range []string{"sample.mp3", "sample.flac", "sample.ogg"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join("..", "..", "testdata", name)
			if _, err := os.Stat(path); err != nil {
				t.Skipf("fixture %s not present", path)
			}

			buf, err := Load(path, nil)
			if err != nil {
				t.Fatalf("Load(%s) error: %v", name, err)
			}
			if buf.SampleRate <= 0 || buf.Len() == 0 {
				t.Errorf("Load(%s) = %d samples at %d Hz", name, buf.Len(), buf.SampleRate)
			}
			t.Logf("%s: %.2fs at %d Hz, tempo %s", name, buf.Duration(), buf.SampleRate, Analyze(buf).Tempo)
		})
	}
}

type stubDecoder struct {
	chunks [][]float64
	err    error
	rate   int
}

func (s *stubDecoder) ReadChunk(int) ([]float64, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}
func (s *stubDecoder) SampleRate() int   { return s.rate }
func (s *stubDecoder) NumSamples() int64 { return 0 }
func (s *stubDecoder) NumChannels() int  { return 1 }
func (s *stubDecoder) Close() error      { return nil }

func TestDecode(t *testing.T) {
	buf, err := Decode(&stubDecoder{chunks: [][]float64{{0.1, 0.2}, {0.3}}, rate: 8000}, nil)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if buf.Len() != 3 {
		t.Errorf("Len() = %d, want 3", buf.Len())
	}

	if _, err := Decode(&stubDecoder{rate: 8000}, nil); err == nil {
		t.Error("expected error for empty stream")
	}
	if _, err := Decode(&stubDecoder{chunks: [][]float64{{0.1}}, rate: 0}, nil); err == nil {
		t.Error("expected error for zero sample rate")
	}

	readErr := errors.New("disk on fire")
	_, err = Decode(&stubDecoder{chunks: [][]float64{{0.1}}, err: readErr, rate: 8000}, nil)
	if !errors.Is(err, readErr) {
		t.Errorf("Decode() error = %v, want wrapped %v", err, readErr)
	}
}

func TestFirstChannel(t *testing.T) {
	testCases := []struct {
		name     string
		data     []int
		channels int
		want     []float64
	}{
		{name: "mono", data: []int{100, -50}, channels: 1, want: []float64{1, -0.5}},
		{name: "stereo keeps left", data: []int{100, 0, 50, -50}, channels: 2, want: []float64{1, 0.5}},
		{name: "right ignored", data: []int{0, 100, 0, 100}, channels: 2, want: []float64{0, 0}},
		{name: "partial frame dropped", data: []int{100, 100, 100}, channels: 2, want: []float64{1}},
		{name: "empty", data: nil, channels: 2, want: []float64{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := firstChannel(nil, tc.data, tc.channels, 100)
			if len(got) != len(tc.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if math.Abs(got[i]-tc.want[i]) > 1e-12 {
					t.Errorf("firstChannel[%d] = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}
