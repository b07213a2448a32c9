package audio

import (
	"math"
	"testing"
)

func TestEstimateTempo(t *testing.T) {
	tests := []struct {
		name       string
		peaks      PeakSet
		sampleRate int
		wantKnown  bool
		wantBPM    float64
	}{
		{name: "no peaks", peaks: nil, sampleRate: 44100},
		{name: "one peak", peaks: PeakSet{1000}, sampleRate: 44100},
		{name: "zero sample rate", peaks: PeakSet{1, 2}, sampleRate: 0},
		{
			name:       "evenly spaced",
			peaks:      PeakSet{1000, 3000, 5000, 7000, 9000},
			sampleRate: 44100,
			wantKnown:  true,
			wantBPM:    1323,
		},
		{
			name:       "120 BPM",
			peaks:      PeakSet{0, 22050, 44100, 66150},
			sampleRate: 44100,
			wantKnown:  true,
			wantBPM:    120,
		},
		{
			// Mean gap (1000+3000)/2 = 2000, no outlier rejection
			name:       "uneven gaps are averaged",
			peaks:      PeakSet{0, 1000, 4000},
			sampleRate: 48000,
			wantKnown:  true,
			wantBPM:    1440,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempo := EstimateTempo(tt.peaks, tt.sampleRate)
			bpm, known := tempo.BPM()
			if known != tt.wantKnown {
				t.Fatalf("EstimateTempo() known = %v, want %v", known, tt.wantKnown)
			}
			if !known {
				return
			}
			if bpm <= 0 {
				t.Errorf("BPM = %v, want > 0", bpm)
			}
			if math.Abs(bpm-tt.wantBPM) > 0.01 {
				t.Errorf("BPM = %.4f, want %.4f", bpm, tt.wantBPM)
			}
		})
	}
}

func TestTempoString(t *testing.T) {
	if got := UnknownTempo().String(); got != "No tempo detected" {
		t.Errorf("UnknownTempo().String() = %q", got)
	}
	if got := TempoOf(127.6).String(); got != "128 BPM" {
		t.Errorf("TempoOf(127.6).String() = %q, want %q", got, "128 BPM")
	}
}

func TestTempoOf_RejectsInvalid(t *testing.T) {
	for _, v := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		if TempoOf(v).Known() {
			t.Errorf("TempoOf(%v) should be unknown", v)
		}
	}
}

func TestBeatTimes(t *testing.T) {
	beats := BeatTimes(PeakSet{0, 22050, 44100}, 44100)
	want := []float64{0, 0.5, 1}
	if len(beats) != len(want) {
		t.Fatalf("len(BeatTimes) = %d, want %d", len(beats), len(want))
	}
	for i := range want {
		if beats[i] != want[i] {
			t.Errorf("beats[%d] = %v, want %v", i, beats[i], want[i])
		}
	}

	if got := BeatTimes(PeakSet{1}, 0); got != nil {
		t.Errorf("BeatTimes with zero rate = %v, want nil", got)
	}
}
