package audio

import (
	"fmt"
	"math"
)

// Tempo is a BPM estimate, or unknown when there were too few peaks
type Tempo struct {
	bpm   float64
	known bool
}

// UnknownTempo returns the absent tempo
func UnknownTempo() Tempo {
	return Tempo{}
}

// TempoOf returns a known tempo. Non-positive or non-finite values are unknown.
func TempoOf(bpm float64) Tempo {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return Tempo{}
	}
	return Tempo{bpm: bpm, known: true}
}

// BPM returns the tempo and whether it is known
func (t Tempo) BPM() (float64, bool) {
	return t.bpm, t.known
}

// Known reports whether a tempo was detected
func (t Tempo) Known() bool {
	return t.known
}

func (t Tempo) String() string {
	if !t.known {
		return "No tempo detected"
	}
	return fmt.Sprintf("%d BPM", int(math.Round(t.bpm)))
}

// EstimateTempo converts the mean gap between consecutive peaks into BPM.
// There is no outlier rejection.
func EstimateTempo(peaks PeakSet, sampleRate int) Tempo {
	if len(peaks) < 2 || sampleRate <= 0 {
		return UnknownTempo()
	}

	var sum float64
	for i := 1; i < len(peaks); i++ {
		sum += float64(peaks[i] - peaks[i-1])
	}
	meanGap := sum / float64(len(peaks)-1)

	interval := meanGap / float64(sampleRate)
	return TempoOf(60 / interval)
}

// BeatTimes converts peak sample indices to timestamps in seconds
func BeatTimes(peaks PeakSet, sampleRate int) []float64 {
	if sampleRate <= 0 {
		return nil
	}
	beats := make([]float64, len(peaks))
	for i, p := range peaks {
		beats[i] = float64(p) / float64(sampleRate)
	}
	return beats
}
