package audio

// Analysis holds the result of one analysis pass over a SampleBuffer
type Analysis struct {
	Peaks      PeakSet
	Tempo      Tempo
	Beats      []float64 // Peak timestamps in seconds
	SampleRate int
	Duration   float64 // Seconds
}

// Analyze detects peaks, estimates tempo and derives beat timestamps
func Analyze(buf *SampleBuffer) Analysis {
	if buf == nil {
		return Analysis{Tempo: UnknownTempo()}
	}

	peaks := DetectPeaks(buf)
	return Analysis{
		Peaks:      peaks,
		Tempo:      EstimateTempo(peaks, buf.SampleRate),
		Beats:      BeatTimes(peaks, buf.SampleRate),
		SampleRate: buf.SampleRate,
		Duration:   buf.Duration(),
	}
}

// StrongestPeak returns the index of the loudest detected peak, or -1
func (a Analysis) StrongestPeak(buf *SampleBuffer) int {
	best := -1
	for _, p := range a.Peaks {
		if best < 0 || buf.Samples[p] > buf.Samples[best] {
			best = p
		}
	}
	return best
}
