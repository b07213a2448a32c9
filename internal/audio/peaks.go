package audio

import "github.com/linuxmatters/beatreel/internal/config"

// PeakSet is an ascending list of sample indices of detected peaks
type PeakSet []int

// DetectPeaks returns every interior sample that exceeds the peak threshold
// and is strictly greater than both neighbours. It never fails; short or
// silent buffers yield an empty set.
func DetectPeaks(buf *SampleBuffer) PeakSet {
	if buf == nil || len(buf.Samples) < 3 {
		return PeakSet{}
	}

	s := buf.Samples
	peaks := PeakSet{}
	for i := 1; i < len(s)-1; i++ {
		if s[i] > config.PeakThreshold && s[i] > s[i-1] && s[i] > s[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}
