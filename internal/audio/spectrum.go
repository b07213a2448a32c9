package audio

import (
	"fmt"
	"math"

	"github.com/argusdusty/gofft"
)

// ApplyHanning applies a Hanning window to the input data
func ApplyHanning(data []float64) []float64 {
	windowed := make([]float64, len(data))
	n := len(data)
	if n < 2 {
		copy(windowed, data)
		return windowed
	}
	for i := range data {
		window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = data[i] * window
	}
	return windowed
}

// Spectrum computes numBars log-scaled magnitude bars (0.0-1.0) for a
// size-sample window of buf centred on sample index center. size must be a
// power of two.
func Spectrum(buf *SampleBuffer, center, size, numBars int) ([]float64, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("spectrum size must be a power of two, got %d", size)
	}
	if numBars <= 0 || numBars > size/2 {
		return nil, fmt.Errorf("invalid bar count %d for size %d", numBars, size)
	}

	// Zero-padded window around center
	window := make([]float64, size)
	start := center - size/2
	for i := range window {
		j := start + i
		if j >= 0 && j < len(buf.Samples) {
			window[i] = buf.Samples[j]
		}
	}

	coeffs := gofft.Float64ToComplex128Array(ApplyHanning(window))
	if err := gofft.FFT(coeffs); err != nil {
		return nil, fmt.Errorf("FFT computation failed: %w", err)
	}

	return BinFFT(coeffs, numBars), nil
}

// BinFFT groups the positive-frequency bins into numBars averaged magnitudes,
// normalised so the loudest bar is 1.0
func BinFFT(coeffs []complex128, numBars int) []float64 {
	half := len(coeffs) / 2
	binsPerBar := half / numBars
	bars := make([]float64, numBars)
	if binsPerBar == 0 {
		return bars
	}

	var peak float64
	for bar := 0; bar < numBars; bar++ {
		start := bar * binsPerBar
		var sum float64
		for i := start; i < start+binsPerBar; i++ {
			sum += math.Hypot(real(coeffs[i]), imag(coeffs[i]))
		}
		// Log scale for a more even visual spread
		bars[bar] = math.Log10(1 + sum/float64(binsPerBar))
		peak = max(peak, bars[bar])
	}

	if peak > 0 {
		for i := range bars {
			bars[i] /= peak
		}
	}
	return bars
}
