package cli

import (
	"math"

	"github.com/linuxmatters/beatreel/internal/config"
)

// ResolveTrim turns the --start and --end flags into a trim window within
// [0, duration]. An end of zero or less selects the default window length.
// Windows shorter than MinTrimSeconds are widened by moving the end first,
// then the start; audio shorter than the minimum is used whole.
func ResolveTrim(start, end, duration float64) (float64, float64) {
	if duration <= 0 || math.IsNaN(duration) {
		return 0, 0
	}
	if math.IsNaN(start) {
		start = 0
	}
	start = clamp(start, 0, duration)

	if end <= 0 || math.IsNaN(end) {
		end = start + config.DefaultTrimSeconds
	}
	end = clamp(end, 0, duration)

	if end-start < config.MinTrimSeconds {
		end = math.Min(start+config.MinTrimSeconds, duration)
	}
	if end-start < config.MinTrimSeconds {
		start = math.Max(end-config.MinTrimSeconds, 0)
	}

	return start, end
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
