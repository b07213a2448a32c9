// Package reel validates a reel request and runs the analysis chain that
// turns samples and images into a frame plan.
package reel

import (
	"fmt"
	"math"

	"github.com/linuxmatters/beatreel/internal/audio"
	"github.com/linuxmatters/beatreel/internal/config"
	"github.com/linuxmatters/beatreel/internal/plan"
	"github.com/linuxmatters/beatreel/internal/template"
	"go.uber.org/zap"
)

// Request is the untrusted input to Prepare
type Request struct {
	Samples   *audio.SampleBuffer
	Images    []string
	TrimStart float64 // Seconds
	TrimEnd   float64 // Seconds
}

// InputError reports a request that cannot be planned
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Job is a validated, planned reel ready for encoding
type Job struct {
	Analysis     audio.Analysis
	Template     template.Kind
	Plan         *plan.Plan
	Requirements template.Requirements
	TrimStart    float64
	TrimEnd      float64

	// Spectrum holds magnitude bars around the strongest peak, nil if unavailable
	Spectrum []float64
}

// Prepare validates req, analyses its samples and builds the frame plan.
// An end beyond the audio is clamped; an end at or before the start gives
// an empty plan.
func Prepare(req Request, logger *zap.SugaredLogger) (*Job, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	buf := req.Samples
	if buf == nil || buf.Len() == 0 {
		return nil, &InputError{Field: "samples", Reason: "empty sample buffer"}
	}
	if buf.SampleRate <= 0 {
		return nil, &InputError{Field: "samples", Reason: fmt.Sprintf("invalid sample rate %d", buf.SampleRate)}
	}
	if len(req.Images) == 0 {
		return nil, &InputError{Field: "images", Reason: "no images supplied"}
	}
	if math.IsNaN(req.TrimStart) || math.IsInf(req.TrimStart, 0) || req.TrimStart < 0 {
		return nil, &InputError{Field: "trim start", Reason: fmt.Sprintf("%v is not a non-negative time", req.TrimStart)}
	}

	duration := buf.Duration()
	start, end := req.TrimStart, req.TrimEnd
	if end > duration {
		logger.Warnw("trim end beyond audio, clamping", "trim_end", end, "duration", duration)
		end = duration
	}

	analysis := audio.Analyze(buf)
	kind := template.Select(analysis.Tempo)
	p := plan.Build(req.Images, analysis.Beats, analysis.Tempo, start, end)

	job := &Job{
		Analysis:     analysis,
		Template:     kind,
		Plan:         p,
		Requirements: template.RequirementsFor(kind, p.Duration()),
		TrimStart:    start,
		TrimEnd:      end,
	}

	if len(req.Images) < job.Requirements.ImagesNeeded {
		logger.Infow("fewer images than template slots", "images", len(req.Images), "slots", job.Requirements.ImagesNeeded)
	} else if len(req.Images) > job.Requirements.ImagesNeeded {
		logger.Infow("extra images ignored", "images", len(req.Images), "slots", job.Requirements.ImagesNeeded)
	}

	center := analysis.StrongestPeak(buf)
	if center < 0 {
		center = buf.Len() / 2
	}
	bars, err := audio.Spectrum(buf, center, config.SpectrumSize, config.SpectrumBars)
	if err != nil {
		logger.Debugw("spectrum unavailable", "error", err)
	} else {
		job.Spectrum = bars
	}

	logger.Infow("reel planned",
		"tempo", analysis.Tempo.String(),
		"peaks", len(analysis.Peaks),
		"template", kind.String(),
		"frames", p.Len(),
		"trim_start", start,
		"trim_end", end)

	return job, nil
}
