// Package plan maps a trim window, beats and images onto per-frame
// descriptors. Descriptors carry no pixels.
package plan

import (
	"iter"
	"math"
	"slices"
	"sort"

	"github.com/linuxmatters/beatreel/internal/audio"
	"github.com/linuxmatters/beatreel/internal/config"
	"github.com/linuxmatters/beatreel/internal/template"
)

// BeatIndex is the index of a frame's upcoming beat, or none
type BeatIndex struct {
	index int
	ok    bool
}

// NoBeat is the index of a frame that falls after the last beat
var NoBeat = BeatIndex{}

// BeatAt returns a present BeatIndex
func BeatAt(i int) BeatIndex {
	return BeatIndex{index: i, ok: true}
}

// Get returns the index and whether one is present
func (b BeatIndex) Get() (int, bool) {
	return b.index, b.ok
}

// FrameDescriptor specifies the content and timing of one output frame.
// Images is shared between descriptors of a plan and must not be modified.
type FrameDescriptor struct {
	Index      int
	Images     []string
	Timestamp  float64 // Seconds from the start of the source audio
	Template   template.Kind
	ActiveBeat BeatIndex
}

// Plan is an immutable, restartable frame plan
type Plan struct {
	images    []string
	beats     []float64
	kind      template.Kind
	trimStart float64
	total     int
}

// MaxFrames bounds the length of a plan. Longer windows yield an empty plan.
const MaxFrames = math.MaxInt32

// Build plans ceil((trimEnd-trimStart)*FPS) frames. A window with
// trimEnd <= trimStart, non-finite bounds or more than MaxFrames frames
// yields an empty plan.
func Build(images []string, beats []float64, tempo audio.Tempo, trimStart, trimEnd float64) *Plan {
	kind := template.Select(tempo)
	p := &Plan{kind: kind, trimStart: trimStart}

	if !finite(trimStart) || !finite(trimEnd) || trimEnd <= trimStart {
		return p
	}
	frames := math.Ceil((trimEnd - trimStart) * config.FPS)
	if !finite(frames) || frames > MaxFrames {
		return p
	}

	n := min(len(images), kind.Capacity())
	p.images = slices.Clip(slices.Clone(images[:n]))

	p.beats = slices.Clone(beats)
	if !sort.Float64sAreSorted(p.beats) {
		sort.Float64s(p.beats)
	}

	p.total = int(frames)
	return p
}

// Len returns the number of frames
func (p *Plan) Len() int {
	return p.total
}

// Template returns the layout used by every frame
func (p *Plan) Template() template.Kind {
	return p.kind
}

// Images returns the image references shown in every frame
func (p *Plan) Images() []string {
	return slices.Clone(p.images)
}

// Duration returns the planned length in seconds
func (p *Plan) Duration() float64 {
	return float64(p.total) / config.FPS
}

// At returns descriptor i. It panics if i is out of range.
func (p *Plan) At(i int) FrameDescriptor {
	if i < 0 || i >= p.total {
		panic("plan: frame index out of range")
	}

	ts := p.trimStart + float64(i)/config.FPS
	return FrameDescriptor{
		Index:      i,
		Images:     p.images,
		Timestamp:  ts,
		Template:   p.kind,
		ActiveBeat: p.activeBeat(ts),
	}
}

// All yields every descriptor in order. Each call starts from frame 0.
func (p *Plan) All() iter.Seq2[int, FrameDescriptor] {
	return func(yield func(int, FrameDescriptor) bool) {
		for i := 0; i < p.total; i++ {
			if !yield(i, p.At(i)) {
				return
			}
		}
	}
}

// Descriptors materialises the whole plan
func (p *Plan) Descriptors() []FrameDescriptor {
	out := make([]FrameDescriptor, 0, p.total)
	for _, d := range p.All() {
		out = append(out, d)
	}
	return out
}

// activeBeat returns the first beat at or after ts
func (p *Plan) activeBeat(ts float64) BeatIndex {
	i := sort.SearchFloat64s(p.beats, ts)
	if i == len(p.beats) {
		return NoBeat
	}
	return BeatAt(i)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
