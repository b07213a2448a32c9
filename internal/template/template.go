// Package template chooses and describes the grid layout of a reel.
package template

import (
	"math"

	"github.com/linuxmatters/beatreel/internal/audio"
	"github.com/linuxmatters/beatreel/internal/config"
)

// Kind is the layout variant of a reel
type Kind int

const (
	// Static is a 2x2 grid with no beat emphasis
	Static Kind = iota
	// Dynamic is a 3x2 grid that pulses the slot of the active beat
	Dynamic
)

func (k Kind) String() string {
	switch k {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	default:
		return "unknown"
	}
}

// Select maps a tempo to a layout. Only a known tempo strictly above the
// dynamic threshold yields Dynamic.
func Select(t audio.Tempo) Kind {
	if bpm, ok := t.BPM(); ok && bpm > config.DynamicTempoThreshold {
		return Dynamic
	}
	return Static
}

// Grid describes a layout's cell arrangement
type Grid struct {
	Cols     int
	Rows     int
	Padding  int
	Emphasis bool // Whether the active beat's slot is scaled up
}

// Grid returns the cell arrangement for k
func (k Kind) Grid() Grid {
	if k == Dynamic {
		return Grid{Cols: config.DynamicCols, Rows: config.DynamicRows, Padding: config.Padding, Emphasis: true}
	}
	return Grid{Cols: config.StaticCols, Rows: config.StaticRows, Padding: config.Padding}
}

// Capacity returns the maximum number of images shown per frame
func (k Kind) Capacity() int {
	g := k.Grid()
	return g.Cols * g.Rows
}

// Rect is a cell rectangle in canvas coordinates
type Rect struct {
	X, Y, W, H float64
}

// Center returns the midpoint of r
func (r Rect) Center() (x, y float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Scale returns r scaled by s about its centre
func (r Rect) Scale(s float64) Rect {
	w, h := r.W*s, r.H*s
	return Rect{X: r.X - (w-r.W)/2, Y: r.Y - (h-r.H)/2, W: w, H: h}
}

// CellSize returns the width and height of one cell on a width x height canvas
func (g Grid) CellSize(width, height int) (w, h float64) {
	pad := float64(g.Padding)
	w = (float64(width) - pad*float64(g.Cols+1)) / float64(g.Cols)
	h = (float64(height) - pad*float64(g.Rows+1)) / float64(g.Rows)
	return w, h
}

// Cell returns the rectangle of slot i, laid out row-major
func (g Grid) Cell(i, width, height int) Rect {
	w, h := g.CellSize(width, height)
	col, row := i%g.Cols, i/g.Cols
	pad := float64(g.Padding)
	return Rect{
		X: pad + float64(col)*(w+pad),
		Y: pad + float64(row)*(h+pad),
		W: w,
		H: h,
	}
}

// Requirements summarises what a layout asks of the user
type Requirements struct {
	Kind            Kind
	ImagesNeeded    int
	SecondsPerImage int // Whole seconds each image would hold if shown in turn
}

// RequirementsFor returns the requirements of k for a reel of duration seconds
func RequirementsFor(k Kind, duration float64) Requirements {
	n := k.Capacity()
	var per int
	if duration > 0 {
		per = int(math.Floor(duration / float64(n)))
	}
	return Requirements{Kind: k, ImagesNeeded: n, SecondsPerImage: per}
}
