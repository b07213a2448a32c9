package renderer

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/linuxmatters/beatreel/internal/config"
	"github.com/linuxmatters/beatreel/internal/plan"
	"github.com/linuxmatters/beatreel/internal/template"
	"golang.org/x/image/draw"
)

var framePool = sync.Pool{
	New: func() interface{} {
		return image.NewRGBA(image.Rect(0, 0, config.Width, config.Height))
	},
}

type scaleKey struct {
	ref  string
	w, h int
}

// Renderer rasterises frame descriptors onto a reused 1280x720 canvas.
// A Renderer is not safe for concurrent use; each encode run owns one.
type Renderer struct {
	canvas       *image.RGBA
	clearPattern [32]byte

	// Scaled copies of source images keyed by ref and target size
	scaled map[scaleKey]*image.RGBA
}

// New creates a renderer that clears to bg before every frame
func New(bg color.RGBA) *Renderer {
	r := &Renderer{
		canvas: framePool.Get().(*image.RGBA),
		scaled: make(map[scaleKey]*image.RGBA),
	}
	bg.A = 255
	for i := 0; i < len(r.clearPattern); i += 4 {
		r.clearPattern[i] = bg.R
		r.clearPattern[i+1] = bg.G
		r.clearPattern[i+2] = bg.B
		r.clearPattern[i+3] = bg.A
	}
	return r
}

// Render draws desc using imgs, which must match desc.Images by position.
// Nil or missing entries leave their cell as background. The returned image
// is owned by the renderer and is overwritten by the next call.
func (r *Renderer) Render(desc plan.FrameDescriptor, imgs []image.Image) *image.RGBA {
	r.clear()

	grid := desc.Template.Grid()
	slots := min(len(desc.Images), desc.Template.Capacity())

	emphasised := -1
	if active, ok := desc.ActiveBeat.Get(); ok && grid.Emphasis && len(desc.Images) > 0 {
		emphasised = active % len(desc.Images)
	}

	for i := 0; i < slots; i++ {
		if i >= len(imgs) || imgs[i] == nil {
			continue
		}

		cell := grid.Cell(i, config.Width, config.Height)
		if i == emphasised {
			cell = cell.Scale(config.EmphasisScale)
		}
		r.drawImage(desc.Images[i], imgs[i], cell)
	}

	return r.canvas
}

// Release returns the canvas to the pool and drops scaled images
func (r *Renderer) Release() {
	if r.canvas != nil {
		framePool.Put(r.canvas)
		r.canvas = nil
	}
	clear(r.scaled)
}

// clear fills the canvas with the background colour 8 pixels at a time
func (r *Renderer) clear() {
	if r.canvas == nil {
		r.canvas = framePool.Get().(*image.RGBA)
	}
	pix := r.canvas.Pix
	n := len(pix) - len(pix)%32
	for i := 0; i < n; i += 32 {
		copy(pix[i:i+32], r.clearPattern[:])
	}
	copy(pix[n:], r.clearPattern[:])
}

// drawImage stretches img over cell, clipped to the canvas
func (r *Renderer) drawImage(ref string, img image.Image, cell template.Rect) {
	dst := pixelRect(cell)
	if dst.Empty() {
		return
	}

	scaled := r.scaledImage(ref, img, dst.Dx(), dst.Dy())
	draw.Draw(r.canvas, dst, scaled, image.Point{}, draw.Over)
}

func (r *Renderer) scaledImage(ref string, img image.Image, w, h int) *image.RGBA {
	key := scaleKey{ref: ref, w: w, h: h}
	if s, ok := r.scaled[key]; ok {
		return s
	}

	s := image.NewRGBA(image.Rect(0, 0, w, h))
	bounds := img.Bounds()
	if bounds.Dx() == w && bounds.Dy() == h {
		draw.Draw(s, s.Bounds(), img, bounds.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(s, s.Bounds(), img, bounds, draw.Src, nil)
	}
	r.scaled[key] = s
	return s
}

// pixelRect rounds a cell to whole pixels
func pixelRect(c template.Rect) image.Rectangle {
	x0 := int(math.Round(c.X))
	y0 := int(math.Round(c.Y))
	x1 := int(math.Round(c.X + c.W))
	y1 := int(math.Round(c.Y + c.H))
	return image.Rect(x0, y0, x1, y1)
}
