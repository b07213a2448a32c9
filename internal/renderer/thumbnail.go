package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/linuxmatters/beatreel/internal/config"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// posterDim is how much the frame is darkened under the caption (0-255)
const posterDim = 110

// GenerateThumbnail writes a PNG poster made from frame with a two-line
// caption in the top half, rotated slightly clockwise
func GenerateThumbnail(outputPath string, frame image.Image, line1, line2 string, textColor color.RGBA) error {
	img := image.NewRGBA(image.Rect(0, 0, config.Width, config.Height))
	bounds := frame.Bounds()
	if bounds.Dx() == config.Width && bounds.Dy() == config.Height {
		draw.Draw(img, img.Bounds(), frame, bounds.Min, draw.Src)
	} else {
		draw.BiLinear.Scale(img, img.Bounds(), frame, bounds, draw.Src, nil)
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{A: posterDim}), image.Point{}, draw.Over)

	parsedFont, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}

	fontSize := findOptimalFontSize(parsedFont, line1, line2)
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size: fontSize,
		DPI:  72,
	})
	defer face.Close()

	textColor.A = 255
	drawThumbnailText(img, face, line1, line2, textColor)

	if err := saveThumbnail(img, outputPath); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}

// findOptimalFontSize finds the largest size at which both lines fit between
// the side margins and end above the vertical centre
func findOptimalFontSize(parsedFont *truetype.Font, line1, line2 string) float64 {
	centerY := config.Height / 2
	maxWidth := config.Width - (2 * config.ThumbnailMargin)

	for size := 150.0; size > 10.0; size -= 2.0 {
		face := truetype.NewFace(parsedFont, &truetype.Options{
			Size: size,
			DPI:  72,
		})
		width1, bounds1 := measureText(face, line1)
		width2, bounds2 := measureText(face, line2)
		face.Close()

		if width1 > maxWidth || width2 > maxWidth {
			continue
		}

		lineSpacing := int(size * 0.5)
		height1 := (bounds1.Max.Y - bounds1.Min.Y).Ceil()
		height2 := (bounds2.Max.Y - bounds2.Min.Y).Ceil()

		if config.ThumbnailMargin+height1+lineSpacing+height2 <= centerY {
			return size
		}
	}

	return 10.0
}

// measureText returns the width and bounds of rendered text. Min.Y is
// negative (ascent) and Max.Y positive (descent).
func measureText(face font.Face, text string) (int, fixed.Rectangle26_6) {
	d := &font.Drawer{Face: face}
	bounds, _ := d.BoundString(text)
	width := (bounds.Max.X - bounds.Min.X).Ceil()
	return width, bounds
}

// drawThumbnailText renders both lines onto a scratch image, rotates it and
// composites it so the highest rotated point sits at the top margin
func drawThumbnailText(img *image.RGBA, face font.Face, line1, line2 string, textColor color.RGBA) {
	width1, bounds1 := measureText(face, line1)
	width2, bounds2 := measureText(face, line2)

	fontSize := float64(face.Metrics().Height) / 64.0
	lineSpacing := int(fontSize * 0.5)

	height1 := (bounds1.Max.Y - bounds1.Min.Y).Ceil()
	height2 := (bounds2.Max.Y - bounds2.Min.Y).Ceil()
	totalHeight := height1 + lineSpacing + height2

	// Oversized so rotation does not clip
	tempSize := int(float64(max(width1, width2)+totalHeight) * 1.5)
	if tempSize <= 0 {
		return
	}
	tempImg := image.NewRGBA(image.Rect(0, 0, tempSize, tempSize))
	src := image.NewUniform(textColor)

	line1Top := tempSize/2 - totalHeight/2
	line2Top := line1Top + height1 + lineSpacing
	drawCenteredLine(tempImg, src, face, line1, tempSize, line1Top-bounds1.Min.Y.Ceil())
	drawCenteredLine(tempImg, src, face, line2, tempSize, line2Top-bounds2.Min.Y.Ceil())

	// Rotate clockwise about the scratch centre
	angle := -config.ThumbnailTextRotationDegrees * math.Pi / 180.0
	cos, sin := math.Cos(angle), math.Sin(angle)
	c := float64(tempSize) / 2.0
	m := f64.Aff3{
		cos, -sin, c - cos*c + sin*c,
		sin, cos, c - sin*c - cos*c,
	}
	rotated := image.NewRGBA(tempImg.Bounds())
	draw.BiLinear.Transform(rotated, m, tempImg, tempImg.Bounds(), draw.Over, nil)

	// The top-right corner of line 1 is the highest point after rotation
	topRightX := float64(width1) / 2.0
	topRightY := float64(line1Top) - c
	highest := sin*topRightX + cos*topRightY + c

	destX := (config.Width - tempSize) / 2
	destY := int(float64(config.ThumbnailMargin) - highest)
	dest := image.Rect(destX, destY, destX+tempSize, destY+tempSize)
	draw.Draw(img, dest, rotated, image.Point{}, draw.Over)
}

func drawCenteredLine(img *image.RGBA, src image.Image, face font.Face, text string, imgWidth, baselineY int) {
	if text == "" {
		return
	}

	d := &font.Drawer{Dst: img, Src: src, Face: face}
	bounds, _ := d.BoundString(text)
	x := (imgWidth - (bounds.Max.X - bounds.Min.X).Ceil()) / 2

	d.Dot = freetype.Pt(x, baselineY)
	d.DrawString(text)
}

func saveThumbnail(img *image.RGBA, outputPath string) error {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := png.Encode(outFile, img); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}
