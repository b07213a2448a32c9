package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// PreviewConfig holds configuration for the video preview
type PreviewConfig struct {
	Width  int // Width in terminal cells
	Height int // Height in terminal cells
}

// DefaultPreviewConfig returns a sensible default preview size
// Using 64x18, close to 16:9 once terminal cells are accounted for
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		Width:  64,
		Height: 18,
	}
}

// DownsampleFrame averages each cell-sized region of frame into one colour
func DownsampleFrame(frame *image.RGBA, config PreviewConfig) [][]color.RGBA {
	if config.Width <= 0 || config.Height <= 0 {
		return nil
	}

	bounds := frame.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	cellWidth := max(srcWidth/config.Width, 1)
	cellHeight := max(srcHeight/config.Height, 1)

	preview := make([][]color.RGBA, config.Height)
	for row := 0; row < config.Height; row++ {
		preview[row] = make([]color.RGBA, config.Width)
		for col := 0; col < config.Width; col++ {
			srcX := col * cellWidth
			srcY := row * cellHeight

			var sumR, sumG, sumB uint32
			pixelCount := 0

			for y := srcY; y < srcY+cellHeight && y < srcHeight; y++ {
				off := frame.PixOffset(bounds.Min.X+srcX, bounds.Min.Y+y)
				for x := srcX; x < srcX+cellWidth && x < srcWidth; x++ {
					sumR += uint32(frame.Pix[off])
					sumG += uint32(frame.Pix[off+1])
					sumB += uint32(frame.Pix[off+2])
					off += 4
					pixelCount++
				}
			}

			if pixelCount > 0 {
				preview[row][col] = color.RGBA{
					R: uint8(sumR / uint32(pixelCount)),
					G: uint8(sumG / uint32(pixelCount)),
					B: uint8(sumB / uint32(pixelCount)),
					A: 255,
				}
			}
		}
	}

	return preview
}

// RenderPreview draws a preview grid with ANSI 24-bit background colours,
// one space per cell
func RenderPreview(preview [][]color.RGBA) string {
	if len(preview) == 0 {
		return ""
	}

	var sb strings.Builder
	border := strings.Repeat("─", len(preview[0]))

	sb.WriteString("  Preview:\n")
	sb.WriteString("  ┌" + border + "┐\n")
	for _, row := range preview {
		sb.WriteString("  │")
		for _, pixel := range row {
			fmt.Fprintf(&sb, "\x1b[48;2;%d;%d;%dm \x1b[0m", pixel.R, pixel.G, pixel.B)
		}
		sb.WriteString("│\n")
	}
	sb.WriteString("  └" + border + "┘\n")

	return sb.String()
}
