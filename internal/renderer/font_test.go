package renderer

import (
	"testing"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
)

func mustGoBold(t *testing.T) *truetype.Font {
	t.Helper()
	f, err := truetype.Parse(gobold.TTF)
	if err != nil {
		t.Fatalf("failed to parse font: %v", err)
	}
	return f
}
