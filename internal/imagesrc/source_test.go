package imagesrc

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileSource_Formats(t *testing.T) {
	src := testImage(8, 6)
	pngData := encodePNG(t, src)

	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, src); err != nil {
		t.Fatal(err)
	}

	pngPath := writeFile(t, "photo.png", pngData)
	bmpPath := writeFile(t, "photo.bmp", bmpBuf.Bytes())

	tests := []struct {
		name string
		ref  string
	}{
		{name: "png path", ref: pngPath},
		{name: "bmp path", ref: bmpPath},
		{name: "file URI", ref: "file://" + pngPath},
		{name: "data URI", ref: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := FileSource{}.Decode(context.Background(), tt.ref)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
				t.Errorf("bounds = %v, want 8x6", img.Bounds())
			}
		})
	}
}

func TestFileSource_Errors(t *testing.T) {
	garbage := writeFile(t, "garbage.png", []byte("definitely not a png"))

	tests := []struct {
		name   string
		ref    string
		target error
	}{
		{name: "empty", ref: " ", target: ErrEmptyRef},
		{name: "missing file", ref: filepath.Join(t.TempDir(), "nope.png"), target: fs.ErrNotExist},
		{name: "garbage", ref: garbage, target: image.ErrFormat},
		{name: "data URI without comma", ref: "data:image/png;base64"},
		{name: "data URI not base64", ref: "data:text/plain,hello"},
		{name: "data URI bad payload", ref: "data:image/png;base64,!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FileSource{}.Decode(context.Background(), tt.ref)
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Decode() error = %v, want *DecodeError", err)
			}
			if de.Ref != tt.ref {
				t.Errorf("DecodeError.Ref = %q, want %q", de.Ref, tt.ref)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Decode() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestFileSource_MaxBytes(t *testing.T) {
	data := encodePNG(t, testImage(16, 16))
	path := writeFile(t, "big.png", data)

	if _, err := (FileSource{MaxBytes: int64(len(data))}).Decode(context.Background(), path); err != nil {
		t.Errorf("image at limit rejected: %v", err)
	}
	if _, err := (FileSource{MaxBytes: int64(len(data) - 1)}).Decode(context.Background(), path); err == nil {
		t.Error("image over limit accepted")
	}
}

func TestFileSource_MaxPixels(t *testing.T) {
	path := writeFile(t, "wide.png", encodePNG(t, testImage(20, 10)))

	if _, err := (FileSource{MaxPixels: 200}).Decode(context.Background(), path); err != nil {
		t.Errorf("image at pixel limit rejected: %v", err)
	}

	_, err := (FileSource{MaxPixels: 199}).Decode(context.Background(), path)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Decode() error = %v, want *DecodeError", err)
	}
	if de.Ref != path {
		t.Errorf("DecodeError.Ref = %q, want %q", de.Ref, path)
	}
}

func TestNewFileSource_Limits(t *testing.T) {
	src := NewFileSource()
	if src.MaxBytes <= 0 || src.MaxPixels <= 0 {
		t.Fatalf("NewFileSource() = %+v, want both limits set", src)
	}

	path := writeFile(t, "photo.png", encodePNG(t, testImage(8, 8)))
	if _, err := src.Decode(context.Background(), path); err != nil {
		t.Errorf("Decode() within default limits: %v", err)
	}
}

func TestFileSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (FileSource{}).Decode(ctx, "whatever.png"); !errors.Is(err, context.Canceled) {
		t.Errorf("Decode() error = %v, want context.Canceled", err)
	}
}

func TestDecodeError_HidesDataURI(t *testing.T) {
	err := &DecodeError{Ref: "data:image/png;base64,AAAAAAAA", Err: errors.New("boom")}
	if got := err.Error(); bytes.Contains([]byte(got), []byte("AAAAAAAA")) {
		t.Errorf("Error() leaks payload: %q", got)
	}
}
