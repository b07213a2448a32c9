// Package imagesrc resolves image references to decoded rasters.
package imagesrc

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/linuxmatters/beatreel/internal/config"

	// Registered decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Source decodes a single image reference
type Source interface {
	Decode(ctx context.Context, ref string) (image.Image, error)
}

// DecodeError reports a reference that could not be decoded
type DecodeError struct {
	Ref string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image %s: %v", shortRef(e.Ref), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrEmptyRef is returned for a blank reference
var ErrEmptyRef = errors.New("empty image reference")

// FileSource reads local paths, file:// URIs and base64 data: URIs
type FileSource struct {
	// MaxBytes limits the encoded size of a single image; 0 means no limit
	MaxBytes int64
	// MaxPixels limits width*height read from the image header before the
	// full decode; 0 means no limit
	MaxPixels int64
}

// NewFileSource returns a FileSource with the default input limits
func NewFileSource() FileSource {
	return FileSource{MaxBytes: config.MaxImageBytes, MaxPixels: config.MaxImagePixels}
}

// Decode implements Source
func (s FileSource) Decode(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, closer, err := s.open(ref)
	if err != nil {
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	if closer != nil {
		defer closer.Close()
	}

	if s.MaxBytes > 0 || s.MaxPixels > 0 {
		if s.MaxBytes > 0 {
			r = io.LimitReader(r, s.MaxBytes+1)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, &DecodeError{Ref: ref, Err: err}
		}
		if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
			return nil, &DecodeError{Ref: ref, Err: fmt.Errorf("image exceeds %d bytes", s.MaxBytes)}
		}
		if s.MaxPixels > 0 {
			cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				return nil, &DecodeError{Ref: ref, Err: err}
			}
			if px := int64(cfg.Width) * int64(cfg.Height); px > s.MaxPixels {
				return nil, &DecodeError{Ref: ref, Err: fmt.Errorf("image is %dx%d, exceeds %d pixels", cfg.Width, cfg.Height, s.MaxPixels)}
			}
		}
		r = bytes.NewReader(data)
	}

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	return img, nil
}

func (s FileSource) open(ref string) (io.Reader, io.Closer, error) {
	switch {
	case strings.TrimSpace(ref) == "":
		return nil, nil, ErrEmptyRef
	case strings.HasPrefix(ref, "data:"):
		data, err := decodeDataURI(ref)
		if err != nil {
			return nil, nil, err
		}
		return bytes.NewReader(data), nil, nil
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid file URI: %w", err)
		}
		ref = u.Path
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

// decodeDataURI extracts the payload of a data: URI. Only base64 payloads
// are accepted since raster formats are binary.
func decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI: missing ','")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return data, nil
}

// shortRef keeps data: URIs out of log lines
func shortRef(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		meta, _, _ := strings.Cut(ref, ",")
		return meta + ",..."
	}
	return ref
}
