// Package probe reads pixel dimensions from image headers.
package probe

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedFormat is returned when no registered decoder recognizes the data.
	ErrUnsupportedFormat = errors.New("unsupported or unreadable image format")
	// ErrInvalidDimensions is returned when a decoder reports a zero or negative side.
	ErrInvalidDimensions = errors.New("image has no usable dimensions")
)

// Dimensions is the pixel size of an image. Both sides are positive.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// String formats the dimensions as WxH.
func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// FromBytes reads the dimensions of an encoded image held in memory.
// The returned string is the format name reported by the decoder.
func FromBytes(data []byte) (Dimensions, string, error) {
	return FromReader(bytes.NewReader(data))
}

// FromFile reads the dimensions of an image file. Callers that need to tell a
// missing file apart from an unreadable one should stat the path first.
func FromFile(path string) (Dimensions, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return FromReader(f)
}

// FromReader reads the dimensions of an encoded image. Only the header is consumed.
func FromReader(r io.Reader) (Dimensions, string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Dimensions{}, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Dimensions{}, format, fmt.Errorf("%w: %s reported %dx%d", ErrInvalidDimensions, format, cfg.Width, cfg.Height)
	}

	return Dimensions{Width: cfg.Width, Height: cfg.Height}, format, nil
}
