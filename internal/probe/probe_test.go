package probe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img
}

func encode(t *testing.T, format string, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	img := testImage(w, h)
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, nil)
	default:
		t.Fatalf("unknown format %s", format)
	}
	if err != nil {
		t.Fatalf("failed to encode %s: %v", format, err)
	}
	return buf.Bytes()
}

// losslessWebP builds the smallest VP8L header DecodeConfig accepts.
func losslessWebP(w, h int) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+5+1))
	buf.WriteString("WEBP")
	buf.WriteString("VP8L")
	binary.Write(&buf, binary.LittleEndian, uint32(5))
	buf.WriteByte(0x2f)
	bits := uint32(w-1) | uint32(h-1)<<14
	binary.Write(&buf, binary.LittleEndian, bits)
	buf.WriteByte(0) // padding
	return buf.Bytes()
}

func TestFromBytes(t *testing.T) {
	for _, format := range []string{"png", "jpeg", "gif", "bmp", "tiff"} {
		t.Run(format, func(t *testing.T) {
			dims, name, err := FromBytes(encode(t, format, 37, 21))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dims.Width != 37 || dims.Height != 21 {
				t.Errorf("expected 37x21, got %s", dims)
			}
			if name != format {
				t.Errorf("expected format %q, got %q", format, name)
			}
		})
	}
}

func TestFromBytes_WebP(t *testing.T) {
	dims, name, err := FromBytes(losslessWebP(3, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dims != (Dimensions{Width: 3, Height: 2}) {
		t.Errorf("expected 3x2, got %s", dims)
	}
	if name != "webp" {
		t.Errorf("expected format 'webp', got %q", name)
	}
}

func TestFromBytes_Unsupported(t *testing.T) {
	inputs := map[string][]byte{
		"empty": nil,
		"text":  []byte("not an image at all"),
		"svg":   []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"></svg>`),
	}

	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			_, _, err := FromBytes(data)
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("expected ErrUnsupportedFormat, got %v", err)
			}
		})
	}
}

func TestFromBytes_ZeroDimensions(t *testing.T) {
	// GIF logical screen of 0x0 with no color table.
	header := []byte{'G', 'I', 'F', '8', '9', 'a', 0, 0, 0, 0, 0, 0, 0}

	_, _, err := FromBytes(header)
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	if err := os.WriteFile(path, encode(t, "png", 8, 4), 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	dims, _, err := FromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dims.String() != "8x4" {
		t.Errorf("expected 8x4, got %s", dims)
	}

	if _, _, err := FromFile(filepath.Join(dir, "missing.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
	}{
		{"a.png", FormatRaster},
		{"A.JPG", FormatRaster},
		{"photo.webp", FormatRaster},
		{"https://cdn.example.com/x.png?w=200", FormatRaster},
		{"logo.svg", FormatVector},
		{"logo.svg#icon", FormatVector},
		{"photo.avif", FormatUnknown},
		{"noext", FormatUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := DetectFormat(tc.path); got != tc.expected {
				t.Errorf("DetectFormat(%q) = %s, want %s", tc.path, got, tc.expected)
			}
		})
	}
}

func TestFormats(t *testing.T) {
	list := Formats()
	supported := 0
	for _, f := range list {
		if f.Supported {
			supported++
		}
	}
	if supported != 6 {
		t.Errorf("expected 6 supported formats, got %d", supported)
	}

	list[0].Name = "changed"
	if Formats()[0].Name == "changed" {
		t.Error("Formats must return a copy")
	}
}
