package probe

import (
	"path/filepath"
	"strings"
)

// Format classifies an image file by what the prober can do with it.
type Format int

const (
	FormatUnknown Format = iota
	FormatRaster
	FormatVector // no intrinsic pixel size
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatRaster:
		return "raster"
	case FormatVector:
		return "vector"
	default:
		return "unknown"
	}
}

// FormatInfo describes one image format for listings.
type FormatInfo struct {
	Name       string
	Extensions []string
	Supported  bool
	Note       string
}

var formats = []FormatInfo{
	{Name: "png", Extensions: []string{".png", ".apng"}, Supported: true},
	{Name: "jpeg", Extensions: []string{".jpg", ".jpeg", ".jfif", ".pjpeg"}, Supported: true},
	{Name: "gif", Extensions: []string{".gif"}, Supported: true},
	{Name: "webp", Extensions: []string{".webp"}, Supported: true},
	{Name: "bmp", Extensions: []string{".bmp"}, Supported: true},
	{Name: "tiff", Extensions: []string{".tif", ".tiff"}, Supported: true},
	{Name: "svg", Extensions: []string{".svg", ".svgz"}, Note: "vector, no pixel size"},
	{Name: "avif", Extensions: []string{".avif"}, Note: "no decoder available"},
	{Name: "heic", Extensions: []string{".heic", ".heif"}, Note: "no decoder available"},
	{Name: "ico", Extensions: []string{".ico", ".cur"}, Note: "no decoder available"},
}

// Formats lists the known image formats and whether dimensions can be read.
func Formats() []FormatInfo {
	out := make([]FormatInfo, len(formats))
	copy(out, formats)
	return out
}

// DetectFormat classifies a path or URL by its extension.
func DetectFormat(path string) Format {
	if i := strings.IndexAny(path, "?#"); i != -1 {
		path = path[:i]
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return FormatUnknown
	}
	for _, f := range formats {
		for _, e := range f.Extensions {
			if e != ext {
				continue
			}
			switch {
			case f.Name == "svg":
				return FormatVector
			case f.Supported:
				return FormatRaster
			default:
				return FormatUnknown
			}
		}
	}
	return FormatUnknown
}
