package markup

import (
	"regexp"
	"strings"
)

const (
	imgMarker        = "<img"
	sourceMarker     = "<source"
	pictureMarker    = "<picture"
	pictureCloseMark = "</picture>"
)

var (
	sourceTagPattern = regexp.MustCompile(`<source\b[^>]*>`)
	imgTagPattern    = regexp.MustCompile(`<img\b[^>]*>`)
)

// Locate finds the image markup enclosing offset.
//
// When offset falls inside the opening tag of a <picture> element the whole block is
// returned. Otherwise the nearest <img> or <source> tag starting at or before offset
// is returned, provided offset lies within it.
func Locate(text string, offset int) (Match, bool) {
	if offset < 0 || offset > len(text) {
		return Match{}, false
	}

	if m, ok := locatePicture(text, offset); ok {
		return m, true
	}

	sourceStart := lastIndexFrom(text, sourceMarker, offset)
	imgStart := lastIndexFrom(text, imgMarker, offset)

	var start int
	var kind Kind
	switch {
	case sourceStart != -1 && imgStart != -1:
		if sourceStart > imgStart {
			start, kind = sourceStart, KindSource
		} else {
			start, kind = imgStart, KindImg
		}
	case sourceStart != -1:
		start, kind = sourceStart, KindSource
	case imgStart != -1:
		start, kind = imgStart, KindImg
	default:
		return Match{}, false
	}

	end := tagEnd(text, start)
	if end == -1 {
		return Match{}, false
	}

	span := Span{Start: start, End: end + 1}
	if !span.Contains(offset) {
		return Match{}, false
	}

	return Match{Kind: kind, Span: span, Raw: text[span.Start:span.End]}, true
}

// locatePicture returns the picture block whose opening tag holds offset.
func locatePicture(text string, offset int) (Match, bool) {
	start := lastIndexFrom(text, pictureMarker, offset)
	if start == -1 {
		return Match{}, false
	}

	openEnd := tagEnd(text, start)
	if openEnd == -1 || offset > openEnd {
		return Match{}, false
	}

	closeIdx := strings.Index(text[openEnd+1:], pictureCloseMark)
	if closeIdx == -1 {
		return Match{}, false
	}

	span := Span{Start: start, End: openEnd + 1 + closeIdx + len(pictureCloseMark)}
	return Match{Kind: KindPicture, Span: span, Raw: text[span.Start:span.End]}, true
}

// PictureTags lists the <source> tags of a picture block followed by its <img> tags.
// Spans are relative to block.
func PictureTags(block string) []Match {
	var tags []Match
	for _, loc := range sourceTagPattern.FindAllStringIndex(block, -1) {
		tags = append(tags, Match{Kind: KindSource, Span: Span{Start: loc[0], End: loc[1]}, Raw: block[loc[0]:loc[1]]})
	}
	for _, loc := range imgTagPattern.FindAllStringIndex(block, -1) {
		tags = append(tags, Match{Kind: KindImg, Span: Span{Start: loc[0], End: loc[1]}, Raw: block[loc[0]:loc[1]]})
	}
	return tags
}

// lastIndexFrom returns the index of the last occurrence of needle that starts at or
// before from, or -1.
func lastIndexFrom(text, needle string, from int) int {
	limit := from + len(needle)
	if limit > len(text) {
		limit = len(text)
	}
	return strings.LastIndex(text[:limit], needle)
}

// tagEnd returns the index of the '>' closing the tag that starts at start.
// A '>' inside a quoted attribute value does not close the tag. If the quotes never
// balance, the first '>' after start is used instead.
func tagEnd(text string, start int) int {
	var quote byte
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i
		}
	}

	idx := strings.IndexByte(text[start:], '>')
	if idx == -1 {
		return -1
	}
	return start + idx
}
