// Package markup locates image markup around a cursor and rewrites tag attributes.
//
// Everything here is lexical. There is no DOM: a tag is the text between a start
// marker such as "<img" and its closing '>', and a picture block is the text between
// "<picture" and the next "</picture>".
package markup

// Kind identifies the construct a Match covers.
type Kind int

const (
	KindImg Kind = iota
	KindSource
	KindPicture
)

// String returns the tag name for the kind.
func (k Kind) String() string {
	switch k {
	case KindImg:
		return "img"
	case KindSource:
		return "source"
	case KindPicture:
		return "picture"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its tag name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Span is a byte range in a text. End is exclusive.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether offset lies within the span, counting the position
// right after the last byte as inside.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset <= s.End
}

// Match is a snapshot of one located construct.
// For KindImg and KindSource it is a single tag; for KindPicture it is the whole
// <picture>...</picture> block.
type Match struct {
	Kind Kind   `json:"kind"`
	Span Span   `json:"span"`
	Raw  string `json:"raw"`
}

// IsPicture reports whether the match is a picture block.
func (m Match) IsPicture() bool {
	return m.Kind == KindPicture
}

// Shift returns a copy of m with its span moved by delta bytes.
func (m Match) Shift(delta int) Match {
	m.Span.Start += delta
	m.Span.End += delta
	return m
}
