// Package imageref extracts the image reference from a tag and resolves it against
// the document that contains it.
package imageref

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var srcsetSeparator = regexp.MustCompile(`[\s,]+`)

// Attrs returns the attributes of the first start tag in raw, keyed by lower-case name.
// Values are entity-decoded. When a name repeats, the first value wins.
func Attrs(raw string) map[string]string {
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return nil
		case html.StartTagToken, html.SelfClosingTagToken:
			attrs := make(map[string]string)
			_, more := z.TagName()
			for more {
				var key, val []byte
				key, val, more = z.TagAttr()
				name := string(key)
				if _, seen := attrs[name]; !seen {
					attrs[name] = string(val)
				}
			}
			return attrs
		}
	}
}

// Extract returns the image reference of a tag: the first candidate of its srcset
// if present, otherwise its src.
func Extract(raw string) (string, bool) {
	attrs := Attrs(raw)
	if srcset := strings.TrimSpace(attrs["srcset"]); srcset != "" {
		if first := FirstCandidate(srcset); first != "" {
			return first, true
		}
	}
	if src := strings.TrimSpace(attrs["src"]); src != "" {
		return src, true
	}
	return "", false
}

// FirstCandidate returns the first URL of a srcset value, dropping descriptors
// such as "2x" or "640w" and every later candidate.
func FirstCandidate(srcset string) string {
	for _, token := range srcsetSeparator.Split(srcset, -1) {
		if token != "" {
			return token
		}
	}
	return ""
}

// IsRemote reports whether ref is an http or https URL.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Resolve turns ref into an absolute path or a URL. Remote URLs and absolute paths
// are returned unchanged; file URLs become paths; anything else is taken relative to
// the directory of documentPath.
func Resolve(ref, documentPath string) string {
	if IsRemote(ref) || filepath.IsAbs(ref) {
		return ref
	}

	if strings.HasPrefix(ref, "file://") {
		if u, err := url.Parse(ref); err == nil && u.Path != "" {
			return filepath.FromSlash(u.Path)
		}
	}

	ref = stripQuery(ref)
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}

	resolved := filepath.Join(filepath.Dir(documentPath), filepath.FromSlash(ref))
	if abs, err := filepath.Abs(resolved); err == nil {
		return abs
	}
	return resolved
}

// stripQuery drops a query string or fragment from a local reference.
func stripQuery(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i != -1 {
		return ref[:i]
	}
	return ref
}
