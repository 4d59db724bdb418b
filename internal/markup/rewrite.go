package markup

import (
	"regexp"
	"strconv"
	"strings"
)

// attrValue matches a double-quoted, single-quoted or unquoted attribute value.
const attrValue = `(?:"[^"]*"|'[^']*'|[^\s"'>/]*)`

var (
	widthPattern   = attrPattern("width")
	heightPattern  = attrPattern("height")
	loadingPattern = attrPattern("loading")
)

// attrPattern builds a matcher for name=value including the whitespace before it.
// The leading whitespace keeps data-width and similar names from matching.
func attrPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\s+` + regexp.QuoteMeta(name) + `\s*=\s*` + attrValue)
}

// SetDimensions sets width and height on a tag, replacing existing attributes or
// inserting them before the closing '>'. Applying it twice with the same values
// yields the same text.
func SetDimensions(tag string, width, height int) string {
	tag = setAttr(tag, widthPattern, "width", strconv.Itoa(width))
	return setAttr(tag, heightPattern, "height", strconv.Itoa(height))
}

// SetLoadingLazy sets loading="lazy" on a tag.
func SetLoadingLazy(tag string) string {
	return setAttr(tag, loadingPattern, "loading", "lazy")
}

// setAttr replaces the first match of pattern that is not inside another
// attribute's quoted value with the canonical name="value" form, or inserts it
// when the attribute is absent.
func setAttr(tag string, pattern *regexp.Regexp, name, value string) string {
	attr := " " + name + `="` + value + `"`

	for _, loc := range pattern.FindAllStringIndex(tag, -1) {
		if quoted(tag, loc[0]) {
			continue
		}
		return tag[:loc[0]] + attr + tag[loc[1]:]
	}

	at := insertionPoint(tag)
	if at == -1 {
		return tag
	}
	return tag[:at] + attr + tag[at:]
}

// insertionPoint returns where a new attribute goes: before the final '>', or before
// the "/" of a self-closing tag together with the whitespace that precedes it.
// It returns -1 when the tag does not end with '>'.
func insertionPoint(tag string) int {
	if !strings.HasSuffix(tag, ">") {
		return -1
	}
	at := len(tag) - 1
	if at > 0 && tag[at-1] == '/' {
		at--
		for at > 0 && isSpace(tag[at-1]) {
			at--
		}
	}
	return at
}

// quoted reports whether position pos of tag lies inside a quoted attribute value.
func quoted(tag string, pos int) bool {
	var quote byte
	for i := 0; i < pos && i < len(tag); i++ {
		c := tag[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		}
	}
	return quote != 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
