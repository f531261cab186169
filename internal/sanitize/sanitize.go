// Package sanitize cleans untrusted text before it reaches the reasoner or
// the snapshot store: Narsese input lines from MCP clients and scripts, and
// free-form snapshot labels.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxLineLength is the maximum length of one Narsese input line.
const MaxLineLength = 4096

// MaxLabelLength is the maximum length of a snapshot label.
const MaxLabelLength = 80

var (
	reRepeatedSpaces = regexp.MustCompile(` {2,}`)
	reRepeatedPunct  = regexp.MustCompile(`([-_.])[-_.]+`)
)

// Line prepares one Narsese input line. Control characters, including
// newlines, become spaces, so a line can never smuggle in a second
// sentence. The result is trimmed and cut at MaxLineLength; the parser
// rejects a truncated sentence.
func Line(input string) string {
	if input == "" {
		return ""
	}
	s := replaceControlChars(input)
	s = strings.TrimSpace(s)
	if len(s) > MaxLineLength {
		s = s[:MaxLineLength]
	}
	return s
}

// Label keeps only [a-zA-Z0-9 -_./:] in a snapshot label, collapses runs of
// spaces and punctuation, and enforces MaxLabelLength.
func Label(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '.' || r == '/' || r == ':':
			b.WriteRune(r)
		case r == '\t' || r == '\n':
			b.WriteRune(' ')
		}
	}
	s := reRepeatedSpaces.ReplaceAllString(b.String(), " ")
	s = reRepeatedPunct.ReplaceAllString(s, "$1")
	s = strings.TrimSpace(s)

	if len(s) > MaxLabelLength {
		s = strings.TrimSpace(s[:MaxLabelLength])
	}
	return s
}

// replaceControlChars maps ASCII control characters (0x00-0x1F, 0x7F) to spaces.
func replaceControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
