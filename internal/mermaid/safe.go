package mermaid

import (
	"regexp"
	"strings"
)

var (
	excessBlankLines = regexp.MustCompile(`\n{3,}`)
	noteSpacing      = regexp.MustCompile(`(Note\s+(?:over|right of|left of)\s+[^:\n]+:)[ \t]{2,}`)
	atStereotype     = regexp.MustCompile(`<<@(\w+)>>`)
	escapedBreak     = regexp.MustCompile(`\\<br\s*/?\\>`)
	longArrow        = regexp.MustCompile(`-{3,}>`)
	spacedArrow      = regexp.MustCompile(`--[ \t]+>`)
)

// ApplyBasicFixes applies the universal whitespace fixes: trailing
// whitespace is removed, %% comments start at column 1, runs of blank lines
// collapse to one, and the text ends with a newline.
func ApplyBasicFixes(diagram string) string {
	lines := strings.Split(diagram, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if isComment(line) {
			line = strings.TrimSpace(line)
		}
		lines[i] = line
	}
	out := strings.Join(lines, "\n")
	out = excessBlankLines.ReplaceAllString(out, "\n\n")
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

// ApplySafeFixes applies the prevention rules: the basic fixes plus
// rewrites of patterns that never render correctly.
func ApplySafeFixes(diagram string) string {
	out := ApplyBasicFixes(diagram)
	out = noteSpacing.ReplaceAllString(out, "$1 ")
	out = atStereotype.ReplaceAllString(out, "<<$1>>")
	out = escapedBreak.ReplaceAllString(out, "<br/>")
	out = longArrow.ReplaceAllString(out, "-->")
	out = spacedArrow.ReplaceAllString(out, "-->")
	return out
}
