package commands

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// lineDiff returns a line-by-line diff of original and fixed with color
// highlighting. Unchanged lines are omitted.
func lineDiff(original, fixed string) string {
	if original == fixed {
		return ""
	}

	var buf bytes.Buffer
	originalLines := strings.Split(original, "\n")
	fixedLines := strings.Split(fixed, "\n")
	maxLines := max(len(originalLines), len(fixedLines))

	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	for i := 0; i < maxLines; i++ {
		var origLine, fixLine string
		if i < len(originalLines) {
			origLine = originalLines[i]
		}
		if i < len(fixedLines) {
			fixLine = fixedLines[i]
		}
		if origLine == fixLine {
			continue
		}

		cyan.Fprintf(&buf, "@@ Line %d @@\n", i+1)
		if i < len(originalLines) {
			red.Fprintf(&buf, "- %s\n", origLine)
		}
		if i < len(fixedLines) {
			green.Fprintf(&buf, "+ %s\n", fixLine)
		}
	}
	return buf.String()
}

// diffStats summarizes how many lines differ.
func diffStats(original, fixed string) string {
	originalLines := strings.Split(original, "\n")
	fixedLines := strings.Split(fixed, "\n")
	changed := 0
	for i := 0; i < max(len(originalLines), len(fixedLines)); i++ {
		if i >= len(originalLines) || i >= len(fixedLines) || originalLines[i] != fixedLines[i] {
			changed++
		}
	}
	return fmt.Sprintf("%d line(s) changed", changed)
}
