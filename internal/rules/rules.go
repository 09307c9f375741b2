// Package rules holds the Mermaid prevention rules handed to agents before
// they write diagrams.
package rules

import (
	_ "embed"
	"strings"

	"github.com/HendryAvila/mermaidguard/internal/mermaid"
)

//go:embed rules.md
var markdown string

// Markdown returns the full rules document.
func Markdown() string {
	return markdown
}

// Section returns the "## name" section of the rules, heading included, or
// "" when there is no such section.
func Section(name string) string {
	lines := strings.Split(markdown, "\n")
	start := -1
	for i, l := range lines {
		if !strings.HasPrefix(l, "## ") {
			continue
		}
		if start >= 0 {
			return strings.TrimSpace(strings.Join(lines[start:i], "\n")) + "\n"
		}
		if strings.EqualFold(strings.TrimPrefix(l, "## "), name) {
			start = i
		}
	}
	if start < 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n")) + "\n"
}

// ForType returns the general rules followed by the section for a diagram
// type as reported by mermaid.DetectType. Family names such as "sequence"
// are accepted too.
func ForType(diagramType string) string {
	general := Section("General")
	var name string
	switch strings.ToLower(diagramType) {
	case "graph", "flowchart":
		name = "Flowchart"
	case "sequencediagram", "sequence":
		name = "Sequence"
	case "classdiagram", "class":
		name = "Class"
	case "statediagram", "statediagram-v2", "state":
		name = "State"
	case "erdiagram", "er":
		name = "ER"
	default:
		return general
	}
	return general + "\n" + Section(name)
}

// ForDiagram returns the rules relevant to diagram.
func ForDiagram(diagram string) string {
	return ForType(mermaid.DetectType(diagram))
}
