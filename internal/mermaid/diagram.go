package mermaid

import (
	"strings"
)

// KnownTypes lists the diagram declarations accepted as the first
// statement of a diagram.
var KnownTypes = []string{
	"graph", "flowchart",
	"sequenceDiagram",
	"classDiagram",
	"stateDiagram", "stateDiagram-v2",
	"erDiagram",
	"journey", "gantt", "pie",
	"quadrantChart", "requirementDiagram",
	"gitGraph", "mindmap", "timeline",
	"sankey", "sankey-beta", "block-beta",
	"C4Context", "C4Container", "C4Component", "C4Dynamic", "C4Deployment",
}

var knownTypeSet = func() map[string]bool {
	m := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		m[t] = true
	}
	return m
}()

// family groups diagram types that share statement syntax.
type family int

const (
	familyUnknown family = iota
	familyFlowchart
	familySequence
	familyClass
	familyState
	familyER
	familyOther
)

func familyOf(diagramType string) family {
	switch diagramType {
	case "":
		return familyUnknown
	case "graph", "flowchart":
		return familyFlowchart
	case "sequenceDiagram":
		return familySequence
	case "classDiagram":
		return familyClass
	case "stateDiagram", "stateDiagram-v2":
		return familyState
	case "erDiagram":
		return familyER
	default:
		return familyOther
	}
}

// DetectType returns the declared type of a diagram, or "" when the first
// statement is not a known declaration.
func DetectType(diagram string) string {
	_, line := firstStatement(strings.Split(diagram, "\n"))
	return declarationOf(line)
}

// declarationOf returns the diagram type a line declares, or "".
func declarationOf(line string) string {
	line = stripComment(strings.TrimSpace(line))
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	if knownTypeSet[fields[0]] {
		return fields[0]
	}
	return ""
}

// firstStatement returns the index and text of the first line that is
// neither blank nor a comment. The index is -1 when there is none.
func firstStatement(lines []string) (int, string) {
	for i, line := range lines {
		if isBlankOrComment(line) {
			continue
		}
		return i, line
	}
	return -1, ""
}

func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "%%")
}

func isBlankOrComment(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || strings.HasPrefix(t, "%%")
}

func stripComment(line string) string {
	if i := strings.Index(line, "%%"); i >= 0 {
		return strings.TrimSpace(line[:i])
	}
	return line
}

// mapLines applies fn to every statement line, leaving blank lines and
// comments untouched.
func mapLines(diagram string, fn func(line string) string) string {
	lines := strings.Split(diagram, "\n")
	for i, line := range lines {
		if isBlankOrComment(line) {
			continue
		}
		lines[i] = fn(line)
	}
	return strings.Join(lines, "\n")
}

// mask returns line with the interior of quoted strings, bracketed shapes
// and |edge labels| replaced by NUL bytes. Offsets are preserved, so a
// regexp match against the mask can be applied to the original line.
func mask(line string) string {
	b := []byte(line)
	var stack []byte
	inQuote := false
	inEdgeLabel := false
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case inQuote:
			if c == '"' {
				inQuote = false
			} else {
				b[i] = 0
			}
		case c == '"':
			inQuote = true
		case len(stack) > 0:
			switch c {
			case '[', '(', '{':
				stack = append(stack, closerOf(c))
				b[i] = 0
			case stack[len(stack)-1]:
				stack = stack[:len(stack)-1]
				if len(stack) > 0 {
					b[i] = 0
				}
			default:
				b[i] = 0
			}
		case inEdgeLabel:
			if c == '|' {
				inEdgeLabel = false
			} else {
				b[i] = 0
			}
		case c == '[' || c == '(' || c == '{':
			stack = append(stack, closerOf(c))
		case c == '|':
			inEdgeLabel = true
		}
	}
	return string(b)
}

func closerOf(c byte) byte {
	switch c {
	case '[':
		return ']'
	case '(':
		return ')'
	default:
		return '}'
	}
}

// quoteCount counts double quotes outside of comments.
func quoteCount(line string) int {
	return strings.Count(stripComment(line), `"`)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
