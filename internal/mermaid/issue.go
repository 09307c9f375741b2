// Package mermaid validates and repairs Mermaid diagram text.
//
// The pipeline mirrors how diagrams break in practice:
//
//   - ApplySafeFixes normalizes whitespace and a handful of patterns that
//     are always wrong (prevention rules).
//   - A Checker (static linter, mermaid-cli renderer, or a chain of both)
//     reports Issues classified by Kind.
//   - Fixer.Fix applies the repair registered for each Kind, retrying until
//     the diagram checks clean, stops changing, or MaxIterations is reached.
//
// Nothing here parses Mermaid properly. Checks and repairs are line-oriented
// pattern matching, which is enough for the mistakes generators usually make.
package mermaid

import (
	"context"
	"fmt"
)

// Kind classifies a diagram problem. Each Kind maps to at most one repair.
type Kind string

const (
	KindUnquotedParens       Kind = "unquoted-parens"
	KindMissingColon         Kind = "missing-colon"
	KindLabelQuotes          Kind = "label-quotes"
	KindSpecialChars         Kind = "special-chars"
	KindTextFormatting       Kind = "text-formatting"
	KindSyntax               Kind = "syntax"
	KindDuplicateID          Kind = "duplicate-id"
	KindDiagramType          Kind = "diagram-type"
	KindEmpty                Kind = "empty"
	KindUnbalancedBrackets   Kind = "unbalanced-brackets"
	KindUnbalancedBlocks     Kind = "unbalanced-subgraph"
	KindNumericNodeID        Kind = "numeric-node-id"
	KindUnclosedQuote        Kind = "unclosed-quote"
	KindDanglingArrow        Kind = "dangling-arrow"
	KindChainedArrows        Kind = "chained-arrows"
	KindStereotype           Kind = "stereotype"
	KindERInClass            Kind = "er-in-class"
	KindMultipleDeclarations Kind = "multiple-declarations"
	KindRender               Kind = "render"
)

// Severity tells whether an Issue makes a diagram invalid.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single problem found in a diagram.
type Issue struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	// Line is 1-based within the diagram, 0 when unknown.
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

// Checker reports the issues of a single diagram. A non-nil error means the
// check itself could not run; problems in the diagram are returned as Issues.
type Checker interface {
	Check(ctx context.Context, diagram string) ([]Issue, error)
}

// HasErrors reports whether issues contain anything that makes a diagram
// invalid. In strict mode warnings count as errors.
func HasErrors(issues []Issue, strict bool) bool {
	for _, is := range issues {
		if is.Severity == SeverityError || strict {
			return true
		}
	}
	return false
}

func errorf(kind Kind, line int, format string, args ...any) Issue {
	return Issue{Kind: kind, Severity: SeverityError, Line: line, Message: fmt.Sprintf(format, args...)}
}

func warnf(kind Kind, line int, format string, args ...any) Issue {
	return Issue{Kind: kind, Severity: SeverityWarning, Line: line, Message: fmt.Sprintf(format, args...)}
}
