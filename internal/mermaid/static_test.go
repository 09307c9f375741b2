package mermaid_test

import (
	"testing"

	"github.com/HendryAvila/mermaidguard/internal/mermaid"
)

func hasKind(issues []mermaid.Issue, k mermaid.Kind) bool {
	for _, is := range issues {
		if is.Kind == k {
			return true
		}
	}
	return false
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name    string
		diagram string
		want    string
	}{
		{"graph", "graph TD\nA-->B", "graph"},
		{"leading comment", "%% title\n\nsequenceDiagram\nA->>B: hi", "sequenceDiagram"},
		{"state v2", "stateDiagram-v2\n[*] --> A", "stateDiagram-v2"},
		{"unknown", "foo\nA-->B", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mermaid.DetectType(tt.diagram); got != tt.want {
				t.Errorf("DetectType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLint_ValidDiagrams(t *testing.T) {
	tests := []struct {
		name    string
		diagram string
	}{
		{"flowchart", "graph TD\n    A[Start] --> B{Decision}\n    B -->|Yes| C[Done]\n"},
		{"asymmetric shape", "flowchart LR\n    A>Flag] --> B\n"},
		{"er", "erDiagram\n    CUSTOMER ||--o{ ORDER : places\n"},
		{"sequence with parens in text", "sequenceDiagram\n    A->>B: call (x\n"},
		{"class", "classDiagram\n    Animal <|-- Duck\n"},
		{"subgraph", "graph TD\n    subgraph One\n    A --> B\n    end\n"},
		{"sequence loop", "sequenceDiagram\n    loop Every minute\n    A->>B: ping\n    end\n"},
		{"sequence async arrow", "sequenceDiagram\n    A-)B: async\n"},
		{"sequence dotted async arrow", "sequenceDiagram\n    A--)B: async\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := mermaid.Lint(tt.diagram)
			if mermaid.HasErrors(issues, false) {
				t.Errorf("expected no errors, got %v", issues)
			}
		})
	}
}

func TestLint_DetectsProblems(t *testing.T) {
	tests := []struct {
		name    string
		diagram string
		kind    mermaid.Kind
	}{
		{"empty", "", mermaid.KindEmpty},
		{"missing declaration", "A --> B\nB --> C", mermaid.KindDiagramType},
		{"unbalanced brackets", "graph TD\nA[Start --> B", mermaid.KindUnbalancedBrackets},
		{"unclosed subgraph", "graph TD\nsubgraph One\nA --> B\n", mermaid.KindUnbalancedBlocks},
		{"unclosed quote", "graph TD\nA[\"hello] --> B", mermaid.KindUnclosedQuote},
		{"duplicate participant", "sequenceDiagram\nparticipant A\nparticipant A\nA->>A: hi", mermaid.KindDuplicateID},
		{"stereotype", "classDiagram\nclass A\n<<@interface>> A", mermaid.KindStereotype},
		{"er in class", "classDiagram\nA ||--o{ B", mermaid.KindERInClass},
		{"dangling arrow", "graph TD\nA -->", mermaid.KindDanglingArrow},
		{"multiple declarations", "graph TD\nA --> B\ngraph LR\nB --> C", mermaid.KindMultipleDeclarations},
		{"subgraph id clash", "graph TD\nsubgraph API\nA --> B\nend\nAPI[Gateway] --> A", mermaid.KindDuplicateID},
		{"empty sequence", "sequenceDiagram\n%% nothing", mermaid.KindEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := mermaid.Lint(tt.diagram)
			if !hasKind(issues, tt.kind) {
				t.Errorf("expected %s issue, got %v", tt.kind, issues)
			}
			if !mermaid.HasErrors(issues, false) {
				t.Errorf("expected errors, got only %v", issues)
			}
		})
	}
}

func TestLint_WarningsOnlyBlockInStrictMode(t *testing.T) {
	issues := mermaid.Lint("graph TD\n1 --> 2\n")
	if !hasKind(issues, mermaid.KindNumericNodeID) {
		t.Fatalf("expected numeric id warning, got %v", issues)
	}
	if mermaid.HasErrors(issues, false) {
		t.Error("warnings should not count as errors in normal mode")
	}
	if !mermaid.HasErrors(issues, true) {
		t.Error("warnings should count as errors in strict mode")
	}
}

func TestLint_ChainedArrowsWarn(t *testing.T) {
	issues := mermaid.Lint("graph TD\nA --> B --> C\n")
	if !hasKind(issues, mermaid.KindChainedArrows) {
		t.Errorf("expected chained arrow warning, got %v", issues)
	}
	if mermaid.HasErrors(issues, false) {
		t.Errorf("chained arrows are valid mermaid, got %v", issues)
	}
}

func TestIssue_String(t *testing.T) {
	is := mermaid.Issue{Line: 3, Message: "boom"}
	if got := is.String(); got != "line 3: boom" {
		t.Errorf("String() = %q", got)
	}
	is.Line = 0
	if got := is.String(); got != "boom" {
		t.Errorf("String() = %q", got)
	}
}
