package mermaid_test

import (
	"testing"

	"github.com/HendryAvila/mermaidguard/internal/mermaid"
)

func TestApplyBasicFixes(t *testing.T) {
	in := "graph TD  \n   %% note\nA-->B\n\n\n\nB-->C"
	want := "graph TD\n%% note\nA-->B\n\nB-->C\n"
	if got := mermaid.ApplyBasicFixes(in); got != want {
		t.Errorf("ApplyBasicFixes() =\n%q\nwant\n%q", got, want)
	}
}

func TestApplySafeFixes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"stereotype", "classDiagram\nclass A <<@service>>", "classDiagram\nclass A <<service>>\n"},
		{"note spacing", "sequenceDiagram\nNote over A:   hello", "sequenceDiagram\nNote over A: hello\n"},
		{"long arrow", "graph TD\nA ---> B", "graph TD\nA --> B\n"},
		{"spaced arrow", "graph TD\nA -- > B", "graph TD\nA --> B\n"},
		{"escaped break", "graph TD\nA[\"x\\<br/\\>y\"]", "graph TD\nA[\"x<br/>y\"]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mermaid.ApplySafeFixes(tt.in); got != tt.want {
				t.Errorf("ApplySafeFixes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name string
		kind mermaid.Kind
		in   string
		want string
	}{
		{
			"unquoted parens",
			mermaid.KindUnquotedParens,
			"graph TD\nA[Process (main)] --> B",
			"graph TD\nA[\"Process (main)\"] --> B",
		},
		{
			"cylinder shape untouched",
			mermaid.KindUnquotedParens,
			"graph TD\nA[(Database)] --> B",
			"graph TD\nA[(Database)] --> B",
		},
		{
			"label quotes",
			mermaid.KindLabelQuotes,
			"graph TD\nA[Say \"hi\" & bye] --> B",
			"graph TD\nA[\"Say #quot;hi#quot; & bye\"] --> B",
		},
		{
			"special chars",
			mermaid.KindSpecialChars,
			"graph TD\nA{x > y} --> B(Step: one)",
			"graph TD\nA{\"x > y\"} --> B(\"Step: one\")",
		},
		{
			"unclosed quote",
			mermaid.KindUnclosedQuote,
			"graph TD\nA[\"hello] --> B",
			"graph TD\nA[\"hello\"] --> B",
		},
		{
			"unclosed quote in message",
			mermaid.KindUnclosedQuote,
			"sequenceDiagram\nA->>B: say \"hi",
			"sequenceDiagram\nA->>B: say \"hi\"",
		},
		{
			"missing end",
			mermaid.KindUnbalancedBlocks,
			"graph TD\nsubgraph One\nA --> B\n",
			"graph TD\nsubgraph One\nA --> B\nend\n",
		},
		{
			"extra end",
			mermaid.KindUnbalancedBlocks,
			"graph TD\nA --> B\nend",
			"graph TD\nA --> B",
		},
		{
			"sequence loop end",
			mermaid.KindUnbalancedBlocks,
			"sequenceDiagram\nloop Every minute\nA->>B: ping",
			"sequenceDiagram\nloop Every minute\nA->>B: ping\nend",
		},
		{
			"diagram type typo",
			mermaid.KindDiagramType,
			"sequenceDiagam\nA->>B: hi",
			"sequenceDiagram\nA->>B: hi",
		},
		{
			"diagram type alias",
			mermaid.KindDiagramType,
			"sequence\nA->>B: hi",
			"sequenceDiagram\nA->>B: hi",
		},
		{
			"inferred flowchart header",
			mermaid.KindDiagramType,
			"A --> B\nB --> C",
			"graph TD\nA --> B\nB --> C",
		},
		{
			"inferred state header",
			mermaid.KindDiagramType,
			"[*] --> Idle",
			"stateDiagram-v2\n[*] --> Idle",
		},
		{
			"numeric ids",
			mermaid.KindNumericNodeID,
			"graph TD\n1[Start] --> 2[End]\nstyle 1 fill:#f9f",
			"graph TD\nN1[Start] --> N2[End]\nstyle N1 fill:#f9f",
		},
		{
			"dangling arrow",
			mermaid.KindDanglingArrow,
			"graph TD\nA --> B\nB -->",
			"graph TD\nA --> B\nB",
		},
		{
			"er in class",
			mermaid.KindERInClass,
			"classDiagram\nA ||--o{ B",
			"classDiagram\nA \"1\" --o \"*\" B",
		},
		{
			"er missing label",
			mermaid.KindMissingColon,
			"erDiagram\nCUSTOMER ||--o{ ORDER",
			"erDiagram\nCUSTOMER ||--o{ ORDER : \"\"",
		},
		{
			"class member colon",
			mermaid.KindMissingColon,
			"classDiagram\nAnimal +int age",
			"classDiagram\nAnimal : +int age",
		},
		{
			"state label colon",
			mermaid.KindMissingColon,
			"stateDiagram-v2\nIdle --> Busy start job",
			"stateDiagram-v2\nIdle --> Busy : start job",
		},
		{
			"multiple declarations",
			mermaid.KindMultipleDeclarations,
			"graph TD\nA --> B\ngraph LR\nB --> C",
			"graph TD\nA --> B\nB --> C",
		},
		{
			"duplicate participant",
			mermaid.KindDuplicateID,
			"sequenceDiagram\nparticipant A\nparticipant A\nA->>A: hi",
			"sequenceDiagram\nparticipant A\nA->>A: hi",
		},
		{
			"subgraph id clash",
			mermaid.KindDuplicateID,
			"graph TD\nsubgraph API\nA --> B\nend\nAPI[Gateway] --> A",
			"graph TD\nsubgraph API_group\nA --> B\nend\nAPI[Gateway] --> A",
		},
		{
			"legacy state diagram",
			mermaid.KindSyntax,
			"stateDiagram\n[*] --> A",
			"stateDiagram-v2\n[*] --> A",
		},
		{
			"mismatched closer",
			mermaid.KindUnbalancedBrackets,
			"graph TD\nA[Start) --> B",
			"graph TD\nA[Start] --> B",
		},
		{
			"unmatched closer",
			mermaid.KindUnbalancedBrackets,
			"graph TD\nA] --> B",
			"graph TD\nA --> B",
		},
		{
			"asymmetric shape kept",
			mermaid.KindUnbalancedBrackets,
			"graph TD\nA>Flag] --> B",
			"graph TD\nA>Flag] --> B",
		},
		{
			"arrow spacing",
			mermaid.KindTextFormatting,
			"graph TD\n    A-->B",
			"graph TD\n    A --> B",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mermaid.Repair(tt.kind, tt.in)
			if !ok {
				t.Fatalf("no repair registered for %s", tt.kind)
			}
			if got != tt.want {
				t.Errorf("Repair(%s) =\n%q\nwant\n%q", tt.kind, got, tt.want)
			}
		})
	}
}

func TestRepair_UnknownKind(t *testing.T) {
	if _, ok := mermaid.Repair(mermaid.KindRender, "graph TD"); ok {
		t.Error("render issues have no repair")
	}
}

func TestClassify(t *testing.T) {
	msg := "Error: Parse error on line 3:\n...A[foo(bar)]\n-----^\nExpecting 'SQE', 'DOUBLECIRCLEEND', 'PE', got 'PS'"
	kinds, line := mermaid.Classify(msg)
	if line != 3 {
		t.Errorf("line = %d, want 3", line)
	}
	if len(kinds) == 0 || kinds[0] != mermaid.KindUnquotedParens {
		t.Errorf("kinds = %v, want unquoted-parens first", kinds)
	}

	kinds, _ = mermaid.Classify("No diagram type detected matching given configuration")
	if len(kinds) != 1 || kinds[0] != mermaid.KindDiagramType {
		t.Errorf("kinds = %v, want [diagram-type]", kinds)
	}

	kinds, line = mermaid.Classify("something unexpected")
	if len(kinds) != 0 || line != 0 {
		t.Errorf("expected nothing, got %v line %d", kinds, line)
	}
}
