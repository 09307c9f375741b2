package mermaid

import (
	"context"
	"regexp"
	"strings"
)

// StaticChecker lints diagrams without rendering them. It catches the
// structural mistakes that make mermaid-cli fail and never returns an error.
type StaticChecker struct{}

// Check implements Checker.
func (StaticChecker) Check(_ context.Context, diagram string) ([]Issue, error) {
	return Lint(diagram), nil
}

var (
	erCardinality   = regexp.MustCompile(`[|}o]{1,2}(?:--|\.\.)[|{o]{1,2}`)
	asymmetricShape = regexp.MustCompile(`(\w)>([^\]\n]*)\]`)
	danglingArrow   = regexp.MustCompile(`(?:--+[>ox]?|==+>?|-\.+->|->>|-[x)])$`)
	numericNodeID   = regexp.MustCompile(`(?:^|[\s&>|])(\d\w*)`)
	subgraphID      = regexp.MustCompile(`^\s*subgraph\s+([A-Za-z_][\w-]*)`)
	shapedNode      = regexp.MustCompile(`(?:^|[\s&>|])([A-Za-z_]\w*)\s*[\[\(\{]`)
	participantDecl = regexp.MustCompile(`^\s*(?:participant|actor)\s+("[^"]+"|[^\s]+)`)
	classRelation   = regexp.MustCompile(`(<\|--|--\|>|\*--|--\*|o--|--o|-->|<--|\.\.>|<\.\.|\.\.\|>|<\|\.\.|--|\.\.)`)
	erInClass       = regexp.MustCompile(`\|\|--\|\||\|\|--o\{|\}o--o\{|\|o--o\|`)
	wordEnd         = regexp.MustCompile(`^\s*end\s*$`)
)

// styleStatements are flowchart lines whose tokens are not node ids.
var styleStatements = []string{"style ", "linkStyle ", "classDef ", "class ", "click "}

// sequenceBlocks open a block that must be closed by "end".
var sequenceBlocks = []string{"loop", "alt", "opt", "par", "critical", "break", "rect", "box"}

// Lint runs every static check over a diagram.
func Lint(diagram string) []Issue {
	if strings.TrimSpace(diagram) == "" {
		return []Issue{errorf(KindEmpty, 0, "empty diagram")}
	}

	lines := strings.Split(diagram, "\n")
	idx, first := firstStatement(lines)
	typ := declarationOf(first)
	fam := familyOf(typ)

	var issues []Issue
	if typ == "" {
		issues = append(issues, errorf(KindDiagramType, idx+1,
			"unknown diagram type or missing declaration: %q", truncate(strings.TrimSpace(first), 50)))
	}

	issues = append(issues, lintDeclarations(lines, idx)...)
	issues = append(issues, lintQuotes(lines)...)
	issues = append(issues, lintBalance(lines, fam)...)
	issues = append(issues, lintBlocks(lines, fam)...)
	issues = append(issues, lintStereotypes(lines)...)

	switch fam {
	case familyFlowchart:
		issues = append(issues, lintFlowchart(lines, idx)...)
	case familySequence:
		issues = append(issues, lintSequence(lines, idx)...)
	case familyClass:
		issues = append(issues, lintClass(lines, idx)...)
	case familyState:
		if typ == "stateDiagram" {
			issues = append(issues, warnf(KindSyntax, idx+1, "stateDiagram is legacy syntax, use stateDiagram-v2"))
		}
	}

	if countStatements(lines) < 2 {
		issues = append(issues, warnf(KindEmpty, 0, "diagram too short - may be incomplete"))
	}
	return issues
}

func countStatements(lines []string) int {
	n := 0
	for _, line := range lines {
		if !isBlankOrComment(line) {
			n++
		}
	}
	return n
}

func lintDeclarations(lines []string, first int) []Issue {
	var issues []Issue
	for i := first + 1; i < len(lines) && first >= 0; i++ {
		if isBlankOrComment(lines[i]) {
			continue
		}
		if declarationOf(lines[i]) != "" && len(strings.Fields(stripComment(lines[i]))) <= 2 {
			issues = append(issues, errorf(KindMultipleDeclarations, i+1,
				"multiple diagram type declarations: %q", strings.TrimSpace(lines[i])))
		}
	}
	return issues
}

func lintQuotes(lines []string) []Issue {
	var issues []Issue
	for i, line := range lines {
		if isBlankOrComment(line) {
			continue
		}
		if quoteCount(line)%2 != 0 {
			issues = append(issues, errorf(KindUnclosedQuote, i+1, "unclosed quotes"))
		}
	}
	return issues
}

// asyncArrow matches the -) and --) sequence message arrows.
var asyncArrow = regexp.MustCompile(`--?\)`)

// balanceText returns the part of a line whose brackets must balance.
func balanceText(line string, fam family) string {
	line = stripComment(line)
	switch fam {
	case familyER:
		line = erCardinality.ReplaceAllString(line, "--")
	case familyFlowchart:
		line = asymmetricShape.ReplaceAllString(line, "$1[$2]")
	case familySequence:
		line = asyncArrow.ReplaceAllString(line, "->")
		if i := strings.Index(line, ":"); i >= 0 {
			line = line[:i]
		}
	}
	return unquoted(line)
}

// unquoted drops the text between double quotes.
func unquoted(line string) string {
	parts := strings.Split(line, `"`)
	var b strings.Builder
	for i := 0; i < len(parts); i += 2 {
		b.WriteString(parts[i])
	}
	return b.String()
}

func lintBalance(lines []string, fam family) []Issue {
	if fam == familyOther {
		return nil
	}
	var text strings.Builder
	for _, line := range lines {
		if isBlankOrComment(line) {
			continue
		}
		text.WriteString(balanceText(line, fam))
		text.WriteByte('\n')
	}
	s := text.String()

	var issues []Issue
	pairs := []struct {
		open, close string
		name        string
	}{
		{"[", "]", "square brackets"},
		{"{", "}", "curly braces"},
		{"(", ")", "parentheses"},
	}
	for _, p := range pairs {
		o, c := strings.Count(s, p.open), strings.Count(s, p.close)
		if o != c {
			issues = append(issues, errorf(KindUnbalancedBrackets, 0,
				"unbalanced %s: %d %s vs %d %s", p.name, o, p.open, c, p.close))
		}
	}
	return issues
}

// blockOpeners returns the keywords that open an end-terminated block.
func blockOpeners(fam family) []string {
	switch fam {
	case familyFlowchart, familyUnknown:
		return []string{"subgraph"}
	case familySequence:
		return sequenceBlocks
	}
	return nil
}

func opensBlock(line string, openers []string) bool {
	t := strings.TrimSpace(line)
	for _, kw := range openers {
		if t == kw || strings.HasPrefix(t, kw+" ") || strings.HasPrefix(t, kw+"\t") {
			return true
		}
	}
	return false
}

func lintBlocks(lines []string, fam family) []Issue {
	openers := blockOpeners(fam)
	if len(openers) == 0 {
		return nil
	}
	opened, ended := 0, 0
	for _, line := range lines {
		if isComment(line) {
			continue
		}
		switch {
		case opensBlock(line, openers):
			opened++
		case wordEnd.MatchString(line):
			ended++
		}
	}
	if opened == ended {
		return nil
	}
	what := "subgraphs"
	if fam == familySequence {
		what = "blocks"
	}
	return []Issue{errorf(KindUnbalancedBlocks, 0, "unbalanced subgraph/end: %d %s, %d ends", opened, what, ended)}
}

func lintStereotypes(lines []string) []Issue {
	var issues []Issue
	for i, line := range lines {
		if !isComment(line) && strings.Contains(line, "<<@") {
			issues = append(issues, errorf(KindStereotype, i+1, "invalid @ symbol in stereotype"))
		}
	}
	return issues
}

func isStyleStatement(line string) bool {
	t := strings.TrimSpace(line)
	for _, p := range styleStatements {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

func lintFlowchart(lines []string, decl int) []Issue {
	var issues []Issue
	hasContent := false
	subgraphs := map[string]int{}
	nodes := map[string]bool{}

	for i := decl + 1; i < len(lines); i++ {
		line := lines[i]
		if isBlankOrComment(line) {
			continue
		}
		hasContent = true
		t := strings.TrimSpace(stripComment(line))

		if m := subgraphID.FindStringSubmatch(line); m != nil {
			subgraphs[m[1]] = i + 1
			continue
		}
		if isStyleStatement(line) || t == "end" {
			continue
		}

		masked := mask(t)
		if danglingArrow.MatchString(masked) {
			issues = append(issues, errorf(KindDanglingArrow, i+1, "arrow pointing to nothing"))
		}
		if strings.Count(masked, "-->") > 1 {
			issues = append(issues, warnf(KindChainedArrows, i+1, "multiple arrows on same line"))
		}
		if numericNodeID.MatchString(masked) {
			issues = append(issues, warnf(KindNumericNodeID, i+1, "node IDs starting with numbers may cause issues"))
		}
		for _, m := range shapedNode.FindAllStringSubmatch(masked, -1) {
			nodes[m[1]] = true
		}
	}

	if !hasContent {
		issues = append(issues, errorf(KindEmpty, decl+1, "flowchart has no nodes or connections"))
	}
	for id, line := range subgraphs {
		if nodes[id] {
			issues = append(issues, errorf(KindDuplicateID, line, "duplicate id %q used by a subgraph and a node", id))
		}
	}
	return issues
}

func lintSequence(lines []string, decl int) []Issue {
	var issues []Issue
	hasParticipants, hasMessages := false, false
	seen := map[string]bool{}

	for i := decl + 1; i < len(lines); i++ {
		line := lines[i]
		if isBlankOrComment(line) {
			continue
		}
		if m := participantDecl.FindStringSubmatch(line); m != nil {
			hasParticipants = true
			name := strings.Trim(m[1], `"`)
			if seen[name] {
				issues = append(issues, errorf(KindDuplicateID, i+1, "duplicate participant %q", name))
			}
			seen[name] = true
			continue
		}
		t := strings.TrimSpace(line)
		if strings.Contains(t, "->") || strings.Contains(t, "-x") || strings.Contains(t, "-)") {
			hasMessages = true
			if !strings.Contains(t, ":") && !strings.HasPrefix(t, "Note") && danglingArrow.MatchString(t) {
				issues = append(issues, errorf(KindDanglingArrow, i+1, "arrow pointing to nothing"))
			}
		}
	}
	if !hasParticipants && !hasMessages {
		issues = append(issues, errorf(KindEmpty, decl+1, "sequence diagram missing participants and messages"))
	}
	return issues
}

func lintClass(lines []string, decl int) []Issue {
	var issues []Issue
	hasClasses := false
	for i := decl + 1; i < len(lines); i++ {
		line := lines[i]
		if isBlankOrComment(line) {
			continue
		}
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "class ") || classRelation.MatchString(t) {
			hasClasses = true
		}
		if erInClass.MatchString(t) {
			issues = append(issues, errorf(KindERInClass, i+1, "ER diagram syntax in class diagram"))
		}
	}
	if !hasClasses {
		issues = append(issues, errorf(KindEmpty, decl+1, "class diagram has no class definitions"))
	}
	return issues
}
