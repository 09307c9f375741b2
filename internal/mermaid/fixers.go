package mermaid

import (
	"regexp"
	"strings"
)

// repair is a named rewrite of a whole diagram. Repairs must return the
// input unchanged when they have nothing to do.
type repair struct {
	name string
	fn   func(diagram string) string
}

var repairs = map[Kind]repair{
	KindDiagramType:          {"fix diagram type declaration", fixDiagramType},
	KindMultipleDeclarations: {"remove extra diagram declarations", fixMultipleDeclarations},
	KindSyntax:               {"upgrade legacy syntax", fixSyntax},
	KindStereotype:           {"remove @ from stereotypes", fixStereotypes},
	KindTextFormatting:       {"normalize text formatting", fixTextFormatting},
	KindUnclosedQuote:        {"close unterminated quotes", fixUnclosedQuotes},
	KindUnquotedParens:       {"quote labels containing parentheses", fixUnquotedParens},
	KindLabelQuotes:          {"quote labels containing special characters", fixLabelQuotes},
	KindSpecialChars:         {"quote round and rhombus labels", fixSpecialChars},
	KindUnbalancedBrackets:   {"balance brackets", fixBracketBalance},
	KindUnbalancedBlocks:     {"balance block/end pairs", fixBlockBalance},
	KindMissingColon:         {"add missing colons", fixMissingColon},
	KindERInClass:            {"convert ER cardinality to class syntax", fixERInClass},
	KindDuplicateID:          {"resolve duplicate ids", fixDuplicateIDs},
	KindDanglingArrow:        {"remove dangling arrows", fixDanglingArrows},
	KindNumericNodeID:        {"prefix numeric node ids", fixNumericIDs},
}

// repairOrder is the order repairs run in when several kinds are reported
// together. Header and quote repairs come first because later repairs rely
// on the diagram type and on quotes being paired.
var repairOrder = []Kind{
	KindDiagramType,
	KindMultipleDeclarations,
	KindSyntax,
	KindStereotype,
	KindTextFormatting,
	KindUnclosedQuote,
	KindUnquotedParens,
	KindLabelQuotes,
	KindSpecialChars,
	KindUnbalancedBrackets,
	KindUnbalancedBlocks,
	KindMissingColon,
	KindERInClass,
	KindDuplicateID,
	KindDanglingArrow,
	KindNumericNodeID,
}

// aggressiveKinds are tried when the targeted repairs change nothing.
var aggressiveKinds = []Kind{
	KindUnquotedParens,
	KindMissingColon,
	KindLabelQuotes,
	KindSpecialChars,
	KindUnclosedQuote,
	KindUnbalancedBlocks,
}

// Repair applies the repair registered for kind. ok is false when kind has
// no repair.
func Repair(kind Kind, diagram string) (fixed string, ok bool) {
	r, ok := repairs[kind]
	if !ok {
		return diagram, false
	}
	return r.fn(diagram), true
}

// repairAll applies the repairs for kinds in repairOrder and returns the
// names of those that changed the diagram.
func repairAll(diagram string, kinds []Kind) (string, []string) {
	var applied []string
	for _, k := range repairOrder {
		if !containsKind(kinds, k) {
			continue
		}
		next := repairs[k].fn(diagram)
		if next != diagram {
			applied = append(applied, repairs[k].name)
			diagram = next
		}
	}
	return diagram, applied
}

// --- labels ---

var (
	squareWithParens = regexp.MustCompile(`(\w)\[([^"\[\]\n(/\\][^"\[\]\n]*\([^"\[\]\n]*)\]`)
	roundWithParens  = regexp.MustCompile(`(\w)\(([^"()\n]+\([^"()\n]*\)[^"()\n]*)\)`)
	squareLabel      = regexp.MustCompile(`(\w)\[([^\[\]\n]+)\]`)
	roundLabel       = regexp.MustCompile(`(\w)\(([^()\n]+)\)`)
	braceLabel       = regexp.MustCompile(`(\w)\{([^{}\n]+)\}`)
)

const (
	squareSpecials = `()<>{}#&;:|@%"`
	shapeSpecials  = `[]<>{}#&;:|@%"`
)

func labelFamily(diagram string) bool {
	fam := familyOf(DetectType(diagram))
	return fam == familyFlowchart || fam == familyUnknown
}

// rewriteLabels rewrites the label (group 2) of every match of re whose
// opening bracket is not nested inside another label or an edge label.
// fn returns the replacement label and whether to replace it.
func rewriteLabels(line string, re *regexp.Regexp, fn func(label string) (string, bool)) string {
	m := mask(line)
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringSubmatchIndex(line, -1) {
		if m[loc[3]] == 0 {
			continue
		}
		repl, ok := fn(line[loc[4]:loc[5]])
		if !ok {
			continue
		}
		b.WriteString(line[last:loc[4]])
		b.WriteString(repl)
		last = loc[5]
	}
	if last == 0 {
		return line
	}
	b.WriteString(line[last:])
	return b.String()
}

func isQuoted(label string) bool {
	return len(label) >= 2 && label[0] == '"' && label[len(label)-1] == '"' && strings.Count(label, `"`) == 2
}

func quoteLabel(label string) string {
	return `"` + strings.ReplaceAll(label, `"`, "#quot;") + `"`
}

func fixUnquotedParens(diagram string) string {
	if !labelFamily(diagram) {
		return diagram
	}
	quote := func(label string) (string, bool) { return quoteLabel(label), true }
	return mapLines(diagram, func(line string) string {
		if isStyleStatement(line) {
			return line
		}
		line = rewriteLabels(line, squareWithParens, quote)
		return rewriteLabels(line, roundWithParens, quote)
	})
}

func fixLabelQuotes(diagram string) string {
	if !labelFamily(diagram) {
		return diagram
	}
	return mapLines(diagram, func(line string) string {
		if isStyleStatement(line) {
			return line
		}
		return rewriteLabels(line, squareLabel, func(label string) (string, bool) {
			if isQuoted(label) || strings.ContainsAny(label[:1], `(/\[`) {
				return "", false
			}
			if !strings.ContainsAny(label, squareSpecials) {
				return "", false
			}
			return quoteLabel(label), true
		})
	})
}

func fixSpecialChars(diagram string) string {
	out := noteSpacing.ReplaceAllString(diagram, "$1 ")
	if !labelFamily(out) {
		return out
	}
	quote := func(label string) (string, bool) {
		if isQuoted(label) || strings.ContainsAny(label[:1], `([{`) {
			return "", false
		}
		if !strings.ContainsAny(label, shapeSpecials) {
			return "", false
		}
		return quoteLabel(label), true
	}
	return mapLines(out, func(line string) string {
		if isStyleStatement(line) {
			return line
		}
		line = rewriteLabels(line, roundLabel, quote)
		return rewriteLabels(line, braceLabel, quote)
	})
}

func fixUnclosedQuotes(diagram string) string {
	return mapLines(diagram, func(line string) string {
		if quoteCount(line)%2 == 0 {
			return line
		}
		last := strings.LastIndex(line, `"`)
		if i := strings.IndexAny(line[last+1:], "])}"); i >= 0 {
			at := last + 1 + i
			return line[:at] + `"` + line[at:]
		}
		return line + `"`
	})
}

// --- structure ---

var (
	typoFixes = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`\bsequenceDiagam\b`), "sequenceDiagram"},
		{regexp.MustCompile(`\bsequenceDigram\b`), "sequenceDiagram"},
		{regexp.MustCompile(`\bclassDiagam\b`), "classDiagram"},
		{regexp.MustCompile(`\bstateDiagam\b`), "stateDiagram"},
		{regexp.MustCompile(`\berDiagam\b`), "erDiagram"},
		{regexp.MustCompile(`\bflowchat\b`), "flowchart"},
		{regexp.MustCompile(`\bgrah\b`), "graph"},
		{regexp.MustCompile(`\bgrpah\b`), "graph"},
		{regexp.MustCompile(`\bsublgraph\b`), "subgraph"},
		{regexp.MustCompile(`\bparicipant\b`), "participant"},
		{regexp.MustCompile(`\bparticpant\b`), "participant"},
	}

	typeAliases = map[string]string{
		"flow":     "flowchart TD",
		"sequence": "sequenceDiagram",
		"class":    "classDiagram",
		"state":    "stateDiagram-v2",
		"er":       "erDiagram",
	}

	classDeclLine = regexp.MustCompile(`(?m)^\s*class\s+\w+\s*\{?\s*$`)
)

// inferHeader guesses the declaration of a diagram that has none.
func inferHeader(diagram string) string {
	switch {
	case strings.Contains(diagram, "participant") || strings.Contains(diagram, "->>") || strings.Contains(diagram, "activate "):
		return "sequenceDiagram"
	case strings.Contains(diagram, "[*]"):
		return "stateDiagram-v2"
	case erCardinality.MatchString(diagram):
		return "erDiagram"
	case strings.Contains(diagram, "<|--") || classDeclLine.MatchString(diagram):
		return "classDiagram"
	}
	return "graph TD"
}

func fixDiagramType(diagram string) string {
	for _, t := range typoFixes {
		diagram = t.re.ReplaceAllString(diagram, t.repl)
	}
	lines := strings.Split(diagram, "\n")
	idx, first := firstStatement(lines)
	if idx < 0 || declarationOf(first) != "" {
		return diagram
	}
	if header, ok := typeAliases[strings.TrimSpace(stripComment(first))]; ok {
		lines[idx] = header
		return strings.Join(lines, "\n")
	}
	header := inferHeader(diagram)
	lines = append(lines[:idx], append([]string{header}, lines[idx:]...)...)
	return strings.Join(lines, "\n")
}

func fixMultipleDeclarations(diagram string) string {
	lines := strings.Split(diagram, "\n")
	idx, _ := firstStatement(lines)
	if idx < 0 {
		return diagram
	}
	out := lines[:idx+1:idx+1]
	for _, line := range lines[idx+1:] {
		if !isBlankOrComment(line) && declarationOf(line) != "" && len(strings.Fields(stripComment(line))) <= 2 {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func fixSyntax(diagram string) string {
	lines := strings.Split(diagram, "\n")
	if idx, first := firstStatement(lines); idx >= 0 && declarationOf(first) == "stateDiagram" {
		lines[idx] = strings.Replace(lines[idx], "stateDiagram", "stateDiagram-v2", 1)
		diagram = strings.Join(lines, "\n")
	}
	return fixBlockBalance(diagram)
}

// fixBlockBalance drops "end" lines that close nothing and appends the
// ones that are missing.
func fixBlockBalance(diagram string) string {
	openers := blockOpeners(familyOf(DetectType(diagram)))
	if len(openers) == 0 {
		return diagram
	}
	lines := strings.Split(diagram, "\n")
	out := make([]string, 0, len(lines)+2)
	depth := 0
	for _, line := range lines {
		switch {
		case isComment(line):
		case opensBlock(line, openers):
			depth++
		case wordEnd.MatchString(line):
			if depth == 0 {
				continue
			}
			depth--
		}
		out = append(out, line)
	}
	if depth == 0 && len(out) == len(lines) {
		return diagram
	}

	trailing := len(out) > 0 && out[len(out)-1] == ""
	if trailing {
		out = out[:len(out)-1]
	}
	for ; depth > 0; depth-- {
		out = append(out, strings.Repeat("    ", depth-1)+"end")
	}
	if trailing {
		out = append(out, "")
	}
	return strings.Join(out, "\n")
}

func fixBracketBalance(diagram string) string {
	fam := familyOf(DetectType(diagram))
	switch fam {
	case familyOther, familySequence, familyER:
		return diagram
	}
	braces := fam == familyFlowchart || fam == familyUnknown
	return mapLines(diagram, func(line string) string {
		if DetectType(line) != "" {
			return line
		}
		return balanceLine(line, braces, braces)
	})
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// balanceLine drops closers that match nothing, replaces mismatched closers
// with the expected one and appends closers for brackets left open. Quoted
// text and edge labels are copied as is. With asym set, "id>" opens an
// asymmetric flowchart shape closed by "]".
func balanceLine(line string, braces, asym bool) string {
	out := make([]byte, 0, len(line)+2)
	var stack []byte
	inQuote, inEdge := false, false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case len(stack) == 0 && c == '|':
			inEdge = !inEdge
		case inEdge:
		case c == '[' || c == '(' || braces && c == '{':
			stack = append(stack, closerOf(c))
		case asym && c == '>' && len(stack) == 0 && i > 0 && isWordByte(line[i-1]):
			stack = append(stack, ']')
		case c == ']' || c == ')' || braces && c == '}':
			if len(stack) == 0 {
				continue
			}
			c = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
		out = append(out, c)
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out = append(out, stack[i])
	}
	return string(out)
}

func fixDanglingArrows(diagram string) string {
	fam := familyOf(DetectType(diagram))
	if fam != familyFlowchart && fam != familySequence {
		return diagram
	}
	return mapLines(diagram, func(line string) string {
		t := strings.TrimRight(stripComment(line), " \t")
		if fam == familySequence {
			trimmed := strings.TrimSpace(t)
			if strings.Contains(t, ":") || strings.HasPrefix(trimmed, "Note") {
				return line
			}
		}
		loc := danglingArrow.FindStringIndex(mask(t))
		if loc == nil {
			return line
		}
		return strings.TrimRight(t[:loc[0]], " \t")
	})
}

func fixDuplicateIDs(diagram string) string {
	lines := strings.Split(diagram, "\n")
	decl, _ := firstStatement(lines)
	switch familyOf(DetectType(diagram)) {
	case familySequence:
		seen := map[string]bool{}
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			if m := participantDecl.FindStringSubmatch(line); m != nil {
				name := strings.Trim(m[1], `"`)
				if seen[name] {
					continue
				}
				seen[name] = true
			}
			out = append(out, line)
		}
		return strings.Join(out, "\n")

	case familyFlowchart:
		nodes := map[string]bool{}
		for i := decl + 1; i < len(lines); i++ {
			if isBlankOrComment(lines[i]) || subgraphID.MatchString(lines[i]) || isStyleStatement(lines[i]) {
				continue
			}
			for _, m := range shapedNode.FindAllStringSubmatch(mask(lines[i]), -1) {
				nodes[m[1]] = true
			}
		}
		for i, line := range lines {
			loc := subgraphID.FindStringSubmatchIndex(line)
			if loc == nil || !nodes[line[loc[2]:loc[3]]] {
				continue
			}
			lines[i] = line[:loc[3]] + "_group" + line[loc[3]:]
		}
		return strings.Join(lines, "\n")
	}
	return diagram
}

// --- text ---

var (
	colonSpacing = regexp.MustCompile(`:[ \t]{2,}`)
	arrowSpacing = regexp.MustCompile(`[ \t]*-->[ \t]*`)
)

// replaceUnmasked replaces matches of re that lie outside labels.
func replaceUnmasked(line string, re *regexp.Regexp, repl string) string {
	locs := re.FindAllStringIndex(mask(line), -1)
	if len(locs) == 0 {
		return line
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(line[last:loc[0]])
		b.WriteString(repl)
		last = loc[1]
	}
	b.WriteString(line[last:])
	return b.String()
}

func fixTextFormatting(diagram string) string {
	out := fixStereotypes(diagram)
	out = colonSpacing.ReplaceAllString(out, ": ")
	switch familyOf(DetectType(out)) {
	case familyFlowchart, familyClass, familyState:
		out = mapLines(out, func(line string) string {
			if !strings.Contains(line, "-->") {
				return line
			}
			indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			return indent + replaceUnmasked(strings.TrimLeft(line, " \t"), arrowSpacing, " --> ")
		})
	}
	return out
}

func fixStereotypes(diagram string) string {
	out := atStereotype.ReplaceAllString(diagram, "<<$1>>")
	return strings.ReplaceAll(out, "<<@", "<<")
}

var (
	erRelationNoLabel  = regexp.MustCompile(`^(\s*\S+\s+[|}o]{1,2}(?:--|\.\.)[|{o]{1,2}\s+\S+)\s*$`)
	classMemberNoColon = regexp.MustCompile(`^(\s*)([A-Za-z_]\w*)\s+([+\-#~][A-Za-z_].*)$`)
	stateLabelNoColon  = regexp.MustCompile(`^(\s*\S+\s*-->\s*\S+)\s+([^:\s][^:]*)$`)
)

func fixMissingColon(diagram string) string {
	var re *regexp.Regexp
	var repl string
	switch familyOf(DetectType(diagram)) {
	case familyER:
		re, repl = erRelationNoLabel, `$1 : ""`
	case familyClass:
		re, repl = classMemberNoColon, `$1$2 : $3`
	case familyState:
		re, repl = stateLabelNoColon, `$1 : $2`
	default:
		return diagram
	}
	return mapLines(diagram, func(line string) string {
		return re.ReplaceAllString(line, repl)
	})
}

var erToClass = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\s*\|\|--\|\|\s*`), ` "1" -- "1" `},
	{regexp.MustCompile(`\s*\|\|--o\{\s*`), ` "1" --o "*" `},
	{regexp.MustCompile(`\s*\}o--o\{\s*`), ` "*" -- "*" `},
	{regexp.MustCompile(`\s*\|o--o\|\s*`), ` "0..1" -- "0..1" `},
}

func fixERInClass(diagram string) string {
	if familyOf(DetectType(diagram)) != familyClass {
		return diagram
	}
	return mapLines(diagram, func(line string) string {
		for _, r := range erToClass {
			line = r.re.ReplaceAllString(line, r.repl)
		}
		return line
	})
}

// --- ids ---

var (
	styleTarget = regexp.MustCompile(`^(\s*(?:style|click)\s+)(\d\w*)`)
	classTarget = regexp.MustCompile(`^(\s*class\s+)([\w,]+)`)
)

// fixNumericIDs renames flowchart node ids that start with a digit to
// "N<id>", consistently across edges and style statements.
func fixNumericIDs(diagram string) string {
	if familyOf(DetectType(diagram)) != familyFlowchart {
		return diagram
	}
	lines := strings.Split(diagram, "\n")
	decl, _ := firstStatement(lines)

	renamable := func(line string) bool {
		t := strings.TrimSpace(line)
		return !isBlankOrComment(line) && !isStyleStatement(line) &&
			!strings.HasPrefix(t, "subgraph") && t != "end"
	}

	ids := map[string]bool{}
	for i := decl + 1; i < len(lines); i++ {
		if !renamable(lines[i]) {
			continue
		}
		masked := mask(lines[i])
		for _, loc := range numericNodeID.FindAllStringSubmatchIndex(masked, -1) {
			ids[lines[i][loc[2]:loc[3]]] = true
		}
	}
	if len(ids) == 0 {
		return diagram
	}

	for i := decl + 1; i < len(lines); i++ {
		line := lines[i]
		switch {
		case renamable(line):
			locs := numericNodeID.FindAllStringSubmatchIndex(mask(line), -1)
			for j := len(locs) - 1; j >= 0; j-- {
				at := locs[j][2]
				line = line[:at] + "N" + line[at:]
			}
		case styleTarget.MatchString(line):
			if m := styleTarget.FindStringSubmatch(line); ids[m[2]] {
				line = m[1] + "N" + line[len(m[1]):]
			}
		case classTarget.MatchString(line):
			m := classTarget.FindStringSubmatch(line)
			targets := strings.Split(m[2], ",")
			for k, t := range targets {
				if ids[t] {
					targets[k] = "N" + t
				}
			}
			line = m[1] + strings.Join(targets, ",") + line[len(m[0]):]
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
