package mermaid

import (
	"regexp"
	"strconv"
	"strings"
)

// errorSignatures maps mermaid parser messages to the repair that usually
// resolves them. Order matters: a message can match more than one entry
// and repairs are applied in this order.
var errorSignatures = []struct {
	re   *regexp.Regexp
	kind Kind
}{
	{regexp.MustCompile(`(?i)Expecting 'SQE'.*got 'PS'`), KindUnquotedParens},
	{regexp.MustCompile(`(?i)Expecting.*COLON`), KindMissingColon},
	{regexp.MustCompile(`(?i)Expecting 'TAGSTART'`), KindLabelQuotes},
	{regexp.MustCompile(`(?i)Parse error.*got 'PS'`), KindSpecialChars},
	{regexp.MustCompile(`(?i)expecting 'TEXT'`), KindTextFormatting},
	{regexp.MustCompile(`(?i)Invalid syntax`), KindSyntax},
	{regexp.MustCompile(`(?i)Duplicate id`), KindDuplicateID},
	{regexp.MustCompile(`(?i)no viable alternative`), KindDiagramType},
	{regexp.MustCompile(`(?i)No diagram type detected`), KindDiagramType},
}

var lineRef = regexp.MustCompile(`(?i)line (\d+)`)

// Classify maps a renderer error message to issue kinds and the line it
// refers to (0 when the message carries none).
func Classify(msg string) ([]Kind, int) {
	var kinds []Kind
	for _, sig := range errorSignatures {
		if sig.re.MatchString(msg) && !containsKind(kinds, sig.kind) {
			kinds = append(kinds, sig.kind)
		}
	}
	line := 0
	if m := lineRef.FindStringSubmatch(msg); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	return kinds, line
}

// issuesFromMessage turns a renderer failure into one Issue per classified
// kind, or a single KindRender issue when nothing matched.
func issuesFromMessage(raw string) []Issue {
	kinds, line := Classify(strings.Join(strings.Fields(raw), " "))
	msg := summarize(raw)
	if len(kinds) == 0 {
		return []Issue{errorf(KindRender, line, "%s", msg)}
	}
	issues := make([]Issue, 0, len(kinds))
	for _, k := range kinds {
		issues = append(issues, errorf(k, line, "%s", msg))
	}
	return issues
}

// summarize keeps the parser error lines of mermaid-cli output and drops
// the stack trace that follows them.
func summarize(msg string) string {
	var keep []string
	for _, line := range strings.Split(strings.TrimSpace(msg), "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "at ") {
			continue
		}
		keep = append(keep, t)
		if len(keep) == 6 {
			break
		}
	}
	if len(keep) == 0 {
		return "unknown render error"
	}
	return truncate(strings.Join(keep, " "), 400)
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, existing := range kinds {
		if existing == k {
			return true
		}
	}
	return false
}
