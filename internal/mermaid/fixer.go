package mermaid

import (
	"context"
	"fmt"
)

// DefaultMaxIterations bounds the check/repair loop.
const DefaultMaxIterations = 5

// Attempt records the issues seen in one round of the repair loop.
type Attempt struct {
	Iteration int     `json:"iteration"`
	Issues    []Issue `json:"issues"`
}

// Result is the outcome of Fixer.Fix.
type Result struct {
	Original string `json:"-"`
	Fixed    string `json:"-"`
	Valid    bool   `json:"valid"`
	// Issues are the ones left after the last check.
	Issues   []Issue   `json:"issues,omitempty"`
	Attempts []Attempt `json:"attempts,omitempty"`
	Applied  []string  `json:"applied,omitempty"`
}

// Changed reports whether Fixed differs from Original.
func (r *Result) Changed() bool {
	return r.Fixed != r.Original
}

// Errors returns the issues that make the diagram invalid.
func (r *Result) Errors(strict bool) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == SeverityError || strict {
			out = append(out, is)
		}
	}
	return out
}

// Fixer repairs diagrams driven by the issues its Checker reports.
type Fixer struct {
	Checker       Checker
	MaxIterations int
	// Strict makes warnings block validity too.
	Strict bool
}

// NewFixer returns a Fixer with the default iteration limit.
func NewFixer(c Checker) *Fixer {
	return &Fixer{Checker: c, MaxIterations: DefaultMaxIterations}
}

// Fix applies the prevention rules, then alternates checks and repairs
// until the diagram is valid, a round changes nothing, or MaxIterations is
// reached. An error is returned only when the checker itself fails.
func (f *Fixer) Fix(ctx context.Context, diagram string) (*Result, error) {
	res := &Result{Original: diagram}
	current := ApplySafeFixes(diagram)
	if current != diagram {
		res.Applied = append(res.Applied, "prevention rules")
	}

	limit := f.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}

	var issues []Issue
	checked := false
	for i := 1; i <= limit; i++ {
		var err error
		issues, err = f.check(ctx, current)
		if err != nil {
			return nil, err
		}
		checked = true
		if !HasErrors(issues, f.Strict) {
			break
		}
		res.Attempts = append(res.Attempts, Attempt{Iteration: i, Issues: issues})

		kinds := kindsOf(issues)
		if onlyRender(kinds) {
			// The renderer said no without saying why; let the linter guess.
			kinds = append(kinds, kindsOf(Lint(current))...)
		}
		next, applied := repairAll(current, kinds)
		if next == current {
			next, applied = repairAll(current, aggressiveKinds)
		}
		if next == current {
			break
		}
		res.Applied = appendUnique(res.Applied, applied...)
		current = next
		checked = false
	}

	if !checked {
		var err error
		if issues, err = f.check(ctx, current); err != nil {
			return nil, err
		}
	}
	res.Fixed = current
	res.Issues = issues
	res.Valid = !HasErrors(issues, f.Strict)
	return res, nil
}

func (f *Fixer) check(ctx context.Context, diagram string) ([]Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	issues, err := f.Checker.Check(ctx, diagram)
	if err != nil {
		return nil, fmt.Errorf("check diagram: %w", err)
	}
	return issues, nil
}

func kindsOf(issues []Issue) []Kind {
	var kinds []Kind
	for _, is := range issues {
		if !containsKind(kinds, is.Kind) {
			kinds = append(kinds, is.Kind)
		}
	}
	return kinds
}

func onlyRender(kinds []Kind) bool {
	for _, k := range kinds {
		if k != KindRender {
			return false
		}
	}
	return len(kinds) > 0
}

func appendUnique(list []string, items ...string) []string {
	for _, it := range items {
		found := false
		for _, existing := range list {
			if existing == it {
				found = true
				break
			}
		}
		if !found {
			list = append(list, it)
		}
	}
	return list
}
