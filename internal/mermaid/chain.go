package mermaid

import (
	"context"
	"errors"
)

type fallback []Checker

// Fallback returns a Checker that asks each checker in turn and uses the
// first one that is available. Checkers failing with ErrRendererUnavailable
// are skipped; any other error is returned.
func Fallback(checkers ...Checker) Checker {
	return fallback(checkers)
}

func (f fallback) Check(ctx context.Context, diagram string) ([]Issue, error) {
	for _, c := range f {
		issues, err := c.Check(ctx, diagram)
		if errors.Is(err, ErrRendererUnavailable) {
			continue
		}
		return issues, err
	}
	return nil, ErrRendererUnavailable
}
