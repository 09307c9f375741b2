package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/HendryAvila/mermaidguard/internal/mermaid"
)

// ErrUnfixable is returned by EnsureValid when a diagram stays invalid
// after every repair was tried.
var ErrUnfixable = errors.New("mermaid diagram could not be fixed")

// DiagramFixer repairs a single diagram. *mermaid.Fixer implements it.
type DiagramFixer interface {
	Fix(ctx context.Context, diagram string) (*mermaid.Result, error)
}

// DiagramResult describes one block of a processed file.
type DiagramResult struct {
	Line     int      `json:"line"`
	Type     string   `json:"type,omitempty"`
	Valid    bool     `json:"valid"`
	Changed  bool     `json:"changed"`
	Attempts int      `json:"attempts"`
	Errors   []string `json:"errors,omitempty"`
	Applied  []string `json:"applied,omitempty"`
}

// FileResult is the outcome of processing one document.
type FileResult struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	// Changed is set when the fixes altered the content.
	Changed bool `json:"changed"`
	// Fixed is set when the fixed content was written back.
	Fixed    bool            `json:"fixed"`
	Diagrams []DiagramResult `json:"diagrams,omitempty"`
	Errors   []string        `json:"errors,omitempty"`

	// Content is the document after fixes.
	Content string `json:"-"`
}

// Processor runs the fixer over every diagram of a document.
type Processor struct {
	Fixer DiagramFixer
}

// NewProcessor returns a Processor backed by fixer.
func NewProcessor(fixer DiagramFixer) *Processor {
	return &Processor{Fixer: fixer}
}

// Process fixes every diagram in content. The returned error is only set
// when a diagram could not be checked at all.
func (p *Processor) Process(ctx context.Context, path, content string) (*FileResult, error) {
	res := &FileResult{Path: path, Valid: true, Content: content}
	blocks := Extract(content, path)
	if len(blocks) == 0 {
		if IsStandalone(path, content) && path != "" {
			res.Valid = false
			res.Errors = []string{"Empty Mermaid diagram file"}
		}
		return res, nil
	}

	replacements := make([]string, len(blocks))
	for i, b := range blocks {
		fr, err := p.Fixer.Fix(ctx, b.Content)
		if err != nil {
			return nil, fmt.Errorf("diagram at line %d: %w", b.Line, err)
		}

		fixed := fr.Fixed
		if !b.Standalone {
			fixed = strings.TrimRight(fixed, "\n")
		}
		if !fr.Changed() || fixed == b.Content {
			fixed = b.Content
		}
		replacements[i] = fixed

		dr := DiagramResult{
			Line:     b.Line,
			Type:     mermaid.DetectType(fixed),
			Valid:    fr.Valid,
			Changed:  fixed != b.Content,
			Attempts: len(fr.Attempts),
			Applied:  fr.Applied,
		}
		if !fr.Valid {
			res.Valid = false
			for _, is := range blockingIssues(fr) {
				msg := diagramError(b, is)
				dr.Errors = append(dr.Errors, msg)
				res.Errors = append(res.Errors, msg)
			}
		}
		res.Diagrams = append(res.Diagrams, dr)
	}

	res.Content = Splice(content, blocks, replacements)
	res.Changed = res.Content != content
	return res, nil
}

// blockingIssues returns the issues that made a result invalid: its errors,
// or every issue when only warnings were reported (strict mode).
func blockingIssues(r *mermaid.Result) []mermaid.Issue {
	if errs := r.Errors(false); len(errs) > 0 {
		return errs
	}
	return r.Issues
}

func diagramError(b Block, is mermaid.Issue) string {
	if is.Line > 0 {
		return fmt.Sprintf("line %d: %s", b.Line+is.Line-1, is.Message)
	}
	return fmt.Sprintf("diagram at line %d: %s", b.Line, is.Message)
}

// EnsureValid is the pre-write gate. It returns the fixed content, or an
// error wrapping ErrUnfixable that names each failing diagram and the
// first three errors of its final attempt.
func (p *Processor) EnsureValid(ctx context.Context, path, content string) (string, *FileResult, error) {
	res, err := p.Process(ctx, path, content)
	if err != nil {
		return content, nil, err
	}
	if res.Valid {
		return res.Content, res, nil
	}

	where := path
	if where == "" {
		where = "content"
	}
	var parts []string
	for _, d := range res.Diagrams {
		if d.Valid {
			continue
		}
		errs := d.Errors
		if len(errs) > 3 {
			errs = errs[:3]
		}
		parts = append(parts, fmt.Sprintf("diagram at line %d in %s: %s", d.Line, where, strings.Join(trimPrefixes(errs, d.Line), "; ")))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", where, strings.Join(res.Errors, "; ")))
	}
	return res.Content, res, fmt.Errorf("%w: %s", ErrUnfixable, strings.Join(parts, " | "))
}

func trimPrefixes(errs []string, line int) []string {
	prefix := fmt.Sprintf("diagram at line %d: ", line)
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = strings.TrimPrefix(e, prefix)
	}
	return out
}

// ValidateFile processes the file at path and, when autoFix is set, writes
// the fixed content back. A file that cannot be read is reported as an
// invalid result rather than an error.
func (p *Processor) ValidateFile(ctx context.Context, path string, autoFix bool) (*FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &FileResult{Path: path, Errors: []string{fmt.Sprintf("could not read file: %v", err)}}, nil
	}

	res, err := p.Process(ctx, path, string(data))
	if err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	if autoFix && res.Changed {
		mode := os.FileMode(0o644)
		if info, err := os.Stat(path); err == nil {
			mode = info.Mode().Perm()
		}
		if err := os.WriteFile(path, []byte(res.Content), mode); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		res.Fixed = true
	}
	return res, nil
}
