package mermaid

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrRendererUnavailable is returned when mermaid-cli cannot be found.
var ErrRendererUnavailable = errors.New("mermaid renderer unavailable")

// DefaultRenderTimeout bounds a single mermaid-cli run.
const DefaultRenderTimeout = 10 * time.Second

// npxPackage is run through npx when mmdc is not installed.
const npxPackage = "@mermaid-js/mermaid-cli"

// Indirections for tests.
var (
	lookPath   = exec.LookPath
	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).CombinedOutput()
	}
)

// CLIRenderer checks diagrams by rendering them with mermaid-cli. A diagram
// is valid when mmdc exits zero; otherwise its output is classified into
// Issues.
type CLIRenderer struct {
	// Command is the program and leading arguments, e.g. ["mmdc"] or
	// ["npx", "--yes", "@mermaid-js/mermaid-cli"].
	Command []string
	Timeout time.Duration
	Theme   string
}

func (r *CLIRenderer) String() string {
	return strings.Join(r.Command, " ")
}

// Check implements Checker.
func (r *CLIRenderer) Check(ctx context.Context, diagram string) ([]Issue, error) {
	if len(r.Command) == 0 {
		return nil, ErrRendererUnavailable
	}
	dir, err := os.MkdirTemp("", "mermaidguard-*")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "diagram.mmd")
	out := filepath.Join(dir, "diagram.svg")
	if err := os.WriteFile(in, []byte(diagram), 0o600); err != nil {
		return nil, fmt.Errorf("write diagram: %w", err)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	theme := r.Theme
	if theme == "" {
		theme = "default"
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, r.Command[1:]...), "-i", in, "-o", out, "-t", theme)
	output, err := runCommand(runCtx, r.Command[0], args...)
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, exec.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", r.Command[0], ErrRendererUnavailable)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return []Issue{errorf(KindRender, 0, "validation timeout after %s", timeout)}, nil
	}

	msg := string(output)
	if strings.TrimSpace(msg) == "" {
		msg = err.Error()
	}
	return issuesFromMessage(msg), nil
}

// DetectRenderer locates mermaid-cli. It prefers command on PATH and falls
// back to npx when allowed. The error wraps ErrRendererUnavailable when
// neither is usable.
func DetectRenderer(command string, npxFallback bool) (*CLIRenderer, error) {
	if command == "" {
		command = "mmdc"
	}
	if path, err := lookPath(command); err == nil {
		return &CLIRenderer{Command: []string{path}}, nil
	}
	if npxFallback {
		if path, err := lookPath("npx"); err == nil {
			return &CLIRenderer{Command: []string{path, "--yes", npxPackage}}, nil
		}
	}
	return nil, fmt.Errorf("%s not found on PATH: %w", command, ErrRendererUnavailable)
}

// Renderer modes accepted by NewChecker.
const (
	ModeAuto   = "auto"
	ModeMMDC   = "mmdc"
	ModeStatic = "static"
)

// CheckerOptions configures NewChecker.
type CheckerOptions struct {
	Mode        string
	Command     string
	NPXFallback bool
	Timeout     time.Duration
	Theme       string
}

// NewChecker builds the checker for a renderer mode and returns a short
// description of what it uses. In auto mode a missing mermaid-cli degrades
// to the static linter; in mmdc mode it is an error.
func NewChecker(opts CheckerOptions) (Checker, string, error) {
	switch opts.Mode {
	case ModeStatic:
		return StaticChecker{}, ModeStatic, nil
	case "", ModeAuto, ModeMMDC:
	default:
		return nil, "", fmt.Errorf("unknown renderer mode %q", opts.Mode)
	}

	r, err := DetectRenderer(opts.Command, opts.NPXFallback)
	if err != nil {
		if opts.Mode == ModeMMDC {
			return nil, "", err
		}
		return StaticChecker{}, ModeStatic, nil
	}
	r.Timeout = opts.Timeout
	r.Theme = opts.Theme
	return Fallback(r, StaticChecker{}), r.String(), nil
}
