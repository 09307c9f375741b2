package mermaid_test

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/mermaidguard/internal/mermaid"
)

func TestCLIRenderer_Valid(t *testing.T) {
	var gotName string
	var gotArgs []string
	defer mermaid.SetRunCommand(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, nil
	})()

	r := &mermaid.CLIRenderer{Command: []string{"mmdc"}}
	issues, err := r.Check(context.Background(), "graph TD\nA --> B\n")
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
	if gotName != "mmdc" {
		t.Errorf("ran %q, want mmdc", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-i ", "-o ", "-t default"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestCLIRenderer_ParseError(t *testing.T) {
	defer mermaid.SetRunCommand(func(context.Context, string, ...string) ([]byte, error) {
		out := "Error: Parse error on line 2:\n...A[foo(bar)]\n-----^\nExpecting 'SQE', 'PE', got 'PS'\n    at Parser.parseError (/x/mermaid.js:1:1)"
		return []byte(out), errors.New("exit status 1")
	})()

	r := &mermaid.CLIRenderer{Command: []string{"mmdc"}}
	issues, err := r.Check(context.Background(), "graph TD\nA[foo(bar)]\n")
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if !hasKind(issues, mermaid.KindUnquotedParens) {
		t.Fatalf("expected unquoted-parens issue, got %v", issues)
	}
	if issues[0].Line != 2 {
		t.Errorf("line = %d, want 2", issues[0].Line)
	}
	if strings.Contains(issues[0].Message, "Parser.parseError") {
		t.Errorf("stack trace should be dropped: %q", issues[0].Message)
	}
}

func TestCLIRenderer_UnclassifiedError(t *testing.T) {
	defer mermaid.SetRunCommand(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 3")
	})()

	r := &mermaid.CLIRenderer{Command: []string{"mmdc"}}
	issues, err := r.Check(context.Background(), "graph TD\n")
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if len(issues) != 1 || issues[0].Kind != mermaid.KindRender {
		t.Fatalf("expected one render issue, got %v", issues)
	}
	if issues[0].Message != "exit status 3" {
		t.Errorf("message = %q", issues[0].Message)
	}
}

func TestCLIRenderer_NotFound(t *testing.T) {
	defer mermaid.SetRunCommand(func(context.Context, string, ...string) ([]byte, error) {
		return nil, &exec.Error{Name: "mmdc", Err: exec.ErrNotFound}
	})()

	r := &mermaid.CLIRenderer{Command: []string{"mmdc"}}
	_, err := r.Check(context.Background(), "graph TD\n")
	if !errors.Is(err, mermaid.ErrRendererUnavailable) {
		t.Errorf("expected ErrRendererUnavailable, got %v", err)
	}
}

func TestCLIRenderer_Timeout(t *testing.T) {
	defer mermaid.SetRunCommand(func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})()

	r := &mermaid.CLIRenderer{Command: []string{"mmdc"}, Timeout: 20 * time.Millisecond}
	issues, err := r.Check(context.Background(), "graph TD\n")
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if len(issues) != 1 || !strings.Contains(issues[0].Message, "timeout") {
		t.Errorf("expected timeout issue, got %v", issues)
	}
}

func TestDetectRenderer(t *testing.T) {
	t.Run("mmdc on path", func(t *testing.T) {
		defer mermaid.SetLookPath(func(file string) (string, error) {
			return "/usr/local/bin/" + file, nil
		})()
		r, err := mermaid.DetectRenderer("mmdc", true)
		if err != nil {
			t.Fatalf("DetectRenderer() error: %v", err)
		}
		if r.String() != "/usr/local/bin/mmdc" {
			t.Errorf("command = %q", r.String())
		}
	})

	t.Run("npx fallback", func(t *testing.T) {
		defer mermaid.SetLookPath(func(file string) (string, error) {
			if file == "npx" {
				return "/usr/bin/npx", nil
			}
			return "", exec.ErrNotFound
		})()
		r, err := mermaid.DetectRenderer("mmdc", true)
		if err != nil {
			t.Fatalf("DetectRenderer() error: %v", err)
		}
		if !strings.Contains(r.String(), "@mermaid-js/mermaid-cli") {
			t.Errorf("command = %q", r.String())
		}
	})

	t.Run("nothing available", func(t *testing.T) {
		defer mermaid.SetLookPath(func(string) (string, error) { return "", exec.ErrNotFound })()
		_, err := mermaid.DetectRenderer("mmdc", false)
		if !errors.Is(err, mermaid.ErrRendererUnavailable) {
			t.Errorf("expected ErrRendererUnavailable, got %v", err)
		}
	})
}

func TestNewChecker(t *testing.T) {
	defer mermaid.SetLookPath(func(string) (string, error) { return "", exec.ErrNotFound })()

	_, desc, err := mermaid.NewChecker(mermaid.CheckerOptions{Mode: mermaid.ModeAuto})
	if err != nil || desc != mermaid.ModeStatic {
		t.Errorf("auto without mmdc: desc=%q err=%v, want static", desc, err)
	}

	_, _, err = mermaid.NewChecker(mermaid.CheckerOptions{Mode: mermaid.ModeMMDC})
	if !errors.Is(err, mermaid.ErrRendererUnavailable) {
		t.Errorf("mmdc mode without mmdc: expected ErrRendererUnavailable, got %v", err)
	}

	if _, _, err := mermaid.NewChecker(mermaid.CheckerOptions{Mode: "bogus"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestFallback_SkipsUnavailable(t *testing.T) {
	unavailable := checkFunc(func(string) ([]mermaid.Issue, error) {
		return nil, mermaid.ErrRendererUnavailable
	})
	c := mermaid.Fallback(unavailable, mermaid.StaticChecker{})
	issues, err := c.Check(context.Background(), "graph TD\nA[x --> B")
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if !hasKind(issues, mermaid.KindUnbalancedBrackets) {
		t.Errorf("expected static issues, got %v", issues)
	}

	_, err = mermaid.Fallback(unavailable).Check(context.Background(), "graph TD")
	if !errors.Is(err, mermaid.ErrRendererUnavailable) {
		t.Errorf("expected ErrRendererUnavailable, got %v", err)
	}
}
