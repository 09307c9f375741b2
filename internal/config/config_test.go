package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(Path(dir), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- Default / Load ---

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.MaxIterations != 5 {
		t.Errorf("MaxIterations = %d, want 5", cfg.MaxIterations)
	}
	if cfg.Renderer.Timeout != 10*time.Second {
		t.Errorf("Timeout = %s, want 10s", cfg.Renderer.Timeout)
	}
	if cfg.FinalCheck.ReportName != "mermaid_final_check_report.json" {
		t.Errorf("ReportName = %s", cfg.FinalCheck.ReportName)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DocsDir != "output" || cfg.Root != dir {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_OverridesAndExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MG_DOCS", "docs/generated")
	writeConfig(t, dir, `
docs_dir: ${MG_DOCS}
strict: true
renderer:
  mode: static
  timeout: 3s
hooks:
  on_unfixable: warn
final_check:
  workers: 8
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DocsDir != "docs/generated" {
		t.Errorf("DocsDir = %q", cfg.DocsDir)
	}
	if !cfg.Strict || cfg.Renderer.Mode != RendererStatic || cfg.Hooks.OnUnfixable != OnUnfixableWarn {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Renderer.Timeout != 3*time.Second {
		t.Errorf("Timeout = %s, want 3s", cfg.Renderer.Timeout)
	}
	if cfg.FinalCheck.Workers != 8 {
		t.Errorf("Workers = %d", cfg.FinalCheck.Workers)
	}
	// Keys absent from the file keep their defaults.
	if cfg.MaxIterations != 5 || cfg.Renderer.Command != "mmdc" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if got := cfg.DocsPath(); got != filepath.Join(dir, "docs/generated") {
		t.Errorf("DocsPath() = %q", got)
	}
}

func TestLoad_CorruptYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "renderer: [unclosed")
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "renderer:\n  mode: chrome\nmax_iterations: 0\n")
	_, err := Load(dir)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	for _, want := range []string{"renderer.mode", "max_iterations"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

// --- FindRoot / Resolve ---

func TestFindRoot_WalksUp(t *testing.T) {
	t.Setenv(ProjectDirEnv, "")
	root := t.TempDir()
	writeConfig(t, root, "strict: false\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.Abs(root)
	if got := FindRoot(nested); got != want {
		t.Errorf("FindRoot() = %q, want %q", got, want)
	}
}

func TestFindRoot_ProjectDirEnv(t *testing.T) {
	t.Setenv(ProjectDirEnv, "/srv/project")
	if got := FindRoot(t.TempDir()); got != "/srv/project" {
		t.Errorf("FindRoot() = %q", got)
	}
}

func TestResolve(t *testing.T) {
	cfg := &Config{Root: "/proj"}
	if got := cfg.Resolve("logs"); got != filepath.Join("/proj", "logs") {
		t.Errorf("Resolve(logs) = %q", got)
	}
	if got := cfg.Resolve("/abs"); got != "/abs" {
		t.Errorf("Resolve(/abs) = %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		if got := cfg.Resolve("~/.mermaidguard"); got != filepath.Join(home, ".mermaidguard") {
			t.Errorf("Resolve(~) = %q", got)
		}
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	out, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	dir := t.TempDir()
	writeConfig(t, dir, string(out))
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() of marshalled default: %v", err)
	}
	if cfg.Renderer.Timeout != 10*time.Second || cfg.FinalCheck.Workers != 4 {
		t.Errorf("round trip lost values: %+v", cfg)
	}
}
