// Package config loads the project settings from .mermaidguard.yml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file.
const FileName = ".mermaidguard.yml"

// ProjectDirEnv is set by Claude Code to the project root for hooks.
const ProjectDirEnv = "CLAUDE_PROJECT_DIR"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Renderer modes.
const (
	RendererAuto   = "auto"
	RendererMMDC   = "mmdc"
	RendererStatic = "static"
)

// Actions for diagrams the pre-write hook cannot fix.
const (
	OnUnfixableBlock = "block"
	OnUnfixableWarn  = "warn"
)

// Config is the root configuration.
type Config struct {
	DocsDir       string           `yaml:"docs_dir"`
	MaxIterations int              `yaml:"max_iterations"`
	Strict        bool             `yaml:"strict"`
	Renderer      RendererConfig   `yaml:"renderer"`
	Hooks         HooksConfig      `yaml:"hooks"`
	Journal       JournalConfig    `yaml:"journal"`
	FinalCheck    FinalCheckConfig `yaml:"final_check"`

	// Root is the project directory relative paths resolve against.
	Root string `yaml:"-"`
}

type RendererConfig struct {
	Mode        string        `yaml:"mode"`
	Command     string        `yaml:"command"`
	NPXFallback bool          `yaml:"npx_fallback"`
	Timeout     time.Duration `yaml:"timeout"`
	Theme       string        `yaml:"theme"`
}

type HooksConfig struct {
	OnUnfixable string `yaml:"on_unfixable"`
	LogDir      string `yaml:"log_dir"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	DataDir string `yaml:"data_dir"`
}

type FinalCheckConfig struct {
	ReportName string   `yaml:"report_name"`
	Workers    int      `yaml:"workers"`
	Exclude    []string `yaml:"exclude"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DocsDir:       "output",
		MaxIterations: 5,
		Renderer: RendererConfig{
			Mode:        RendererAuto,
			Command:     "mmdc",
			NPXFallback: true,
			Timeout:     10 * time.Second,
			Theme:       "default",
		},
		Hooks: HooksConfig{
			OnUnfixable: OnUnfixableBlock,
			LogDir:      "logs",
		},
		Journal: JournalConfig{
			Enabled: true,
			DataDir: "~/.mermaidguard",
		},
		FinalCheck: FinalCheckConfig{
			ReportName: "mermaid_final_check_report.json",
			Workers:    4,
			Exclude:    []string{"node_modules", ".git"},
		},
	}
}

// Path returns the config file location for a project root.
func Path(root string) string {
	return filepath.Join(root, FileName)
}

// Exists reports whether root has a config file.
func Exists(root string) bool {
	_, err := os.Stat(Path(root))
	return err == nil
}

// FindRoot returns the project root: $CLAUDE_PROJECT_DIR when set,
// otherwise the nearest ancestor of start holding a config file, otherwise
// start itself.
func FindRoot(start string) string {
	if dir := os.Getenv(ProjectDirEnv); dir != "" {
		return dir
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for dir := abs; ; {
		if Exists(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		dir = parent
	}
}

// Load reads the config file in root over the defaults. A missing file is
// not an error. ${VAR} references are expanded before parsing.
func Load(root string) (*Config, error) {
	cfg := Default()
	cfg.Root = root

	data, err := os.ReadFile(Path(root))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.Expand(string(data), os.Getenv)
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and non-positive limits.
func (c *Config) Validate() error {
	var problems []string
	switch c.Renderer.Mode {
	case RendererAuto, RendererMMDC, RendererStatic:
	default:
		problems = append(problems, fmt.Sprintf("renderer.mode %q (want auto, mmdc or static)", c.Renderer.Mode))
	}
	switch c.Hooks.OnUnfixable {
	case OnUnfixableBlock, OnUnfixableWarn:
	default:
		problems = append(problems, fmt.Sprintf("hooks.on_unfixable %q (want block or warn)", c.Hooks.OnUnfixable))
	}
	if c.MaxIterations <= 0 {
		problems = append(problems, fmt.Sprintf("max_iterations %d (must be positive)", c.MaxIterations))
	}
	if c.FinalCheck.Workers <= 0 {
		problems = append(problems, fmt.Sprintf("final_check.workers %d (must be positive)", c.FinalCheck.Workers))
	}
	if c.Renderer.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("renderer.timeout %s (must be positive)", c.Renderer.Timeout))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Resolve makes p absolute against the project root and expands a leading
// "~/" to the home directory.
func (c *Config) Resolve(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// DocsPath is the resolved docs directory.
func (c *Config) DocsPath() string { return c.Resolve(c.DocsDir) }

// LogPath is the resolved hook log directory.
func (c *Config) LogPath() string { return c.Resolve(c.Hooks.LogDir) }

// JournalPath is the resolved journal data directory.
func (c *Config) JournalPath() string { return c.Resolve(c.Journal.DataDir) }

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}
