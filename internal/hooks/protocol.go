// Package hooks implements the Claude Code hook entry points: the Mermaid
// pre-write gate, the bash command guard and logger, and the stop-time
// final check.
//
// Each handler takes the decoded hook payload and returns a Response; the
// caller writes Stdout/Stderr and exits with ExitCode.
package hooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-isatty"
)

// Exit codes understood by Claude Code.
const (
	ExitAllow = 0
	ExitError = 1
	ExitBlock = 2
)

// Permission decisions for PreToolUse output.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
	DecisionAsk   = "ask"
)

// ErrNoInput is returned when stdin is a terminal or carries no payload.
var ErrNoInput = errors.New("no hook input on stdin")

// Input is the JSON payload Claude Code sends on stdin.
type Input struct {
	SessionID      string         `json:"session_id"`
	TranscriptPath string         `json:"transcript_path"`
	CWD            string         `json:"cwd"`
	HookEventName  string         `json:"hook_event_name"`
	ToolName       string         `json:"tool_name"`
	ToolInput      map[string]any `json:"tool_input"`
	StopHookActive bool           `json:"stop_hook_active"`
}

// String returns a tool_input field, or "" when absent or not a string.
func (in *Input) String(key string) string {
	v, _ := in.ToolInput[key].(string)
	return v
}

type fder interface {
	Fd() uintptr
}

var isTerminal = func(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ReadInput decodes the hook payload from r. A terminal or an empty stream
// yields ErrNoInput.
func ReadInput(r io.Reader) (*Input, error) {
	if f, ok := r.(fder); ok && isTerminal(f.Fd()) {
		return nil, ErrNoInput
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read hook input: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, ErrNoInput
	}
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode hook input: %w", err)
	}
	if in.ToolInput == nil {
		in.ToolInput = map[string]any{}
	}
	return &in, nil
}

// Response is what a handler wants written back to Claude Code.
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output is the structured JSON a hook may print on stdout.
type Output struct {
	SystemMessage      string            `json:"systemMessage,omitempty"`
	HookSpecificOutput *PreToolUseOutput `json:"hookSpecificOutput,omitempty"`
}

// PreToolUseOutput carries the permission decision and any rewritten tool
// input.
type PreToolUseOutput struct {
	HookEventName            string         `json:"hookEventName"`
	PermissionDecision       string         `json:"permissionDecision"`
	PermissionDecisionReason string         `json:"permissionDecisionReason,omitempty"`
	UpdatedInput             map[string]any `json:"updatedInput,omitempty"`
}

func allow() Response { return Response{ExitCode: ExitAllow} }

func block(msg string) Response {
	return Response{ExitCode: ExitBlock, Stderr: msg}
}

func failure(err error) Response {
	return Response{ExitCode: ExitError, Stderr: "mermaidguard: " + err.Error()}
}

func respondJSON(out Output) Response {
	data, err := json.Marshal(out)
	if err != nil {
		return failure(fmt.Errorf("encode hook output: %w", err))
	}
	return Response{ExitCode: ExitAllow, Stdout: string(data)}
}
