package mermaid

import "context"

// SetRunCommand swaps the process runner used by CLIRenderer.
func SetRunCommand(fn func(ctx context.Context, name string, args ...string) ([]byte, error)) (restore func()) {
	old := runCommand
	runCommand = fn
	return func() { runCommand = old }
}

// SetLookPath swaps the PATH lookup used by DetectRenderer.
func SetLookPath(fn func(file string) (string, error)) (restore func()) {
	old := lookPath
	lookPath = fn
	return func() { lookPath = old }
}
