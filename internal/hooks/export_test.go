package hooks

// SetIsTerminal replaces the TTY check and returns a restore func.
func SetIsTerminal(fn func(fd uintptr) bool) func() {
	prev := isTerminal
	isTerminal = fn
	return func() { isTerminal = prev }
}
