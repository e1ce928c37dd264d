// Package btuin provides terminal control via golang.org/x/term.
package btuin

import (
	"os"

	"golang.org/x/term"
)

// State wraps the term.State captured before raw mode.
type State struct {
	state *term.State
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalSize returns the current size of stdout's terminal.
func TerminalSize() (width, height int, err error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// MakeRaw puts f's terminal into raw mode and returns the previous state.
func MakeRaw(f *os.File) (*State, error) {
	oldState, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return nil, err
	}
	return &State{state: oldState}, nil
}

// Restore returns f's terminal to a previously captured state.
func Restore(f *os.File, s *State) error {
	if s == nil || s.state == nil {
		return nil
	}
	return term.Restore(int(f.Fd()), s.state)
}
