// Package rawmode captures and restores the controlling terminal's line
// discipline. The process enters raw mode once at startup and restores
// the saved settings exactly once on the way out, on every exit path.
package rawmode

import (
	"fmt"
	"sync"

	xterm "golang.org/x/term"
)

// ConfigError reports a failure to read or apply terminal attributes.
// It is fatal at startup, before any PTY exists.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("terminal config: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// State holds the terminal settings captured before entering raw mode.
type State struct {
	fd       int
	prev     *xterm.State
	restored sync.Once
}

// IsTerminal reports whether fd refers to a terminal.
func IsTerminal(fd int) bool {
	return xterm.IsTerminal(fd)
}

// Enter snapshots the terminal attributes on fd and switches it to raw
// mode: no kernel echo, no canonical line buffering, no keyboard signal
// generation, no CR→NL input translation, no software flow control.
// Reads return as soon as one byte is available (VMIN=1, VTIME=0); the
// relay loop gates every read on poll readiness, so reads never block
// in practice.
func Enter(fd int) (*State, error) {
	prev, err := xterm.MakeRaw(fd)
	if err != nil {
		return nil, &ConfigError{Op: "enter raw mode", Err: err}
	}
	return &State{fd: fd, prev: prev}, nil
}

// Restore reapplies the captured settings. Only the first call
// restores; later calls are no-ops returning nil. A restore failure is
// returned for the caller to report as a warning — shutdown continues
// regardless.
func (s *State) Restore() error {
	var err error
	s.restored.Do(func() {
		err = xterm.Restore(s.fd, s.prev)
	})
	return err
}

// Size returns the terminal's current dimensions.
func Size(fd int) (cols, rows int, err error) {
	cols, rows, err = xterm.GetSize(fd)
	if err != nil {
		return 0, 0, &ConfigError{Op: "query size", Err: err}
	}
	return cols, rows, nil
}
