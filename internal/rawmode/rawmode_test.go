package rawmode

import (
	"errors"
	"os"
	"testing"

	xterm "golang.org/x/term"
)

// pipeFd returns a descriptor that is definitely not a terminal.
func pipeFd(t *testing.T) int {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return int(r.Fd())
}

func TestIsTerminalRejectsPipe(t *testing.T) {
	t.Parallel()
	if IsTerminal(pipeFd(t)) {
		t.Error("IsTerminal reported true for a pipe")
	}
}

func TestEnterFailsOnNonTerminal(t *testing.T) {
	t.Parallel()
	_, err := Enter(pipeFd(t))
	if err == nil {
		t.Fatal("Enter on a pipe succeeded")
	}

	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Errorf("error type: got %T, want *ConfigError", err)
	}
	if errors.Unwrap(err) == nil {
		t.Error("ConfigError does not wrap the underlying cause")
	}
}

func TestRestoreReportsFailureThenBecomesNoOp(t *testing.T) {
	t.Parallel()
	// A state over a pipe cannot be reapplied: the first Restore must
	// surface that failure to the caller.
	state := &State{fd: pipeFd(t), prev: &xterm.State{}}

	if err := state.Restore(); err == nil {
		t.Fatal("Restore on a pipe succeeded")
	}

	// Only the first call restores; every later call is a no-op even
	// when the first attempt failed.
	if err := state.Restore(); err != nil {
		t.Errorf("second Restore: got %v, want nil", err)
	}
}

func TestSizeFailsOnNonTerminal(t *testing.T) {
	t.Parallel()
	_, _, err := Size(pipeFd(t))
	if err == nil {
		t.Fatal("Size on a pipe succeeded")
	}
	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Errorf("error type: got %T, want *ConfigError", err)
	}
}
