// Command ptysh is a minimal interactive shell front-end. It puts the
// controlling terminal into raw mode, spawns a shell on a fresh PTY,
// and relays bytes both ways with local line editing (backspace and
// arrow-key history recall) applied before input reaches the shell.
// The shell's output is passed through verbatim.
package main

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/PiranhaCodes/ptysh/internal/input"
	"github.com/PiranhaCodes/ptysh/internal/pty"
	"github.com/PiranhaCodes/ptysh/internal/rawmode"
	"github.com/PiranhaCodes/ptysh/internal/relay"
)

// Exit codes. Startup failures are distinguishable from a session that
// died mid-flight.
const (
	exitOK             = 0
	exitSession        = 1
	exitTerminalConfig = 2
	exitPtyCreation    = 3
)

// Fallback dimensions when the size query fails at startup.
const (
	defaultCols = 80
	defaultRows = 24
)

func main() {
	exitOnInterrupt := pflag.Bool("exit-on-interrupt", false,
		"end the local session on Ctrl-C instead of only signaling the shell")
	pflag.Parse()

	// run's deferred releases have restored the terminal by the time
	// the error is printed here.
	if err := run(*exitOnInterrupt); err != nil {
		log.Printf("[PTYSH] Error: %v", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

// run acquires raw mode, the PTY session, and the signal bridge — in
// that order — and releases them in reverse via defers, so every exit
// path (clean, error, forwarded termination) runs the same cleanup
// exactly once.
func run(exitOnInterrupt bool) error {
	terminalFd := int(os.Stdin.Fd())
	if !rawmode.IsTerminal(terminalFd) {
		return &rawmode.ConfigError{Op: "check stdin", Err: errors.New("not a terminal")}
	}

	state, err := rawmode.Enter(terminalFd)
	if err != nil {
		return err
	}
	defer func() {
		if err := state.Restore(); err != nil {
			log.Printf("[PTYSH] Warning: failed to restore terminal settings: %v", err)
		}
	}()

	cols, rows, err := rawmode.Size(terminalFd)
	if err != nil {
		cols, rows = defaultCols, defaultRows
	}

	sess, err := pty.Spawn(cols, rows)
	if err != nil {
		return err
	}
	defer sess.Terminate()

	stop := relay.Bridge(terminalFd, relay.Callbacks{
		Resize:  func(cols, rows int) { _ = sess.Resize(cols, rows) },
		Forward: sess.Signal,
	})
	defer stop()

	proc := input.NewProcessor()
	proc.ExitOnInterrupt = exitOnInterrupt

	loop := &relay.Loop{
		Input:       os.Stdin,
		Output:      os.Stdout,
		ChildOut:    sess.Master(),
		ChildIn:     sess.Master(),
		Proc:        proc,
		SignalChild: sess.Signal,
	}
	return loop.Run()
}

// exitCode maps the error taxonomy onto distinguishable exit codes.
func exitCode(err error) int {
	var configErr *rawmode.ConfigError
	if errors.As(err, &configErr) {
		return exitTerminalConfig
	}
	var creationErr *pty.CreationError
	if errors.As(err, &creationErr) {
		return exitPtyCreation
	}
	return exitSession
}
