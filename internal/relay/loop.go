// Package relay drives the session: a single-threaded poll(2) loop
// multiplexing the real terminal's input with the PTY master's output,
// plus the signal bridge that forwards resize and interrupt signals
// into the session.
package relay

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/PiranhaCodes/ptysh/internal/input"
)

// readChunk bounds each drain of a ready descriptor.
const readChunk = 1024

// WaitError reports a poll failure other than signal interruption.
// Fatal to the session; cleanup still runs.
type WaitError struct {
	Err error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("io wait: %v", e.Err)
}

func (e *WaitError) Unwrap() error { return e.Err }

// Loop relays bytes between the real terminal and the child's PTY.
// Terminal input runs through the input processor; child output is
// passed through verbatim.
type Loop struct {
	// Input is the terminal's input stream, already in raw mode.
	Input *os.File
	// Output receives both local echo and the child's output.
	Output io.Writer
	// ChildOut is polled and read for the child's output (the PTY
	// master in production; any pollable descriptor in tests).
	ChildOut *os.File
	// ChildIn receives bytes forwarded to the child.
	ChildIn io.Writer
	// Proc decides, per input byte, what is echoed, forwarded, or
	// signaled.
	Proc *input.Processor
	// SignalChild delivers a processor-requested signal to the child.
	SignalChild func(syscall.Signal)
}

// Run blocks until the session ends. It returns nil on a clean end
// (exit command, Ctrl-D, end-of-stream on either side) and an error
// when the wait or a relay write fails.
func (l *Loop) Run() error {
	fds := []unix.PollFd{
		{Fd: int32(l.Input.Fd()), Events: unix.POLLIN},
		{Fd: int32(l.ChildOut.Fd()), Events: unix.POLLIN},
	}
	buf := make([]byte, readChunk)

	for {
		fds[0].Revents = 0
		fds[1].Revents = 0

		// Infinite timeout: nothing to do until a source is ready or
		// a signal lands. A signal wakeup is a retry, not an error.
		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return &WaitError{Err: err}
		}

		if fds[0].Revents != 0 {
			done, err := l.drainInput(buf)
			if done || err != nil {
				return err
			}
		}

		if fds[1].Revents != 0 {
			done, err := l.drainChild(buf)
			if done || err != nil {
				return err
			}
		}
	}
}

// drainInput performs one bounded read of terminal input and runs each
// byte through the processor. Reports done on end-of-stream or when an
// action ends the session.
func (l *Loop) drainInput(buf []byte) (done bool, err error) {
	n, err := unix.Read(int(l.Input.Fd()), buf)
	if err != nil {
		if err == unix.EINTR || err == unix.EAGAIN {
			return false, nil
		}
		return true, nil // terminal input gone: clean shutdown
	}
	if n <= 0 {
		return true, nil
	}

	for _, b := range buf[:n] {
		for _, action := range l.Proc.Feed(b) {
			switch action.Kind {
			case input.ActionEcho:
				if _, err := l.Output.Write(action.Data); err != nil {
					return true, fmt.Errorf("echo to terminal: %w", err)
				}
			case input.ActionForward:
				if _, err := l.ChildIn.Write(action.Data); err != nil {
					return true, fmt.Errorf("forward to child: %w", err)
				}
			case input.ActionSignal:
				l.SignalChild(action.Signal)
			case input.ActionEndSession:
				return true, nil
			}
		}
	}
	return false, nil
}

// drainChild performs one bounded read of child output and writes it
// verbatim to the terminal. EOF and EIO are how a PTY master reports
// the child side closing, so both mean a clean shutdown.
func (l *Loop) drainChild(buf []byte) (done bool, err error) {
	n, err := unix.Read(int(l.ChildOut.Fd()), buf)
	if err != nil {
		if err == unix.EINTR || err == unix.EAGAIN {
			return false, nil
		}
		return true, nil
	}
	if n <= 0 {
		return true, nil
	}
	if _, err := l.Output.Write(buf[:n]); err != nil {
		return true, fmt.Errorf("write child output: %w", err)
	}
	return false, nil
}
