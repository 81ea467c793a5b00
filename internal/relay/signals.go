package relay

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/PiranhaCodes/ptysh/internal/rawmode"
)

// Callbacks is the narrow surface the signal bridge needs from the
// active session: resize propagation and signal forwarding. It keeps
// the process-wide registration from growing into a general mutable
// global.
type Callbacks struct {
	// Resize is called with the terminal's new dimensions after a
	// window-size change.
	Resize func(cols, rows int)
	// Forward delivers an interrupt or termination signal to the
	// child.
	Forward func(sig syscall.Signal)
}

// bridged enforces the single-session invariant: at most one bridge
// registration may exist per process at a time.
var bridged atomic.Bool

// Bridge intercepts SIGWINCH, SIGINT and SIGTERM for the lifetime of
// the session. Window-size changes are resolved against terminalFd and
// handed to cb.Resize; interrupt/termination signals go to cb.Forward.
// The servicing goroutine touches only kernel-mediated state (the PTY
// size ioctl, signal delivery) — never the relay loop's buffers.
//
// The returned stop function removes the registration; it must run
// during cleanup before the session is torn down. Bridge panics if a
// bridge is already registered: only one session is ever active in a
// process.
func Bridge(terminalFd int, cb Callbacks) (stop func()) {
	if !bridged.CompareAndSwap(false, true) {
		panic("relay: signal bridge already registered")
	}

	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGWINCH, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range ch {
			switch sig {
			case syscall.SIGWINCH:
				if cols, rows, err := rawmode.Size(terminalFd); err == nil {
					cb.Resize(cols, rows)
				}
			case syscall.SIGINT:
				cb.Forward(syscall.SIGINT)
			case syscall.SIGTERM:
				cb.Forward(syscall.SIGTERM)
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(ch)
		bridged.Store(false)
	}
}
