package pty

import (
	"log"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	ptylib "github.com/creack/pty"
)

// terminateGrace is how long Terminate waits for the child to exit
// after SIGTERM before falling back to SIGKILL.
const terminateGrace = 2 * time.Second

// Session is a running child shell attached to a PTY. The parent holds
// the master side; the child holds the slave as its controlling
// terminal. Exactly one Session exists per process invocation.
type Session struct {
	ID string

	cmd       *exec.Cmd
	master    *os.File
	terminate sync.Once
}

// Master returns the PTY master descriptor. The relay loop reads child
// output from it and writes forwarded input to it.
func (s *Session) Master() *os.File {
	return s.master
}

// Pid returns the child shell's process id.
func (s *Session) Pid() int {
	return s.cmd.Process.Pid
}

// Resize updates the PTY's dimensions. Best-effort: the caller is
// expected to ignore the error, since a failed resize usually means
// the session is already shutting down.
func (s *Session) Resize(cols, rows int) error {
	return ptylib.Setsize(s.master, &ptylib.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// Signal forwards sig to the child. A no-op if the child is already
// gone — forwarding races with child exit by nature, so the error is
// swallowed.
func (s *Session) Signal(sig syscall.Signal) {
	if s.cmd.Process == nil {
		return
	}
	_ = s.cmd.Process.Signal(sig)
}

// Terminate shuts the session down: SIGTERM the child, wait up to
// terminateGrace for it to exit, SIGKILL if it hasn't, reap it, and
// close the master descriptor. Safe to call from any exit path; only
// the first call acts, and an already-dead child is tolerated.
func (s *Session) Terminate() {
	s.terminate.Do(func() {
		if s.cmd.Process != nil {
			if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
				log.Printf("[PTY] Session %s: SIGTERM failed (child already gone?): %v", s.ID, err)
			}

			done := make(chan error, 1)
			go func() { done <- s.cmd.Wait() }()

			select {
			case <-done:
			case <-time.After(terminateGrace):
				if err := s.cmd.Process.Kill(); err != nil {
					log.Printf("[PTY] Session %s: kill failed: %v", s.ID, err)
				}
				<-done
			}
		}

		s.master.Close()
		log.Printf("[PTY] Session %s: terminated", s.ID)
	})
}
