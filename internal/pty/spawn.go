package pty

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"syscall"

	ptylib "github.com/creack/pty"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// ShellPath is the interactive shell the session runs. The shell is
// fixed: no flag, environment variable, or config file changes it.
const ShellPath = "/bin/bash"

// CreationError reports a failure to allocate the PTY pair or start
// the child shell. Fatal to the whole process at startup.
type CreationError struct {
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("pty creation: %v", e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// Spawn allocates a PTY pair, disables echo on the slave side, sets
// the initial window size, and starts the shell with the slave as its
// stdin/stdout/stderr and controlling terminal. The parent keeps only
// the master descriptor; the slave is closed once the child holds its
// own copies.
func Spawn(cols, rows int) (*Session, error) {
	if !isExecutable(ShellPath) {
		return nil, &CreationError{Err: fmt.Errorf("shell %s not found or not executable", ShellPath)}
	}

	master, slave, err := ptylib.Open()
	if err != nil {
		return nil, &CreationError{Err: fmt.Errorf("open pty pair: %w", err)}
	}

	// The child's terminal must not echo: all echoing is done locally
	// by the input processor on the real terminal.
	if err := disableEcho(int(slave.Fd())); err != nil {
		slave.Close()
		master.Close()
		return nil, &CreationError{Err: fmt.Errorf("disable slave echo: %w", err)}
	}

	if err := ptylib.Setsize(master, &ptylib.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	}); err != nil {
		slave.Close()
		master.Close()
		return nil, &CreationError{Err: fmt.Errorf("set initial size: %w", err)}
	}

	sess, err := startChild(exec.Command(ShellPath), master, slave)
	if err != nil {
		return nil, &CreationError{Err: err}
	}

	log.Printf("[PTY] Session %s: spawned %s (pid %d)", sess.ID, ShellPath, sess.Pid())
	return sess, nil
}

// startChild wires cmd to the slave end and starts it in a new session
// with the slave as controlling terminal. On success it owns master
// and has closed slave; on failure both are closed.
func startChild(cmd *exec.Cmd, master, slave *os.File) (*Session, error) {
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in the child = slave PTY
	}

	if err := cmd.Start(); err != nil {
		slave.Close()
		master.Close()
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	// The child has its own descriptors via fd 0/1/2.
	slave.Close()

	return &Session{
		ID:     uuid.New().String(),
		cmd:    cmd,
		master: master,
	}, nil
}

// disableEcho clears the ECHO flag on the terminal referred to by fd,
// flushing pending input first (TCSETSF, the TCSAFLUSH variant).
func disableEcho(fd int) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	termios.Lflag &^= unix.ECHO
	return unix.IoctlSetTermios(fd, unix.TCSETSF, termios)
}

// isExecutable checks that path is a regular file with an execute bit.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	mode := info.Mode()
	return mode.IsRegular() && mode&0111 != 0
}
