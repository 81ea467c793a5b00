package relay

import (
	"bytes"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/PiranhaCodes/ptysh/internal/input"
)

// failingWriter fails every write with a fixed error.
type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

// testLoop builds a Loop over pipe descriptors. Returned writers feed
// the loop's two poll sources; the buffers collect what the loop wrote
// to the terminal and toward the child. Buffers are only inspected
// after Run returns, so no synchronization is needed.
func testLoop(t *testing.T) (l *Loop, terminalIn, childEmit *os.File, terminalOut, childIn *bytes.Buffer) {
	t.Helper()

	inputRead, inputWrite, err := os.Pipe()
	if err != nil {
		t.Fatalf("input pipe: %v", err)
	}
	childRead, childWrite, err := os.Pipe()
	if err != nil {
		t.Fatalf("child pipe: %v", err)
	}
	t.Cleanup(func() {
		inputRead.Close()
		inputWrite.Close()
		childRead.Close()
		childWrite.Close()
	})

	terminalOut = &bytes.Buffer{}
	childIn = &bytes.Buffer{}
	l = &Loop{
		Input:       inputRead,
		Output:      terminalOut,
		ChildOut:    childRead,
		ChildIn:     childIn,
		Proc:        input.NewProcessor(),
		SignalChild: func(syscall.Signal) {},
	}
	return l, inputWrite, childWrite, terminalOut, childIn
}

func TestLoopForwardsEditedInput(t *testing.T) {
	t.Parallel()
	l, terminalIn, _, terminalOut, childIn := testLoop(t)

	terminalIn.WriteString("hi\r")
	terminalIn.Close() // EOF after the submission: clean shutdown

	if err := l.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := childIn.String(), "hi\n"; got != want {
		t.Errorf("forwarded to child: got %q, want %q", got, want)
	}
	if got, want := terminalOut.String(), "hi\r\n"; got != want {
		t.Errorf("echoed: got %q, want %q", got, want)
	}
}

func TestLoopEndsOnExitCommand(t *testing.T) {
	t.Parallel()
	l, terminalIn, _, _, childIn := testLoop(t)

	// The pipe stays open: only the end-session action stops the loop.
	terminalIn.WriteString("exit\r")

	if err := l.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := childIn.String(), "exit"; got != want {
		t.Errorf("forwarded to child: got %q, want %q (no trailing newline)", got, want)
	}
}

func TestLoopEndsOnCtrlD(t *testing.T) {
	t.Parallel()
	l, terminalIn, _, _, childIn := testLoop(t)

	terminalIn.Write([]byte{0x04})

	if err := l.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := childIn.String(), "\x04"; got != want {
		t.Errorf("forwarded to child: got %q, want %q", got, want)
	}
}

func TestLoopPassesChildOutputThroughVerbatim(t *testing.T) {
	t.Parallel()
	l, _, childEmit, terminalOut, _ := testLoop(t)

	payload := "\x1b[31mchild says hi\x1b[0m\r\n"
	childEmit.WriteString(payload)
	childEmit.Close() // child gone after its output: clean shutdown

	if err := l.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := terminalOut.String(); got != payload {
		t.Errorf("terminal output: got %q, want %q", got, payload)
	}
}

func TestLoopChildOutputDoesNotDisturbLineEditing(t *testing.T) {
	t.Parallel()
	l, terminalIn, childEmit, _, _ := testLoop(t)

	terminalIn.WriteString("ab")
	childEmit.WriteString("background noise")
	childEmit.Close()
	terminalIn.Close()

	if err := l.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := l.Proc.Line(); got != "ab" {
		t.Errorf("line buffer: got %q, want %q", got, "ab")
	}
}

func TestLoopEchoWriteFailureIsFatal(t *testing.T) {
	t.Parallel()
	l, terminalIn, _, _, _ := testLoop(t)

	sinkErr := errors.New("terminal gone")
	l.Output = failingWriter{err: sinkErr}

	terminalIn.WriteString("a")

	err := l.Run()
	if !errors.Is(err, sinkErr) {
		t.Errorf("Run: got %v, want wrapped %v", err, sinkErr)
	}
}

func TestLoopForwardWriteFailureIsFatal(t *testing.T) {
	t.Parallel()
	l, terminalIn, _, _, _ := testLoop(t)

	sinkErr := errors.New("master gone")
	l.ChildIn = failingWriter{err: sinkErr}

	terminalIn.WriteString("a")

	err := l.Run()
	if !errors.Is(err, sinkErr) {
		t.Errorf("Run: got %v, want wrapped %v", err, sinkErr)
	}
}

func TestLoopChildOutputWriteFailureIsFatal(t *testing.T) {
	t.Parallel()
	l, _, childEmit, _, _ := testLoop(t)

	sinkErr := errors.New("terminal gone")
	l.Output = failingWriter{err: sinkErr}

	childEmit.WriteString("output")

	err := l.Run()
	if !errors.Is(err, sinkErr) {
		t.Errorf("Run: got %v, want wrapped %v", err, sinkErr)
	}
}

// Not parallel: installs a process-wide signal handler.
func TestLoopSurvivesSignalDuringWait(t *testing.T) {
	l, terminalIn, _, _, childIn := testLoop(t)

	// Catch SIGUSR1 so delivery interrupts a blocked poll instead of
	// killing the process.
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	defer signal.Stop(ch)

	result := make(chan error, 1)
	go func() { result <- l.Run() }()

	// Poke the blocked wait a few times, then end the session. The
	// interrupted wait must retry, not abort.
	for i := 0; i < 3; i++ {
		time.Sleep(10 * time.Millisecond)
		if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
			t.Fatalf("kill: %v", err)
		}
	}
	terminalIn.WriteString("hi\r")
	terminalIn.Close()

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not finish within 5s")
	}
	if got, want := childIn.String(), "hi\n"; got != want {
		t.Errorf("forwarded to child: got %q, want %q", got, want)
	}
}

func TestLoopDeliversSignalActions(t *testing.T) {
	t.Parallel()
	l, terminalIn, _, _, _ := testLoop(t)

	var delivered []syscall.Signal
	l.SignalChild = func(sig syscall.Signal) { delivered = append(delivered, sig) }

	terminalIn.Write([]byte{0x03, 0x1A})
	terminalIn.Close()

	if err := l.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(delivered) != 2 || delivered[0] != syscall.SIGINT || delivered[1] != syscall.SIGTSTP {
		t.Errorf("delivered signals: got %v, want [SIGINT SIGTSTP]", delivered)
	}
}
