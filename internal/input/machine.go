package input

import "syscall"

// Control bytes recognized in the raw input stream.
const (
	byteInterrupt = 0x03 // Ctrl-C
	byteEOF       = 0x04 // Ctrl-D
	byteSuspend   = 0x1A // Ctrl-Z
	byteEscape    = 0x1B // ESC
	byteBackspace = 0x7F // DEL
)

// promptMarker is printed locally when a history redisplay erases the
// line (which also erases whatever prompt the child had drawn). Never
// forwarded to the child.
const promptMarker = "$ "

// ActionKind discriminates the instructions Feed emits.
type ActionKind int

const (
	// ActionEcho writes Data to the real terminal.
	ActionEcho ActionKind = iota
	// ActionForward writes Data to the PTY master.
	ActionForward
	// ActionSignal sends Signal to the child process.
	ActionSignal
	// ActionEndSession ends the relay loop cleanly.
	ActionEndSession
)

// Action is one instruction for the relay loop to carry out. Data is
// set for echo/forward, Signal for signal actions.
type Action struct {
	Kind   ActionKind
	Data   []byte
	Signal syscall.Signal
}

func echo(data []byte) Action    { return Action{Kind: ActionEcho, Data: data} }
func forward(data []byte) Action { return Action{Kind: ActionForward, Data: data} }
func endSession() Action         { return Action{Kind: ActionEndSession} }

func signal(s syscall.Signal) Action {
	return Action{Kind: ActionSignal, Signal: s}
}

// Processor is the line-editing state machine. It owns the in-progress
// line buffer, the escape-sequence accumulator, and the history; it is
// mutated only by Feed, from the relay loop's single thread of
// control.
type Processor struct {
	// ExitOnInterrupt makes Ctrl-C end the local session in addition
	// to signaling the child. Off by default: the child decides what
	// SIGINT means.
	ExitOnInterrupt bool

	line    []byte
	esc     []byte
	history History
}

// NewProcessor returns a processor with an empty line and history.
func NewProcessor() *Processor {
	return &Processor{}
}

// Line returns the in-progress line buffer's content.
func (p *Processor) Line() string { return string(p.line) }

// History exposes the store for inspection.
func (p *Processor) History() *History { return &p.history }

// Feed advances the machine by one input byte and returns the actions
// to perform, in order. It returns nil when the byte has no visible
// effect (backspace on an empty line, a swallowed escape prefix).
func (p *Processor) Feed(b byte) []Action {
	if len(p.esc) > 0 {
		return p.feedEscape(b)
	}

	switch {
	case b == byteInterrupt:
		actions := []Action{signal(syscall.SIGINT)}
		if p.ExitOnInterrupt {
			actions = append(actions, endSession())
		}
		return actions

	case b == byteSuspend:
		return []Action{signal(syscall.SIGTSTP)}

	case b == byteEOF:
		// Forward the EOF byte so the child sees end-of-input, then
		// leave.
		return []Action{forward([]byte{byteEOF}), endSession()}

	case b == byteBackspace:
		if len(p.line) == 0 {
			return nil
		}
		p.line = p.line[:len(p.line)-1]
		return []Action{echo([]byte("\b \b")), forward([]byte{byteBackspace})}

	case b == byteEscape:
		p.esc = append(p.esc, b)
		return nil

	case b == '\r' || b == '\n':
		return p.submit()

	default:
		p.line = append(p.line, b)
		return []Action{echo([]byte{b}), forward([]byte{b})}
	}
}

// feedEscape accumulates one byte of a pending escape sequence. Only
// 3-byte CSI sequences (ESC [ final) are recognized; a second byte
// other than '[' abandons the sequence without forwarding anything.
func (p *Processor) feedEscape(b byte) []Action {
	p.esc = append(p.esc, b)

	if len(p.esc) == 2 {
		if b != '[' {
			p.esc = nil
		}
		return nil
	}

	// ESC [ <final>: forward the sequence byte-identically, and for
	// arrow finals also recall history locally.
	seq := p.esc
	p.esc = nil
	actions := []Action{forward(seq)}

	switch b {
	case 'A':
		if entry, ok := p.history.Up(); ok {
			p.line = []byte(entry)
			actions = append(actions, p.redisplay())
		}
	case 'B':
		p.line = []byte(p.history.Down())
		actions = append(actions, p.redisplay())
	}
	return actions
}

// submit handles CR/LF: the "exit" command ends the session without
// forwarding anything further; any other non-empty line is recorded in
// history before the newline goes downstream.
func (p *Processor) submit() []Action {
	if string(p.line) == "exit" {
		return []Action{endSession()}
	}
	if len(p.line) > 0 {
		p.history.Append(string(p.line))
	}
	p.line = nil
	// OPOST is off in raw mode, so the local echo needs an explicit
	// CR; the child gets a bare newline.
	return []Action{forward([]byte("\n")), echo([]byte("\r\n"))}
}

// redisplay erases the visible input line and reprints the prompt
// marker plus the current line buffer. Purely local.
func (p *Processor) redisplay() Action {
	out := append([]byte("\r\x1b[K"), promptMarker...)
	return echo(append(out, p.line...))
}
