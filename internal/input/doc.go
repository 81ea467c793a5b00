// Package input implements the byte-level line-editing state machine.
// It performs no I/O itself: each input byte produces an ordered list
// of actions (echo, forward, signal, end-session) for the relay loop
// to carry out, which keeps the machine testable without a terminal.
package input
