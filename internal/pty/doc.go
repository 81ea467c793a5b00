// Package pty owns the pseudo-terminal session: allocating the
// master/slave pair, starting the child shell with the slave as its
// controlling terminal, resizing, and exactly-once teardown.
package pty
