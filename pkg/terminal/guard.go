// Package terminal switches the controlling terminal into raw mode and reads
// single keystrokes from it.
package terminal

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"
)

// ErrNotTerminal is returned by Acquire when the file is not a TTY.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// modeOps is the part of golang.org/x/term the guard depends on.
type modeOps struct {
	isTerminal func(fd int) bool
	makeRaw    func(fd int) (*term.State, error)
	restore    func(fd int, state *term.State) error
}

var defaultOps = modeOps{
	isTerminal: term.IsTerminal,
	makeRaw:    term.MakeRaw,
	restore:    term.Restore,
}

// Guard holds the terminal settings captured before raw mode was enabled.
type Guard struct {
	fd  int
	ops modeOps

	mu       sync.Mutex
	saved    *term.State
	released bool
}

// Acquire captures the current terminal attributes of f and switches it to
// raw mode: no line buffering, no echo, and no signal generation, so Ctrl-C
// arrives as byte 0x03. The returned guard must be released on every exit
// path.
func Acquire(f *os.File) (*Guard, error) {
	return acquire(int(f.Fd()), defaultOps)
}

func acquire(fd int, ops modeOps) (*Guard, error) {
	if !ops.isTerminal(fd) {
		return nil, ErrNotTerminal
	}
	saved, err := ops.makeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enable raw mode: %w", err)
	}
	return &Guard{fd: fd, ops: ops, saved: saved}, nil
}

// Release restores the attributes captured by Acquire. Only the first call
// touches the terminal; later calls and calls on a nil guard return nil.
func (g *Guard) Release() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return nil
	}
	g.released = true
	if err := g.ops.restore(g.fd, g.saved); err != nil {
		return fmt.Errorf("restore terminal: %w", err)
	}
	return nil
}
