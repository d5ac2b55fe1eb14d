package debugger

import (
	"errors"
	"os"
	"time"

	"golang.org/x/term"
)

// escTimeout bounds how long a raw read waits for the rest of an escape
// sequence before treating a lone ESC as the quit keystroke (spec.md
// §4.8, §6: "ESC ... exits").
const escTimeout = 50 * time.Millisecond

// RawTerminal puts stdin into raw mode for the debugger's keypress-driven
// run mode, grounded on the reference corpus's TerminalHost
// (term.MakeRaw/term.Restore, one byte at a time, translating carriage
// return and DEL the way a line-buffered terminal would).
type RawTerminal struct {
	fd  int
	old *term.State
}

// NewRawTerminal puts stdin into raw mode and returns a handle to
// restore it later.
func NewRawTerminal() (*RawTerminal, error) {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &RawTerminal{fd: fd, old: old}, nil
}

// ReadByte blocks for a single keystroke, translating \r to \n and DEL
// (0x7F) to backspace (0x08).
func (r *RawTerminal) ReadByte() (byte, error) {
	buf := make([]byte, 1)
	if _, err := os.Stdin.Read(buf); err != nil {
		return 0, err
	}
	b := buf[0]
	switch b {
	case '\r':
		b = '\n'
	case 0x7F:
		b = 0x08
	}
	return b, nil
}

// ReadByteTimeout waits up to d for one keystroke. ok is false, with a
// nil error, if nothing arrived in time; this backs both escape-sequence
// disambiguation (is ESC alone, or the start of an arrow key?) and the
// debugger's "stop a run on any keypress" behavior (spec.md §4.8,
// lines 182/188), which has to poll without blocking the run loop.
func (r *RawTerminal) ReadByteTimeout(d time.Duration) (b byte, ok bool, err error) {
	if err := os.Stdin.SetReadDeadline(time.Now().Add(d)); err != nil {
		return 0, false, err
	}
	defer os.Stdin.SetReadDeadline(time.Time{})

	buf := make([]byte, 1)
	_, err = os.Stdin.Read(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, false, nil
		}
		return 0, false, err
	}

	b = buf[0]
	switch b {
	case '\r':
		b = '\n'
	case 0x7F:
		b = 0x08
	}
	return b, true, nil
}

// Restore puts stdin back into whatever mode it was in before
// NewRawTerminal.
func (r *RawTerminal) Restore() error {
	return term.Restore(r.fd, r.old)
}
