// Package terminal provides small helpers for tidying interactive output.
package terminal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const defaultWidth = 80

// Width returns the width of stdout, or 80 when it is not a terminal.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return defaultWidth
}

// LinesFor returns how many terminal rows textLength characters occupy at width.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = defaultWidth
	}
	n := (textLength + width - 1) / width
	if n < 1 {
		n = 1
	}
	return n
}

// ClearPreviousLines erases a prompt and the user's answer from w.
// textLength is the length of prompt plus input. The cursor sits on the
// fresh line left by Enter, so one extra row is cleared.
func ClearPreviousLines(w io.Writer, textLength int) {
	rows := LinesFor(textLength, Width()) + 1
	for i := 0; i < rows; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < rows-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}
