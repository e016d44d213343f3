// Package console renders log entries the way the terminal view displays
// them: a wall-clock timestamp, a prefix tag and one line of text.
package console

import (
	"context"
	"fmt"
	"io"

	"zephterm/internal/serial"
)

// timeLayout matches the HH:MM:SS stamp shown before every line.
const timeLayout = "15:04:05"

// Render formats one entry for display, without a trailing newline.
func Render(e serial.LogEntry) string {
	return e.Timestamp.Format(timeLayout) + " " + e.Prefix + e.Text
}

// Printer streams rendered entries to a writer. It backs the plain
// (non-TUI) session mode.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes a single rendered entry.
func (p *Printer) Print(e serial.LogEntry) error {
	_, err := fmt.Fprintln(p.w, Render(e))
	return err
}

// Follow consumes entries until the channel closes or the context is
// canceled. Entries are printed in arrival order.
func (p *Printer) Follow(ctx context.Context, entries <-chan serial.LogEntry) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-entries:
			if !ok {
				return nil
			}
			if err := p.Print(e); err != nil {
				return err
			}
		}
	}
}
