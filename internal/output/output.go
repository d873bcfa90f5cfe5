// Package output renders the CLI's console feedback during a build, search,
// or graph-link run: status lines, a carriage-return progress bar for the
// walk/split/embed stages, and the occasional indented code excerpt.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Writer is a thin formatter over an io.Writer; commands construct one per
// invocation against cmd.OutOrStdout() rather than sharing a global.
type Writer struct {
	out      io.Writer
	useColor bool
}

// New wraps out in a Writer. Color is left off: terminal capability
// detection isn't worth the complexity for a tool mostly piped to logs.
func New(out io.Writer) *Writer {
	return &Writer{
		out:      out,
		useColor: false,
	}
}

// Status prints a single line prefixed with icon, or three spaces of
// indentation when icon is empty so continuation lines still line up.
// Write errors are swallowed: a broken stdout pipe shouldn't crash a run
// that otherwise completed.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf is Status with fmt.Sprintf-style formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success reports a completed stage (build finished, graph linked, ...).
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf is Success with fmt.Sprintf-style formatting.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning reports a recoverable condition (a file skipped, a stale cache
// entry) that doesn't abort the run.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf is Warning with fmt.Sprintf-style formatting.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error reports a failure the caller is about to return or exit on.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf is Error with fmt.Sprintf-style formatting.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Code prints content indented two spaces, blank-line padded, for echoing
// a config snippet or a chunk's source excerpt back to the terminal.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints a blank line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Progress redraws a single in-place bar for a stage with a known item
// count (files walked, chunks embedded). msg names the stage so the same
// line can be reused across the walk/split/embed/index sequence.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderBar(current, total, 30)

	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)

	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// ProgressDone terminates an in-place Progress line with a newline.
func (w *Writer) ProgressDone() {
	_, _ = fmt.Fprintln(w.out)
}

// renderBar draws a width-wide block bar at current/total completion.
func renderBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
