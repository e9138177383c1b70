// Terminal status printer for the Tahoe launcher.
// Every line is indented two spaces and prefixed with a glyph that marks
// its level (→ step, ✔ success, ! warning, ✖ error). Colours are only
// emitted when the destination is a terminal.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	reset  = "\033[0m"
	cyan   = "\033[1;36m"
	yellow = "\033[1;33m"
	green  = "\033[1;32m"
	gray   = "\033[38;5;245m"
	purple = "\033[38;5;141m"
	red    = "\033[1;31m"
)

// Printer writes coloured status lines to an io.Writer.
// It is safe for concurrent use; the delayed profile refresh prints from
// its own goroutine while the main goroutine waits on the child.
type Printer struct {
	w     io.Writer
	color bool
	mu    sync.Mutex
}

// New returns a Printer writing to w. Colours are enabled only when w is
// an *os.File attached to a terminal.
func New(w io.Writer) *Printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{w: w, color: color}
}

// Stdout returns a Printer for os.Stdout.
func Stdout() *Printer { return New(os.Stdout) }

// Stderr returns a Printer for os.Stderr.
func Stderr() *Printer { return New(os.Stderr) }

func (p *Printer) line(color, glyph, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.color {
		fmt.Fprintf(p.w, "%s  %s  %s%s\n", color, glyph, msg, reset)
		return
	}
	fmt.Fprintf(p.w, "  %s  %s\n", glyph, msg)
}

// Step prints an in-progress action, e.g. "→  Updating server configuration...".
func (p *Printer) Step(format string, args ...any) { p.line(gray, "→", format, args...) }

// Success prints a completed action.
func (p *Printer) Success(format string, args ...any) { p.line(green, "✔", format, args...) }

// Warn prints a non-fatal problem.
func (p *Printer) Warn(format string, args ...any) { p.line(yellow, "!", format, args...) }

// Error prints a fatal problem. The caller decides whether to exit.
func (p *Printer) Error(format string, args ...any) { p.line(red, "✖", format, args...) }

// Prompt prints a question without a trailing newline. def is shown in
// brackets and may be empty.
func (p *Printer) Prompt(question, def string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.color {
		fmt.Fprintf(p.w, "%s  ?  %s %s[%s]%s: ", cyan, question, purple, def, reset)
		return
	}
	fmt.Fprintf(p.w, "  ?  %s [%s]: ", question, def)
}

// Banner prints the startup header with the working directory and mode.
func (p *Printer) Banner(title, dir, mode string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.color {
		fmt.Fprintf(p.w, "\n%s  %s%s\n", cyan, title, reset)
		fmt.Fprintf(p.w, "%s  ─────────────────────────────────────────────────────%s\n", gray, reset)
		fmt.Fprintf(p.w, "%s  Directory  %s%s%s\n", gray, purple, dir, reset)
		fmt.Fprintf(p.w, "%s  Mode       %s%s%s\n", gray, purple, mode, reset)
		fmt.Fprintf(p.w, "%s  ─────────────────────────────────────────────────────%s\n\n", gray, reset)
		return
	}
	fmt.Fprintf(p.w, "\n  %s\n", title)
	fmt.Fprintf(p.w, "  Directory  %s\n", dir)
	fmt.Fprintf(p.w, "  Mode       %s\n\n", mode)
}

// FormatDuration converts a duration to a human-readable string like "2h30m" or "45s".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) - h*60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}

// FormatBytes converts a byte count to a human-readable string like "1.5MB" or "256B".
func FormatBytes(b int64) string {
	switch {
	case b < 1024:
		return fmt.Sprintf("%dB", b)
	case b < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	case b < 1024*1024*1024:
		return fmt.Sprintf("%.1fMB", float64(b)/(1024*1024))
	default:
		return fmt.Sprintf("%.1fGB", float64(b)/(1024*1024*1024))
	}
}
