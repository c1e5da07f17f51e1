// ABOUTME: Status line printer implementing the orchestrator's progress reporter
// ABOUTME: Colours with lipgloss only when the output is a terminal or colour is forced

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/mauromedda/gitstaller/internal/config"
	"github.com/mauromedda/gitstaller/internal/pkgmanager"
)

const (
	glyphStep    = "⏳"
	glyphSuccess = "✅"
	glyphWarn    = "⚠️"
	glyphFail    = "❌"
)

// Printer writes one status line per event.
type Printer struct {
	w       io.Writer
	step    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	header  lipgloss.Style
	muted   lipgloss.Style
}

var _ pkgmanager.Reporter = (*Printer)(nil)

// NewPrinter returns a Printer for w. mode is one of the config colour modes.
func NewPrinter(w io.Writer, mode string) *Printer {
	r := lipgloss.NewRenderer(w)
	if useColor(w, mode) {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{
		w:       w,
		step:    r.NewStyle().Foreground(lipgloss.Color("12")),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		header:  r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func useColor(w io.Writer, mode string) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *Printer) line(glyph string, style lipgloss.Style, format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", glyph, style.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Step(format string, args ...any)    { p.line(glyphStep, p.step, format, args...) }
func (p *Printer) Success(format string, args ...any) { p.line(glyphSuccess, p.success, format, args...) }
func (p *Printer) Warn(format string, args ...any)    { p.line(glyphWarn, p.warn, format, args...) }
func (p *Printer) Fail(format string, args ...any)    { p.line(glyphFail, p.fail, format, args...) }
