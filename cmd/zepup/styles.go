package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles renders CLI output. Colour is only emitted when the writer is a terminal.
type styles struct {
	renderer *lipgloss.Renderer
	ok       lipgloss.Style
	fail     lipgloss.Style
	warn     lipgloss.Style
	heading  lipgloss.Style
	dim      lipgloss.Style
	accent   lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	return &styles{
		renderer: r,
		ok:       r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"}).Bold(true),
		fail:     r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}).Bold(true),
		warn:     r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"}),
		heading:  r.NewStyle().Bold(true).Underline(true),
		dim:      r.NewStyle().Faint(true),
		accent:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"}),
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func (a *app) success(format string, args ...any) {
	a.printf("%s\n", a.styles.ok.Render("✅ "+fmt.Sprintf(format, args...)))
}

func (a *app) failure(format string, args ...any) {
	a.printf("%s\n", a.styles.fail.Render("❌ "+fmt.Sprintf(format, args...)))
}

func (a *app) warning(format string, args ...any) {
	a.printf("%s\n", a.styles.warn.Render("⚠️  "+fmt.Sprintf(format, args...)))
}
