package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/iyulab/impact-analyzer/internal/catalog"
	"github.com/iyulab/impact-analyzer/internal/report"
)

const ruleWidth = 94

// Console renders the report for a terminal, optionally with colors.
type Console struct {
	Color bool
}

// NewConsole creates a console renderer.
func NewConsole(color bool) *Console {
	return &Console{Color: color}
}

func (c *Console) Format() string      { return FormatStdout }
func (c *Console) ContentType() string { return "text/plain; charset=utf-8" }

func (c *Console) Render(w io.Writer, tree *report.Tree, version string) error {
	rule := strings.Repeat("=", ruleWidth)
	lw := &lineWriter{w: w, version: version, palette: newPalette(w, c.Color)}

	lw.printf("%s\n", rule)
	lw.printf("Defense measures for %s\n\n", tree.Name)
	if err := tree.Walk(lw); err != nil {
		return err
	}
	lw.printf("%s\n", rule)
	return lw.err
}

// Text renders the report as plain text for a file.
type Text struct{}

// NewText creates a plain-text renderer.
func NewText() *Text {
	return &Text{}
}

func (t *Text) Format() string      { return FormatText }
func (t *Text) ContentType() string { return "text/plain; charset=utf-8" }

func (t *Text) Render(w io.Writer, tree *report.Tree, version string) error {
	lw := &lineWriter{w: w, version: version, techniquesHeader: true}

	lw.printf("Defense measures for %s\n\n", tree.Name)
	if err := tree.Walk(lw); err != nil {
		return err
	}
	return lw.err
}

// lineWriter formats walk events as indented lines. It keeps the first
// write error and turns later writes into no-ops.
type lineWriter struct {
	report.NopVisitor
	w                io.Writer
	version          string
	palette          palette
	techniquesHeader bool
	err              error
}

func (lw *lineWriter) printf(format string, args ...any) {
	if lw.err != nil {
		return
	}
	_, lw.err = fmt.Fprintf(lw.w, format, args...)
}

func (lw *lineWriter) EnterTactic(name string) error {
	lw.printf("%s\n", lw.palette.tactic("#"+name))
	if lw.techniquesHeader {
		lw.printf(" Attack Techniques\n")
	}
	return lw.err
}

func (lw *lineWriter) EnterTechnique(t *report.Technique) error {
	lw.printf(" %s-%s\n", t.ID, t.Name)
	lw.printf("     Enabled defense measures\n")
	return lw.err
}

func (lw *lineWriter) Defense(_ *report.Technique, d *report.Defense) error {
	compat := report.CompatibilityOf(d, lw.version)

	lw.printf("         Category: %s\n", d.Category)
	lw.printf("         Measure: %s %s\n", d.ID, d.Name)
	lw.printf("         Type: %s\n", d.Type)
	if compat.Deprecated {
		lw.printf("         Measure is deprecated in version %s\n", lw.version)
	}
	if compat.Known {
		lw.printf("         For more information visit %s\n", compat.Info)
	} else {
		lw.printf("         No compatibility information for version %s\n", lw.version)
	}
	if d.HasTemplate() {
		lw.printf("         Template: %s\n", *d.Template)
	}
	return lw.err
}

func (lw *lineWriter) LeaveTechnique(t *report.Technique) error {
	lw.printf("     Impact of defensive measures: %s\n", lw.palette.impact(t.Impact))
	return lw.err
}

func (lw *lineWriter) LeaveTactic(string) error {
	lw.printf("\n")
	return lw.err
}

// palette colors console output. The zero value leaves text unchanged.
type palette struct {
	enabled bool
	cyan    lipgloss.Style
	red     lipgloss.Style
	magenta lipgloss.Style
	yellow  lipgloss.Style
	blue    lipgloss.Style
}

func newPalette(w io.Writer, enabled bool) palette {
	if !enabled {
		return palette{}
	}
	r := lipgloss.NewRenderer(w)
	return palette{
		enabled: true,
		cyan:    r.NewStyle().Foreground(lipgloss.Color("6")),
		red:     r.NewStyle().Foreground(lipgloss.Color("1")),
		magenta: r.NewStyle().Foreground(lipgloss.Color("5")),
		yellow:  r.NewStyle().Foreground(lipgloss.Color("3")),
		blue:    r.NewStyle().Foreground(lipgloss.Color("4")),
	}
}

func (p palette) tactic(s string) string {
	if !p.enabled {
		return s
	}
	return p.cyan.Render(s)
}

func (p palette) impact(impact string) string {
	if !p.enabled {
		return impact
	}
	switch impact {
	case catalog.ImpactFull:
		return p.red.Render(impact)
	case catalog.ImpactPartial:
		return p.magenta.Render(impact)
	case catalog.ImpactLow:
		return p.yellow.Render(impact)
	default:
		return p.blue.Render(impact)
	}
}
