// Package reporter renders report trees as console text, plain text, JSON or HTML.
//
// Every renderer consumes the tree through report.Tree.Walk and decides
// deprecation through report.CompatibilityOf, so the four formats agree on
// what they show for a given defense and platform version.
package reporter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/iyulab/impact-analyzer/internal/catalog"
	"github.com/iyulab/impact-analyzer/internal/report"
)

// Output formats.
const (
	FormatStdout = "stdout"
	FormatText   = "txt"
	FormatJSON   = "json"
	FormatHTML   = "html"
)

// Renderer turns a report tree into one output representation.
type Renderer interface {
	// Render writes the tree for the given platform version to w.
	Render(w io.Writer, tree *report.Tree, version string) error

	// Format returns the format identifier (e.g. "json", "html").
	Format() string

	// ContentType returns the MIME content type for HTTP responses.
	ContentType() string
}

// Options configures renderer construction.
type Options struct {
	// Color enables ANSI colors in the console renderer.
	Color bool

	// SkeletonPath is the HTML skeleton the HTML renderer fills in.
	SkeletonPath string
}

// Formats lists the supported output formats.
func Formats() []string {
	f := []string{FormatStdout, FormatText, FormatJSON, FormatHTML}
	sort.Strings(f)
	return f
}

// New returns the renderer for format.
func New(format string, opts Options) (Renderer, error) {
	switch format {
	case FormatStdout:
		return NewConsole(opts.Color), nil
	case FormatText:
		return NewText(), nil
	case FormatJSON:
		return NewJSON(), nil
	case FormatHTML:
		skeleton, err := os.ReadFile(opts.SkeletonPath)
		if err != nil {
			return nil, fmt.Errorf("read html skeleton: %w", err)
		}
		return NewHTML(skeleton), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (use one of %v)", format, Formats())
	}
}

// RenderString renders the tree into a string.
func RenderString(r Renderer, tree *report.Tree, version string) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, tree, version); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// impactClass maps an impact rating to the CSS class of its HTML marker.
func impactClass(impact string) string {
	switch impact {
	case catalog.ImpactLow:
		return "low"
	case catalog.ImpactPartial:
		return "partial"
	default:
		return "full"
	}
}
