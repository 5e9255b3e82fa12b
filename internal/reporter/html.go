package reporter

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/iyulab/impact-analyzer/internal/report"
)

// tableHeaders are the columns of each technique's defense table.
var tableHeaders = []string{"Id", "Measure", "Category", "Type", "Version Compatibility", "Info", "Template"}

// HTML fills an HTML skeleton document with the report. The skeleton's
// <title> text is replaced and a <div id="container"> is appended to <body>.
type HTML struct {
	skeleton []byte
	now      func() time.Time
}

// NewHTML creates an HTML renderer over the given skeleton document.
func NewHTML(skeleton []byte) *HTML {
	return &HTML{skeleton: skeleton, now: time.Now}
}

func (h *HTML) Format() string      { return FormatHTML }
func (h *HTML) ContentType() string { return "text/html; charset=utf-8" }

func (h *HTML) Render(w io.Writer, tree *report.Tree, version string) error {
	doc, err := html.Parse(bytes.NewReader(h.skeleton))
	if err != nil {
		return fmt.Errorf("parse html skeleton: %w", err)
	}
	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)
	if head == nil || body == nil {
		return fmt.Errorf("html skeleton has no head or body")
	}

	generated := h.now().Format("02/01/2006 15:04:05")

	title := findElement(head, atom.Title)
	if title == nil {
		title = element(atom.Title)
		head.AppendChild(title)
	}
	setText(title, "Output "+generated)

	container := element(atom.Div, "id", "container")
	container.AppendChild(withText(element(atom.H1),
		fmt.Sprintf("Kubernetes defense report generated on %s - Version %s", generated, version)))

	b := &htmlBuilder{container: container, version: version}
	if err := tree.Walk(b); err != nil {
		return err
	}
	body.AppendChild(container)

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// htmlBuilder turns walk events into DOM nodes under container.
type htmlBuilder struct {
	report.NopVisitor
	container *html.Node
	version   string

	tactic    *html.Node
	technique *html.Node
	table     *html.Node
}

func (b *htmlBuilder) EnterTactic(name string) error {
	b.tactic = element(atom.Div, "class", "sub-container")
	b.tactic.AppendChild(withText(element(atom.H2), name))
	return nil
}

func (b *htmlBuilder) EnterTechnique(t *report.Technique) error {
	b.technique = element(atom.Div, "id", t.ID.String(), "class", "techniqueDiv")
	b.technique.AppendChild(withText(element(atom.H3), t.ID.String()+"-"+t.Name))

	impact := element(atom.P)
	impact.AppendChild(withText(element(atom.Span, "class", impactClass(t.Impact)), "Score: "+t.Impact))
	b.technique.AppendChild(impact)

	b.table = element(atom.Table, "id", "table-"+t.ID.String())
	header := element(atom.Tr)
	for _, h := range tableHeaders {
		header.AppendChild(withText(element(atom.Th), h))
	}
	b.table.AppendChild(header)
	return nil
}

func (b *htmlBuilder) Defense(_ *report.Technique, d *report.Defense) error {
	compat := report.CompatibilityOf(d, b.version)

	row := element(atom.Tr)
	row.AppendChild(withText(element(atom.Td), d.ID))
	row.AppendChild(withText(element(atom.Td), d.Name))
	row.AppendChild(withText(element(atom.Td), d.Category))
	row.AppendChild(withText(element(atom.Td), d.Type))
	row.AppendChild(withText(element(atom.Td), compat.Label()))

	info := element(atom.Td)
	if compat.Known && compat.Info != "" {
		info.AppendChild(withText(element(atom.A, "href", compat.Info), compat.Info))
	}
	row.AppendChild(info)

	tmpl := element(atom.Td)
	if d.HasTemplate() {
		tmpl.AppendChild(withText(element(atom.A, "href", *d.Template), *d.Template))
	}
	row.AppendChild(tmpl)

	b.table.AppendChild(row)
	return nil
}

func (b *htmlBuilder) LeaveTechnique(*report.Technique) error {
	b.technique.AppendChild(b.table)
	b.tactic.AppendChild(b.technique)
	b.technique, b.table = nil, nil
	return nil
}

func (b *htmlBuilder) LeaveTactic(string) error {
	b.container.AppendChild(b.tactic)
	b.tactic = nil
	return nil
}

// element creates an element node; attrs are key/value pairs.
func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func withText(n *html.Node, s string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	return n
}

func setText(n *html.Node, s string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	withText(n, s)
}

// findElement returns the first element with atom a in depth-first order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
