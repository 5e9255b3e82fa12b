package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iyulab/impact-analyzer/internal/report"
)

// JSON renders the report tree with every defense expanded in place.
// The platform version does not change the document: the full
// version-status map of each defense is included.
type JSON struct {
	Indent string
}

// NewJSON creates a JSON renderer with four-space indentation.
func NewJSON() *JSON {
	return &JSON{Indent: "    "}
}

func (j *JSON) Format() string      { return FormatJSON }
func (j *JSON) ContentType() string { return "application/json" }

func (j *JSON) Render(w io.Writer, tree *report.Tree, _ string) error {
	data, err := json.MarshalIndent(tree, "", j.Indent)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
