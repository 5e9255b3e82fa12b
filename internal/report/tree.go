// Package report builds the canonical report tree for one scenario and
// walks it on behalf of the renderers.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iyulab/impact-analyzer/internal/catalog"
	"github.com/iyulab/impact-analyzer/internal/resolver"
)

// Tree is the report for one scenario and tactic selection.
// It is built fresh per invocation and handed to exactly one renderer.
// ID keeps the JSON type the scenario catalog used for it.
type Tree struct {
	ID      catalog.Ident `json:"id"`
	Name    string        `json:"name"`
	Tactics TacticList    `json:"tactics"`
}

// TacticEntry is one selected tactic with its techniques.
type TacticEntry struct {
	Name       string      `json:"-"`
	Techniques []Technique `json:"techniques"`
}

// Technique is a technique with its resolved defenses.
type Technique struct {
	ID       catalog.Ident `json:"id"`
	Name     string        `json:"name"`
	Impact   string        `json:"impact"`
	Defenses []Defense     `json:"defenses"`
}

// Defense is a defense reference merged with its resolved catalog details.
// Template and VersionStatus are always emitted, as null when absent, so the
// JSON schema stays uniform across defenses.
type Defense struct {
	ID            string                   `json:"id"`
	Help          string                   `json:"help,omitempty"`
	Category      string                   `json:"category"`
	Name          string                   `json:"name"`
	Type          string                   `json:"type"`
	VersionStatus catalog.VersionStatusMap `json:"version-status"`
	Template      *string                  `json:"template"`
}

func newDefense(ref catalog.DefenseRef, d resolver.DefenseDetail) Defense {
	return Defense{
		ID:            ref.ID,
		Help:          ref.Help,
		Category:      d.Category,
		Name:          d.Name,
		Type:          d.Type,
		VersionStatus: d.VersionStatus,
		Template:      d.Template,
	}
}

// HasTemplate reports whether the defense defines a template.
func (d *Defense) HasTemplate() bool {
	return d.Template != nil
}

// Detail returns the resolver view of the defense.
func (d *Defense) Detail() resolver.DefenseDetail {
	return resolver.DefenseDetail{
		Category:      d.Category,
		ID:            d.ID,
		Name:          d.Name,
		Type:          d.Type,
		Template:      d.Template,
		VersionStatus: d.VersionStatus,
	}
}

// Counts summarizes the size of a tree.
type Counts struct {
	Tactics    int
	Techniques int
	Defenses   int
}

// Counts returns the number of tactics, techniques and defenses in the tree.
func (t *Tree) Counts() Counts {
	c := Counts{Tactics: len(t.Tactics)}
	for _, tactic := range t.Tactics {
		c.Techniques += len(tactic.Techniques)
		for _, tech := range tactic.Techniques {
			c.Defenses += len(tech.Defenses)
		}
	}
	return c
}

// TacticList keeps tactics in scenario order and encodes as a JSON object
// keyed by tactic name.
type TacticList []TacticEntry

func (l TacticList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (l *TacticList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*l = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("tactics: expected object")
	}

	out := TacticList{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var e TacticEntry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("tactic %q: %w", name, err)
		}
		e.Name = name
		out = append(out, e)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = out
	return nil
}
