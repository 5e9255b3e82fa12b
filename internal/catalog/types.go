// Package catalog loads the two knowledge bases the analyzer works from:
// the defense-measure catalog and the attack-scenario catalog.
//
// Both are decoded once per run and treated as read-only afterwards.
// The defense catalog is an ordered forest whose array positions are part
// of its contract: a dotted identifier such as "2.3.1" addresses the first
// sub-measure of the third measure of the second category. Reordering the
// document therefore changes what every identifier means.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Version compatibility tags used in version-status entries.
const (
	StatusOK         = "OK"
	StatusDeprecated = "DEPRECATED"
)

// Technique impact ratings.
const (
	ImpactFull    = "FULL IMPACT"
	ImpactPartial = "PARTIAL IMPACT"
	ImpactLow     = "LOW IMPACT"
)

// VersionStatus is the compatibility record of a measure for one platform version.
// Documents may carry either the structured {status, info} form or a bare
// string tag; the bare form decodes with an empty Info.
type VersionStatus struct {
	Status string `json:"status" yaml:"status"`
	Info   string `json:"info" yaml:"info"`
}

// Deprecated reports whether the status marks the measure as deprecated.
func (v VersionStatus) Deprecated() bool {
	return v.Status == StatusDeprecated
}

func (v *VersionStatus) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		*v = VersionStatus{Status: tag}
		return nil
	}
	type plain VersionStatus
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("version status: %w", err)
	}
	*v = VersionStatus(p)
	return nil
}

func (v *VersionStatus) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*v = VersionStatus{Status: node.Value}
		return nil
	}
	type plain VersionStatus
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("line %d: version status: %w", node.Line, err)
	}
	*v = VersionStatus(p)
	return nil
}

// VersionStatusMap maps a platform version (e.g. "1.20") to its compatibility record.
type VersionStatusMap map[string]VersionStatus

// UnmarshalJSON drops null entries: a version mapped to null has no
// compatibility record.
func (m *VersionStatusMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("version status map: %w", err)
	}
	if raw == nil {
		*m = nil
		return nil
	}
	out := make(VersionStatusMap, len(raw))
	for version, entry := range raw {
		if bytes.Equal(bytes.TrimSpace(entry), []byte("null")) {
			continue
		}
		var vs VersionStatus
		if err := json.Unmarshal(entry, &vs); err != nil {
			return fmt.Errorf("version %s: %w", version, err)
		}
		out[version] = vs
	}
	*m = out
	return nil
}

// UnmarshalYAML drops null entries like UnmarshalJSON.
func (m *VersionStatusMap) UnmarshalYAML(node *yaml.Node) error {
	if node.ShortTag() == "!!null" {
		*m = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: version status map must be a mapping", node.Line)
	}
	out := make(VersionStatusMap, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		version, entry := node.Content[i].Value, node.Content[i+1]
		if entry.ShortTag() == "!!null" {
			continue
		}
		var vs VersionStatus
		if err := entry.Decode(&vs); err != nil {
			return fmt.Errorf("version %s: %w", version, err)
		}
		out[version] = vs
	}
	*m = out
	return nil
}

// Lookup returns the record for version, if the map has one.
func (m VersionStatusMap) Lookup(version string) (VersionStatus, bool) {
	vs, ok := m[version]
	return vs, ok
}

// Measure is a level-2 defense measure or a level-3 sub-measure.
// Template is nil when the document defines none; VersionStatus is nil
// when the document has no version map for the node.
type Measure struct {
	ID            string
	Name          string
	Type          string
	Template      *string
	SubMeasures   []Measure
	VersionStatus VersionStatusMap
}

// measureDoc is the on-disk shape of a Measure. The version map has been
// published under two keys over time; the newer one wins when both exist.
type measureDoc struct {
	ID               string           `json:"id" yaml:"id"`
	Name             string           `json:"name" yaml:"name"`
	Type             string           `json:"type" yaml:"type"`
	Template         *string          `json:"template" yaml:"template"`
	SubMeasures      []Measure        `json:"sub-measures" yaml:"sub-measures"`
	VersionStatus    VersionStatusMap `json:"version-status" yaml:"version-status"`
	K8sVersionStatus VersionStatusMap `json:"k8s-version-status" yaml:"k8s-version-status"`
}

func (d measureDoc) measure() Measure {
	vs := d.VersionStatus
	if vs == nil {
		vs = d.K8sVersionStatus
	}
	return Measure{
		ID:            d.ID,
		Name:          d.Name,
		Type:          d.Type,
		Template:      d.Template,
		SubMeasures:   d.SubMeasures,
		VersionStatus: vs,
	}
}

func (m *Measure) UnmarshalJSON(data []byte) error {
	var d measureDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	*m = d.measure()
	return nil
}

func (m *Measure) UnmarshalYAML(node *yaml.Node) error {
	var d measureDoc
	if err := node.Decode(&d); err != nil {
		return err
	}
	*m = d.measure()
	return nil
}

// HasTemplate reports whether the measure defines a getting-started template.
func (m *Measure) HasTemplate() bool {
	return m.Template != nil
}

// Category is a level-1 node of the defense catalog.
type Category struct {
	Name     string    `json:"name" yaml:"name"`
	Measures []Measure `json:"sub-measures" yaml:"sub-measures"`
}

// DefenseCatalog is the ordered forest of defense categories.
type DefenseCatalog struct {
	Categories []Category
}

// DefenseRef is a technique's reference to a defense measure by dotted identifier.
type DefenseRef struct {
	ID   string `json:"id" yaml:"id"`
	Help string `json:"help,omitempty" yaml:"help"`
}

// Ident is an identifier that documents may write either as a string or a
// number. It encodes back in the form it was read, so a numeric scenario id
// stays numeric in JSON output.
type Ident struct {
	value   string
	numeric bool
}

// StringIdent returns an identifier written as a string.
func StringIdent(s string) Ident { return Ident{value: s} }

// NumberIdent returns an identifier written as a number. s must be a valid JSON number.
func NumberIdent(s string) Ident { return Ident{value: s, numeric: true} }

func (i Ident) String() string { return i.value }

// Numeric reports whether the document wrote the identifier as a number.
func (i Ident) Numeric() bool { return i.numeric }

func (i Ident) MarshalJSON() ([]byte, error) {
	if i.numeric {
		return []byte(i.value), nil
	}
	return json.Marshal(i.value)
}

func (i *Ident) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = StringIdent(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %s", data)
	}
	*i = NumberIdent(n.String())
	return nil
}

func (i *Ident) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: identifier must be a string or number", node.Line)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		var n json.Number
		if err := json.Unmarshal([]byte(node.Value), &n); err != nil {
			// YAML-only spellings such as 0x1F or 1_000 keep their text.
			*i = StringIdent(node.Value)
			return nil
		}
		*i = NumberIdent(n.String())
	default:
		*i = StringIdent(node.Value)
	}
	return nil
}

// Technique is an attacker action with its impact rating and referenced defenses.
type Technique struct {
	ID       Ident        `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	Impact   string       `json:"impact" yaml:"impact"`
	Defenses []DefenseRef `json:"defenses" yaml:"defenses"`
}

// Tactic groups the techniques of one ATT&CK tactic within a scenario.
type Tactic struct {
	Name       string
	Techniques []Technique
}

// Scenario is one attack path with its tactics in document order.
type Scenario struct {
	ID      Ident   `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	Tactics Tactics `json:"tactics" yaml:"tactics"`
}

// ScenarioCatalog is the ordered list of attack scenarios.
type ScenarioCatalog struct {
	Scenarios []Scenario
}

// Scenario returns the scenario at 1-based position n.
func (c *ScenarioCatalog) Scenario(n int) (*Scenario, bool) {
	if n < 1 || n > len(c.Scenarios) {
		return nil, false
	}
	return &c.Scenarios[n-1], true
}
