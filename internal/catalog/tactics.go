package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Tactics holds a scenario's tactics in the order the document lists them.
// Documents encode tactics as an object keyed by tactic name; decoding into a
// Go map would lose that order, so both decoders walk the object by hand.
type Tactics []Tactic

type tacticBody struct {
	Techniques []Technique `json:"techniques" yaml:"techniques"`
}

func (t *Tactics) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("tactics: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("tactics: expected object, got %v", tok)
	}

	var out Tactics
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("tactics: %w", err)
		}
		name, _ := tok.(string)

		var body tacticBody
		if err := dec.Decode(&body); err != nil {
			return fmt.Errorf("tactic %q: %w", name, err)
		}
		out = append(out, Tactic{Name: name, Techniques: body.Techniques})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("tactics: %w", err)
	}

	*t = out
	return nil
}

func (t *Tactics) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: tactics must be a mapping", node.Line)
	}

	out := make(Tactics, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var body tacticBody
		if err := node.Content[i+1].Decode(&body); err != nil {
			return fmt.Errorf("tactic %q: %w", name, err)
		}
		out = append(out, Tactic{Name: name, Techniques: body.Techniques})
	}

	*t = out
	return nil
}
