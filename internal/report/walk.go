package report

import (
	"errors"

	"github.com/iyulab/impact-analyzer/internal/resolver"
)

// Visitor receives the events of a tree walk. Renderers implement the
// events they format and embed NopVisitor for the rest.
type Visitor interface {
	EnterTactic(name string) error
	EnterTechnique(t *Technique) error
	Defense(t *Technique, d *Defense) error
	LeaveTechnique(t *Technique) error
	LeaveTactic(name string) error
}

// NopVisitor implements Visitor with no-ops.
type NopVisitor struct{}

func (NopVisitor) EnterTactic(string) error { return nil }
func (NopVisitor) EnterTechnique(*Technique) error { return nil }
func (NopVisitor) Defense(*Technique, *Defense) error { return nil }
func (NopVisitor) LeaveTechnique(*Technique) error { return nil }
func (NopVisitor) LeaveTactic(string) error { return nil }

// Walk visits tactics, techniques and defenses in tree order and stops at
// the first error a visitor returns.
func (t *Tree) Walk(v Visitor) error {
	for i := range t.Tactics {
		tactic := &t.Tactics[i]
		if err := v.EnterTactic(tactic.Name); err != nil {
			return err
		}
		for j := range tactic.Techniques {
			tech := &tactic.Techniques[j]
			if err := v.EnterTechnique(tech); err != nil {
				return err
			}
			for k := range tech.Defenses {
				if err := v.Defense(tech, &tech.Defenses[k]); err != nil {
					return err
				}
			}
			if err := v.LeaveTechnique(tech); err != nil {
				return err
			}
		}
		if err := v.LeaveTactic(tactic.Name); err != nil {
			return err
		}
	}
	return nil
}

// Compatibility is a defense's status for one platform version.
// Known is false when the catalog has no record for the version; such a
// defense is never reported as deprecated.
type Compatibility struct {
	Version    string
	Known      bool
	Deprecated bool
	Info       string
}

// CompatibilityOf determines the status of d for version. Every renderer
// goes through this function so they agree on what "deprecated" means.
func CompatibilityOf(d *Defense, version string) Compatibility {
	vs, err := d.Detail().Status(version)
	if errors.Is(err, resolver.ErrVersionDataMissing) {
		return Compatibility{Version: version}
	}
	return Compatibility{
		Version:    version,
		Known:      true,
		Deprecated: vs.Deprecated(),
		Info:       vs.Info,
	}
}

// Label is the compatibility text shown in tabular output.
func (c Compatibility) Label() string {
	if c.Deprecated {
		return "Deprecated in version " + c.Version
	}
	return "OK"
}
