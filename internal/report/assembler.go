package report

import (
	"errors"
	"fmt"

	"github.com/iyulab/impact-analyzer/internal/catalog"
	"github.com/iyulab/impact-analyzer/internal/resolver"
)

// ErrUnknownScenario is returned for a scenario number outside the catalog.
var ErrUnknownScenario = errors.New("unknown scenario")

// ScenarioError reports a scenario number that the catalog does not contain.
type ScenarioError struct {
	Number int
	Count  int
}

func (e *ScenarioError) Error() string {
	return fmt.Sprintf("scenario %d: catalog has %d scenario(s)", e.Number, e.Count)
}

func (e *ScenarioError) Unwrap() error { return ErrUnknownScenario }

// Assembler builds report trees from a scenario catalog, resolving every
// defense reference through a Resolver.
type Assembler struct {
	scenarios *catalog.ScenarioCatalog
	resolver  *resolver.Resolver
}

// NewAssembler creates an Assembler. Neither catalog is modified.
func NewAssembler(scenarios *catalog.ScenarioCatalog, r *resolver.Resolver) *Assembler {
	return &Assembler{scenarios: scenarios, resolver: r}
}

// Build assembles the report for the scenario at 1-based position number,
// keeping only the selected tactics. Tactic, technique and defense order
// follow the scenario catalog. The first reference that fails to resolve
// aborts the build; no partial tree is returned.
func (a *Assembler) Build(number int, sel Selection) (*Tree, error) {
	sc, ok := a.scenarios.Scenario(number)
	if !ok {
		return nil, &ScenarioError{Number: number, Count: len(a.scenarios.Scenarios)}
	}

	tree := &Tree{
		ID:      sc.ID,
		Name:    sc.Name,
		Tactics: TacticList{},
	}

	for _, tactic := range sc.Tactics {
		if !sel.Includes(tactic.Name) {
			continue
		}
		entry := TacticEntry{
			Name:       tactic.Name,
			Techniques: make([]Technique, 0, len(tactic.Techniques)),
		}
		for _, tech := range tactic.Techniques {
			resolved, err := a.resolveTechnique(tech)
			if err != nil {
				return nil, fmt.Errorf("scenario %s (%s) tactic %s technique %s: %w",
					sc.ID, sc.Name, tactic.Name, tech.ID, err)
			}
			entry.Techniques = append(entry.Techniques, resolved)
		}
		tree.Tactics = append(tree.Tactics, entry)
	}

	return tree, nil
}

func (a *Assembler) resolveTechnique(tech catalog.Technique) (Technique, error) {
	out := Technique{
		ID:       tech.ID,
		Name:     tech.Name,
		Impact:   tech.Impact,
		Defenses: make([]Defense, 0, len(tech.Defenses)),
	}
	for _, ref := range tech.Defenses {
		detail, err := a.resolver.Resolve(ref.ID)
		if err != nil {
			return Technique{}, err
		}
		out.Defenses = append(out.Defenses, newDefense(ref, detail))
	}
	return out, nil
}
