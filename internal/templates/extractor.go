// Package templates lists the getting-started templates of defense measures.
//
// Unlike the resolver, the extractor matches catalog nodes by their stored
// id field, not by position. The two lookups are kept separate on purpose:
// a catalog whose stored ids disagree with positions yields different
// answers from each, and both answers are observable behavior.
package templates

import (
	"sort"
	"strconv"
	"strings"

	"github.com/iyulab/impact-analyzer/internal/catalog"
	"github.com/iyulab/impact-analyzer/internal/report"
)

// Template is a measure's name and template reference.
type Template struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// Extractor answers template queries over one pair of catalogs.
type Extractor struct {
	defenses  *catalog.DefenseCatalog
	scenarios *catalog.ScenarioCatalog
}

// New creates an Extractor. scenarios is only consulted for tactic-filtered queries.
func New(defenses *catalog.DefenseCatalog, scenarios *catalog.ScenarioCatalog) *Extractor {
	return &Extractor{defenses: defenses, scenarios: scenarios}
}

// Collect returns templates keyed by stored measure id.
//
// With the all-tactics selection every measure and sub-measure that defines
// a template is returned. Otherwise the identifiers referenced by the
// selected tactics across all scenarios are reduced to measure level and
// only measures with those ids are reported; a measure without its own
// template reports the first template among its sub-measures.
func (e *Extractor) Collect(sel report.Selection) map[string]Template {
	out := make(map[string]Template)

	if sel.All() {
		for _, cat := range e.defenses.Categories {
			for _, m := range cat.Measures {
				if m.HasTemplate() {
					out[m.ID] = Template{Name: m.Name, Template: *m.Template}
				}
				for _, sub := range m.SubMeasures {
					if sub.HasTemplate() {
						out[sub.ID] = Template{Name: sub.Name, Template: *sub.Template}
					}
				}
			}
		}
		return out
	}

	wanted := e.referencedMeasures(sel)
	for _, cat := range e.defenses.Categories {
		for _, m := range cat.Measures {
			if !wanted[m.ID] {
				continue
			}
			if tmpl, ok := measureTemplate(m); ok {
				out[m.ID] = Template{Name: m.Name, Template: tmpl}
			}
		}
	}
	return out
}

// referencedMeasures collects the measure-level identifiers referenced by
// techniques under the selected tactics of every scenario.
func (e *Extractor) referencedMeasures(sel report.Selection) map[string]bool {
	wanted := make(map[string]bool)
	if e.scenarios == nil {
		return wanted
	}
	for _, sc := range e.scenarios.Scenarios {
		for _, tactic := range sc.Tactics {
			if !sel.Includes(tactic.Name) {
				continue
			}
			for _, tech := range tactic.Techniques {
				for _, ref := range tech.Defenses {
					wanted[MeasureLevel(ref.ID)] = true
				}
			}
		}
	}
	return wanted
}

func measureTemplate(m catalog.Measure) (string, bool) {
	if m.HasTemplate() {
		return *m.Template, true
	}
	for _, sub := range m.SubMeasures {
		if sub.HasTemplate() {
			return *sub.Template, true
		}
	}
	return "", false
}

// MeasureLevel drops the sub-measure segment of a dotted identifier, if any.
func MeasureLevel(id string) string {
	parts := strings.SplitN(id, ".", 3)
	if len(parts) < 3 {
		return id
	}
	return parts[0] + "." + parts[1]
}

// Keys returns the identifiers of m in natural dotted order (1.2 < 1.10).
func Keys(m map[string]Template) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessDotted(keys[i], keys[j])
	})
	return keys
}

func lessDotted(a, b string) bool {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr != nil || berr != nil {
			if as[i] != bs[i] {
				return as[i] < bs[i]
			}
			continue
		}
		if an != bn {
			return an < bn
		}
	}
	return len(as) < len(bs)
}
