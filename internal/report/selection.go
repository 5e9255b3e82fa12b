package report

import (
	"slices"
	"strings"
)

// AllTacticsName is the tactic name that selects every tactic of a scenario.
const AllTacticsName = "All"

// KnownTactics is the tactic vocabulary accepted on the command line, in display order.
var KnownTactics = []string{
	"Reconnaissance",
	"InitialAccess",
	"Execution",
	"Discovery",
	"LateralMovement",
	"PrivilegeEscalation",
	"Collection",
	"DefenseEvasion",
}

// Selection chooses which tactics a report or template query covers:
// either every tactic, or an explicit set of names.
type Selection struct {
	all   bool
	names map[string]bool
}

// AllTactics selects every tactic.
func AllTactics() Selection {
	return Selection{all: true}
}

// Tactics selects the named tactics. Naming AllTacticsName anywhere in the
// list selects every tactic. Names unknown to a scenario match nothing.
func Tactics(names ...string) Selection {
	s := Selection{names: make(map[string]bool, len(names))}
	for _, n := range names {
		if n == AllTacticsName {
			return AllTactics()
		}
		s.names[n] = true
	}
	return s
}

// All reports whether the selection is the all-tactics sentinel.
func (s Selection) All() bool { return s.all }

// Includes reports whether the tactic name is selected.
func (s Selection) Includes(name string) bool {
	return s.all || s.names[name]
}

// String lists known tactics in display order, then any other names sorted.
func (s Selection) String() string {
	if s.all {
		return AllTacticsName
	}
	var out, unknown []string
	for _, n := range KnownTactics {
		if s.names[n] {
			out = append(out, n)
		}
	}
	for n := range s.names {
		if !isKnownTactic(n) {
			unknown = append(unknown, n)
		}
	}
	slices.Sort(unknown)
	return strings.Join(append(out, unknown...), ",")
}

// IsValidTactic reports whether name is a known tactic or the all-tactics name.
func IsValidTactic(name string) bool {
	return name == AllTacticsName || isKnownTactic(name)
}

func isKnownTactic(name string) bool {
	for _, t := range KnownTactics {
		if t == name {
			return true
		}
	}
	return false
}
