package main

import (
	"fmt"
	"strings"

	"github.com/iyulab/impact-analyzer/internal/report"
)

// tacticChoices lists accepted tactic names for help text.
func tacticChoices() string {
	return strings.Join(append([]string{report.AllTacticsName}, report.KnownTactics...), ", ")
}

// collectTactics merges -t values with trailing positional arguments, so both
// `-t Execution -t Discovery` and `-t Execution Discovery` work.
func collectTactics(flagValues, args []string) ([]string, error) {
	var out []string
	for _, v := range append(append([]string{}, flagValues...), args...) {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if !report.IsValidTactic(name) {
				return nil, fmt.Errorf("invalid tactic %q (choose from %s)", name, tacticChoices())
			}
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one tactic is required (choose from %s)", tacticChoices())
	}
	return out, nil
}
