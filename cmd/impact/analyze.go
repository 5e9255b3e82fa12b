package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iyulab/impact-analyzer/internal/orchestrator"
	"github.com/iyulab/impact-analyzer/internal/reporter"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		scenario int
		tactics  []string
		version  string
		format   string
		open     bool
		noColor  bool
	)

	cmd := &cobra.Command{
		Use:     "analyze -s <scenario> -t <tactic>...",
		Short:   "Report the defense measures for a scenario",
		Example: `  impact analyze -s 1 -t Execution
  impact analyze -s 2 -t InitialAccess PrivilegeEscalation -v 1.25 -o html --open`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := collectTactics(tactics, args)
			if err != nil {
				return err
			}
			if !slices.Contains(reporter.Formats(), format) {
				return fmt.Errorf("invalid output %q (choose from %s)", format, strings.Join(reporter.Formats(), ", "))
			}

			cfg, logs, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			f, isFile := stdout.(*os.File)
			color := cfg.Output.Color && !noColor && isFile && term.IsTerminal(int(f.Fd()))
			orch := orchestrator.New(cfg, orchestrator.Options{
				Scenario: scenario,
				Tactics:  names,
				Version:  version,
				Format:   format,
				Open:     open,
				Color:    color,
			}, logs.logger)
			orch.SetOutput(stdout, cmd.ErrOrStderr())
			return orch.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&scenario, "scenario", "s", 0, "scenario number (1-based position in the scenario catalog)")
	cmd.Flags().StringSliceVarP(&tactics, "tactics", "t", nil, "MITRE ATT&CK tactics ("+tacticChoices()+")")
	cmd.Flags().StringVarP(&version, "version", "v", "", "Kubernetes version (default from config, 1.20)")
	cmd.Flags().StringVarP(&format, "output", "o", reporter.FormatStdout, "output format ("+strings.Join(reporter.Formats(), ", ")+")")
	cmd.Flags().BoolVar(&open, "open", false, "open the HTML report in the browser")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored console output")
	_ = cmd.MarkFlagRequired("scenario")
	_ = cmd.MarkFlagRequired("tactics")
	return cmd
}
