package main

import (
	"github.com/spf13/cobra"

	"github.com/iyulab/impact-analyzer/internal/orchestrator"
)

func newTemplateCmd() *cobra.Command {
	var tactics []string

	cmd := &cobra.Command{
		Use:     "template -t <tactic>...",
		Short:   "List getting-started templates for the defense measures of the given tactics",
		Example: `  impact template -t All
  impact template -t Execution Discovery`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := collectTactics(tactics, args)
			if err != nil {
				return err
			}
			cfg, logs, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			orch := orchestrator.New(cfg, orchestrator.Options{}, logs.logger)
			orch.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
			return orch.Templates(cmd.Context(), names)
		},
	}

	cmd.Flags().StringSliceVarP(&tactics, "tactics", "t", nil, "MITRE ATT&CK tactics ("+tacticChoices()+")")
	_ = cmd.MarkFlagRequired("tactics")
	return cmd
}
