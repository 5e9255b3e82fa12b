// Package main is the CLI entry point for impact-analyzer.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iyulab/impact-analyzer/internal/config"
	"github.com/iyulab/impact-analyzer/internal/logging"
	"github.com/iyulab/impact-analyzer/internal/output"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultConfigPath = "impact.toml"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, output.ErrAssetsMissing) {
			fmt.Fprintf(os.Stderr, "[!][!] %v\n", err)
			fmt.Fprintf(os.Stderr, "      Run `impact init` to create the assets directory.\n")
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "impact",
		Short: "Kubernetes defense impact analyzer",
		Long: `impact reports which defense measures mitigate the techniques of an
attack scenario, per MITRE ATT&CK tactic, and whether each measure is
still supported on a given Kubernetes version.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "path to config file")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose (debug) logging")
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newTemplateCmd(),
		newServeCmd(),
		newInitCmd(),
	)
	return rootCmd
}

// logSetup is the console logger of one invocation plus what is needed to
// build further loggers that share its level and run id.
type logSetup struct {
	logger zerolog.Logger
	level  string
	runID  string
}

// loadConfig reads the config named by --config. The default path may be
// absent; an explicitly named file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, logSetup, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath, !cmd.Flags().Changed("config"))
	if err != nil {
		return nil, logSetup{logger: zerolog.Nop()}, fmt.Errorf("config: %w", err)
	}

	logs := logSetup{level: cfg.Log.Level, runID: logging.NewRunID()}
	if verbose {
		logs.level = zerolog.DebugLevel.String()
	}
	logs.logger = logging.NewLogger(logs.level, logs.runID)
	logs.logger.Debug().Str("config", configPath).Msg("configuration loaded")
	return cfg, logs, nil
}
