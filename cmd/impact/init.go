package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iyulab/impact-analyzer/assets"
	"github.com/iyulab/impact-analyzer/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write example catalogs, the HTML skeleton and an example config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory to initialize")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	written, err := assets.WriteDefaults(dir, config.DefaultAssetsDir, force)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	example, err := assets.WriteFile(filepath.Join(dir, "impact.example.toml"), []byte(config.Example), force)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	written = append(written, example)

	out := cmd.OutOrStdout()
	for _, w := range written {
		if w.Skipped {
			fmt.Fprintf(out, "[-] %s exists, skipped (use --force to overwrite)\n", w.Path)
			continue
		}
		fmt.Fprintf(out, "[*] wrote %s\n", w.Path)
	}
	fmt.Fprintf(out, "\nNext: copy impact.example.toml to %s and run `impact analyze -s 1 -t All`\n", defaultConfigPath)
	return nil
}
