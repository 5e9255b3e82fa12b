package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iyulab/impact-analyzer/internal/browser"
	"github.com/iyulab/impact-analyzer/internal/config"
	"github.com/iyulab/impact-analyzer/internal/logging"
	"github.com/iyulab/impact-analyzer/internal/orchestrator"
	"github.com/iyulab/impact-analyzer/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		open bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports over local HTTP",
		Long: `serve loads both catalogs once and answers
  /report?scenario=N&tactics=A,B&version=V&format=html|json|txt
  /templates?tactics=A,B
on 127.0.0.1. Send SIGHUP to reload the catalogs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logs, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logs.logger
			stderr := cmd.ErrOrStderr()
			if !cmd.Flags().Changed("port") {
				port = cfg.Server.Port
			}

			cats, err := orchestrator.LoadCatalogs(cfg)
			if err != nil {
				return fmt.Errorf("load catalogs: %w", err)
			}

			srv := server.New(cats.Defenses, cats.Scenarios, server.Options{
				DefaultVersion: cfg.Analysis.DefaultVersion,
				AssetsDir:      cfg.Output.AssetsDir,
				HTMLTemplate:   cfg.Output.HTMLTemplate,
				Logger:         logger,
				RequestLog:     logging.NewJSONLogger(stderr, logs.level, logs.runID),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr, err := srv.Start(ctx, port)
			if err != nil {
				return err
			}
			defer srv.Stop()

			url := fmt.Sprintf("http://%s/report?scenario=1", addr)
			fmt.Fprintf(stderr, "[*] Serving reports at http://%s (Ctrl+C to stop)\n", addr)
			if open {
				if err := browser.Open(url); err != nil {
					logger.Warn().Err(err).Str("url", url).Msg("could not open browser")
				}
			}

			reloadOnHangup(ctx, func() {
				if err := reloadCatalogs(cfg, srv); err != nil {
					logger.Error().Err(err).Msg("catalog reload failed; keeping previous catalogs")
					return
				}
				fmt.Fprintf(stderr, "[*] Catalogs reloaded\n")
			})

			<-ctx.Done()
			fmt.Fprintf(stderr, "[*] Shutting down\n")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default from config, 8743)")
	cmd.Flags().BoolVar(&open, "open", false, "open the first scenario's report in the browser")
	return cmd
}

// reloadCatalogs reads both catalogs again and swaps them into srv.
// On error srv keeps the catalogs it already has.
func reloadCatalogs(cfg *config.Config, srv *server.Server) error {
	cats, err := orchestrator.LoadCatalogs(cfg)
	if err != nil {
		return fmt.Errorf("reload catalogs: %w", err)
	}
	srv.SetCatalogs(cats.Defenses, cats.Scenarios)
	return nil
}

// reloadOnHangup calls reload for every SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, reload func()) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				reload()
			}
		}
	}()
}
