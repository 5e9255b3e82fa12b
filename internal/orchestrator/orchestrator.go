// Package orchestrator coordinates the Load → Assemble → Render → Write pipeline.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/iyulab/impact-analyzer/internal/browser"
	"github.com/iyulab/impact-analyzer/internal/catalog"
	"github.com/iyulab/impact-analyzer/internal/config"
	"github.com/iyulab/impact-analyzer/internal/output"
	"github.com/iyulab/impact-analyzer/internal/report"
	"github.com/iyulab/impact-analyzer/internal/reporter"
	"github.com/iyulab/impact-analyzer/internal/resolver"
	"github.com/iyulab/impact-analyzer/internal/templates"
)

// Options holds CLI flags for the orchestrator.
type Options struct {
	Scenario int
	Tactics  []string
	Version  string
	Format   string
	Open     bool
	Color    bool
}

// Orchestrator runs one analysis or template query.
type Orchestrator struct {
	cfg    *config.Config
	opts   Options
	logger zerolog.Logger

	stdout io.Writer
	stderr io.Writer
	open   func(path string) error
}

// New creates an Orchestrator. An empty version or format falls back to the
// configured default version and console output.
func New(cfg *config.Config, opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.Version == "" {
		opts.Version = cfg.Analysis.DefaultVersion
	}
	if opts.Format == "" {
		opts.Format = reporter.FormatStdout
	}
	return &Orchestrator{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		stdout: os.Stdout,
		stderr: os.Stderr,
		open:   browser.OpenFile,
	}
}

// SetOutput redirects report and progress output (used in tests).
func (o *Orchestrator) SetOutput(stdout, stderr io.Writer) {
	o.stdout = stdout
	o.stderr = stderr
}

// SetOpener overrides how generated HTML reports are opened (used in tests).
func (o *Orchestrator) SetOpener(fn func(path string) error) {
	o.open = fn
}

// Catalogs is a loaded pair of knowledge-base documents. Both are read-only
// after loading and may be shared between goroutines.
type Catalogs struct {
	Defenses  *catalog.DefenseCatalog
	Scenarios *catalog.ScenarioCatalog
}

// LoadCatalogs reads the defense and scenario catalogs named in cfg.
func LoadCatalogs(cfg *config.Config) (*Catalogs, error) {
	defenses, err := catalog.LoadDefenses(cfg.Catalog.Defense)
	if err != nil {
		return nil, err
	}
	scenarios, err := catalog.LoadScenarios(cfg.Catalog.Scenarios)
	if err != nil {
		return nil, err
	}
	return &Catalogs{Defenses: defenses, Scenarios: scenarios}, nil
}

// Assembler returns a report assembler over the catalogs.
func (c *Catalogs) Assembler() *report.Assembler {
	return report.NewAssembler(c.Scenarios, resolver.New(c.Defenses))
}

// Selection turns tactic names into a selection; no names selects all.
func Selection(tactics []string) report.Selection {
	if len(tactics) == 0 {
		return report.AllTactics()
	}
	return report.Tactics(tactics...)
}

// Run executes the full pipeline.
func (o *Orchestrator) Run(ctx context.Context) error {
	format := o.opts.Format

	// The skeleton is checked before anything is written.
	var skeletonPath string
	if format == reporter.FormatHTML {
		path, err := output.CheckAssets(o.cfg.Output.AssetsDir, o.cfg.Output.HTMLTemplate)
		if err != nil {
			return err
		}
		skeletonPath = path
	}

	renderer, err := reporter.New(format, reporter.Options{
		Color:        o.opts.Color,
		SkeletonPath: skeletonPath,
	})
	if err != nil {
		return err
	}

	cats, err := LoadCatalogs(o.cfg)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	o.logger.Debug().
		Int("categories", len(cats.Defenses.Categories)).
		Int("scenarios", len(cats.Scenarios.Scenarios)).
		Msg("catalogs loaded")

	if err := ctx.Err(); err != nil {
		return err
	}

	sel := Selection(o.opts.Tactics)
	tree, err := cats.Assembler().Build(o.opts.Scenario, sel)
	if err != nil {
		return fmt.Errorf("assemble report: %w", err)
	}
	counts := tree.Counts()
	o.logger.Debug().
		Str("scenario", tree.Name).
		Str("tactics", sel.String()).
		Int("techniques", counts.Techniques).
		Int("defenses", counts.Defenses).
		Msg("report assembled")

	if err := ctx.Err(); err != nil {
		return err
	}

	if format == reporter.FormatStdout {
		return renderer.Render(o.stdout, tree, o.opts.Version)
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, tree, o.opts.Version); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	writer, err := output.NewWriter(o.cfg.Output.Dir)
	if err != nil {
		return err
	}
	path, err := writer.Save(format, buf.Bytes())
	if err != nil {
		return err
	}
	for _, h := range writer.Hashes() {
		o.logger.Info().Str("dir", writer.OutputDir()).Str("file", h.File).Str("sha256", h.SHA256).Int("size", h.Size).Msg("report written")
	}
	fmt.Fprintf(o.stderr, "[*] Report generated: %s\n", path)

	switch format {
	case reporter.FormatJSON:
		if _, err := o.stdout.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	case reporter.FormatHTML:
		if o.opts.Open || o.cfg.Output.OpenBrowser {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			if err := o.open(abs); err != nil {
				o.logger.Warn().Err(err).Str("file", abs).Msg("could not open browser")
			}
		}
	}
	return nil
}

// Templates prints the templates of the defense measures relevant to tactics,
// one "<id>: <template>" line each in dotted identifier order.
func (o *Orchestrator) Templates(ctx context.Context, tactics []string) error {
	cats, err := LoadCatalogs(o.cfg)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	found := templates.New(cats.Defenses, cats.Scenarios).Collect(Selection(tactics))
	o.logger.Debug().Int("templates", len(found)).Msg("templates collected")

	for _, id := range templates.Keys(found) {
		if _, err := fmt.Fprintf(o.stdout, "%s: %s\n", id, found[id].Template); err != nil {
			return fmt.Errorf("write templates: %w", err)
		}
	}
	return nil
}
