// Package config handles loading and validating the impact.toml configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Defaults for paths and behavior when the config file omits them.
const (
	DefaultDefenseCatalog  = "./defense_measures.json"
	DefaultScenarioCatalog = "./scenario_impact_analysis.json"
	DefaultOutputDir       = "./output"
	DefaultAssetsDir       = "./assets"
	DefaultHTMLTemplate    = "analyzer_output_template.html"
	DefaultVersion         = "1.20"
	DefaultLogLevel        = "warn"
	DefaultServerPort      = 8743
)

// Config is the top-level configuration.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Output   OutputConfig   `toml:"output"`
	Analysis AnalysisConfig `toml:"analysis"`
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
}

// CatalogConfig locates the two knowledge-base documents.
// Paths ending in .yaml or .yml are read as YAML.
type CatalogConfig struct {
	Defense   string `toml:"defense"`
	Scenarios string `toml:"scenarios"`
}

// OutputConfig configures where and how reports are written.
type OutputConfig struct {
	Dir          string `toml:"dir"`
	AssetsDir    string `toml:"assets_dir"`
	HTMLTemplate string `toml:"html_template"`
	OpenBrowser  bool   `toml:"open_browser"`
	// Color enables ANSI colors on the console when stdout is a terminal.
	Color bool `toml:"color"`
}

// AnalysisConfig holds analysis defaults.
type AnalysisConfig struct {
	DefaultVersion string `toml:"default_version"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level string `toml:"level"` // trace | debug | info | warn | error
}

// ServerConfig configures the report server.
type ServerConfig struct {
	Port int `toml:"port"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Defense:   DefaultDefenseCatalog,
			Scenarios: DefaultScenarioCatalog,
		},
		Output: OutputConfig{
			Dir:          DefaultOutputDir,
			AssetsDir:    DefaultAssetsDir,
			HTMLTemplate: DefaultHTMLTemplate,
			Color:        true,
		},
		Analysis: AnalysisConfig{DefaultVersion: DefaultVersion},
		Log:      LogConfig{Level: DefaultLogLevel},
		Server:   ServerConfig{Port: DefaultServerPort},
	}
}

// Load reads a TOML config file and returns a validated Config.
// A missing file is not an error when optional is true; defaults are used.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !(optional && errors.Is(err, fs.ErrNotExist)) {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file not found: %s\n  Create one with: impact init", path)
			}
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// Environment variable overrides for catalog locations
	if v := os.Getenv("IMPACT_DEFENSE_CATALOG"); v != "" {
		cfg.Catalog.Defense = v
	}
	if v := os.Getenv("IMPACT_SCENARIO_CATALOG"); v != "" {
		cfg.Catalog.Scenarios = v
	}
	if v := os.Getenv("IMPACT_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Catalog.Defense == "" {
		c.Catalog.Defense = DefaultDefenseCatalog
	}
	if c.Catalog.Scenarios == "" {
		c.Catalog.Scenarios = DefaultScenarioCatalog
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.AssetsDir == "" {
		c.Output.AssetsDir = DefaultAssetsDir
	}
	if c.Output.HTMLTemplate == "" {
		c.Output.HTMLTemplate = DefaultHTMLTemplate
	}
	if c.Analysis.DefaultVersion == "" {
		c.Analysis.DefaultVersion = DefaultVersion
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("unsupported log.level: %q", c.Log.Level)
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	return nil
}

// Example is a commented config file written by `impact init`.
const Example = `# impact-analyzer configuration

[catalog]
defense   = "./defense_measures.json"
scenarios = "./scenario_impact_analysis.json"

[output]
dir           = "./output"
assets_dir    = "./assets"
html_template = "analyzer_output_template.html"
open_browser  = false
color         = true

[analysis]
default_version = "1.20"

[log]
level = "warn"

[server]
port = 8743
`
