// Package assets embeds the default HTML skeleton and example catalogs
// written out by `impact init`.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Embedded file names.
const (
	SkeletonFile        = "analyzer_output_template.html"
	DefenseCatalogFile  = "catalogs/defense_measures.json"
	ScenarioCatalogFile = "catalogs/scenario_impact_analysis.json"
)

// Files holds the skeleton and the example catalogs.
//
//go:embed analyzer_output_template.html catalogs/*.json
var Files embed.FS

// Written describes one file created by WriteDefaults.
type Written struct {
	Path    string
	Skipped bool // the file already existed and was left untouched
}

// WriteDefaults lays out a working directory under dir:
//
//	<dir>/defense_measures.json
//	<dir>/scenario_impact_analysis.json
//	<assetsDir>/analyzer_output_template.html
//
// assetsDir is relative to dir unless absolute. Existing files are kept
// unless overwrite is set.
func WriteDefaults(dir, assetsDir string, overwrite bool) ([]Written, error) {
	if !filepath.IsAbs(assetsDir) {
		assetsDir = filepath.Join(dir, assetsDir)
	}
	targets := []struct {
		src, dst string
	}{
		{DefenseCatalogFile, filepath.Join(dir, filepath.Base(DefenseCatalogFile))},
		{ScenarioCatalogFile, filepath.Join(dir, filepath.Base(ScenarioCatalogFile))},
		{SkeletonFile, filepath.Join(assetsDir, SkeletonFile)},
	}

	var out []Written
	for _, t := range targets {
		w, err := writeFile(t.src, t.dst, overwrite)
		if err != nil {
			return out, err
		}
		out = append(out, w)
	}
	return out, nil
}

// WriteFile writes data to dst unless it exists and overwrite is false.
// It is used for files that are not embedded, such as the example config.
func WriteFile(dst string, data []byte, overwrite bool) (Written, error) {
	if !overwrite {
		if _, err := os.Stat(dst); err == nil {
			return Written{Path: dst, Skipped: true}, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return Written{}, fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return Written{}, fmt.Errorf("write %s: %w", dst, err)
	}
	return Written{Path: dst}, nil
}

func writeFile(src, dst string, overwrite bool) (Written, error) {
	data, err := fs.ReadFile(Files, src)
	if err != nil {
		return Written{}, fmt.Errorf("read embedded %s: %w", src, err)
	}
	return WriteFile(dst, data, overwrite)
}
