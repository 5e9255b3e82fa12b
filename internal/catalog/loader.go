package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Top-level document keys.
const (
	DefenseKey  = "DefenseMeasures"
	ScenarioKey = "Scenarios"
)

// ErrMissingKey is returned when a document lacks its top-level key.
var ErrMissingKey = errors.New("missing top-level key")

// LoadError reports a catalog document that could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type defenseDoc struct {
	DefenseMeasures []Category `json:"DefenseMeasures" yaml:"DefenseMeasures"`
}

type scenarioDoc struct {
	Scenarios []Scenario `json:"Scenarios" yaml:"Scenarios"`
}

// LoadDefenses reads the defense-measure catalog from path.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
func LoadDefenses(path string) (*DefenseCatalog, error) {
	var doc defenseDoc
	if err := decodeFile(path, &doc); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if doc.DefenseMeasures == nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w %q", ErrMissingKey, DefenseKey)}
	}
	return &DefenseCatalog{Categories: doc.DefenseMeasures}, nil
}

// LoadScenarios reads the scenario catalog from path.
func LoadScenarios(path string) (*ScenarioCatalog, error) {
	var doc scenarioDoc
	if err := decodeFile(path, &doc); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if doc.Scenarios == nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w %q", ErrMissingKey, ScenarioKey)}
	}
	return &ScenarioCatalog{Scenarios: doc.Scenarios}, nil
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
	}
	return nil
}
