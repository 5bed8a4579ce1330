// Package scenario loads staged-evidence scenarios for the lifecycle demo:
// an ordered list of labeled snapshots, each normally a superset of the one
// before it.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
)

// #region types
// Stage is one step of staged evidence arrival.
type Stage struct {
	Label    string         `yaml:"label"`
	Evidence map[string]int `yaml:"evidence"`
}

type scenarioFile struct {
	Stages []Stage `yaml:"stages"`
}

// #endregion types

// #region load
// LoadStages parses a scenario YAML file and validates every stage against
// the fixed evidence vocabulary.
func LoadStages(path string) ([]Stage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var file scenarioFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if len(file.Stages) == 0 {
		return nil, fmt.Errorf("scenario %s: no stages", path)
	}

	for i, stage := range file.Stages {
		if stage.Label == "" {
			return nil, fmt.Errorf("scenario %s: stage %d has no label", path, i)
		}
		for name, v := range stage.Evidence {
			if !model.IsVariable(name) {
				return nil, fmt.Errorf("scenario %s: stage %q: unknown variable %q", path, stage.Label, name)
			}
			if v != 0 && v != 1 {
				return nil, fmt.Errorf("scenario %s: stage %q: %s=%d is not binary", path, stage.Label, name, v)
			}
		}
	}
	return file.Stages, nil
}

// #endregion load

// #region default
// DefaultLifecycleStages returns the built-in 4-stage arrival sequence:
// GPS first, then PC, PMD, and PR joining one at a time.
func DefaultLifecycleStages() []Stage {
	return []Stage{
		{Label: "stage_0_gps_only", Evidence: map[string]int{"GPS": 1}},
		{Label: "stage_1_add_pc", Evidence: map[string]int{"GPS": 1, "PC": 0}},
		{Label: "stage_2_add_pmd", Evidence: map[string]int{"GPS": 1, "PC": 0, "PMD": 1}},
		{Label: "stage_3_full", Evidence: map[string]int{"GPS": 1, "PC": 0, "PMD": 1, "PR": 0}},
	}
}

// #endregion default
