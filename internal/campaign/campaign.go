// Package campaign loads campaign definitions from YAML files and imports
// them into the store. Definitions are validated before anything is
// written; a file with one bad campaign imports nothing.
package campaign

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"leadline/internal/domain"
)

type Definition struct {
	Name    string          `yaml:"name"`
	Active  *bool           `yaml:"active"`
	Trigger TriggerDef      `yaml:"trigger"`
	Actions []domain.Action `yaml:"actions"`
}

type TriggerDef struct {
	Kind     string `yaml:"kind"`
	MinScore *int   `yaml:"min_score"`
	MaxScore *int   `yaml:"max_score"`
}

type File struct {
	Campaigns []Definition `yaml:"campaigns"`
}

// Load reads and validates a definitions file.
func Load(path string) ([]Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Campaigns) == 0 {
		return nil, fmt.Errorf("%s defines no campaigns", path)
	}
	for i, def := range f.Campaigns {
		if def.Name == "" {
			return nil, fmt.Errorf("campaign %d: name is required", i)
		}
		if err := def.Condition().Validate(); err != nil {
			return nil, fmt.Errorf("campaign %q: %w", def.Name, err)
		}
		if err := domain.ValidateActions(def.Actions); err != nil {
			return nil, fmt.Errorf("campaign %q: %w", def.Name, err)
		}
	}
	return f.Campaigns, nil
}

func (d Definition) Condition() domain.TriggerCondition {
	return domain.TriggerCondition{
		Kind:     domain.TriggerKind(d.Trigger.Kind),
		MinScore: d.Trigger.MinScore,
		MaxScore: d.Trigger.MaxScore,
	}
}

// IsActive defaults to true when the file leaves it unset.
func (d Definition) IsActive() bool {
	return d.Active == nil || *d.Active
}
