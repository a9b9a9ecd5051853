package action

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed about.yaml
var aboutYAML []byte

type About struct {
	Name        string       `yaml:"name" json:"name"`
	Model       string       `yaml:"model" json:"model"`
	Version     string       `yaml:"version" json:"version"`
	Description string       `yaml:"description" json:"description"`
	Instrument  string       `yaml:"-" json:"instrument_version,omitempty"`
	Actions     []ActionInfo `yaml:"actions" json:"actions"`
}

type ActionInfo struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Args        []ArgInfo `yaml:"args" json:"args"`
	Files       []string  `yaml:"files" json:"files,omitempty"`
}

type ArgInfo struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Required    bool   `yaml:"required" json:"required"`
	Description string `yaml:"description" json:"description"`
}

func loadAbout() (About, error) {
	var about About
	if err := yaml.Unmarshal(aboutYAML, &about); err != nil {
		return About{}, fmt.Errorf("failed to parse about.yaml: %w", err)
	}
	for i := range about.Actions {
		if about.Actions[i].Args == nil {
			about.Actions[i].Args = []ArgInfo{}
		}
	}
	return about, nil
}

func (a About) actionNames() []string {
	names := make([]string, 0, len(a.Actions))
	for _, act := range a.Actions {
		names = append(names, act.Name)
	}
	return names
}
