// Package config holds the catalogue of system data provisioned for every tenant.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// TagSeed describes a tag created for every tenant.
type TagSeed struct {
	Name        string         `yaml:"name"`
	Type        models.TagType `yaml:"type"`
	Color       string         `yaml:"color"`
	Description string         `yaml:"description"`
}

// TemplateSeed describes a system email template, addressed by Key.
type TemplateSeed struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Subject     string `yaml:"subject"`
	Body        string `yaml:"body"`
}

type ActionSeed struct {
	Type   models.ActionType `yaml:"type"`
	Config map[string]any    `yaml:"config"`
}

// WorkflowSeed describes a default workflow, addressed by Key.
type WorkflowSeed struct {
	Key          string       `yaml:"key"`
	Name         string       `yaml:"name"`
	Description  string       `yaml:"description"`
	Trigger      string       `yaml:"trigger"`
	DelayMinutes int          `yaml:"delay_minutes"`
	Actions      []ActionSeed `yaml:"actions"`
}

type Seed struct {
	SystemTags  []TagSeed      `yaml:"system_tags"`
	DefaultTags []TagSeed      `yaml:"default_tags"`
	Templates   []TemplateSeed `yaml:"templates"`
	Workflows   []WorkflowSeed `yaml:"workflows"`
}

// DefaultSeed returns the built-in catalogue.
func DefaultSeed() (*Seed, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeed reads a catalogue from a YAML file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed

	err := yaml.Unmarshal(data, &seed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}

	err = seed.Validate()
	if err != nil {
		return nil, err
	}

	return &seed, nil
}

// Validate checks that every entry is addressable and every workflow action decodes.
func (s *Seed) Validate() error {
	var errs []error

	for i, tag := range append(append([]TagSeed{}, s.SystemTags...), s.DefaultTags...) {
		if tag.Name == "" || tag.Type == "" {
			errs = append(errs, fmt.Errorf("tag %d: name and type are required", i))
		}
	}

	for i, tpl := range s.Templates {
		if tpl.Key == "" || tpl.Subject == "" {
			errs = append(errs, fmt.Errorf("template %d: key and subject are required", i))
		}
	}

	for _, wf := range s.Workflows {
		if wf.Key == "" || wf.Trigger == "" {
			errs = append(errs, fmt.Errorf("workflow %q: key and trigger are required", wf.Name))

			continue
		}

		_, err := wf.ModelActions()
		if err != nil {
			errs = append(errs, fmt.Errorf("workflow %s: %w", wf.Key, err))
		}
	}

	return errors.Join(errs...)
}

// ModelActions decodes the seed actions into typed actions.
func (w WorkflowSeed) ModelActions() ([]models.Action, error) {
	actions := make([]models.Action, 0, len(w.Actions))

	for _, seed := range w.Actions {
		if models.NewActionConfig(seed.Type) == nil {
			return nil, fmt.Errorf("unknown action type %s", seed.Type)
		}

		raw, err := json.Marshal(map[string]any{"type": seed.Type, "config": seed.Config})
		if err != nil {
			return nil, err
		}

		var action models.Action

		err = json.Unmarshal(raw, &action)
		if err != nil {
			return nil, err
		}

		actions = append(actions, action)
	}

	return actions, nil
}
