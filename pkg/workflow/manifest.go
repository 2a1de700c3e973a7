package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest optionally overrides per-stage model selection and the global
// step bound. Runs work without one; the manifest exists for pinning
// specific stages to specific adapters or models.
type Manifest struct {
	MaxSteps int             `yaml:"max_steps,omitempty"`
	Stages   []StageOverride `yaml:"stages,omitempty"`
}

// StageOverride customizes the model call for one stage.
type StageOverride struct {
	Stage       Stage   `yaml:"stage"`
	Adapter     string  `yaml:"adapter,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every override names a known stage and no stage is
// overridden twice.
func (m *Manifest) Validate() error {
	if m.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative")
	}
	seen := make(map[Stage]bool)
	for _, o := range m.Stages {
		if !ValidStage(o.Stage) {
			return fmt.Errorf("unknown stage %q in manifest", o.Stage)
		}
		if seen[o.Stage] {
			return fmt.Errorf("stage %q overridden more than once", o.Stage)
		}
		seen[o.Stage] = true
		if o.Temperature < 0 || o.Temperature > 2 {
			return fmt.Errorf("stage %q temperature %v out of range", o.Stage, o.Temperature)
		}
	}
	return nil
}

// For returns the override for a stage, or nil when none is configured.
func (m *Manifest) For(stage Stage) *StageOverride {
	if m == nil {
		return nil
	}
	for i := range m.Stages {
		if m.Stages[i].Stage == stage {
			return &m.Stages[i]
		}
	}
	return nil
}
