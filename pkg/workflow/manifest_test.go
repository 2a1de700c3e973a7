package workflow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	content := `max_steps: 12
stages:
  - stage: template_generation
    adapter: anthropic
    model: claude-sonnet-4-20250514
    temperature: 0.3
  - stage: research_lookup
    temperature: 0.1
`
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.MaxSteps != 12 {
		t.Errorf("MaxSteps = %d, want 12", m.MaxSteps)
	}

	o := m.For(StageTemplateGeneration)
	if o == nil {
		t.Fatalf("no override for template_generation")
	}
	if o.Adapter != "anthropic" || o.Model != "claude-sonnet-4-20250514" || o.Temperature != 0.3 {
		t.Errorf("override = %+v", o)
	}
	if m.For(StageDeployment) != nil {
		t.Errorf("unexpected override for deployment")
	}
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Manifest
		wantErr bool
	}{
		{"empty", Manifest{}, false},
		{"known stage", Manifest{Stages: []StageOverride{{Stage: StagePlanning}}}, false},
		{"unknown stage", Manifest{Stages: []StageOverride{{Stage: "compile"}}}, true},
		{"duplicate stage", Manifest{Stages: []StageOverride{
			{Stage: StagePlanning}, {Stage: StagePlanning},
		}}, true},
		{"negative steps", Manifest{MaxSteps: -1}, true},
		{"temperature out of range", Manifest{Stages: []StageOverride{
			{Stage: StagePlanning, Temperature: 3.0},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNilManifestFor(t *testing.T) {
	var m *Manifest
	if m.For(StagePlanning) != nil {
		t.Errorf("nil manifest returned an override")
	}
}
