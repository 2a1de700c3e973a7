package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Workflow.MaxSteps != 24 {
		t.Errorf("MaxSteps = %d, want 24", cfg.Workflow.MaxSteps)
	}
	if cfg.Compliance.MinimumScoreEnforced != 70.0 {
		t.Errorf("MinimumScoreEnforced = %v, want 70.0", cfg.Compliance.MinimumScoreEnforced)
	}
	if cfg.Agents.DefaultTemperature != 0.2 {
		t.Errorf("DefaultTemperature = %v, want 0.2", cfg.Agents.DefaultTemperature)
	}
}

func TestLoadFromFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `api_keys:
  anthropic: file-key
workflow:
  max_steps: 8
  workspace_dir: /tmp/deployments
compliance:
  minimum_score_enforced: 90
  enforced: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg, err := LoadFromFile(path, dir)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.AnthropicAPIKey != "file-key" {
		t.Errorf("AnthropicAPIKey = %q, want file-key", cfg.AnthropicAPIKey)
	}
	if cfg.Workflow.MaxSteps != 8 {
		t.Errorf("MaxSteps = %d, want 8", cfg.Workflow.MaxSteps)
	}
	if cfg.Workflow.WorkspaceDir != "/tmp/deployments" {
		t.Errorf("WorkspaceDir = %q", cfg.Workflow.WorkspaceDir)
	}
	if cfg.MinimumScore() != 90 {
		t.Errorf("MinimumScore = %v, want 90", cfg.MinimumScore())
	}
	// Untouched settings keep defaults.
	if cfg.Workflow.StageTimeoutSeconds != 120 {
		t.Errorf("StageTimeoutSeconds = %d, want 120", cfg.Workflow.StageTimeoutSeconds)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api_keys:\n  openai: file-key\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "env-key")
	cfg, err := LoadFromFile(path, dir)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.OpenAIAPIKey != "env-key" {
		t.Errorf("OpenAIAPIKey = %q, want env-key", cfg.OpenAIAPIKey)
	}
	if !cfg.HasAdapter("openai") {
		t.Errorf("HasAdapter(openai) = false")
	}
	if cfg.HasAdapter("google") {
		t.Errorf("HasAdapter(google) = true with no key")
	}
}

func TestMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFromFile(filepath.Join(dir, "absent.yaml"), dir)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Workflow.MaxSteps != 24 {
		t.Errorf("MaxSteps = %d, want default 24", cfg.Workflow.MaxSteps)
	}
	if cfg.MaxViolations() != 3 {
		t.Errorf("MaxViolations = %d, want 3", cfg.MaxViolations())
	}
}
