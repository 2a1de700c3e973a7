package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StatePath returns where a run's state file lives under the state dir.
func StatePath(stateDir, runID string) string {
	return filepath.Join(stateDir, "runs", runID+".json")
}

// SaveState persists the full state record as JSON. Everything needed to
// resume a suspended run must round-trip through this file.
func SaveState(path string, state *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadState reads a persisted state record and sanity-checks it.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if state.RunID == "" {
		return nil, fmt.Errorf("state file %s has no run ID", path)
	}
	if !ValidStage(state.CurrentStage) {
		return nil, fmt.Errorf("state file %s has unknown stage %q", path, state.CurrentStage)
	}
	if state.DeploymentStatus == "" {
		state.DeploymentStatus = DeploymentNotStarted
	}
	return &state, nil
}
