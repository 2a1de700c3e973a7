package workflow

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStateRoundTrip(t *testing.T) {
	state := NewState("run-42", "deploy a database")
	state.CurrentStage = StageApprovalGate
	state.CompletedStages = []Stage{StagePlanning, StageTemplateGeneration, StageComplianceValidation}
	state.RequiresApproval = true
	state.QualityGatePassed = true
	state.FinalTemplate = "provider \"azurerm\" {\n  features {}\n}"
	state.ComplianceScore = 90
	state.Steps = 6
	state.AddError("transient: retried")
	state.AddWarning("compliance gate failed with score 60 (2 violations)")

	path := StatePath(t.TempDir(), state.RunID)
	if err := SaveState(path, state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if !reflect.DeepEqual(loaded, state) {
		t.Errorf("round trip changed state:\nsaved:  %+v\nloaded: %+v", state, loaded)
	}
}

func TestLoadStateRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadState(filepath.Join(dir, "missing.json")); err == nil {
		t.Errorf("LoadState on missing file succeeded")
	}

	garbage := filepath.Join(dir, "garbage.json")
	if err := os.WriteFile(garbage, []byte("not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadState(garbage); err == nil {
		t.Errorf("LoadState on garbage succeeded")
	}

	noID := filepath.Join(dir, "noid.json")
	if err := os.WriteFile(noID, []byte(`{"current_stage":"planning"}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadState(noID); err == nil {
		t.Errorf("LoadState without run ID succeeded")
	}

	badStage := filepath.Join(dir, "badstage.json")
	if err := os.WriteFile(badStage, []byte(`{"run_id":"r","current_stage":"compile"}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadState(badStage); err == nil {
		t.Errorf("LoadState with unknown stage succeeded")
	}
}
