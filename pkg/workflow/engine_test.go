package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zen-systems/promptform/pkg/adapter"
	"github.com/zen-systems/promptform/pkg/config"
	"github.com/zen-systems/promptform/pkg/evidence"
)

const goodTemplate = `terraform {
  required_version = ">= 1.5"
}

provider "azurerm" {
  features {}
}

resource "azurerm_resource_group" "main" {
  name     = "rg-demo"
  location = var.location
}

variable "location" {
  type    = string
  default = "eastus"
}

output "rg_name" {
  value = azurerm_resource_group.main.name
}`

func goodResponse() string {
	return "Here is the template:\n\n```hcl\n" + goodTemplate + "\n```\n"
}

// countingAdapter tracks how many model calls the engine makes and keeps
// the last request for inspection.
type countingAdapter struct {
	inner   adapter.Adapter
	calls   int
	lastReq adapter.Request
}

func (c *countingAdapter) Name() string     { return "mock" }
func (c *countingAdapter) Models() []string { return []string{"mock-1"} }

func (c *countingAdapter) Complete(ctx context.Context, model string, req adapter.Request) (string, error) {
	c.calls++
	c.lastReq = req
	return c.inner.Complete(ctx, model, req)
}

// flakyAdapter fails the first n calls with a retryable provider error.
type flakyAdapter struct {
	inner    adapter.Adapter
	failures int
	calls    int
}

func (f *flakyAdapter) Name() string     { return "mock" }
func (f *flakyAdapter) Models() []string { return []string{"mock-1"} }

func (f *flakyAdapter) Complete(ctx context.Context, model string, req adapter.Request) (string, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return "", &adapter.AdapterError{Status: 503, Err: fmt.Errorf("upstream unavailable")}
	}
	return f.inner.Complete(ctx, model, req)
}

func newTestEngine(ad adapter.Adapter, cfg *config.Config) *Engine {
	return &Engine{
		Adapters:       map[string]adapter.Adapter{"mock": ad},
		DefaultAdapter: "mock",
		DefaultModel:   "mock-1",
		Config:         cfg,
	}
}

func TestEngineGenerateOnlyRun(t *testing.T) {
	mock := adapter.NewMockAdapterWithResponses(map[string]string{
		AgentEngineer: goodResponse(),
	}, "")
	engine := newTestEngine(mock, config.Defaults())
	state := NewState("run-1", "I need a storage account for backups")

	result, err := engine.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Suspended {
		t.Fatalf("run suspended with no approval requirement")
	}
	if state.CurrentStage != StageCompleted {
		t.Fatalf("CurrentStage = %q, errors: %v", state.CurrentStage, state.Errors)
	}
	if state.FinalTemplate != goodTemplate {
		t.Errorf("FinalTemplate does not match extracted template")
	}
	if !state.QualityGatePassed {
		t.Errorf("QualityGatePassed = false")
	}
	if state.RequiresApproval {
		t.Errorf("RequiresApproval = true for generate-only request")
	}
	if state.DeploymentStatus != DeploymentNotStarted {
		t.Errorf("DeploymentStatus = %q", state.DeploymentStatus)
	}
}

func TestEngineStepLimitTermination(t *testing.T) {
	// The default mock response carries no code fence, so extraction
	// misses on every generation and the gate never passes.
	mock := adapter.NewMockAdapter()
	cfg := config.Defaults()
	cfg.Workflow.MaxSteps = 7
	engine := newTestEngine(mock, cfg)
	state := NewState("run-1", "a storage account")

	result, err := engine.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Suspended {
		t.Fatalf("run suspended")
	}
	if state.CurrentStage != StageFailed {
		t.Errorf("CurrentStage = %q, want failed", state.CurrentStage)
	}
	if state.Steps != cfg.Workflow.MaxSteps {
		t.Errorf("Steps = %d, want exactly %d", state.Steps, cfg.Workflow.MaxSteps)
	}
	if !hasErrorContaining(state, "step limit exceeded") {
		t.Errorf("step-limit error missing: %v", state.Errors)
	}
}

func TestEngineSuspendAndResume(t *testing.T) {
	counting := &countingAdapter{
		inner: adapter.NewMockAdapterWithResponses(map[string]string{
			AgentEngineer: goodResponse(),
		}, ""),
	}
	engine := newTestEngine(counting, config.Defaults())
	state := NewState("run-1", "deploy a storage account")

	result, err := engine.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Suspended {
		t.Fatalf("run did not suspend, stage %q, errors %v", state.CurrentStage, state.Errors)
	}
	if state.CurrentStage != StageApprovalGate {
		t.Fatalf("suspended at %q, want approval_gate", state.CurrentStage)
	}
	if !state.RequiresApproval || state.ApprovalReceived {
		t.Fatalf("approval flags wrong: requires=%v received=%v",
			state.RequiresApproval, state.ApprovalReceived)
	}
	if !strings.Contains(state.ApprovalSummary, "GDPR") {
		t.Errorf("approval summary does not list compliance frameworks:\n%s", state.ApprovalSummary)
	}

	// Cold restart: everything goes through the state file.
	path := StatePath(t.TempDir(), state.RunID)
	if err := SaveState(path, state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	resumed, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if err := resumed.GrantApproval(); err != nil {
		t.Fatalf("GrantApproval: %v", err)
	}

	callsBefore := counting.calls
	completedBefore := len(resumed.CompletedStages)

	// No workspace or runner configured: the deployment attempt itself
	// fails, which proves the engine went straight there.
	result, err = engine.Run(context.Background(), resumed)
	if err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if result.Suspended {
		t.Fatalf("resumed run suspended again")
	}
	if counting.calls != callsBefore {
		t.Errorf("resume made %d extra model calls", counting.calls-callsBefore)
	}
	if !hasErrorContaining(resumed, "deployment") {
		t.Errorf("deployment was not attempted: %v", resumed.Errors)
	}
	// The failed deployment is not marked completed; nothing else may be
	// re-marked either.
	if got := len(resumed.CompletedStages); got != completedBefore {
		t.Errorf("CompletedStages grew by %d on resume", got-completedBefore)
	}
	assertNoDuplicateStages(t, resumed)
}

func TestEngineWritesRunEvidence(t *testing.T) {
	writer, err := evidence.NewWriter(t.TempDir(), "run-1")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	mock := adapter.NewMockAdapterWithResponses(map[string]string{
		AgentEngineer: goodResponse(),
	}, "")
	engine := newTestEngine(mock, config.Defaults())
	engine.Evidence = writer
	state := NewState("run-1", "a storage account for backups")

	if _, err := engine.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.CurrentStage != StageCompleted {
		t.Fatalf("CurrentStage = %q, errors: %v", state.CurrentStage, state.Errors)
	}

	data, err := os.ReadFile(filepath.Join(writer.RunDir(), "run.json"))
	if err != nil {
		t.Fatalf("missing run.json: %v", err)
	}
	var run evidence.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		t.Fatalf("unmarshal run.json: %v", err)
	}
	if run.ID != "run-1" || run.Request != "a storage account for backups" {
		t.Errorf("run record = %+v", run)
	}
	if run.Adapter != "mock" || run.Model != "mock-1" {
		t.Errorf("run record adapter/model = %q/%q", run.Adapter, run.Model)
	}

	data, err = os.ReadFile(filepath.Join(writer.RunDir(), "stages", "001-planning.json"))
	if err != nil {
		t.Fatalf("missing first stage record: %v", err)
	}
	var stage evidence.StageRecord
	if err := json.Unmarshal(data, &stage); err != nil {
		t.Fatalf("unmarshal stage record: %v", err)
	}
	if stage.Adapter != "mock" || stage.Model != "mock-1" {
		t.Errorf("stage record adapter/model = %q/%q", stage.Adapter, stage.Model)
	}

	if _, err := os.Stat(filepath.Join(writer.RunDir(), "template.tf")); err != nil {
		t.Errorf("accepted template not persisted: %v", err)
	}
}

func TestEngineAppliesResponseTokenCap(t *testing.T) {
	counting := &countingAdapter{
		inner: adapter.NewMockAdapterWithResponses(map[string]string{
			AgentEngineer: goodResponse(),
		}, ""),
	}
	cfg := config.Defaults()
	cfg.Agents.MaxResponseTokens = 2000
	engine := newTestEngine(counting, cfg)
	state := NewState("run-1", "a storage account")

	if _, err := engine.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counting.lastReq.MaxTokens != 2000 {
		t.Errorf("MaxTokens = %d, want 2000", counting.lastReq.MaxTokens)
	}
}

func TestEngineTransientRetry(t *testing.T) {
	flaky := &flakyAdapter{
		inner: adapter.NewMockAdapterWithResponses(map[string]string{
			AgentEngineer: goodResponse(),
		}, ""),
		failures: 2,
	}
	engine := newTestEngine(flaky, config.Defaults())
	state := NewState("run-1", "a storage account")

	if _, err := engine.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.CurrentStage != StageCompleted {
		t.Errorf("CurrentStage = %q after transient failures, errors: %v",
			state.CurrentStage, state.Errors)
	}
}

func TestEngineFatalAdapterError(t *testing.T) {
	failing := &flakyAdapter{
		inner:    adapter.NewMockAdapter(),
		failures: 1 << 20,
	}
	cfg := config.Defaults()
	cfg.Workflow.MaxStageRetries = 1
	engine := newTestEngine(failing, cfg)
	state := NewState("run-1", "a storage account")

	if _, err := engine.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.CurrentStage != StageFailed {
		t.Errorf("CurrentStage = %q, want failed", state.CurrentStage)
	}
	if !hasErrorContaining(state, "upstream unavailable") {
		t.Errorf("provider error text not preserved: %v", state.Errors)
	}
}

func TestEngineResearchDetour(t *testing.T) {
	mock := adapter.NewMockAdapterWithResponses(map[string]string{
		AgentEngineer:   goodResponse(),
		AgentConsultant: "Use azurerm provider version ~> 3.85.",
	}, "")
	engine := newTestEngine(mock, config.Defaults())
	state := NewState("run-1", "a storage account using the latest provider")

	if _, err := engine.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.CurrentStage != StageCompleted {
		t.Fatalf("CurrentStage = %q, errors: %v", state.CurrentStage, state.Errors)
	}
	if !state.HasCompleted(StageResearchLookup) {
		t.Errorf("research_lookup never executed")
	}
	if state.TemplateGuidance == "" {
		t.Errorf("TemplateGuidance empty after lookup")
	}
	if state.NeedsLookup {
		t.Errorf("NeedsLookup still raised after lookup")
	}
}

func TestEngineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := newTestEngine(adapter.NewMockAdapter(), config.Defaults())
	state := NewState("run-1", "a storage account")

	if _, err := engine.Run(ctx, state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.CurrentStage != StageFailed {
		t.Errorf("CurrentStage = %q, want failed", state.CurrentStage)
	}
	if !hasErrorContaining(state, "cancelled") {
		t.Errorf("cancellation not recorded: %v", state.Errors)
	}
	if state.Steps != 0 {
		t.Errorf("Steps = %d, want 0 (no stage may start after cancel)", state.Steps)
	}
}

func hasErrorContaining(s *State, substr string) bool {
	for _, e := range s.Errors {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func assertNoDuplicateStages(t *testing.T, s *State) {
	t.Helper()
	seen := make(map[Stage]bool)
	for _, stage := range s.CompletedStages {
		if seen[stage] {
			t.Errorf("duplicate completed stage %q", stage)
		}
		seen[stage] = true
	}
}
