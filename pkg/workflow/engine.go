package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/zen-systems/promptform/pkg/adapter"
	"github.com/zen-systems/promptform/pkg/artifact"
	"github.com/zen-systems/promptform/pkg/config"
	"github.com/zen-systems/promptform/pkg/evidence"
	"github.com/zen-systems/promptform/pkg/terraform"
	"github.com/zen-systems/promptform/pkg/workspace"
)

// Engine drives a workflow run: it executes stages one at a time and asks
// the routing table for the next stage until a terminal stage is reached,
// the step bound trips, or the run suspends at the approval gate.
type Engine struct {
	Adapters       map[string]adapter.Adapter
	DefaultAdapter string
	DefaultModel   string
	Config         *config.Config
	Workspace      *workspace.Workspace
	Runner         *terraform.Runner
	Evidence       *evidence.Writer
	Manifest       *Manifest
	Logger         func(format string, args ...any)
}

// Result is the outcome of one engine invocation. Suspended means the run
// is waiting for an external approval and can be resumed later from the
// persisted state.
type Result struct {
	State     *State
	Suspended bool
}

// Run executes stages starting from state.CurrentStage. The state is
// mutated in place and also returned inside the result.
func (e *Engine) Run(ctx context.Context, state *State) (*Result, error) {
	if err := e.validate(state); err != nil {
		return nil, err
	}

	maxSteps := e.Config.Workflow.MaxSteps
	if e.Manifest != nil && e.Manifest.MaxSteps > 0 {
		maxSteps = e.Manifest.MaxSteps
	}

	if e.Evidence != nil && state.Steps == 0 {
		e.writeRunRecord(ctx, state)
	}

	for !state.CurrentStage.Terminal() {
		if err := ctx.Err(); err != nil {
			state.AddError(fmt.Sprintf("run cancelled: %v", err))
			state.CurrentStage = StageFailed
			break
		}

		stage := state.CurrentStage

		// A resumed run re-enters at the approval gate; the gate already
		// executed before suspension, so only the routing decision is
		// replayed.
		if stage == StageApprovalGate && state.HasCompleted(StageApprovalGate) {
			next, suspend := Next(state)
			if suspend {
				return &Result{State: state, Suspended: true}, nil
			}
			state.CurrentStage = next
			continue
		}

		if state.Steps >= maxSteps {
			state.AddError(fmt.Sprintf("step limit exceeded: %d stage executions", maxSteps))
			state.CurrentStage = StageFailed
			break
		}
		state.Steps++

		e.logf("stage %s (step %d/%d)", stage, state.Steps, maxSteps)
		start := time.Now()
		err := e.executeStage(ctx, stage, state)
		e.recordStage(stage, state, time.Since(start))

		if err != nil {
			state.AddError(fmt.Sprintf("%s: %v", stage, err))
			if stage == StageTemplateGeneration && adapter.IsTransient(err) {
				// Generation timeouts are retryable; stay on the stage
				// and let the step bound cap the loop.
				continue
			}
			state.CurrentStage = StageFailed
			break
		}

		state.MarkCompleted(stage)

		next, suspend := Next(state)
		if suspend {
			e.logf("suspending at %s awaiting approval", stage)
			return &Result{State: state, Suspended: true}, nil
		}
		if stage == StageComplianceValidation && next == StageTemplateGeneration {
			// New generation cycle: the research detour becomes available
			// again if the architect asks for it.
			state.LookupPerformed = false
		}
		state.CurrentStage = next
	}

	if state.CurrentStage == StageCompleted && state.FinalTemplate != "" {
		art := artifact.New(state.FinalTemplate, e.DefaultAdapter, e.DefaultModel)
		state.AppendHistory(fmt.Sprintf("artifact %s accepted (hash %s)", art.ID, art.Hash))
		if e.Evidence != nil {
			if err := e.Evidence.WriteTemplate(art.Content); err != nil {
				state.AddWarning(fmt.Sprintf("persist template: %v", err))
			}
		}
	}

	return &Result{State: state}, nil
}

func (e *Engine) validate(state *State) error {
	if state == nil {
		return fmt.Errorf("state is required")
	}
	if !ValidStage(state.CurrentStage) {
		return fmt.Errorf("unknown stage %q", state.CurrentStage)
	}
	if e.Config == nil {
		return fmt.Errorf("config is required")
	}
	if len(e.Adapters) == 0 {
		return fmt.Errorf("no adapters configured")
	}
	if _, _, _, err := e.resolveModel(state.CurrentStage); err != nil {
		return err
	}
	return nil
}

// complete performs one model call for a stage, retrying transient errors
// up to the configured per-stage retry count.
func (e *Engine) complete(ctx context.Context, stage Stage, agent, system, user string) (string, error) {
	ad, _, model, err := e.resolveModel(stage)
	if err != nil {
		return "", err
	}
	temperature := e.resolveTemperature(stage, agent)

	attempts := e.Config.Workflow.MaxStageRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.Config.StageTimeout())
		out, err := ad.Complete(callCtx, model, adapter.Request{
			System:      system,
			User:        user,
			Agent:       agent,
			Temperature: temperature,
			MaxTokens:   e.Config.Agents.MaxResponseTokens,
		})
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !adapter.IsTransient(err) {
			break
		}
		e.logf("%s: transient error on attempt %d/%d: %v", stage, attempt, attempts, err)
	}
	return "", fmt.Errorf("%s model call: %w", agent, lastErr)
}

// resolveModel picks the adapter and model for a stage, honoring manifest
// overrides. The adapter name is returned alongside for evidence records.
func (e *Engine) resolveModel(stage Stage) (adapter.Adapter, string, string, error) {
	name := e.DefaultAdapter
	model := e.DefaultModel
	if o := e.Manifest.For(stage); o != nil {
		if o.Adapter != "" {
			name = o.Adapter
		}
		if o.Model != "" {
			model = o.Model
		}
	}
	if name == "" && len(e.Adapters) == 1 {
		for only := range e.Adapters {
			name = only
		}
	}
	ad, ok := e.Adapters[name]
	if !ok {
		return nil, "", "", fmt.Errorf("adapter %q not configured", name)
	}
	if model == "" {
		if models := ad.Models(); len(models) > 0 {
			model = models[0]
		}
	}
	if model == "" {
		return nil, "", "", fmt.Errorf("no model configured for adapter %q", name)
	}
	return ad, name, model, nil
}

func (e *Engine) resolveTemperature(stage Stage, agent string) float64 {
	if o := e.Manifest.For(stage); o != nil && o.Temperature > 0 {
		return o.Temperature
	}
	if agent == AgentConsultant {
		return e.Config.Agents.ConsultantTemperature
	}
	return e.Config.Agents.DefaultTemperature
}

// writeRunRecord captures run-level metadata before the first stage. A
// failure to write evidence never fails the run itself.
func (e *Engine) writeRunRecord(ctx context.Context, state *State) {
	record := evidence.RunRecord{
		ID:        state.RunID,
		Timestamp: time.Now().UTC(),
		Request:   state.Input,
	}
	if _, name, model, err := e.resolveModel(state.CurrentStage); err == nil {
		record.Adapter = name
		record.Model = model
	}
	if e.Workspace != nil {
		record.Workspace = e.Workspace.Root()
	}
	if e.Runner != nil {
		if version, err := e.Runner.Version(ctx); err == nil {
			record.ToolVersions = map[string]string{"terraform": version}
		}
	}
	if err := e.Evidence.WriteRun(record); err != nil {
		e.logf("evidence run record failed: %v", err)
	}
}

func (e *Engine) recordStage(stage Stage, state *State, elapsed time.Duration) {
	if e.Evidence == nil {
		return
	}
	record := evidence.StageRecord{
		Stage:           string(stage),
		ComplianceScore: state.ComplianceScore,
		GatePassed:      state.QualityGatePassed,
		Providers:       state.Providers,
		Errors:          state.Errors,
		Warnings:        state.Warnings,
		DurationMillis:  elapsed.Milliseconds(),
	}
	if _, name, model, err := e.resolveModel(stage); err == nil {
		record.Adapter = name
		record.Model = model
	}
	if err := e.Evidence.WriteStage(record); err != nil {
		e.logf("evidence write failed for %s: %v", stage, err)
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger(format, args...)
	}
}
