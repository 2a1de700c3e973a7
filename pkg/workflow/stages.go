package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zen-systems/promptform/pkg/compliance"
	"github.com/zen-systems/promptform/pkg/repair"
	"github.com/zen-systems/promptform/pkg/template"
	"github.com/zen-systems/promptform/pkg/terraform"
)

func (e *Engine) executeStage(ctx context.Context, stage Stage, state *State) error {
	switch stage {
	case StagePlanning:
		return e.runPlanning(ctx, state)
	case StageRequirementsAnalysis:
		return e.runRequirementsAnalysis(ctx, state)
	case StageArchitectureDesign:
		return e.runArchitectureDesign(ctx, state)
	case StageTemplateGeneration:
		return e.runTemplateGeneration(ctx, state)
	case StageResearchLookup:
		return e.runResearchLookup(ctx, state)
	case StageComplianceValidation:
		return e.runComplianceValidation(state)
	case StageApprovalGate:
		return e.runApprovalGate(state)
	case StageDeployment:
		return e.runDeployment(ctx, state)
	}
	return fmt.Errorf("stage %q has no implementation", stage)
}

// runPlanning scans the request for deployment and research triggers, then
// asks the model for a short implementation plan.
func (e *Engine) runPlanning(ctx context.Context, state *State) error {
	state.DeployRequested = DetectDeployRequest(state.Input)
	if DetectResearchNeed(state.Input) {
		state.NeedsLookup = true
	}

	user := "Request:\n" + state.Input
	if components := DetectComponents(state.Input); len(components) > 0 {
		user += "\n\nDetected components: " + strings.Join(components, ", ")
	}

	out, err := e.complete(ctx, StagePlanning, AgentPlanner, plannerSystemPrompt, user)
	if err != nil {
		return err
	}
	state.AppendHistory("plan: " + out)
	return nil
}

func (e *Engine) runRequirementsAnalysis(ctx context.Context, state *State) error {
	out, err := e.complete(ctx, StageRequirementsAnalysis, AgentArchitect,
		requirementsSystemPrompt, "Request:\n"+state.Input)
	if err != nil {
		return err
	}
	state.RequirementsSummary = out
	state.AppendHistory("requirements: " + out)
	return nil
}

func (e *Engine) runArchitectureDesign(ctx context.Context, state *State) error {
	user := "Request:\n" + state.Input
	if state.RequirementsSummary != "" {
		user += "\n\nRequirements:\n" + state.RequirementsSummary
	}

	out, err := e.complete(ctx, StageArchitectureDesign, AgentArchitect, architectSystemPrompt, user)
	if err != nil {
		return err
	}
	if strings.Contains(out, needsLookupMarker) {
		state.NeedsLookup = true
		out = strings.ReplaceAll(out, needsLookupMarker, "")
	}
	state.ArchitectureAnalysis = strings.TrimSpace(out)
	state.AppendHistory("architecture: " + state.ArchitectureAnalysis)
	return nil
}

// runTemplateGeneration calls the model and extracts the template from its
// response. An extraction miss is a warning, not an error: the compliance
// stage will fail the gate and route back here with repair feedback.
func (e *Engine) runTemplateGeneration(ctx context.Context, state *State) error {
	out, err := e.complete(ctx, StageTemplateGeneration, AgentEngineer,
		engineerSystemPrompt, buildGenerationPrompt(state))
	if err != nil {
		return err
	}
	state.AppendHistory("generation response received")

	extracted := template.Extract(out)
	if extracted == "" {
		state.AddWarning("no template found in model response")
		state.RepairFeedback = repair.GenerateExtractionRetryPrompt()
		return nil
	}

	state.FinalTemplate = extracted
	state.RepairFeedback = ""
	return nil
}

func (e *Engine) runResearchLookup(ctx context.Context, state *State) error {
	out, err := e.complete(ctx, StageResearchLookup, AgentConsultant,
		consultantSystemPrompt, buildConsultantPrompt(state))
	if err != nil {
		return err
	}
	state.TemplateGuidance = out
	state.NeedsLookup = false
	state.LookupPerformed = true
	state.AppendHistory("research: " + out)
	return nil
}

// runComplianceValidation is the only stage allowed to set
// QualityGatePassed. It combines strict content validation, variable
// cross-checking, and the compliance scan.
func (e *Engine) runComplianceValidation(state *State) error {
	tmpl := state.FinalTemplate

	if tmpl == "" || !template.IsValid(tmpl, true) {
		state.QualityGatePassed = false
		state.ComplianceScore = 0
		state.AddWarning("template failed structural validation")
		if state.RepairFeedback == "" {
			state.RepairFeedback = repair.GenerateExtractionRetryPrompt()
		}
		return nil
	}

	varsOK, issues := template.ValidateVariables(tmpl)
	report := compliance.Check(tmpl)
	state.ComplianceScore = report.Score

	passed := report.Valid &&
		varsOK &&
		float64(report.Score) >= e.Config.MinimumScore() &&
		len(report.Violations) <= e.Config.MaxViolations()
	state.QualityGatePassed = passed

	if passed {
		state.RepairFeedback = ""
		state.AppendHistory(fmt.Sprintf("compliance passed with score %d", report.Score))
		return nil
	}

	state.RepairFeedback = repair.GenerateRegenerationPrompt(tmpl, report, issues)
	state.AddWarning(fmt.Sprintf("compliance gate failed with score %d (%d violations)",
		report.Score, len(report.Violations)))
	return nil
}

// runApprovalGate raises the approval requirement for deploy runs and
// composes the summary shown to the approver. No model call here: the
// summary must be available even when the provider is down.
func (e *Engine) runApprovalGate(state *State) error {
	if state.DeployRequested {
		state.RequiresApproval = true
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run %s\n", state.RunID))
	sb.WriteString(fmt.Sprintf("Request: %s\n", state.Input))
	sb.WriteString(fmt.Sprintf("Compliance score: %d/100\n", state.ComplianceScore))
	if frameworks := e.Config.Compliance.Frameworks; len(frameworks) > 0 {
		names := make([]string, 0, len(frameworks))
		for name := range frameworks {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("Compliance frameworks considered: " + strings.Join(names, ", ") + "\n")
	}
	sb.WriteString(fmt.Sprintf("Template size: %d bytes\n", len(state.FinalTemplate)))
	if state.RequiresApproval {
		sb.WriteString("Action: terraform init, plan, and apply against the target environment\n")
	} else {
		sb.WriteString("Action: template generation only, nothing will be provisioned\n")
	}
	state.ApprovalSummary = sb.String()
	return nil
}

// runDeployment seeds the workspace and walks init, plan, apply. Tool
// stderr is preserved verbatim in the returned error so the operator sees
// exactly what terraform said.
func (e *Engine) runDeployment(ctx context.Context, state *State) error {
	if e.Workspace == nil || e.Runner == nil {
		return fmt.Errorf("deployment requested but workspace or runner not configured")
	}

	dir, err := e.Workspace.Prepare(state.RunID)
	if err != nil {
		state.DeploymentStatus = DeploymentFailed
		return fmt.Errorf("prepare workspace: %w", err)
	}
	if _, err := e.Workspace.WriteTemplate(state.RunID, state.FinalTemplate); err != nil {
		state.DeploymentStatus = DeploymentFailed
		return fmt.Errorf("write template: %w", err)
	}

	timeout := e.Config.ToolTimeout()

	init := e.Runner.Init(ctx, dir, timeout)
	if !init.Success {
		state.DeploymentStatus = DeploymentFailed
		return fmt.Errorf("terraform init failed: %s", strings.TrimSpace(init.Stderr))
	}
	if providers := terraform.ParseProviders(init); len(providers) > 0 {
		state.Providers = providers
		state.AppendHistory("providers: " + formatProviders(providers))
	}

	plan := e.Runner.Plan(ctx, dir, timeout)
	if !plan.Success {
		state.DeploymentStatus = DeploymentFailed
		return fmt.Errorf("terraform plan failed: %s", strings.TrimSpace(plan.Stderr))
	}
	state.DeploymentStatus = DeploymentPlanned

	apply := e.Runner.Apply(ctx, dir, timeout)
	if !apply.Success {
		state.DeploymentStatus = DeploymentFailed
		return fmt.Errorf("terraform apply failed: %s", strings.TrimSpace(apply.Stderr))
	}
	state.DeploymentStatus = DeploymentDeployed
	state.AppendHistory("deployment applied in " + dir)
	return nil
}

func formatProviders(providers map[string]string) string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+providers[name])
	}
	return strings.Join(parts, " ")
}
