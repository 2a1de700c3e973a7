package workflow

import (
	"fmt"
	"time"
)

// Stage identifies one unit of work in the workflow state machine.
type Stage string

const (
	StagePlanning             Stage = "planning"
	StageRequirementsAnalysis Stage = "requirements_analysis"
	StageArchitectureDesign   Stage = "architecture_design"
	StageTemplateGeneration   Stage = "template_generation"
	StageResearchLookup       Stage = "research_lookup"
	StageComplianceValidation Stage = "compliance_validation"
	StageApprovalGate         Stage = "approval_gate"
	StageDeployment           Stage = "deployment"
	StageCompleted            Stage = "completed"
	StageFailed               Stage = "failed"
)

// Stages lists every stage in nominal execution order.
var Stages = []Stage{
	StagePlanning,
	StageRequirementsAnalysis,
	StageArchitectureDesign,
	StageTemplateGeneration,
	StageResearchLookup,
	StageComplianceValidation,
	StageApprovalGate,
	StageDeployment,
	StageCompleted,
	StageFailed,
}

// ValidStage reports whether s is a member of the stage enum.
func ValidStage(s Stage) bool {
	for _, known := range Stages {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the stage ends a run.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// DeploymentStatus tracks how far the provisioning tool got.
type DeploymentStatus string

const (
	DeploymentNotStarted DeploymentStatus = "not_started"
	DeploymentPlanned    DeploymentStatus = "planned"
	DeploymentDeployed   DeploymentStatus = "deployed"
	DeploymentFailed     DeploymentStatus = "failed"
)

// State is the single mutable record threaded through every stage. It is
// fully JSON-serializable so a suspended run can resume from cold state with
// nothing held in memory.
type State struct {
	RunID               string    `json:"run_id"`
	Input               string    `json:"input"`
	CreatedAt           time.Time `json:"created_at"`
	ConversationHistory []string  `json:"conversation_history,omitempty"`
	CurrentStage        Stage     `json:"current_stage"`
	CompletedStages     []Stage   `json:"completed_stages,omitempty"`
	Errors              []string  `json:"errors,omitempty"`
	Warnings            []string  `json:"warnings,omitempty"`
	Steps               int       `json:"steps"`

	RequiresApproval bool `json:"requires_approval"`
	ApprovalReceived bool `json:"approval_received"`
	DeployRequested  bool `json:"deploy_requested"`

	NeedsLookup       bool `json:"needs_lookup"`
	LookupPerformed   bool `json:"lookup_performed"`
	QualityGatePassed bool `json:"quality_gate_passed"`

	FinalTemplate    string            `json:"final_template,omitempty"`
	ComplianceScore  int               `json:"compliance_score"`
	DeploymentStatus DeploymentStatus  `json:"deployment_status"`
	Providers        map[string]string `json:"providers,omitempty"`

	RequirementsSummary  string `json:"requirements_summary,omitempty"`
	ArchitectureAnalysis string `json:"architecture_analysis,omitempty"`
	TemplateGuidance     string `json:"template_guidance,omitempty"`
	RepairFeedback       string `json:"repair_feedback,omitempty"`
	ApprovalSummary      string `json:"approval_summary,omitempty"`
}

// NewState creates the state record for a fresh run.
func NewState(runID, input string) *State {
	return &State{
		RunID:            runID,
		Input:            input,
		CreatedAt:        time.Now().UTC(),
		CurrentStage:     StagePlanning,
		DeploymentStatus: DeploymentNotStarted,
	}
}

// AppendHistory adds an entry to the conversation history. History is
// append-only and never reordered.
func (s *State) AppendHistory(entry string) {
	s.ConversationHistory = append(s.ConversationHistory, entry)
}

// AddError appends an error string, skipping exact duplicates. Insertion
// order of distinct strings is preserved.
func (s *State) AddError(msg string) {
	s.Errors = appendUnique(s.Errors, msg)
}

// AddWarning appends a warning string, skipping exact duplicates.
func (s *State) AddWarning(msg string) {
	s.Warnings = appendUnique(s.Warnings, msg)
}

// MarkCompleted records a stage as executed. The set only grows and holds
// no duplicates.
func (s *State) MarkCompleted(stage Stage) {
	for _, done := range s.CompletedStages {
		if done == stage {
			return
		}
	}
	s.CompletedStages = append(s.CompletedStages, stage)
}

// HasCompleted reports whether a stage has already executed this run.
func (s *State) HasCompleted(stage Stage) bool {
	for _, done := range s.CompletedStages {
		if done == stage {
			return true
		}
	}
	return false
}

// GrantApproval records the external approval signal. It refuses to flip
// ApprovalReceived unless a stage actually asked for approval first.
func (s *State) GrantApproval() error {
	if !s.RequiresApproval {
		return fmt.Errorf("run %s has no pending approval request", s.RunID)
	}
	s.ApprovalReceived = true
	return nil
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
