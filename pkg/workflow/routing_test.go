package workflow

import "testing"

func TestNext(t *testing.T) {
	tests := []struct {
		name        string
		state       State
		want        Stage
		wantSuspend bool
	}{
		{
			name:  "planning to requirements",
			state: State{CurrentStage: StagePlanning},
			want:  StageRequirementsAnalysis,
		},
		{
			name:  "requirements to architecture",
			state: State{CurrentStage: StageRequirementsAnalysis},
			want:  StageArchitectureDesign,
		},
		{
			name:  "architecture to generation",
			state: State{CurrentStage: StageArchitectureDesign},
			want:  StageTemplateGeneration,
		},
		{
			name:  "generation detours to research",
			state: State{CurrentStage: StageTemplateGeneration, NeedsLookup: true},
			want:  StageResearchLookup,
		},
		{
			name:  "generation skips research after lookup",
			state: State{CurrentStage: StageTemplateGeneration, NeedsLookup: true, LookupPerformed: true},
			want:  StageComplianceValidation,
		},
		{
			name:  "generation to compliance",
			state: State{CurrentStage: StageTemplateGeneration},
			want:  StageComplianceValidation,
		},
		{
			name:  "research loops back to generation",
			state: State{CurrentStage: StageResearchLookup},
			want:  StageTemplateGeneration,
		},
		{
			name:  "compliance failure regenerates",
			state: State{CurrentStage: StageComplianceValidation},
			want:  StageTemplateGeneration,
		},
		{
			name:  "compliance pass to approval",
			state: State{CurrentStage: StageComplianceValidation, QualityGatePassed: true},
			want:  StageApprovalGate,
		},
		{
			name:  "approval not required completes",
			state: State{CurrentStage: StageApprovalGate},
			want:  StageCompleted,
		},
		{
			name:        "approval pending suspends",
			state:       State{CurrentStage: StageApprovalGate, RequiresApproval: true},
			want:        StageApprovalGate,
			wantSuspend: true,
		},
		{
			name:  "approval granted deploys",
			state: State{CurrentStage: StageApprovalGate, RequiresApproval: true, ApprovalReceived: true},
			want:  StageDeployment,
		},
		{
			name:  "deployment success completes",
			state: State{CurrentStage: StageDeployment, DeploymentStatus: DeploymentDeployed},
			want:  StageCompleted,
		},
		{
			name:  "deployment failure fails",
			state: State{CurrentStage: StageDeployment, DeploymentStatus: DeploymentFailed},
			want:  StageFailed,
		},
		{
			name:  "unknown stage fails",
			state: State{CurrentStage: Stage("bogus")},
			want:  StageFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, suspend := Next(&tt.state)
			if got != tt.want || suspend != tt.wantSuspend {
				t.Errorf("Next() = (%q, %v), want (%q, %v)", got, suspend, tt.want, tt.wantSuspend)
			}
		})
	}
}
