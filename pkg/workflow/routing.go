package workflow

// Next decides the stage that follows the current one, as a pure function
// of the boolean/enum fields of State. Free-text fields never participate
// in routing. The second return value is true when the workflow must
// suspend and wait for an external approval signal.
func Next(s *State) (Stage, bool) {
	switch s.CurrentStage {
	case StagePlanning:
		return StageRequirementsAnalysis, false

	case StageRequirementsAnalysis:
		return StageArchitectureDesign, false

	case StageArchitectureDesign:
		return StageTemplateGeneration, false

	case StageTemplateGeneration:
		if s.NeedsLookup && !s.LookupPerformed {
			return StageResearchLookup, false
		}
		return StageComplianceValidation, false

	case StageResearchLookup:
		// Always loops back; the lookup stage clears NeedsLookup and
		// latches LookupPerformed so the detour runs once per cycle.
		return StageTemplateGeneration, false

	case StageComplianceValidation:
		if !s.QualityGatePassed {
			return StageTemplateGeneration, false
		}
		return StageApprovalGate, false

	case StageApprovalGate:
		if !s.RequiresApproval {
			// Generate-only runs propose no side effects; there is
			// nothing to approve and nothing to deploy.
			return StageCompleted, false
		}
		if s.ApprovalReceived {
			return StageDeployment, false
		}
		return StageApprovalGate, true

	case StageDeployment:
		if s.DeploymentStatus == DeploymentDeployed {
			return StageCompleted, false
		}
		return StageFailed, false
	}

	return StageFailed, false
}
