package workflow

import "strings"

// Agent names used to select per-stage prompt and temperature settings.
const (
	AgentPlanner    = "planner"
	AgentArchitect  = "cloud_architect"
	AgentEngineer   = "cloud_engineer"
	AgentConsultant = "terraform_consultant"
)

const plannerSystemPrompt = `You are an infrastructure planning assistant.
Summarize the user's request as a short implementation plan: the components
involved, the cloud services to use, and whether deployment is requested.
Keep the plan under ten lines of plain text.`

const requirementsSystemPrompt = `You are a requirements analyst for cloud
infrastructure. From the user's request, produce a concise list of functional
and non-functional requirements: resources, sizing, regions, security and
compliance constraints. Plain text, one requirement per line.`

const architectSystemPrompt = `You are a cloud solutions architect. Given the
requirements, describe the target architecture: the resources to create,
their relationships, and any provider-specific considerations. If you need
current provider documentation to answer correctly, include the exact phrase
NEEDS_LOOKUP on its own line.`

const engineerSystemPrompt = `You are an infrastructure engineer. Generate a
complete, deployable Terraform template implementing the architecture.
Requirements:
- Include terraform and provider blocks with version constraints.
- Declare every input variable you reference, with descriptions.
- No hardcoded credentials; use variables for secrets.
- Return the full configuration in a single ` + "```hcl" + ` code block.`

const consultantSystemPrompt = `You are a Terraform documentation consultant.
Answer with current, factual guidance about the providers and resources in
question: resource names, required arguments, version constraints. Be terse
and concrete; the answer feeds directly into template generation.`

// needsLookupMarker is the sentinel the architect emits to request a
// research detour.
const needsLookupMarker = "NEEDS_LOOKUP"

// buildGenerationPrompt composes the user message for template generation
// from everything accumulated so far.
func buildGenerationPrompt(s *State) string {
	var sb strings.Builder

	sb.WriteString("Request:\n")
	sb.WriteString(s.Input)
	sb.WriteString("\n")

	if s.RequirementsSummary != "" {
		sb.WriteString("\nRequirements:\n")
		sb.WriteString(s.RequirementsSummary)
		sb.WriteString("\n")
	}
	if s.ArchitectureAnalysis != "" {
		sb.WriteString("\nArchitecture:\n")
		sb.WriteString(s.ArchitectureAnalysis)
		sb.WriteString("\n")
	}
	if s.TemplateGuidance != "" {
		sb.WriteString("\nProvider guidance:\n")
		sb.WriteString(s.TemplateGuidance)
		sb.WriteString("\n")
	}
	if s.RepairFeedback != "" {
		sb.WriteString("\n")
		sb.WriteString(s.RepairFeedback)
		sb.WriteString("\n")
	}

	return sb.String()
}

// buildConsultantPrompt composes the research question for the lookup stage.
func buildConsultantPrompt(s *State) string {
	var sb strings.Builder
	sb.WriteString("Request:\n")
	sb.WriteString(s.Input)
	sb.WriteString("\n")
	if s.ArchitectureAnalysis != "" {
		sb.WriteString("\nArchitecture under consideration:\n")
		sb.WriteString(s.ArchitectureAnalysis)
		sb.WriteString("\n")
	}
	sb.WriteString("\nProvide the provider and resource guidance needed to generate this template correctly.")
	return sb.String()
}
