package repair

import (
	"fmt"
	"strings"

	"github.com/zen-systems/promptform/pkg/compliance"
)

// GenerateRegenerationPrompt creates a prompt asking the model to produce a
// corrected template after a failed compliance check. Structural issues from
// variable validation are folded in alongside the compliance violations.
func GenerateRegenerationPrompt(template string, report *compliance.Report, issues []string) string {
	var sb strings.Builder

	sb.WriteString("The following Terraform template failed validation:\n\n")
	sb.WriteString("---\n")
	sb.WriteString(template)
	sb.WriteString("\n---\n\n")

	if report != nil && len(report.Violations) > 0 {
		sb.WriteString(fmt.Sprintf("Compliance score: %d/100\n\n", report.Score))
		sb.WriteString("Violations:\n")
		for _, v := range report.Violations {
			sb.WriteString(fmt.Sprintf("- [%s] %s: %s\n", v.Severity, v.Rule, v.Message))
		}
	}

	if len(issues) > 0 {
		sb.WriteString("\nVariable issues:\n")
		for _, issue := range issues {
			sb.WriteString(fmt.Sprintf("- %s\n", issue))
		}
	}

	if report != nil && len(report.Suggestions) > 0 {
		sb.WriteString("\nSuggestions:\n")
		for _, s := range report.Suggestions {
			sb.WriteString(fmt.Sprintf("- %s\n", s))
		}
	}

	sb.WriteString("\nRegenerate the complete template with all issues fixed. ")
	sb.WriteString("Return only the corrected Terraform configuration in a single ```hcl code block.")

	return sb.String()
}

// GenerateExtractionRetryPrompt asks the model to resend its answer when no
// usable template could be extracted from the previous response.
func GenerateExtractionRetryPrompt() string {
	var sb strings.Builder

	sb.WriteString("Your previous response did not contain a usable Terraform template.\n")
	sb.WriteString("Respond again with the complete configuration inside a single ```hcl code block, ")
	sb.WriteString("with no prose inside the block.")

	return sb.String()
}
