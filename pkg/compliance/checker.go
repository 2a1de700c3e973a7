package compliance

import (
	"fmt"
	"regexp"
	"strings"
)

// Violation describes a specific compliance issue found in a template.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
}

// Report is the outcome of a compliance check. Score starts at 100 and
// loses points per violation by severity; Valid reflects structural
// soundness only, the caller decides pass/fail against its own thresholds.
type Report struct {
	Score       int         `json:"score"`
	Valid       bool        `json:"valid"`
	Violations  []Violation `json:"violations,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// ErrorCount returns the number of error-severity violations.
func (r *Report) ErrorCount() int {
	count := 0
	for _, v := range r.Violations {
		if v.Severity == "error" {
			count++
		}
	}
	return count
}

const (
	errorPenalty   = 25
	warningPenalty = 10
	infoPenalty    = 3
)

type securityRule struct {
	rule     string
	message  string
	patterns []*regexp.Regexp
}

var securityRules = []securityRule{
	{
		rule:    "hardcoded_secrets",
		message: "potential hardcoded secret",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)password\s*=\s*"[^$][^"]*"`),
			regexp.MustCompile(`(?i)secret\s*=\s*"[^$][^"]*"`),
			regexp.MustCompile(`(?i)token\s*=\s*"[^$][^"]*"`),
			regexp.MustCompile(`(?i)access_key\s*=\s*"[^$][^"]*"`),
		},
	},
	{
		rule:    "public_access",
		message: "potential unrestricted network access",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)source_address_prefix\s*=\s*"\*"`),
			regexp.MustCompile(`(?i)cidr_blocks\s*=\s*\["0\.0\.0\.0/0"\]`),
			regexp.MustCompile(`(?i)from_port\s*=\s*0[\s\S]*?to_port\s*=\s*65535`),
		},
	},
	{
		rule:    "admin_access",
		message: "privileged account configured directly",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)admin_username\s*=\s*"admin"`),
			regexp.MustCompile(`(?i)username\s*=\s*"administrator"`),
			regexp.MustCompile(`(?i)user\s*=\s*"root"`),
		},
	},
}

var (
	requiredBlocks    = []string{"terraform", "provider"}
	resourceDeclRe    = regexp.MustCompile(`(?i)\bresource\s+"`)
	variableDeclRe    = regexp.MustCompile(`(?i)\bvariable\s+"`)
	outputDeclRe      = regexp.MustCompile(`(?i)\boutput\s+"`)
	providerVersionRe = regexp.MustCompile(`(?i)\bprovider\s+"[^"]*"\s*{`)
	hardcodedLocRe    = regexp.MustCompile(`(?i)location\s*=\s*"[^"]*"`)
	uppercaseNameRe   = regexp.MustCompile(`name\s*=\s*"[A-Z]`)
	missingBraceRe    = regexp.MustCompile(`resource\s+"[^"]*"\s+"[^"]*"\s*[^{\s]`)
)

// Check runs the full compliance evaluation on a template.
func Check(template string) *Report {
	report := &Report{Score: 100, Valid: true}

	if strings.TrimSpace(template) == "" {
		report.Valid = false
		report.Score = 0
		report.Violations = append(report.Violations, Violation{
			Rule:     "empty_template",
			Severity: "error",
			Message:  "template is empty",
		})
		return report
	}

	checkSyntax(template, report)
	checkStructure(template, report)
	checkSecurity(template, report)
	report.Suggestions = suggestions(template)

	for _, v := range report.Violations {
		switch v.Severity {
		case "error":
			report.Score -= errorPenalty
			report.Valid = false
		case "warning":
			report.Score -= warningPenalty
		case "info":
			report.Score -= infoPenalty
		}
	}
	if report.Score < 0 {
		report.Score = 0
	}

	return report
}

// checkSyntax flags structural problems that would make the template
// unparseable: unbalanced braces, unmatched quotes, a resource declaration
// missing its opening brace.
func checkSyntax(template string, report *Report) {
	open := strings.Count(template, "{")
	closed := strings.Count(template, "}")
	if open != closed {
		report.Violations = append(report.Violations, Violation{
			Rule:     "unbalanced_braces",
			Severity: "error",
			Message:  fmt.Sprintf("mismatched braces: %d opening, %d closing", open, closed),
		})
	}

	if strings.Count(template, `"`)%2 != 0 {
		report.Violations = append(report.Violations, Violation{
			Rule:     "unmatched_quotes",
			Severity: "error",
			Message:  "unmatched quotes in template",
		})
	}

	if missingBraceRe.MatchString(template) {
		report.Violations = append(report.Violations, Violation{
			Rule:     "missing_brace",
			Severity: "error",
			Message:  "missing opening brace after resource declaration",
		})
	}
}

func checkStructure(template string, report *Report) {
	for _, block := range requiredBlocks {
		re := regexp.MustCompile(`(?i)\b` + block + `(\s+"[^"]*")?\s*{`)
		if !re.MatchString(template) {
			report.Violations = append(report.Violations, Violation{
				Rule:     "missing_" + block + "_block",
				Severity: "warning",
				Message:  fmt.Sprintf("missing %s block", block),
			})
		}
	}

	if !resourceDeclRe.MatchString(template) {
		report.Violations = append(report.Violations, Violation{
			Rule:     "no_resources",
			Severity: "warning",
			Message:  "no resource blocks found",
		})
	}

	if strings.Contains(template, "var.") && !variableDeclRe.MatchString(template) {
		report.Violations = append(report.Violations, Violation{
			Rule:     "undeclared_variables",
			Severity: "warning",
			Message:  "variables referenced but no variable blocks declared",
		})
	}
}

func checkSecurity(template string, report *Report) {
	for _, rule := range securityRules {
		occurrences := 0
		for _, pattern := range rule.patterns {
			occurrences += len(pattern.FindAllString(template, -1))
		}
		if occurrences > 0 {
			report.Violations = append(report.Violations, Violation{
				Rule:     rule.rule,
				Severity: "error",
				Message:  fmt.Sprintf("%s: %d occurrence(s)", rule.message, occurrences),
			})
		}
	}

	lower := strings.ToLower(template)
	if strings.Contains(lower, "storage_account") && !strings.Contains(lower, "enable_https_traffic_only") {
		report.Violations = append(report.Violations, Violation{
			Rule:     "storage_https",
			Severity: "warning",
			Message:  "storage account should enforce HTTPS traffic",
		})
	}
	if strings.Contains(lower, "virtual_machine") && !strings.Contains(lower, "disable_password_authentication") {
		report.Violations = append(report.Violations, Violation{
			Rule:     "vm_password_auth",
			Severity: "info",
			Message:  "consider disabling password authentication for virtual machines",
		})
	}
}

// suggestions returns non-scoring advice for the regeneration prompt.
func suggestions(template string) []string {
	var out []string
	lower := strings.ToLower(template)

	if providerVersionRe.MatchString(template) && !strings.Contains(lower, "version") {
		out = append(out, "add version constraints to provider blocks")
	}
	if !outputDeclRe.MatchString(template) {
		out = append(out, "add output blocks for important values")
	}
	if uppercaseNameRe.MatchString(template) {
		out = append(out, "use lowercase resource names following provider conventions")
	}
	if locations := hardcodedLocRe.FindAllString(template, -1); len(locations) > 0 {
		hardcoded := false
		for _, match := range locations {
			if !strings.Contains(match, "var.") {
				hardcoded = true
				break
			}
		}
		if hardcoded {
			out = append(out, "use variables for location/region values")
		}
	}
	return out
}
