package template

import "strings"

// terraformKeywords are the block-declaration keywords that mark content as
// Terraform rather than prose that merely talks about infrastructure.
var terraformKeywords = []string{
	"terraform",
	"provider",
	"resource",
	"variable",
	"output",
	"module",
	"locals",
	"data",
}

// strictProseRatio is the fraction of non-comment lines allowed to carry no
// structural character before strict validation rejects the content.
const strictProseRatio = 0.5

// IsValid heuristically judges whether content is a plausible Terraform
// configuration. It is intentionally not a full HCL parser: model output is
// error-tolerant text and recoverable near-misses should be routed back for
// regeneration, not rejected here.
//
// Non-strict mode tolerates explanatory prose interleaved with valid blocks.
// Strict mode additionally rejects content dominated by prose, for use when
// the template must be deployment-ready without manual cleanup.
func IsValid(content string, strict bool) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}

	hasBlockSyntax := strings.Contains(content, "{") && strings.Contains(content, "}")
	if !containsKeyword(content) || !hasBlockSyntax {
		return false
	}

	if strict && proseHeavy(content) {
		return false
	}

	return true
}

// proseHeavy reports whether more than half of the meaningful lines carry no
// structural character. Comment lines are exempt from the count.
func proseHeavy(content string) bool {
	structural := 0
	prose := 0
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}
		if strings.ContainsAny(trimmed, "{}=") {
			structural++
		} else {
			prose++
		}
	}
	total := structural + prose
	if total == 0 {
		return false
	}
	return float64(prose)/float64(total) > strictProseRatio
}

func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//")
}

// containsKeyword reports whether content mentions any Terraform
// block-declaration keyword.
func containsKeyword(content string) bool {
	lower := strings.ToLower(content)
	for _, keyword := range terraformKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
