package workflow

import "strings"

// Trigger phrases scanned against the raw request during planning. Matching
// is word-boundary aware so "apply" does not fire inside "reapplying".
var (
	deployTriggers = []string{
		"deploy", "apply", "provision", "launch", "roll out", "spin up",
	}
	researchTriggers = []string{
		"latest", "newest", "current version", "best practice",
		"best practices", "recommended", "up to date",
	}
)

// componentKeywords maps infrastructure component classes to the request
// phrases that indicate them. Used only to enrich the planning summary.
var componentKeywords = map[string][]string{
	"web application": {"web app", "frontend", "website", "react", "angular", "vue"},
	"database":        {"database", "db", "sql", "mysql", "postgresql", "cosmos"},
	"storage":         {"storage", "blob", "file share", "data lake"},
	"compute":         {"vm", "virtual machine", "compute", "container", "kubernetes"},
	"networking":      {"network", "vpc", "subnet", "load balancer", "cdn"},
	"security":        {"firewall", "waf", "security", "key vault", "encryption"},
}

// DetectDeployRequest reports whether the request asks for real-world
// provisioning rather than template generation alone.
func DetectDeployRequest(input string) bool {
	return matchesAny(input, deployTriggers)
}

// DetectResearchNeed reports whether the request asks for information that
// warrants a research detour before generation.
func DetectResearchNeed(input string) bool {
	return matchesAny(input, researchTriggers)
}

// DetectComponents extracts the infrastructure component classes mentioned
// in the request, in a stable order.
func DetectComponents(input string) []string {
	var found []string
	for _, component := range []string{
		"web application", "database", "storage", "compute", "networking", "security",
	} {
		if matchesAny(input, componentKeywords[component]) {
			found = append(found, component)
		}
	}
	return found
}

func matchesAny(input string, phrases []string) bool {
	lower := strings.ToLower(input)
	for _, phrase := range phrases {
		if containsPhrase(lower, phrase) {
			return true
		}
	}
	return false
}

// containsPhrase finds phrase in text with word boundaries on both sides.
func containsPhrase(text, phrase string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], phrase)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(phrase)
		beforeOK := idx == 0 || !isWordByte(text[idx-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
}

func isWordByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
