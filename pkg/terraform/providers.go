package terraform

import "strings"

// initLinePrefixes are the dependency-resolution phrasings terraform init
// emits, lowercased for case-insensitive matching.
var initLinePrefixes = []string{
	"- installing ",
	"- using previously-installed ",
	"- downloading ",
}

// ParseProviders extracts the resolved provider versions from a terraform
// init result. Lines are scanned top to bottom and later occurrences of a
// provider overwrite earlier ones, so the mapping reflects the final
// resolution. A failed or empty init yields an empty map.
func ParseProviders(result CommandResult) map[string]string {
	providers := make(map[string]string)
	if !result.Success || result.Stdout == "" {
		return providers
	}

	for _, line := range strings.Split(result.Stdout, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		for _, prefix := range initLinePrefixes {
			if !strings.HasPrefix(lower, prefix) {
				continue
			}
			name, version, ok := parseProviderLine(trimmed[len(prefix):])
			if ok {
				providers[name] = version
			}
			break
		}
	}

	return providers
}

// parseProviderLine splits "registry.terraform.io/hashicorp/aws v5.31.0..."
// into its short provider name and version token.
func parseProviderLine(rest string) (name, version string, ok bool) {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return "", "", false
	}

	// Short name is the last path segment of the namespaced identifier.
	source := fields[0]
	if idx := strings.LastIndexByte(source, '/'); idx >= 0 {
		source = source[idx+1:]
	}
	if source == "" {
		return "", "", false
	}

	version = strings.TrimPrefix(fields[1], "v")
	version = strings.TrimSuffix(version, "...")
	if version == "" {
		return "", "", false
	}

	return source, version, true
}
