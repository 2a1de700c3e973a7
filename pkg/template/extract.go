// Package template mines Terraform configuration out of unstructured model
// output: extraction from fenced regions, heuristic content validation, and
// declared-variable introspection.
package template

import (
	"strings"
)

// Fence tag priority: the HCL language tag wins over the terraform tool tag,
// which wins over untagged fences.
const (
	primaryTag   = "hcl"
	secondaryTag = "terraform"
)

// resourceWeight biases candidate selection toward blocks that declare more
// resources, so a long prose-wrapped snippet does not beat the real template.
const resourceWeight = 256

type fencedBlock struct {
	tag     string
	content string
}

// Extract pulls a Terraform template out of raw model-response text.
// It returns the empty string when no plausible template is present; that is
// a valid outcome (the caller treats it as "needs regeneration"), never an
// error.
func Extract(response string) string {
	if strings.TrimSpace(response) == "" {
		return ""
	}

	blocks := scanFencedBlocks(response)
	if len(blocks) == 0 {
		return ""
	}

	candidates := selectByTag(blocks, primaryTag)
	if len(candidates) == 0 {
		candidates = selectByTag(blocks, secondaryTag)
	}
	tagged := len(candidates) > 0
	if !tagged {
		candidates = selectByTag(blocks, "")
	}

	best := ""
	bestScore := -1
	for _, block := range candidates {
		content := trimEdgeBlankLines(block.content)
		if !containsKeyword(content) {
			continue
		}
		// Untagged fences can hold anything; require them to look like a
		// deployable template before considering them at all.
		if !tagged && !IsValid(content, true) {
			continue
		}
		score := len(content) + resourceWeight*countResourceBlocks(content)
		if score > bestScore {
			best = content
			bestScore = score
		}
	}

	return best
}

// scanFencedBlocks collects fenced code regions with their language tags.
// Only the outermost fence pair is honored per pass: a fence line inside an
// open fence closes it.
func scanFencedBlocks(response string) []fencedBlock {
	var blocks []fencedBlock
	var body []string
	tag := ""
	open := false

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if open {
				blocks = append(blocks, fencedBlock{tag: tag, content: strings.Join(body, "\n")})
				open = false
				continue
			}
			open = true
			body = body[:0]
			tag = fenceTag(trimmed)
			continue
		}
		if open {
			body = append(body, line)
		}
	}

	// An unterminated fence is discarded: there is no way to tell where the
	// model intended it to end.
	return blocks
}

func fenceTag(fenceLine string) string {
	rest := strings.TrimPrefix(fenceLine, "```")
	fields := strings.Fields(strings.ToLower(rest))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func selectByTag(blocks []fencedBlock, tag string) []fencedBlock {
	var out []fencedBlock
	for _, block := range blocks {
		if block.tag == tag {
			out = append(out, block)
		}
	}
	return out
}

// trimEdgeBlankLines removes leading and trailing blank lines while
// preserving interior formatting exactly.
func trimEdgeBlankLines(content string) string {
	lines := strings.Split(content, "\n")
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// countResourceBlocks counts resource declarations, the strongest signal of
// template substance.
func countResourceBlocks(content string) int {
	count := 0
	rest := content
	for {
		idx := strings.Index(rest, "resource ")
		if idx < 0 {
			return count
		}
		if idx == 0 || !isWordChar(rest[idx-1]) {
			after := strings.TrimLeft(rest[idx+len("resource "):], " \t")
			if strings.HasPrefix(after, `"`) {
				count++
			}
		}
		rest = rest[idx+len("resource "):]
	}
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
