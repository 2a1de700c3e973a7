package template

import (
	"fmt"
	"sort"
	"strings"
)

// ParsedVariable describes one declared input variable.
type ParsedVariable struct {
	Name          string
	HasDefault    bool
	HasValidation bool
	Description   string
}

// Required reports whether a value must be supplied at plan time.
func (v ParsedVariable) Required() bool {
	return !v.HasDefault
}

// ExtractVariables parses every variable declaration in the document and
// classifies each as defaulted, validated, and described. The result is
// freshly computed on every call.
func ExtractVariables(content string) map[string]ParsedVariable {
	vars := make(map[string]ParsedVariable)
	for _, decl := range scanDeclarations(content) {
		vars[decl.name] = analyzeVariableBody(decl.name, decl.body)
	}
	return vars
}

// ValidateVariables cross-checks declarations against references. A
// referenced-but-undeclared variable makes the document invalid; a
// declared-but-unused variable is reported as a non-fatal issue.
func ValidateVariables(content string) (bool, []string) {
	declared := ExtractVariables(content)
	refs := referencedVariables(content)

	var undeclared, unused []string
	for name := range refs {
		if _, ok := declared[name]; !ok {
			undeclared = append(undeclared, name)
		}
	}
	for name := range declared {
		if !refs[name] {
			unused = append(unused, name)
		}
	}
	sort.Strings(undeclared)
	sort.Strings(unused)

	var issues []string
	for _, name := range undeclared {
		issues = append(issues, fmt.Sprintf("variable %q is referenced but never declared", name))
	}
	for _, name := range unused {
		issues = append(issues, fmt.Sprintf("variable %q is declared but never used", name))
	}

	return len(undeclared) == 0, issues
}

type varDecl struct {
	name string
	body string
}

// scanDeclarations walks the document with a quote- and comment-aware
// scanner, collecting each `variable "<name>" { ... }` block body.
func scanDeclarations(content string) []varDecl {
	var decls []varDecl
	n := len(content)
	i := 0
	for i < n {
		c := content[i]
		switch {
		case c == '#':
			i = skipLine(content, i)
		case c == '/' && i+1 < n && content[i+1] == '/':
			i = skipLine(content, i)
		case c == '/' && i+1 < n && content[i+1] == '*':
			i = skipBlockComment(content, i)
		case c == '"':
			i = skipString(content, i)
		case isWordChar(c):
			start := i
			for i < n && isWordChar(content[i]) {
				i++
			}
			if content[start:i] != "variable" {
				continue
			}
			j := skipWhitespace(content, i)
			name, j, ok := readQuoted(content, j)
			if !ok {
				continue
			}
			j = skipWhitespace(content, j)
			if j >= n || content[j] != '{' {
				continue
			}
			body, end, ok := scanBlock(content, j)
			if !ok {
				continue
			}
			decls = append(decls, varDecl{name: name, body: body})
			i = end
		default:
			i++
		}
	}
	return decls
}

// scanBlock returns the text between the brace at open and its balanced
// closing brace. A naive "find the next closing brace" would let a nested
// sub-block (a validation rule, an object default) close the outer block
// early; the depth counter is what makes nesting safe.
func scanBlock(s string, open int) (body string, end int, ok bool) {
	n := len(s)
	depth := 0
	i := open
	for i < n {
		c := s[i]
		switch {
		case c == '#':
			i = skipLine(s, i)
		case c == '/' && i+1 < n && s[i+1] == '/':
			i = skipLine(s, i)
		case c == '/' && i+1 < n && s[i+1] == '*':
			i = skipBlockComment(s, i)
		case c == '"':
			i = skipString(s, i)
		case c == '{':
			depth++
			i++
		case c == '}':
			depth--
			i++
			if depth == 0 {
				return s[open+1 : i-1], i, true
			}
		default:
			i++
		}
	}
	return "", n, false
}

// analyzeVariableBody inspects the direct children of a variable block.
// Attributes and sub-blocks below depth 0 belong to nested blocks and are
// ignored.
func analyzeVariableBody(name, body string) ParsedVariable {
	pv := ParsedVariable{Name: name}
	depth := 0
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if depth == 0 {
			switch {
			case attributeNamed(trimmed, "default"):
				pv.HasDefault = true
			case attributeNamed(trimmed, "description"):
				pv.Description = quotedValue(trimmed)
			case blockNamed(trimmed, "validation"):
				pv.HasValidation = true
			}
		}
		depth += braceDelta(line)
		if depth < 0 {
			depth = 0
		}
	}
	return pv
}

func attributeNamed(trimmed, attr string) bool {
	if !strings.HasPrefix(trimmed, attr) {
		return false
	}
	rest := strings.TrimLeft(trimmed[len(attr):], " \t")
	return strings.HasPrefix(rest, "=")
}

func blockNamed(trimmed, name string) bool {
	if !strings.HasPrefix(trimmed, name) {
		return false
	}
	rest := strings.TrimLeft(trimmed[len(name):], " \t")
	return rest == "" || strings.HasPrefix(rest, "{")
}

// braceDelta counts the net brace depth change of a line, ignoring braces
// inside string literals and after comment markers.
func braceDelta(line string) int {
	delta := 0
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inString {
			if c == '\\' {
				i++
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '#':
			return delta
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return delta
			}
		case '{':
			delta++
		case '}':
			delta--
		}
	}
	return delta
}

func quotedValue(trimmed string) string {
	idx := strings.IndexByte(trimmed, '=')
	if idx < 0 {
		return ""
	}
	rest := trimmed[idx+1:]
	start := strings.IndexByte(rest, '"')
	if start < 0 {
		return ""
	}
	value, _, ok := readQuoted(rest, start)
	if !ok {
		return ""
	}
	return value
}

// referencedVariables collects every name used via a var.<name> reference.
func referencedVariables(content string) map[string]bool {
	refs := make(map[string]bool)
	rest := content
	for {
		idx := strings.Index(rest, "var.")
		if idx < 0 {
			return refs
		}
		boundary := idx == 0 || (!isWordChar(rest[idx-1]) && rest[idx-1] != '.')
		name := ""
		j := idx + len("var.")
		for j < len(rest) && isWordChar(rest[j]) {
			name += string(rest[j])
			j++
		}
		if boundary && name != "" {
			refs[name] = true
		}
		rest = rest[j:]
	}
}

func skipWhitespace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func skipLine(s string, i int) int {
	for i < len(s) && s[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(s string, i int) int {
	i += 2
	for i+1 < len(s) {
		if s[i] == '*' && s[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(s)
}

func skipString(s string, i int) int {
	i++ // opening quote
	for i < len(s) {
		switch s[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return len(s)
}

// readQuoted reads a double-quoted string starting at index start, returning
// the unquoted value and the index after the closing quote.
func readQuoted(s string, start int) (string, int, bool) {
	if start >= len(s) || s[start] != '"' {
		return "", start, false
	}
	var sb strings.Builder
	i := start + 1
	for i < len(s) {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				sb.WriteByte(s[i+1])
			}
			i += 2
		case '"':
			return sb.String(), i + 1, true
		default:
			sb.WriteByte(s[i])
			i++
		}
	}
	return "", len(s), false
}
