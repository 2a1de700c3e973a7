package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	fileModeDefault = 0644
	dirModeDefault  = 0755

	// TemplateFileName is where the accepted template lands inside a
	// deployment directory.
	TemplateFileName = "main.tf"
)

var gitignoreEntries = []string{
	".terraform/",
	"*.tfstate",
	"*.tfstate.backup",
	"*.tfvars",
	"crash.log",
}

// Workspace manages per-deployment directories under a shared root.
type Workspace struct {
	root string
}

// New creates a workspace rooted at the given directory.
func New(root string) *Workspace {
	return &Workspace{root: root}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Prepare creates the deployment directory for a run, seeding a .gitignore
// so state and credentials never end up committed. Calling Prepare on an
// existing deployment is a no-op for files that already exist.
func (w *Workspace) Prepare(deploymentID string) (string, error) {
	dir, err := safeJoin(w.root, deploymentID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, dirModeDefault); err != nil {
		return "", fmt.Errorf("create deployment dir: %w", err)
	}

	gitignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignore); os.IsNotExist(err) {
		content := strings.Join(gitignoreEntries, "\n") + "\n"
		if err := os.WriteFile(gitignore, []byte(content), fileModeDefault); err != nil {
			return "", fmt.Errorf("write .gitignore: %w", err)
		}
	}

	return dir, nil
}

// WriteTemplate persists the template verbatim as UTF-8 text, no
// re-formatting, into the deployment directory.
func (w *Workspace) WriteTemplate(deploymentID, content string) (string, error) {
	dir, err := w.Prepare(deploymentID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, TemplateFileName)
	if err := os.WriteFile(path, []byte(content), fileModeDefault); err != nil {
		return "", fmt.Errorf("write template: %w", err)
	}
	return path, nil
}

// ReadTemplate loads a previously written template.
func (w *Workspace) ReadTemplate(deploymentID string) (string, error) {
	dir, err := safeJoin(w.root, deploymentID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(dir, TemplateFileName))
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(data), nil
}

// Dir returns the deployment directory path without creating it.
func (w *Workspace) Dir(deploymentID string) (string, error) {
	return safeJoin(w.root, deploymentID)
}

func safeJoin(root, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", rel)
	}
	cleaned := filepath.Clean(rel)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid path: %s", rel)
	}

	joined := filepath.Join(root, cleaned)
	relCheck, err := filepath.Rel(root, joined)
	if err != nil || strings.HasPrefix(relCheck, "..") {
		return "", fmt.Errorf("path escapes workspace: %s", rel)
	}
	return joined, nil
}
