package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunRecord captures run-level metadata.
type RunRecord struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	Request      string            `json:"request"`
	Adapter      string            `json:"adapter"`
	Model        string            `json:"model"`
	Workspace    string            `json:"workspace,omitempty"`
	ToolVersions map[string]string `json:"tool_versions,omitempty"`
}

// StageRecord captures evidence for a single workflow stage execution.
type StageRecord struct {
	Stage           string            `json:"stage"`
	Step            int               `json:"step"`
	Adapter         string            `json:"adapter,omitempty"`
	Model           string            `json:"model,omitempty"`
	Output          string            `json:"output,omitempty"`
	ComplianceScore int               `json:"compliance_score,omitempty"`
	GatePassed      bool              `json:"gate_passed"`
	Providers       map[string]string `json:"providers,omitempty"`
	Errors          []string          `json:"errors,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
	DurationMillis  int64             `json:"duration_ms"`
}

// Writer writes evidence records to disk under baseDir/runID.
type Writer struct {
	baseDir string
	runDir  string
	step    int
}

// NewWriter creates an evidence writer rooted at baseDir/runID.
func NewWriter(baseDir, runID string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, runID)
	stagesDir := filepath.Join(runDir, "stages")
	if err := os.MkdirAll(stagesDir, 0755); err != nil {
		return nil, err
	}

	// A resumed run reopens the same directory; numbering continues after
	// the records written before suspension.
	entries, err := os.ReadDir(stagesDir)
	if err != nil {
		return nil, err
	}

	return &Writer{baseDir: baseDir, runDir: runDir, step: len(entries)}, nil
}

// RunDir returns the run directory path.
func (w *Writer) RunDir() string {
	return w.runDir
}

// WriteRun writes run metadata to run.json.
func (w *Writer) WriteRun(record RunRecord) error {
	return writeJSON(filepath.Join(w.runDir, "run.json"), record)
}

// WriteStage writes a stage record to stages/NNN-<stage>.json. Records are
// numbered in execution order so repeated visits to the same stage (a
// regeneration loop) stay distinguishable.
func (w *Writer) WriteStage(record StageRecord) error {
	w.step++
	record.Step = w.step
	path := filepath.Join(w.runDir, "stages", fmt.Sprintf("%03d-%s.json", w.step, record.Stage))
	return writeJSON(path, record)
}

// WriteTemplate persists the accepted template alongside the records.
func (w *Writer) WriteTemplate(content string) error {
	return os.WriteFile(filepath.Join(w.runDir, "template.tf"), []byte(content), 0644)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
