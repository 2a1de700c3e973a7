package terraform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandResult captures a single tool invocation. Failure is signaled
// through the fields, never through an error return: a non-zero exit, a
// missing binary, and a timeout all come back as a populated result so the
// calling stage can route on it.
type CommandResult struct {
	Success    bool   `json:"success"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	ReturnCode int    `json:"return_code"`
}

// Runner executes terraform subcommands in a working directory.
type Runner struct {
	binary string
}

// NewRunner creates a runner for the terraform binary on PATH.
func NewRunner() *Runner {
	return &Runner{binary: "terraform"}
}

// Run executes terraform with the given arguments, bounded by timeout.
// Environment-level failures are folded into the result: a missing binary
// yields ReturnCode -1 with a "binary not found" stderr, a timeout yields
// ReturnCode -1 with a "timed out after" stderr.
func (r *Runner) Run(ctx context.Context, workdir string, args []string, timeout time.Duration) CommandResult {
	if _, err := exec.LookPath(r.binary); err != nil {
		return CommandResult{
			Success:    false,
			Stderr:     fmt.Sprintf("%s binary not found on PATH", r.binary),
			ReturnCode: -1,
		}
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.binary, args...)
	cmd.Dir = workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.ReturnCode = -1
		result.Stderr = fmt.Sprintf("%s %s timed out after %s", r.binary, strings.Join(args, " "), timeout)
		return result
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ReturnCode = exitErr.ExitCode()
		} else {
			result.ReturnCode = -1
			result.Stderr = err.Error()
		}
		return result
	}

	result.Success = true
	return result
}

// Init runs terraform init with plugin caching friendly defaults.
func (r *Runner) Init(ctx context.Context, workdir string, timeout time.Duration) CommandResult {
	return r.Run(ctx, workdir, []string{"init", "-no-color", "-input=false"}, timeout)
}

// Plan runs terraform plan without applying.
func (r *Runner) Plan(ctx context.Context, workdir string, timeout time.Duration) CommandResult {
	return r.Run(ctx, workdir, []string{"plan", "-no-color", "-input=false"}, timeout)
}

// Apply runs terraform apply with auto-approve. Callers gate this behind
// the approval flow; the runner itself does not second-guess.
func (r *Runner) Apply(ctx context.Context, workdir string, timeout time.Duration) CommandResult {
	return r.Run(ctx, workdir, []string{"apply", "-no-color", "-input=false", "-auto-approve"}, timeout)
}

// Version reports the installed terraform version, or an error when the
// binary is missing or emits something unrecognizable.
func (r *Runner) Version(ctx context.Context) (string, error) {
	result := r.Run(ctx, "", []string{"version"}, 10*time.Second)
	if !result.Success {
		return "", fmt.Errorf("terraform version failed: %s", strings.TrimSpace(result.Stderr))
	}
	version := parseVersionOutput(result.Stdout)
	if version == "" {
		return "", fmt.Errorf("unrecognized terraform version output: %q", firstLine(result.Stdout))
	}
	return version, nil
}

// parseVersionOutput extracts "X.Y.Z" from "Terraform vX.Y.Z".
func parseVersionOutput(stdout string) string {
	for _, line := range strings.Split(stdout, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "Terraform v") {
			continue
		}
		version := strings.TrimPrefix(trimmed, "Terraform v")
		if fields := strings.Fields(version); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
