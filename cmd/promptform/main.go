package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zen-systems/promptform/pkg/adapter"
	"github.com/zen-systems/promptform/pkg/artifact"
	"github.com/zen-systems/promptform/pkg/compliance"
	"github.com/zen-systems/promptform/pkg/config"
	"github.com/zen-systems/promptform/pkg/evidence"
	"github.com/zen-systems/promptform/pkg/template"
	"github.com/zen-systems/promptform/pkg/terraform"
	"github.com/zen-systems/promptform/pkg/workflow"
	"github.com/zen-systems/promptform/pkg/workspace"
)

var (
	configFile  string
	adapterFlag string
	modelFlag   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "promptform",
		Short: "Generate and deploy Terraform templates from natural-language requests",
		Long: `Promptform turns a free-text infrastructure request into a validated
Terraform template through a staged workflow: planning, requirements
analysis, architecture design, template generation with compliance
gating, human approval, and optional deployment via the terraform binary.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&adapterFlag, "adapter", "", "LLM adapter to use (anthropic, openai, google, deepseek, mock)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "model to use")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(resumeCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(providersCmd())
	rootCmd.AddCommand(modelsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	var inputFlag string
	var manifestFlag string
	var runIDFlag string
	var outFlag string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the generation workflow for a request",
		Long: `Runs the full workflow for an infrastructure request. If the request
asks for deployment, the run suspends at the approval gate and prints
the resume command; otherwise it completes with a validated template.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := inputFlag
			if input == "" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				input = strings.TrimSpace(string(data))
			}
			if input == "" {
				return fmt.Errorf("a request is required (--input or stdin)")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			runID := runIDFlag
			if runID == "" {
				runID = "run-" + time.Now().UTC().Format("20060102-150405")
			}

			engine, err := buildEngine(cfg, runID, manifestFlag)
			if err != nil {
				return err
			}

			state := workflow.NewState(runID, input)
			result, err := engine.Run(cmd.Context(), state)
			if err != nil {
				return err
			}

			statePath := workflow.StatePath(cfg.Workflow.StateDir, runID)
			if err := workflow.SaveState(statePath, result.State); err != nil {
				return err
			}

			return report(result, cfg, outFlag)
		},
	}

	cmd.Flags().StringVarP(&inputFlag, "input", "i", "", "infrastructure request (default: stdin)")
	cmd.Flags().StringVar(&manifestFlag, "manifest", "", "workflow manifest with per-stage overrides")
	cmd.Flags().StringVar(&runIDFlag, "run-id", "", "run identifier (default: timestamp)")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "write the accepted template to this file")

	return cmd
}

func resumeCmd() *cobra.Command {
	var approveFlag bool
	var manifestFlag string
	var outFlag string

	cmd := &cobra.Command{
		Use:   "resume [run-id]",
		Short: "Resume a run suspended at the approval gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			statePath := workflow.StatePath(cfg.Workflow.StateDir, runID)
			state, err := workflow.LoadState(statePath)
			if err != nil {
				return err
			}

			if !approveFlag {
				fmt.Println(state.ApprovalSummary)
				fmt.Println("Run again with --approve to authorize deployment.")
				return nil
			}
			if err := state.GrantApproval(); err != nil {
				return err
			}

			engine, err := buildEngine(cfg, runID, manifestFlag)
			if err != nil {
				return err
			}

			result, err := engine.Run(cmd.Context(), state)
			if err != nil {
				return err
			}
			if err := workflow.SaveState(statePath, result.State); err != nil {
				return err
			}

			return report(result, cfg, outFlag)
		},
	}

	cmd.Flags().BoolVar(&approveFlag, "approve", false, "grant the pending approval and deploy")
	cmd.Flags().StringVar(&manifestFlag, "manifest", "", "workflow manifest with per-stage overrides")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "write the accepted template to this file")

	return cmd
}

func validateCmd() *cobra.Command {
	var strictFlag bool

	cmd := &cobra.Command{
		Use:   "validate [template.tf]",
		Short: "Validate a Terraform template against the compliance gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			content := string(data)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if !template.IsValid(content, strictFlag) {
				return fmt.Errorf("not a recognizable Terraform configuration")
			}

			varsOK, issues := template.ValidateVariables(content)
			report := compliance.Check(content)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Score\t%d/100\n", report.Score)
			fmt.Fprintf(w, "Threshold\t%.0f\n", cfg.MinimumScore())
			fmt.Fprintf(w, "Violations\t%d (max %d)\n", len(report.Violations), cfg.MaxViolations())
			w.Flush()

			for _, v := range report.Violations {
				fmt.Printf("  [%s] %s: %s\n", v.Severity, v.Rule, v.Message)
			}
			for _, issue := range issues {
				fmt.Printf("  [variables] %s\n", issue)
			}
			for _, s := range report.Suggestions {
				fmt.Printf("  suggestion: %s\n", s)
			}

			passed := report.Valid && varsOK &&
				float64(report.Score) >= cfg.MinimumScore() &&
				len(report.Violations) <= cfg.MaxViolations()
			if !passed {
				return fmt.Errorf("compliance gate failed")
			}
			fmt.Println("Compliance gate passed.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&strictFlag, "strict", true, "reject prose-heavy content")

	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [template.tf]",
		Short: "List declared variables and their properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			vars := template.ExtractVariables(string(data))
			names := make([]string, 0, len(vars))
			for name := range vars {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tREQUIRED\tVALIDATED\tDESCRIPTION")
			for _, name := range names {
				v := vars[name]
				fmt.Fprintf(w, "%s\t%v\t%v\t%s\n", v.Name, v.Required(), v.HasValidation, v.Description)
			}
			return w.Flush()
		},
	}
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers [dir]",
		Short: "Initialize a workspace and report resolved provider versions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			runner := terraform.NewRunner()
			if version, err := runner.Version(cmd.Context()); err == nil {
				fmt.Printf("terraform %s\n", version)
			}

			result := runner.Init(cmd.Context(), dir, cfg.ToolTimeout())
			if !result.Success {
				return fmt.Errorf("terraform init failed: %s", strings.TrimSpace(result.Stderr))
			}

			providers := terraform.ParseProviders(result)
			if len(providers) == 0 {
				fmt.Println("No providers resolved.")
				return nil
			}

			names := make([]string, 0, len(providers))
			for name := range providers {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tVERSION")
			for _, name := range names {
				fmt.Fprintf(w, "%s\t%s\n", name, providers[name])
			}
			return w.Flush()
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available adapters and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			adapters, err := createAdapters(cfg)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(adapters))
			for name := range adapters {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADAPTER\tMODELS\tSTATUS")
			for _, name := range names {
				status := "ready"
				if name != "mock" && !cfg.HasAdapter(name) {
					status = "no key"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, strings.Join(adapters[name].Models(), ", "), status)
			}
			return w.Flush()
		},
	}
}

func report(result *workflow.Result, cfg *config.Config, outPath string) error {
	state := result.State

	if result.Suspended {
		fmt.Println(state.ApprovalSummary)
		fmt.Printf("Run suspended awaiting approval. Resume with:\n\n  promptform resume %s --approve\n", state.RunID)
		return nil
	}

	for _, warning := range state.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	if state.CurrentStage == workflow.StageFailed {
		for _, e := range state.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", e)
		}
		return fmt.Errorf("run %s failed", state.RunID)
	}

	fmt.Printf("Run %s completed (compliance score %d/100).\n", state.RunID, state.ComplianceScore)
	if state.DeploymentStatus == workflow.DeploymentDeployed {
		fmt.Printf("Deployed to %s/%s\n", cfg.Workflow.WorkspaceDir, state.RunID)
	}

	if outPath != "" {
		art := artifact.New(state.FinalTemplate, adapterFlag, modelFlag)
		if err := art.WriteFile(outPath); err != nil {
			return fmt.Errorf("write template: %w", err)
		}
		fmt.Printf("Template written to %s (hash %s)\n", outPath, art.Hash)
	} else if state.FinalTemplate != "" && state.DeploymentStatus == workflow.DeploymentNotStarted {
		fmt.Println()
		fmt.Println(state.FinalTemplate)
	}

	return nil
}

func buildEngine(cfg *config.Config, runID, manifestPath string) (*workflow.Engine, error) {
	adapters, err := createAdapters(cfg)
	if err != nil {
		return nil, err
	}

	name := adapterFlag
	if name == "" {
		name = defaultAdapter(cfg, adapters)
	}
	if _, ok := adapters[name]; !ok {
		return nil, fmt.Errorf("adapter %q not available", name)
	}

	var manifest *workflow.Manifest
	if manifestPath != "" {
		manifest, err = workflow.LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
	}

	writer, err := evidence.NewWriter(filepath.Join(cfg.Workflow.StateDir, "evidence"), runID)
	if err != nil {
		return nil, err
	}

	return &workflow.Engine{
		Adapters:       adapters,
		DefaultAdapter: name,
		DefaultModel:   modelFlag,
		Config:         cfg,
		Workspace:      workspace.New(cfg.Workflow.WorkspaceDir),
		Runner:         terraform.NewRunner(),
		Evidence:       writer,
		Manifest:       manifest,
		Logger: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
	}, nil
}

// defaultAdapter prefers the first configured real provider, falling back
// to the mock adapter so the workflow stays runnable without keys.
func defaultAdapter(cfg *config.Config, adapters map[string]adapter.Adapter) string {
	for _, name := range []string{"anthropic", "openai", "google", "deepseek"} {
		if cfg.HasAdapter(name) {
			if _, ok := adapters[name]; ok {
				return name
			}
		}
	}
	return "mock"
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFromFile(configFile, filepath.Dir(configFile))
	}
	return config.Load()
}

func createAdapters(cfg *config.Config) (map[string]adapter.Adapter, error) {
	adapters := make(map[string]adapter.Adapter)

	if cfg.AnthropicAPIKey != "" {
		a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create anthropic adapter: %w", err)
		}
		adapters["anthropic"] = a
	}

	if cfg.OpenAIAPIKey != "" {
		a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create openai adapter: %w", err)
		}
		adapters["openai"] = a
	}

	if cfg.GoogleAPIKey != "" {
		a, err := adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create google adapter: %w", err)
		}
		adapters["google"] = a
	}

	if cfg.DeepSeekAPIKey != "" {
		a, err := adapter.NewDeepSeekAdapter(cfg.DeepSeekAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create deepseek adapter: %w", err)
		}
		adapters["deepseek"] = a
	}

	adapters["mock"] = adapter.NewMockAdapter()

	return adapters, nil
}
