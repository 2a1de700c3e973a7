package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	DeepSeekAPIKey  string
	ConfigDir       string

	Workflow   WorkflowSettings
	Compliance ComplianceSettings
	Agents     AgentSettings
}

// WorkflowSettings bound the orchestrator.
type WorkflowSettings struct {
	// MaxSteps is the global bound on stage executions per run.
	MaxSteps int `yaml:"max_steps"`
	// MaxStageRetries bounds transient-error retries within one stage.
	MaxStageRetries int `yaml:"max_stage_retries"`
	// StageTimeoutSeconds bounds each model call.
	StageTimeoutSeconds int `yaml:"stage_timeout_seconds"`
	// ToolTimeoutSeconds bounds each terraform subprocess call.
	ToolTimeoutSeconds int `yaml:"tool_timeout_seconds"`
	// WorkspaceDir is where deployment workspaces are created.
	WorkspaceDir string `yaml:"workspace_dir"`
	// StateDir is where run state and evidence are persisted.
	StateDir string `yaml:"state_dir"`
}

// ComplianceSettings control the quality gate thresholds.
type ComplianceSettings struct {
	MinimumScoreEnforced  float64           `yaml:"minimum_score_enforced"`
	MinimumScoreRelaxed   float64           `yaml:"minimum_score_relaxed"`
	MaxViolationsEnforced int               `yaml:"max_violations_enforced"`
	MaxViolationsRelaxed  int               `yaml:"max_violations_relaxed"`
	Enforced              bool              `yaml:"enforced"`
	Frameworks            map[string]string `yaml:"frameworks,omitempty"`
}

// AgentSettings configure model calls made by stages.
type AgentSettings struct {
	DefaultTemperature    float64 `yaml:"default_temperature"`
	ConsultantTemperature float64 `yaml:"consultant_temperature"`
	MaxResponseTokens     int     `yaml:"max_response_tokens"`
}

// FileConfig represents the structure of ~/.promptform/config.yaml
type FileConfig struct {
	APIKeys    APIKeysConfig       `yaml:"api_keys"`
	Workflow   *WorkflowSettings   `yaml:"workflow,omitempty"`
	Compliance *ComplianceSettings `yaml:"compliance,omitempty"`
	Agents     *AgentSettings      `yaml:"agents,omitempty"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
	DeepSeek  string `yaml:"deepseek"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Workflow: WorkflowSettings{
			MaxSteps:            24,
			MaxStageRetries:     2,
			StageTimeoutSeconds: 120,
			ToolTimeoutSeconds:  300,
			WorkspaceDir:        "terraform_deployments",
			StateDir:            ".promptform",
		},
		Compliance: ComplianceSettings{
			MinimumScoreEnforced:  70.0,
			MinimumScoreRelaxed:   40.0,
			MaxViolationsEnforced: 3,
			MaxViolationsRelaxed:  8,
			Enforced:              true,
			Frameworks: map[string]string{
				"PCI DSS":   "Payment Card Industry Data Security Standard",
				"HIPAA":     "Health Insurance Portability and Accountability Act",
				"SOX":       "Sarbanes-Oxley Act",
				"GDPR":      "General Data Protection Regulation",
				"ISO 27001": "Information Security Management",
				"SOC 2":     "Service Organization Control 2",
			},
		},
		Agents: AgentSettings{
			DefaultTemperature:    0.2,
			ConsultantTemperature: 0.1,
			MaxResponseTokens:     4000,
		},
	}
}

// Load reads configuration from the config file and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return LoadFromFile(filepath.Join(configDir, "config.yaml"), configDir)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path, configDir string) (*Config, error) {
	fileConfig := loadFileConfig(path)

	cfg := Defaults()
	cfg.ConfigDir = configDir
	cfg.AnthropicAPIKey = getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic)
	cfg.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI)
	cfg.GoogleAPIKey = getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google)
	cfg.DeepSeekAPIKey = getEnvOrDefault("DEEPSEEK_API_KEY", fileConfig.APIKeys.DeepSeek)

	if fileConfig.Workflow != nil {
		mergeWorkflow(&cfg.Workflow, fileConfig.Workflow)
	}
	if fileConfig.Compliance != nil {
		mergeCompliance(&cfg.Compliance, fileConfig.Compliance)
	}
	if fileConfig.Agents != nil {
		mergeAgents(&cfg.Agents, fileConfig.Agents)
	}

	if v := os.Getenv("PROMPTFORM_MAX_STEPS"); v != "" {
		if steps, err := strconv.Atoi(v); err == nil && steps > 0 {
			cfg.Workflow.MaxSteps = steps
		}
	}

	return cfg, nil
}

// HasAdapter returns true if the API key for the given adapter is configured.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "deepseek":
		return c.DeepSeekAPIKey != ""
	default:
		return false
	}
}

// StageTimeout returns the model-call timeout as a duration.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.Workflow.StageTimeoutSeconds) * time.Second
}

// ToolTimeout returns the subprocess timeout as a duration.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Workflow.ToolTimeoutSeconds) * time.Second
}

// MinimumScore returns the active compliance score threshold.
func (c *Config) MinimumScore() float64 {
	if c.Compliance.Enforced {
		return c.Compliance.MinimumScoreEnforced
	}
	return c.Compliance.MinimumScoreRelaxed
}

// MaxViolations returns the active compliance violation cap.
func (c *Config) MaxViolations() int {
	if c.Compliance.Enforced {
		return c.Compliance.MaxViolationsEnforced
	}
	return c.Compliance.MaxViolationsRelaxed
}

func mergeWorkflow(dst, src *WorkflowSettings) {
	if src.MaxSteps > 0 {
		dst.MaxSteps = src.MaxSteps
	}
	if src.MaxStageRetries > 0 {
		dst.MaxStageRetries = src.MaxStageRetries
	}
	if src.StageTimeoutSeconds > 0 {
		dst.StageTimeoutSeconds = src.StageTimeoutSeconds
	}
	if src.ToolTimeoutSeconds > 0 {
		dst.ToolTimeoutSeconds = src.ToolTimeoutSeconds
	}
	if src.WorkspaceDir != "" {
		dst.WorkspaceDir = src.WorkspaceDir
	}
	if src.StateDir != "" {
		dst.StateDir = src.StateDir
	}
}

func mergeCompliance(dst, src *ComplianceSettings) {
	if src.MinimumScoreEnforced > 0 {
		dst.MinimumScoreEnforced = src.MinimumScoreEnforced
	}
	if src.MinimumScoreRelaxed > 0 {
		dst.MinimumScoreRelaxed = src.MinimumScoreRelaxed
	}
	if src.MaxViolationsEnforced > 0 {
		dst.MaxViolationsEnforced = src.MaxViolationsEnforced
	}
	if src.MaxViolationsRelaxed > 0 {
		dst.MaxViolationsRelaxed = src.MaxViolationsRelaxed
	}
	dst.Enforced = src.Enforced
	if len(src.Frameworks) > 0 {
		dst.Frameworks = src.Frameworks
	}
}

func mergeAgents(dst, src *AgentSettings) {
	if src.DefaultTemperature > 0 {
		dst.DefaultTemperature = src.DefaultTemperature
	}
	if src.ConsultantTemperature > 0 {
		dst.ConsultantTemperature = src.ConsultantTemperature
	}
	if src.MaxResponseTokens > 0 {
		dst.MaxResponseTokens = src.MaxResponseTokens
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".promptform")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
