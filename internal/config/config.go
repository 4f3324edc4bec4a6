package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete fortune-teller configuration
type Config struct {
	Debate    DebateConfig              `mapstructure:"debate"`
	Agents    []AgentConfig             `mapstructure:"agents"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Logging   LoggingConfig             `mapstructure:"logging"`
	Output    OutputConfig              `mapstructure:"output"`
	Store     StoreConfig               `mapstructure:"store"`
	Telemetry TelemetryConfig           `mapstructure:"telemetry"`
	Prompts   PromptsConfig             `mapstructure:"prompts"`
}

// DebateConfig controls the debate-and-refine loop
type DebateConfig struct {
	// MaxRounds is the round budget (default: 10)
	MaxRounds int `mapstructure:"max_rounds"`
	// MaxAttempts is the total number of attempts per agent per round,
	// including the first one (default: 3)
	MaxAttempts int `mapstructure:"max_attempts"`
	// BackoffBaseMs is the base delay of the jittered exponential backoff
	BackoffBaseMs int `mapstructure:"backoff_base_ms"`
	// BackoffMaxMs caps a single backoff delay
	BackoffMaxMs int `mapstructure:"backoff_max_ms"`
	// RoundTimeoutSeconds bounds every call of a round (0 disables the deadline)
	RoundTimeoutSeconds int `mapstructure:"round_timeout_seconds"`
	// SimilarityThreshold is the Dice similarity at which two drafts count as converged
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	// AgreementFloor is the first round at which unanimous agreement ends the
	// session. 0 disables agreement-based convergence.
	AgreementFloor int `mapstructure:"agreement_floor"`
	// Fold selects how a round's contributions become the next draft.
	// Options: "synthesizer", "concat"
	Fold string `mapstructure:"fold"`
	// Synthesizer is the agent id whose contribution becomes the draft
	Synthesizer string `mapstructure:"synthesizer"`
	// Seed selects how the initial draft is produced. Options: "template", "drafter"
	Seed string `mapstructure:"seed"`
	// Drafter is the agent id used when Seed is "drafter"
	Drafter string `mapstructure:"drafter"`
	// Judge selects the convergence policy. Options: "similarity", "model"
	Judge string `mapstructure:"judge"`
	// JudgeAgent is the agent id whose client evaluates convergence when Judge is "model"
	JudgeAgent string `mapstructure:"judge_agent"`
	// FinalAnswers asks every agent for a long-form answer after the debate
	FinalAnswers bool `mapstructure:"final_answers"`
}

// AgentConfig describes one debate participant
type AgentConfig struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Role     string `mapstructure:"role"`
	Persona  string `mapstructure:"persona"`
	Provider string `mapstructure:"provider"`
	// Temperature overrides the provider's sampling temperature when set
	Temperature *float64 `mapstructure:"temperature"`
	Disabled    bool     `mapstructure:"disabled"`
}

// ProviderConfig configures one model provider
type ProviderConfig struct {
	// Kind selects the adapter. Options: "openai", "chat", "anthropic", "gemini"
	Kind    string `mapstructure:"kind"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	// APIKeyEnv names the environment variable holding the API key
	APIKeyEnv      string `mapstructure:"api_key_env"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// WebSearch enables the provider's managed search tool
	WebSearch bool `mapstructure:"web_search"`
	// ReasoningEffort is passed to providers that support it ("low", "medium", "high")
	ReasoningEffort string `mapstructure:"reasoning_effort"`
	// Thinking enables the provider's extended reasoning mode when supported
	Thinking bool          `mapstructure:"thinking"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig controls the circuit breaker wrapped around a provider
type BreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures int `mapstructure:"max_failures"`
	// OpenSeconds is how long the breaker stays open before probing again
	OpenSeconds int `mapstructure:"open_seconds"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is written to the output directory (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB rotates {dir}/{name}/debug.log once it reaches this size; 0 never rotates (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is how many rotated logs are kept (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated logs (default: false)
	Compress bool `mapstructure:"compress"`
}

// OutputConfig controls where and how reports are written
type OutputConfig struct {
	// Dir is the base directory; reports go to {dir}/{name}/ (default: "logs")
	Dir string `mapstructure:"dir"`
	// Lang is the language of the final answers: "zh" or "en" (default: "zh")
	Lang string `mapstructure:"lang"`
	// TranscriptFormat is the structured export format: "json", "yaml" or "none"
	TranscriptFormat string `mapstructure:"transcript_format"`
}

// StoreConfig controls the session history database
type StoreConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path is the sqlite file. Empty means {config dir}/history.db
	Path string `mapstructure:"path"`
}

// TelemetryConfig controls OpenTelemetry export
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port. Empty disables export.
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

// PromptsConfig points at files that override the embedded prompt templates
type PromptsConfig struct {
	HeadFile string `mapstructure:"head_file"`
	TailFile string `mapstructure:"tail_file"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Debate: DebateConfig{
			MaxRounds:           10,
			MaxAttempts:         3,
			BackoffBaseMs:       500,
			BackoffMaxMs:        8000,
			RoundTimeoutSeconds: 900,
			SimilarityThreshold: 0.95,
			AgreementFloor:      1,
			Fold:                FoldSynthesizer,
			Synthesizer:         "gemini",
			Seed:                SeedTemplate,
			Drafter:             "",
			Judge:               JudgeSimilarity,
			JudgeAgent:          "",
			FinalAnswers:        true,
		},
		Agents: DefaultAgents(),
		Providers: map[string]ProviderConfig{
			"gemini": {
				Kind:           KindGemini,
				Model:          "gemini-3-pro-preview",
				APIKeyEnv:      "GEMINI_API_KEY",
				MaxTokens:      9600,
				TimeoutSeconds: 300,
				WebSearch:      true,
				Breaker:        defaultBreaker(),
			},
			"chatgpt": {
				Kind:            KindOpenAI,
				Model:           "gpt-5.2",
				APIKeyEnv:       "CHATGPT_API_KEY",
				MaxTokens:       9600,
				TimeoutSeconds:  300,
				WebSearch:       true,
				ReasoningEffort: "medium",
				Breaker:         defaultBreaker(),
			},
			"deepseek": {
				Kind:           KindChat,
				Model:          "deepseek-reasoner",
				BaseURL:        "https://api.deepseek.com",
				APIKeyEnv:      "DEEPSEEK_API_KEY",
				MaxTokens:      9600,
				TimeoutSeconds: 300,
				Thinking:       true,
				Breaker:        defaultBreaker(),
			},
			"claude": {
				Kind:           KindAnthropic,
				Model:          "claude-sonnet-4-5",
				APIKeyEnv:      "ANTHROPIC_API_KEY",
				MaxTokens:      9600,
				TimeoutSeconds: 300,
				WebSearch:      true,
				Breaker:        defaultBreaker(),
			},
			"qwen": {
				Kind:           KindChat,
				Model:          "qwen3-max-preview",
				BaseURL:        "https://dashscope-intl.aliyuncs.com/compatible-mode/v1",
				APIKeyEnv:      "DASHSCOPE_API_KEY",
				MaxTokens:      9600,
				TimeoutSeconds: 300,
				Thinking:       true,
				Breaker:        defaultBreaker(),
			},
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Output: OutputConfig{
			Dir:              "logs",
			Lang:             "zh",
			TranscriptFormat: "json",
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "", // Export disabled unless a collector is configured
			Insecure:    true,
			ServiceName: "fortune-teller",
		},
	}
}

// DefaultAgents returns the roster used when no agents are configured:
// the three providers the reading was originally tuned for.
func DefaultAgents() []AgentConfig {
	return []AgentConfig{
		{
			ID:       "gemini",
			Name:     "Gemini",
			Role:     "synthesizer",
			Persona:  "You integrate every participant's arguments into one coherent, well-structured reading.",
			Provider: "gemini",
		},
		{
			ID:       "chatgpt",
			Name:     "ChatGPT",
			Role:     "optimist",
			Persona:  "You look for the strengths and favourable configurations in the chart and defend them with evidence.",
			Provider: "chatgpt",
		},
		{
			ID:       "deepseek",
			Name:     "DeepSeek",
			Role:     "skeptic",
			Persona:  "You challenge weak reasoning, point out contradictions and insist on classical rules being applied correctly.",
			Provider: "deepseek",
		},
	}
}

func defaultBreaker() BreakerConfig {
	return BreakerConfig{
		Enabled:     true,
		MaxFailures: 5,
		OpenSeconds: 60,
	}
}

// BackoffBase returns the base retry delay as a time.Duration
func (c *DebateConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}

// BackoffMax returns the retry delay cap as a time.Duration
func (c *DebateConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMs) * time.Millisecond
}

// RoundTimeout returns the round deadline as a time.Duration (0 means disabled)
func (c *DebateConfig) RoundTimeout() time.Duration {
	return time.Duration(c.RoundTimeoutSeconds) * time.Second
}

// Timeout returns the per-call timeout as a time.Duration
func (p *ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// OpenTimeout returns how long an open breaker rejects calls
func (b *BreakerConfig) OpenTimeout() time.Duration {
	return time.Duration(b.OpenSeconds) * time.Second
}

// EnabledAgents returns the configured agents that are not disabled, in
// registration order.
func (c *Config) EnabledAgents() []AgentConfig {
	agents := make([]AgentConfig, 0, len(c.Agents))
	for _, a := range c.Agents {
		if !a.Disabled {
			agents = append(agents, a)
		}
	}
	return agents
}

// Agent looks up an enabled agent by id.
func (c *Config) Agent(id string) (AgentConfig, bool) {
	for _, a := range c.EnabledAgents() {
		if a.ID == id {
			return a, true
		}
	}
	return AgentConfig{}, false
}

// SetDefaults registers default values with viper
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// DefaultSettings returns the built-in defaults as the nested map a config
// file would hold. The global viper instance is not touched.
func DefaultSettings() map[string]any {
	v := viper.New()
	setDefaults(v)
	return v.AllSettings()
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Debate defaults
	v.SetDefault("debate.max_rounds", defaults.Debate.MaxRounds)
	v.SetDefault("debate.max_attempts", defaults.Debate.MaxAttempts)
	v.SetDefault("debate.backoff_base_ms", defaults.Debate.BackoffBaseMs)
	v.SetDefault("debate.backoff_max_ms", defaults.Debate.BackoffMaxMs)
	v.SetDefault("debate.round_timeout_seconds", defaults.Debate.RoundTimeoutSeconds)
	v.SetDefault("debate.similarity_threshold", defaults.Debate.SimilarityThreshold)
	v.SetDefault("debate.agreement_floor", defaults.Debate.AgreementFloor)
	v.SetDefault("debate.fold", defaults.Debate.Fold)
	v.SetDefault("debate.synthesizer", defaults.Debate.Synthesizer)
	v.SetDefault("debate.seed", defaults.Debate.Seed)
	v.SetDefault("debate.drafter", defaults.Debate.Drafter)
	v.SetDefault("debate.judge", defaults.Debate.Judge)
	v.SetDefault("debate.judge_agent", defaults.Debate.JudgeAgent)
	v.SetDefault("debate.final_answers", defaults.Debate.FinalAnswers)

	// Agent roster
	v.SetDefault("agents", agentsToMaps(defaults.Agents))

	// Provider defaults
	for name, p := range defaults.Providers {
		prefix := "providers." + name + "."
		v.SetDefault(prefix+"kind", p.Kind)
		v.SetDefault(prefix+"model", p.Model)
		v.SetDefault(prefix+"base_url", p.BaseURL)
		v.SetDefault(prefix+"api_key_env", p.APIKeyEnv)
		v.SetDefault(prefix+"max_tokens", p.MaxTokens)
		v.SetDefault(prefix+"timeout_seconds", p.TimeoutSeconds)
		v.SetDefault(prefix+"web_search", p.WebSearch)
		v.SetDefault(prefix+"reasoning_effort", p.ReasoningEffort)
		v.SetDefault(prefix+"thinking", p.Thinking)
		v.SetDefault(prefix+"breaker.enabled", p.Breaker.Enabled)
		v.SetDefault(prefix+"breaker.max_failures", p.Breaker.MaxFailures)
		v.SetDefault(prefix+"breaker.open_seconds", p.Breaker.OpenSeconds)
	}

	// Logging defaults
	v.SetDefault("logging.enabled", defaults.Logging.Enabled)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.compress", defaults.Logging.Compress)

	// Output defaults
	v.SetDefault("output.dir", defaults.Output.Dir)
	v.SetDefault("output.lang", defaults.Output.Lang)
	v.SetDefault("output.transcript_format", defaults.Output.TranscriptFormat)

	// Store defaults
	v.SetDefault("store.enabled", defaults.Store.Enabled)
	v.SetDefault("store.path", defaults.Store.Path)

	// Telemetry defaults
	v.SetDefault("telemetry.endpoint", defaults.Telemetry.Endpoint)
	v.SetDefault("telemetry.insecure", defaults.Telemetry.Insecure)
	v.SetDefault("telemetry.service_name", defaults.Telemetry.ServiceName)

	// Prompt overrides
	v.SetDefault("prompts.head_file", defaults.Prompts.HeadFile)
	v.SetDefault("prompts.tail_file", defaults.Prompts.TailFile)
}

func agentsToMaps(agents []AgentConfig) []map[string]any {
	out := make([]map[string]any, 0, len(agents))
	for _, a := range agents {
		m := map[string]any{
			"id":       a.ID,
			"name":     a.Name,
			"role":     a.Role,
			"persona":  a.Persona,
			"provider": a.Provider,
			"disabled": a.Disabled,
		}
		if a.Temperature != nil {
			m["temperature"] = *a.Temperature
		}
		out = append(out, m)
	}
	return out
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fortune-teller")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fortune-teller"
	}
	return filepath.Join(home, ".config", "fortune-teller")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// HistoryPath returns the sqlite path of the session history.
func (s *StoreConfig) HistoryPath() string {
	if strings.TrimSpace(s.Path) != "" {
		return s.Path
	}
	return filepath.Join(ConfigDir(), "history.db")
}
