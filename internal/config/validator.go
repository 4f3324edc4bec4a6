package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "debate.max_rounds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Fold strategies.
const (
	FoldSynthesizer = "synthesizer"
	FoldConcat      = "concat"
)

// Seed strategies.
const (
	SeedTemplate = "template"
	SeedDrafter  = "drafter"
)

// Judge strategies.
const (
	JudgeSimilarity = "similarity"
	JudgeModel      = "model"
)

// Provider adapter kinds.
const (
	KindOpenAI    = "openai"
	KindChat      = "chat"
	KindAnthropic = "anthropic"
	KindGemini    = "gemini"
)

// agentIDRegex keeps agent ids usable as log attributes and file name parts
var agentIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidFolds returns the list of valid fold strategies
func ValidFolds() []string {
	return []string{FoldSynthesizer, FoldConcat}
}

// ValidSeeds returns the list of valid seed strategies
func ValidSeeds() []string {
	return []string{SeedTemplate, SeedDrafter}
}

// ValidJudges returns the list of valid convergence judges
func ValidJudges() []string {
	return []string{JudgeSimilarity, JudgeModel}
}

// ValidProviderKinds returns the list of supported provider adapters
func ValidProviderKinds() []string {
	return []string{KindOpenAI, KindChat, KindAnthropic, KindGemini}
}

// ValidLangs returns the list of supported output languages
func ValidLangs() []string {
	return []string{"zh", "en"}
}

// ValidTranscriptFormats returns the list of valid transcript export formats
func ValidTranscriptFormats() []string {
	return []string{"json", "yaml", "none"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateDebate()...)
	errors = append(errors, c.validateAgents()...)
	errors = append(errors, c.validateProviders()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validatePrompts()...)

	return errors
}

// validateDebate validates the DebateConfig and its references into the roster
func (c *Config) validateDebate() []ValidationError {
	var errors []ValidationError
	d := c.Debate

	if d.MaxRounds < 1 || d.MaxRounds > 100 {
		errors = append(errors, ValidationError{
			Field:   "debate.max_rounds",
			Value:   d.MaxRounds,
			Message: "must be between 1 and 100",
		})
	}

	if d.MaxAttempts < 1 || d.MaxAttempts > 10 {
		errors = append(errors, ValidationError{
			Field:   "debate.max_attempts",
			Value:   d.MaxAttempts,
			Message: "must be between 1 and 10",
		})
	}

	if d.BackoffBaseMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "debate.backoff_base_ms",
			Value:   d.BackoffBaseMs,
			Message: "must be non-negative",
		})
	}

	if d.BackoffMaxMs < d.BackoffBaseMs {
		errors = append(errors, ValidationError{
			Field:   "debate.backoff_max_ms",
			Value:   d.BackoffMaxMs,
			Message: fmt.Sprintf("must be at least backoff_base_ms (%d)", d.BackoffBaseMs),
		})
	}

	if d.RoundTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "debate.round_timeout_seconds",
			Value:   d.RoundTimeoutSeconds,
			Message: "must be non-negative (0 disables the deadline)",
		})
	}

	if d.SimilarityThreshold <= 0 || d.SimilarityThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "debate.similarity_threshold",
			Value:   d.SimilarityThreshold,
			Message: "must be in (0, 1]",
		})
	}

	if d.AgreementFloor < 0 {
		errors = append(errors, ValidationError{
			Field:   "debate.agreement_floor",
			Value:   d.AgreementFloor,
			Message: "must be non-negative (0 disables agreement-based convergence)",
		})
	}

	if !slices.Contains(ValidFolds(), d.Fold) {
		errors = append(errors, ValidationError{
			Field:   "debate.fold",
			Value:   d.Fold,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidFolds(), ", ")),
		})
	} else if d.Fold == FoldSynthesizer {
		errors = append(errors, c.requireAgent("debate.synthesizer", d.Synthesizer)...)
	}

	if !slices.Contains(ValidSeeds(), d.Seed) {
		errors = append(errors, ValidationError{
			Field:   "debate.seed",
			Value:   d.Seed,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidSeeds(), ", ")),
		})
	} else if d.Seed == SeedDrafter {
		errors = append(errors, c.requireAgent("debate.drafter", d.Drafter)...)
	}

	if !slices.Contains(ValidJudges(), d.Judge) {
		errors = append(errors, ValidationError{
			Field:   "debate.judge",
			Value:   d.Judge,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidJudges(), ", ")),
		})
	} else if d.Judge == JudgeModel {
		errors = append(errors, c.requireAgent("debate.judge_agent", d.JudgeAgent)...)
	}

	return errors
}

func (c *Config) requireAgent(field, id string) []ValidationError {
	if id == "" {
		return []ValidationError{{Field: field, Value: id, Message: "is required"}}
	}
	if _, ok := c.Agent(id); !ok {
		return []ValidationError{{Field: field, Value: id, Message: "must name an enabled agent"}}
	}
	return nil
}

// validateAgents validates the agent roster
func (c *Config) validateAgents() []ValidationError {
	var errors []ValidationError

	if len(c.EnabledAgents()) == 0 {
		errors = append(errors, ValidationError{
			Field:   "agents",
			Value:   len(c.Agents),
			Message: "at least one enabled agent is required",
		})
	}

	seen := make(map[string]bool)
	for i, a := range c.Agents {
		field := fmt.Sprintf("agents[%d]", i)

		if !agentIDRegex.MatchString(a.ID) {
			errors = append(errors, ValidationError{
				Field:   field + ".id",
				Value:   a.ID,
				Message: "must start with a lowercase letter and contain only lowercase letters, digits, hyphens and underscores",
			})
		}
		if seen[a.ID] {
			errors = append(errors, ValidationError{
				Field:   field + ".id",
				Value:   a.ID,
				Message: "duplicate agent id",
			})
		}
		seen[a.ID] = true

		if _, ok := c.Providers[a.Provider]; !ok {
			errors = append(errors, ValidationError{
				Field:   field + ".provider",
				Value:   a.Provider,
				Message: fmt.Sprintf("unknown provider (configured: %s)", strings.Join(c.providerNames(), ", ")),
			})
		}

		if a.Temperature != nil && (*a.Temperature < 0 || *a.Temperature > 2) {
			errors = append(errors, ValidationError{
				Field:   field + ".temperature",
				Value:   *a.Temperature,
				Message: "must be between 0 and 2",
			})
		}
	}

	return errors
}

// validateProviders validates every provider entry
func (c *Config) validateProviders() []ValidationError {
	var errors []ValidationError

	for _, name := range c.providerNames() {
		p := c.Providers[name]
		prefix := "providers." + name + "."

		if !slices.Contains(ValidProviderKinds(), p.Kind) {
			errors = append(errors, ValidationError{
				Field:   prefix + "kind",
				Value:   p.Kind,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidProviderKinds(), ", ")),
			})
		}
		if strings.TrimSpace(p.Model) == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + "model",
				Value:   p.Model,
				Message: "is required",
			})
		}
		if p.Kind == KindChat && strings.TrimSpace(p.BaseURL) == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + "base_url",
				Value:   p.BaseURL,
				Message: "is required for chat-completions providers",
			})
		}
		if strings.TrimSpace(p.APIKeyEnv) == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + "api_key_env",
				Value:   p.APIKeyEnv,
				Message: "is required",
			})
		}
		if p.MaxTokens <= 0 {
			errors = append(errors, ValidationError{
				Field:   prefix + "max_tokens",
				Value:   p.MaxTokens,
				Message: "must be positive",
			})
		}
		if p.TimeoutSeconds <= 0 {
			errors = append(errors, ValidationError{
				Field:   prefix + "timeout_seconds",
				Value:   p.TimeoutSeconds,
				Message: "must be positive",
			})
		}
		if p.Breaker.Enabled && p.Breaker.MaxFailures <= 0 {
			errors = append(errors, ValidationError{
				Field:   prefix + "breaker.max_failures",
				Value:   p.Breaker.MaxFailures,
				Message: "must be positive when the breaker is enabled",
			})
		}
	}

	return errors
}

func (c *Config) providerNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateOutput validates the OutputConfig
func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Output.Dir) == "" {
		errors = append(errors, ValidationError{
			Field:   "output.dir",
			Value:   c.Output.Dir,
			Message: "is required",
		})
	}
	if !slices.Contains(ValidLangs(), c.Output.Lang) {
		errors = append(errors, ValidationError{
			Field:   "output.lang",
			Value:   c.Output.Lang,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLangs(), ", ")),
		})
	}
	if !slices.Contains(ValidTranscriptFormats(), c.Output.TranscriptFormat) {
		errors = append(errors, ValidationError{
			Field:   "output.transcript_format",
			Value:   c.Output.TranscriptFormat,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidTranscriptFormats(), ", ")),
		})
	}

	return errors
}

// validatePrompts checks that template override files exist
func (c *Config) validatePrompts() []ValidationError {
	var errors []ValidationError

	files := []struct{ field, path string }{
		{"prompts.head_file", c.Prompts.HeadFile},
		{"prompts.tail_file", c.Prompts.TailFile},
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			errors = append(errors, ValidationError{
				Field:   f.field,
				Value:   f.path,
				Message: "file does not exist or is not readable",
			})
		}
	}

	return errors
}
