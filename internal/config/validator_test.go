package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	temp := 3.5

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero rounds", func(c *Config) { c.Debate.MaxRounds = 0 }, "debate.max_rounds"},
		{"too many attempts", func(c *Config) { c.Debate.MaxAttempts = 11 }, "debate.max_attempts"},
		{"negative backoff", func(c *Config) { c.Debate.BackoffBaseMs = -1 }, "debate.backoff_base_ms"},
		{"backoff max below base", func(c *Config) { c.Debate.BackoffMaxMs = 100 }, "debate.backoff_max_ms"},
		{"negative round timeout", func(c *Config) { c.Debate.RoundTimeoutSeconds = -5 }, "debate.round_timeout_seconds"},
		{"threshold zero", func(c *Config) { c.Debate.SimilarityThreshold = 0 }, "debate.similarity_threshold"},
		{"threshold above one", func(c *Config) { c.Debate.SimilarityThreshold = 1.2 }, "debate.similarity_threshold"},
		{"negative floor", func(c *Config) { c.Debate.AgreementFloor = -1 }, "debate.agreement_floor"},
		{"unknown fold", func(c *Config) { c.Debate.Fold = "vote" }, "debate.fold"},
		{"unknown synthesizer", func(c *Config) { c.Debate.Synthesizer = "ghost" }, "debate.synthesizer"},
		{"drafter missing", func(c *Config) { c.Debate.Seed = SeedDrafter }, "debate.drafter"},
		{"unknown seed", func(c *Config) { c.Debate.Seed = "random" }, "debate.seed"},
		{"judge agent missing", func(c *Config) { c.Debate.Judge = JudgeModel }, "debate.judge_agent"},
		{"unknown judge", func(c *Config) { c.Debate.Judge = "vibes" }, "debate.judge"},
		{"bad agent id", func(c *Config) { c.Agents[0].ID = "Gemini!" }, "agents[0].id"},
		{"duplicate agent id", func(c *Config) { c.Agents[2].ID = "chatgpt" }, "agents[2].id"},
		{"unknown provider", func(c *Config) { c.Agents[1].Provider = "llama" }, "agents[1].provider"},
		{"temperature out of range", func(c *Config) { c.Agents[0].Temperature = &temp }, "agents[0].temperature"},
		{"provider kind", func(c *Config) {
			p := c.Providers["qwen"]
			p.Kind = "grpc"
			c.Providers["qwen"] = p
		}, "providers.qwen.kind"},
		{"chat without base url", func(c *Config) {
			p := c.Providers["deepseek"]
			p.BaseURL = ""
			c.Providers["deepseek"] = p
		}, "providers.deepseek.base_url"},
		{"missing key env", func(c *Config) {
			p := c.Providers["claude"]
			p.APIKeyEnv = ""
			c.Providers["claude"] = p
		}, "providers.claude.api_key_env"},
		{"breaker without threshold", func(c *Config) {
			p := c.Providers["gemini"]
			p.Breaker.MaxFailures = 0
			c.Providers["gemini"] = p
		}, "providers.gemini.breaker.max_failures"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"negative log size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "logging.max_size_mb"},
		{"negative log backups", func(c *Config) { c.Logging.MaxBackups = -2 }, "logging.max_backups"},
		{"bad lang", func(c *Config) { c.Output.Lang = "fr" }, "output.lang"},
		{"bad transcript format", func(c *Config) { c.Output.TranscriptFormat = "xml" }, "output.transcript_format"},
		{"empty output dir", func(c *Config) { c.Output.Dir = " " }, "output.dir"},
		{"missing prompt file", func(c *Config) {
			c.Prompts.HeadFile = filepath.Join(t.TempDir(), "nope.txt")
		}, "prompts.head_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if !hasField(errs, tt.field) {
				t.Errorf("expected validation error for %s, got: %v", tt.field, ValidationErrors(errs))
			}
		})
	}
}

func TestValidate_EmptyRoster(t *testing.T) {
	cfg := Default()
	for i := range cfg.Agents {
		cfg.Agents[i].Disabled = true
	}

	errs := cfg.Validate()
	if !hasField(errs, "agents") {
		t.Errorf("expected agents error, got: %v", ValidationErrors(errs))
	}
	if !hasField(errs, "debate.synthesizer") {
		t.Error("synthesizer should no longer resolve once every agent is disabled")
	}
}

func TestValidate_ConcatFoldNeedsNoSynthesizer(t *testing.T) {
	cfg := Default()
	cfg.Debate.Fold = FoldConcat
	cfg.Debate.Synthesizer = ""

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", ValidationErrors(errs))
	}
}

func TestValidationErrors_Error(t *testing.T) {
	tests := []struct {
		name string
		errs ValidationErrors
		want string
	}{
		{"empty", nil, ""},
		{"single", ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}, "a: bad (got: 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.errs.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	multi := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	got := multi.Error()
	if !strings.HasPrefix(got, "2 validation errors:") {
		t.Errorf("Error() = %q", got)
	}
	if !strings.Contains(got, "2. b: worse (got: 2)") {
		t.Errorf("Error() should number entries, got %q", got)
	}
}
