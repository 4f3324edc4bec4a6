package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/0nhc/llm-fortune-teller/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify fortune-teller configuration",
	Long: `View or modify fortune-teller configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  fortune-teller config set debate.max_rounds 6
  fortune-teller config set output.lang en
  fortune-teller config set debate.judge model

Valid keys:
` + settableKeysHelp(),
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at $XDG_CONFIG_HOME/fortune-teller/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// settableKeys maps the keys accepted by `config set` to their value type.
var settableKeys = map[string]string{
	"debate.max_rounds":            "int",
	"debate.max_attempts":          "int",
	"debate.backoff_base_ms":       "int",
	"debate.backoff_max_ms":        "int",
	"debate.round_timeout_seconds": "int",
	"debate.similarity_threshold":  "float",
	"debate.agreement_floor":       "int",
	"debate.fold":                  "string",
	"debate.synthesizer":           "string",
	"debate.seed":                  "string",
	"debate.drafter":               "string",
	"debate.judge":                 "string",
	"debate.judge_agent":           "string",
	"debate.final_answers":         "bool",
	"logging.enabled":              "bool",
	"logging.level":                "string",
	"logging.max_size_mb":          "int",
	"logging.max_backups":          "int",
	"logging.compress":             "bool",
	"output.dir":                   "string",
	"output.lang":                  "string",
	"output.transcript_format":     "string",
	"store.enabled":                "bool",
	"store.path":                   "string",
	"telemetry.endpoint":           "string",
	"telemetry.insecure":           "bool",
	"prompts.head_file":            "string",
	"prompts.tail_file":            "string",
}

func settableKeysHelp() string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %-30s (%s)\n", k, settableKeys[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func parseConfigValue(key, value string) (any, error) {
	keyType, ok := settableKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'fortune-teller config set --help' to see valid keys", key)
	}

	switch keyType {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return b, nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected a number", key)
		}
		return f, nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value, err := parseConfigValue(key, args[1])
	if err != nil {
		return err
	}

	previous := viper.Get(key)
	viper.Set(key, value)
	// Refuse to persist a configuration that would not load.
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, value)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)
	return nil
}

const configHeader = `# fortune-teller configuration
#
# debate:     round budget, retries, convergence and how drafts are folded
# agents:     the panel; each agent names a provider below
# providers:  model endpoints; API keys are read from the env var in api_key_env
#             (a .env file in the working directory is loaded automatically)
# output:     report directory, final answer language (zh|en), transcript format (json|yaml)
# store:      sqlite history of past readings
# telemetry:  OTLP/HTTP endpoint for traces and metrics; empty disables export
#
# Every key can be overridden with FORTUNE_<SECTION>_<KEY>, e.g. FORTUNE_DEBATE_MAX_ROUNDS.

`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'fortune-teller config set' to modify values", configFile)
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	body, err := yaml.Marshal(config.DefaultSettings())
	if err != nil {
		return fmt.Errorf("failed to render default configuration: %w", err)
	}
	if err := os.WriteFile(configFile, append([]byte(configHeader), body...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit this file to customize the panel and providers.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", configFile)
	fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: FORTUNE_* (e.g., FORTUNE_DEBATE_MAX_ROUNDS)")
	return nil
}
