package cmd

import (
	"context"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/0nhc/llm-fortune-teller/internal/config"
	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "fortune-teller",
	Short: "Multi-model BaZi reading through debate and refinement",
	Long: `fortune-teller asks several language models for a BaZi reading of a
birth datetime (UTC+8). The models debate a shared draft round by round
until they converge or the round budget runs out, then each writes a
final long-form answer.

Reports are written under the output directory and every session is
kept in the local history.`,
	Example: `  fortune-teller --name alice --year 1990 --month 5 --day 17 --hour 8 --minute 30 --gender female
  fortune-teller --year 1988 --month 2 --day 29 --hour 23 --minute 5 --gender male --lang en --no-tui`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runReading,
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx; canceling ctx cancels a
// running reading between rounds.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// ExitCode maps an error returned by ExecuteContext to a process exit
// status: 0 on success, 2 for invalid input and 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errors.ErrInvalidInput):
		return 2
	default:
		return 1
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/fortune-teller/config.yaml)")

	addReadingFlags(rootCmd)
	bindFlags()
}

// bindFlags connects flags that override configuration keys.
func bindFlags() {
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debate.max_rounds", rootCmd.Flags().Lookup("max-rounds"))
	_ = viper.BindPFlag("output.lang", rootCmd.Flags().Lookup("lang"))
}

func initConfig() {
	// Provider API keys usually live in .env; a missing file is fine.
	_ = godotenv.Load()

	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FORTUNE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., FORTUNE_DEBATE_MAX_ROUNDS for debate.max_rounds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
