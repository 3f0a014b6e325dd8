package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lottery-reconciliation-service/cmd/reconciler/config"
	"lottery-reconciliation-service/pkg/errors"
	"lottery-reconciliation-service/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Lottery bank statement reconciliation tool",
	Long: `Reconciler turns pasted or exported bank statement text into ledger
transactions and audits them against the expected ticket fee. Rows are
parsed heuristically: phones, transaction ids, amounts, timestamps and
lottery codes are recognized wherever they appear in a row.

The ledger lives in PostgreSQL. Connection settings come from DATABASE_URL
or POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER,
POSTGRES_PASSWORD and POSTGRES_SSLMODE, optionally read from --env-file.

Examples:
  reconciler migrate
  reconciler import --file statement.csv
  pbpaste | reconciler import --file - --dry-run
  reconciler audit --file statement.csv --fee 50000 --dedupe latest
  reconciler ledger phone 99112233 --fee 50000
  reconciler --version`,
	Version:           getVersionString(),
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (optional)")
	flags.String("env-file", "", "dotenv file with DATABASE_URL or POSTGRES_* settings")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")
	flags.String("timezone", "UTC", "IANA zone statement timestamps are written in")
	flags.String("lottery-catalog", "", "JSON file overriding the built-in lottery codes")
	flags.Int("max-input-bytes", 0, "largest accepted statement in bytes (default 2000000)")
	flags.Int("workers", 0, "concurrent ledger writes per import (default 4)")
	flags.StringP("output-format", "f", "console", "output format: console, json, csv")
	flags.StringP("output-file", "o", "", "output file path (default: stdout)")
	flags.Bool("no-color", false, "disable colored status badges")

	// Bind flags to viper
	for _, name := range []string{
		"env-file", "verbose", "log-level", "log-format", "timezone", "lottery-catalog",
		"max-input-bytes", "workers", "output-format", "output-file", "no-color",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)

		// If a config file is specified, read it in.
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(4)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// RECONCILER_LOG_LEVEL maps to log-level and so on.
	viper.SetEnvPrefix("RECONCILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func prepare(cmd *cobra.Command, args []string) error {
	if err := loadEnvFile(viper.GetString("env-file")); err != nil {
		return err
	}
	return setupLogging()
}

// loadEnvFile exports the variables in path. Variables already set in the
// environment win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "env-file", path, err).
			WithSuggestion("point --env-file at a readable KEY=value file")
	}
	return nil
}

func setupLogging() error {
	logConfig := config.CreateLoggerConfig(
		viper.GetString("log-level"),
		viper.GetString("log-format"),
		viper.GetBool("verbose"),
	)
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log-level", logConfig.Level, err).
			WithSuggestion("use --log-level debug|info|warn|error and --log-format text|json")
	}
	logger.SetGlobalLogger(log)
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
