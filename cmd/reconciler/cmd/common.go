package cmd

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lottery-reconciliation-service/cmd/reconciler/config"
	"lottery-reconciliation-service/internal/ledger"
	"lottery-reconciliation-service/internal/parsers"
	"lottery-reconciliation-service/internal/reconciler"
	"lottery-reconciliation-service/internal/reporter"
	"lottery-reconciliation-service/pkg/errors"
	"lottery-reconciliation-service/pkg/logger"
)

// stdinPath selects standard input for --file.
const stdinPath = "-"

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "file", nil, nil).
			WithSuggestion("pass --file with a statement path, or --file - to read standard input")
	}
	if filePath == stdinPath {
		return nil
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, filePath, err).
			WithContext("description", description)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeFileNotFound, filePath, nil).
			WithSuggestion("expected a file, got a directory")
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}
	file.Close()

	return nil
}

// readInput loads the statement bytes. Standard input is read up to one
// byte past limit so oversized pastes are still rejected by size.
func readInput(path string, stdin io.Reader, limit int) ([]byte, error) {
	if path == stdinPath {
		if limit <= 0 {
			limit = reconciler.DefaultMaxInputBytes
		}
		data, err := io.ReadAll(io.LimitReader(stdin, int64(limit)+1))
		if err != nil {
			return nil, errors.FileError(errors.CodeFilePermission, "<stdin>", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.FileError(errors.CodeFilePermission, path, err)
	}
	return data, nil
}

// newService builds the parse pipeline from the global flags. store may
// be nil for commands that never touch the ledger.
func newService(store ledger.Store, showProgress bool) (*reconciler.Service, error) {
	log := logger.GetGlobalLogger()

	parserConfig, err := config.CreateParserConfig(viper.GetString("timezone"), viper.GetString("lottery-catalog"))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "parser", nil, err).
			WithSuggestion("check --timezone and --lottery-catalog")
	}
	log.WithField("lottery_codes", parserConfig.Catalog.Codes()).Debug("Lottery catalog loaded")
	serviceConfig := config.CreateServiceConfig(viper.GetInt("max-input-bytes"), viper.GetInt("workers"), showProgress)
	if err := config.ValidateConfig(parserConfig, serviceConfig, nil); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "service", nil, err)
	}

	classifier, err := parsers.NewClassifier(parserConfig, log)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "classifier", nil, err)
	}
	service, err := reconciler.NewService(classifier, store, serviceConfig, log)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "service", nil, err)
	}
	return service, nil
}

// openStore connects to the PostgreSQL ledger described by the environment.
func openStore(ctx context.Context) (*ledger.PostgresStore, error) {
	cfg, err := ledger.ConfigFromEnv()
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "database", nil, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "DATABASE_URL", nil, err).
			WithSuggestion("set DATABASE_URL, or POSTGRES_HOST and POSTGRES_DB")
	}

	store, err := ledger.NewPostgresStore(ctx, cfg, logger.GetGlobalLogger())
	if err != nil {
		serr := errors.StoreError(errors.CodeStoreUnavailable, "connect", err).WithIncident()
		logger.GetGlobalLogger().WithError(err).WithIncident(serr.Incident).Error("Cannot reach ledger store")
		return nil, serr
	}
	return store, nil
}

// writeReport renders result with the global output flags.
func writeReport(cmd *cobra.Command, result interface{}, maskPhones bool) error {
	useColors := !viper.GetBool("no-color") && !color.NoColor && viper.GetString("output-file") == ""
	reportConfig, err := config.CreateReportConfig(viper.GetString("output-format"), useColors, maskPhones)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "output-format", viper.GetString("output-format"), err).
			WithSuggestion("use one of: console, json, csv")
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	// Determine output destination
	var output io.Writer = cmd.OutOrStdout()
	if path := viper.GetString("output-file"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return errors.FileError(errors.CodeFilePermission, path, err)
		}
		defer file.Close()
		output = file
	}

	return generator.Generate(result, output)
}
