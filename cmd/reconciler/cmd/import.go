package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lottery-reconciliation-service/internal/ledger"
)

// Flags for the import command
var (
	importFile   string
	dryRun       bool
	showProgress bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Parse a bank statement and merge it into the ledger",
	Long: `Import parses statement text and merges every recognized transaction
into the PostgreSQL ledger. Rows with a transaction id are upserted, so
importing the same statement twice inserts nothing new. Rows without any
phone, transaction id or amount are skipped as noise.

Examples:
  # Import an exported statement
  reconciler import --file statement.csv

  # Import pasted text from standard input
  pbpaste | reconciler import --file -

  # Parse and count without a database
  reconciler import --file statement.csv --dry-run --output-format json`,

	PreRunE: validateImportFlags,
	RunE:    runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFile, "file", "", "statement file, or - for standard input (required)")
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "merge into an in-memory ledger instead of PostgreSQL")
	importCmd.Flags().BoolVar(&showProgress, "progress", false, "log merge progress")

	importCmd.MarkFlagRequired("file")
}

func validateImportFlags(cmd *cobra.Command, args []string) error {
	return validateFileExists(importFile, "statement file")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := readInput(importFile, cmd.InOrStdin(), viper.GetInt("max-input-bytes"))
	if err != nil {
		return err
	}

	var store ledger.Store
	if dryRun {
		store = ledger.NewMemoryStore()
	} else {
		pg, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pg.Close()
		store = pg
	}

	service, err := newService(store, showProgress)
	if err != nil {
		return err
	}

	result, err := service.ImportBytes(ctx, data)
	if err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		stats := service.GetStats()
		if stats.Parse != nil {
			fmt.Fprintf(os.Stderr, "Parsed %d rows (delimiter %s) in %v\n",
				stats.Parse.Rows, stats.Parse.Delimiter, stats.Duration)
		}
		if dryRun {
			fmt.Fprintf(os.Stderr, "Dry run: nothing was written to the ledger\n")
		}
	}

	return writeReport(cmd, result, false)
}
