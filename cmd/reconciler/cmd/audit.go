package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lottery-reconciliation-service/cmd/reconciler/config"
	"lottery-reconciliation-service/pkg/errors"
)

// Flags shared by the audit and ledger commands
var (
	auditFile   string
	fee         string
	dedupe      string
	onlyMatched bool
	maskPhones  bool
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Classify statement rows against the ticket fee without storing them",
	Long: `Audit parses statement text and labels every row Matched, Wrong amount
or Unmatched. A row needs a phone to be matched; with --fee its amount
must also equal the fee. Nothing is written to the ledger.

Examples:
  # Check a statement against a 50,000 ticket price
  reconciler audit --file statement.csv --fee 50000

  # Keep only the latest payment per phone and show matches only
  reconciler audit --file statement.csv --fee 50000 --dedupe latest --only-matched

  # Export the verdicts for a spreadsheet
  reconciler audit --file statement.csv --fee 50000 --output-format csv -o audit.csv`,

	PreRunE: validateAuditFlags,
	RunE:    runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditFile, "file", "", "statement file, or - for standard input (required)")
	addAuditFlags(auditCmd)

	auditCmd.MarkFlagRequired("file")
}

// addAuditFlags registers the classification flags on cmd.
func addAuditFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&fee, "fee", "", "expected ticket fee; rows with another amount are Wrong amount")
	cmd.Flags().StringVar(&dedupe, "dedupe", "off", "dedupe mode: off, latest")
	cmd.Flags().BoolVar(&onlyMatched, "only-matched", false, "list matched rows only (counts are unaffected)")
	cmd.Flags().BoolVar(&maskPhones, "mask", false, "mask phone numbers in the output")
}

func validateAuditFlags(cmd *cobra.Command, args []string) error {
	if _, err := config.CreateAuditOptions(fee, dedupe, onlyMatched); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "dedupe", dedupe, err).
			WithSuggestion("use --dedupe off or --dedupe latest")
	}
	return validateFileExists(auditFile, "statement file")
}

func runAudit(cmd *cobra.Command, args []string) error {
	opts, err := config.CreateAuditOptions(fee, dedupe, onlyMatched)
	if err != nil {
		return err
	}

	data, err := readInput(auditFile, cmd.InOrStdin(), viper.GetInt("max-input-bytes"))
	if err != nil {
		return err
	}

	service, err := newService(nil, false)
	if err != nil {
		return err
	}

	report, err := service.PreviewBytes(data, opts)
	if err != nil {
		return err
	}

	if fee != "" && !opts.Fee.Valid {
		fmt.Fprintf(os.Stderr, "Warning: fee %q is not a positive amount, amounts are not compared\n", fee)
	}

	return writeReport(cmd, report, maskPhones)
}
