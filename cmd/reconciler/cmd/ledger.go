package cmd

import (
	"github.com/spf13/cobra"

	"lottery-reconciliation-service/cmd/reconciler/config"
	"lottery-reconciliation-service/internal/ledger"
	"lottery-reconciliation-service/internal/reconciler"
	"lottery-reconciliation-service/pkg/errors"
)

var ledgerLimit int

// ledgerCmd groups the stored-entry audits
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Audit transactions already stored in the ledger",
	Long: `Ledger reads stored transactions back, newest first, and classifies
them the same way audit does for statement text.

Examples:
  reconciler ledger recent --limit 50 --fee 50000 --dedupe latest
  reconciler ledger phone 99112233 --fee 50000 --mask`,
}

var ledgerRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Audit the most recent ledger entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLedgerAudit(cmd, reconciler.LedgerQuery{Limit: ledgerLimit})
	},
}

var ledgerPhoneCmd = &cobra.Command{
	Use:   "phone PHONE",
	Short: "Audit the ledger entries of one 8-digit phone",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if !ledger.ValidPhone(args[0]) {
			return errors.ValidationError(errors.CodeInvalidValue, "phone", args[0], nil).
				WithSuggestion("phones are exactly 8 digits")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLedgerAudit(cmd, reconciler.LedgerQuery{Phone: args[0], Limit: ledgerLimit})
	},
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerRecentCmd, ledgerPhoneCmd)

	ledgerCmd.PersistentFlags().IntVar(&ledgerLimit, "limit", ledger.DefaultRecentLimit, "maximum entries to read, capped at 50")
	addAuditFlags(ledgerRecentCmd)
	addAuditFlags(ledgerPhoneCmd)
}

func runLedgerAudit(cmd *cobra.Command, query reconciler.LedgerQuery) error {
	opts, err := config.CreateAuditOptions(fee, dedupe, onlyMatched)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "dedupe", dedupe, err)
	}

	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	service, err := newService(store, false)
	if err != nil {
		return err
	}

	report, _, err := service.AuditLedger(ctx, query, opts)
	if err != nil {
		return err
	}
	return writeReport(cmd, report, maskPhones)
}
