package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"lottery-reconciliation-service/pkg/errors"
	"lottery-reconciliation-service/pkg/logger"
)

// migrateCmd applies the embedded ledger schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the ledger tables if they do not exist",
	Long: `Migrate applies the embedded transactions schema to the database named
by DATABASE_URL or the POSTGRES_* variables. Running it again is a no-op.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	log := logger.GetGlobalLogger().WithComponent("migrate")
	if err := logger.TimedOperation("migrate", log, func() error { return store.Migrate(ctx) }); err != nil {
		return errors.StoreError(errors.CodeStoreUnavailable, "migrate", err).WithIncident()
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Ledger schema is up to date")
	return nil
}
