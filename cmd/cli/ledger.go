package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/personal-finance-assistant/backend/internal/model/ledger"
	"github.com/personal-finance-assistant/backend/internal/service/tools"
	"github.com/personal-finance-assistant/backend/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the Expenses and Incomes tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ledgerStore, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer ledgerStore.Close()

		if err := ledgerStore.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ledger schema ready (%s).\n", cfg.Database.Driver)
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print total incomes minus total expenses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ledgerStore, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer ledgerStore.Close()

		balance, err := tools.NewExecutor(ledgerStore, log).GetMoneyBalance(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), balance)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent expenses and incomes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		ledgerStore, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer ledgerStore.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tDATE\tNAME\tAMOUNT")
		for _, kind := range []ledger.Kind{ledger.Expense, ledger.Income} {
			records, err := ledgerStore.List(ctx, kind, limit)
			if err != nil {
				return err
			}
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind, rec.Date.Format(time.DateOnly), rec.Name, ledger.FormatINR(rec.Amount))
			}
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 10, "maximum rows per kind (0 = all)")
}
