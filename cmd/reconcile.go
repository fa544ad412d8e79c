package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonvc/propledger/internal/ledger"
)

var reconcileCmd = &cobra.Command{
	Use:     "reconcile",
	Aliases: []string{"recon"},
	Short:   "Reconcile an asset account against bank statements",
}

var (
	reconAccount string
	reconFrom    string
	reconTo      string
	reconBalance string
)

var reconcileStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a reconciliation for a statement period",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := ledger.ParseDate(reconFrom)
		if err != nil {
			return err
		}
		end, err := ledger.ParseDate(reconTo)
		if err != nil {
			return err
		}
		balance, err := parseAmount(reconBalance)
		if err != nil {
			return err
		}
		r, err := newClient().StartReconciliation(context.Background(), reconAccount, start, end, balance)
		if err != nil {
			return err
		}
		printReconciliation(r)
		return nil
	},
}

var reconcileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reconciliations, newest period first",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient().ListReconciliations(context.Background(), reconAccount)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No reconciliations found.")
			return nil
		}
		fmt.Printf("%-36s %-10s %-10s %14s %14s %s\n", "ID", "FROM", "TO", "STATEMENT", "DIFFERENCE", "STATUS")
		fmt.Printf("%-36s %-10s %-10s %14s %14s %s\n", "----", "----", "--", "---------", "----------", "------")
		for _, r := range list {
			fmt.Printf("%-36s %-10s %-10s %14s %14s %s\n",
				r.ID, r.StartDate, r.EndDate, formatSigned(r.StatementEndingBalance), formatSigned(r.Difference), r.Status)
		}
		return nil
	},
}

func reconActionCmd(use, short string, nargs int, action func(ctx context.Context, args []string) (*ledger.Reconciliation, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := action(context.Background(), args)
			if err != nil {
				return err
			}
			printReconciliation(r)
			return nil
		},
	}
}

func printReconciliation(r *ledger.Reconciliation) {
	fmt.Printf("Reconciliation: %s\n", r.ID)
	fmt.Printf("Account:        %s\n", r.AccountID)
	fmt.Printf("Period:         %s to %s\n", r.StartDate, r.EndDate)
	fmt.Printf("Status:         %s\n", r.Status)
	fmt.Printf("Beginning:      %14s\n", formatSigned(r.BeginningBalance))
	fmt.Printf("Statement:      %14s\n", formatSigned(r.StatementEndingBalance))
	fmt.Printf("Cleared book:   %14s\n", formatSigned(r.BookBalance))
	fmt.Printf("Difference:     %14s", formatSigned(r.Difference))
	if r.IsBalanced {
		fmt.Println("  [BALANCED]")
	} else {
		fmt.Println()
	}

	if len(r.Matches) > 0 {
		fmt.Printf("\nMatches:\n")
		for _, m := range r.Matches {
			fmt.Printf("  %-36s %-8s row %-36s line %-36s %12s\n",
				m.ID, m.Kind, m.ImportedRowID, m.JournalLineID, formatSigned(m.BankAmount))
		}
	}
	if len(r.UnmatchedBank) > 0 {
		fmt.Printf("\nUnmatched bank rows:\n")
		for _, b := range r.UnmatchedBank {
			fmt.Printf("  %-36s %-10s %-30s %12s\n", b.RowID, b.Date, truncate(b.Description, 30), formatSigned(b.Amount))
		}
	}
	if len(r.UnmatchedBook) > 0 {
		fmt.Printf("\nUnmatched ledger lines:\n")
		for _, l := range r.UnmatchedBook {
			fmt.Printf("  %-36s %-10s %-30s %12s\n", l.LineID, l.Date, truncate(l.Memo, 30), formatSigned(l.Amount))
		}
	}
}

func init() {
	reconcileStartCmd.Flags().StringVar(&reconAccount, "account", "", "Asset account ID")
	reconcileStartCmd.Flags().StringVar(&reconFrom, "from", "", "Statement start date (YYYY-MM-DD)")
	reconcileStartCmd.Flags().StringVar(&reconTo, "to", "", "Statement end date (YYYY-MM-DD)")
	reconcileStartCmd.Flags().StringVar(&reconBalance, "balance", "", "Statement ending balance (e.g. 4200.00)")
	for _, name := range []string{"account", "from", "to", "balance"} {
		reconcileStartCmd.MarkFlagRequired(name)
	}
	reconcileListCmd.Flags().StringVar(&reconAccount, "account", "", "Filter by account ID")

	reconcileCmd.AddCommand(reconcileStartCmd)
	reconcileCmd.AddCommand(reconcileListCmd)
	reconcileCmd.AddCommand(reconActionCmd("show [id]", "Show a reconciliation", 1,
		func(ctx context.Context, args []string) (*ledger.Reconciliation, error) {
			return newClient().GetReconciliation(ctx, args[0])
		}))
	reconcileCmd.AddCommand(reconActionCmd("match [id] [row-id] [line-id]", "Match a bank row to a ledger line", 3,
		func(ctx context.Context, args []string) (*ledger.Reconciliation, error) {
			return newClient().AddMatch(ctx, args[0], args[1], args[2])
		}))
	reconcileCmd.AddCommand(reconActionCmd("unmatch [id] [match-id]", "Remove a match or exclusion", 2,
		func(ctx context.Context, args []string) (*ledger.Reconciliation, error) {
			return newClient().RemoveMatch(ctx, args[0], args[1])
		}))
	reconcileCmd.AddCommand(reconActionCmd("exclude [id] [row-id]", "Exclude a bank row from the reconciliation", 2,
		func(ctx context.Context, args []string) (*ledger.Reconciliation, error) {
			return newClient().Exclude(ctx, args[0], args[1])
		}))
	reconcileCmd.AddCommand(reconActionCmd("complete [id]", "Complete a balanced reconciliation", 1,
		func(ctx context.Context, args []string) (*ledger.Reconciliation, error) {
			return newClient().CompleteReconciliation(ctx, args[0])
		}))
	rootCmd.AddCommand(reconcileCmd)
}
