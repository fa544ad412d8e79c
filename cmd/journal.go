package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonvc/propledger/internal/ledger"
)

var journalCmd = &cobra.Command{
	Use:     "journal",
	Aliases: []string{"je"},
	Short:   "Manage journal entries",
}

// journal create
var (
	jeMemo     string
	jeDate     string
	jeProperty string
	jeLines    []string // format: "account_id:amount[:description]"
	jePost     bool
)

// parseLines reads "account_id:amount[:description]". A positive
// amount is a debit, a negative amount a credit.
func parseLines(args []string) ([]ledger.JournalLine, error) {
	lines := make([]ledger.JournalLine, 0, len(args))
	for _, raw := range args {
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid line format %q, expected account_id:amount[:description]", raw)
		}
		amount, err := parseAmount(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid amount in line %q: %w", raw, err)
		}
		l := ledger.JournalLine{AccountID: parts[0]}
		if len(parts) == 3 {
			l.Description = parts[2]
		}
		if amount < 0 {
			l.SetCredit(-amount)
		} else {
			l.SetDebit(amount)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

var journalCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft journal entry",
	Long: `Create a draft journal entry.
Each --line is formatted as "account_id:amount[:description]" where a positive
amount debits the account and a negative amount credits it (e.g. "<bank>:1200.00").`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()

		lines, err := parseLines(jeLines)
		if err != nil {
			return err
		}
		date, err := parseDate(jeDate)
		if err != nil {
			return err
		}

		created, err := c.CreateDraft(context.Background(), &ledger.JournalEntry{
			Memo:       jeMemo,
			EntryDate:  date,
			PropertyID: jeProperty,
			Lines:      lines,
		})
		if err != nil {
			return err
		}
		if jePost {
			if created, err = c.PostEntry(context.Background(), created.ID); err != nil {
				return err
			}
		}
		printEntry(created)
		return nil
	},
}

var journalLinesCmd = &cobra.Command{
	Use:   "set-lines [id]",
	Short: "Replace the lines of a draft entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := parseLines(jeLines)
		if err != nil {
			return err
		}
		e, err := newClient().UpdateDraftLines(context.Background(), args[0], lines)
		if err != nil {
			return err
		}
		printEntry(e)
		return nil
	},
}

// journal list
var (
	jeListStatus  string
	jeListSource  string
	jeListAccount string
	jeListFrom    string
	jeListTo      string
	jeListLimit   int
)

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()

		period, err := parsePeriod(jeListFrom, jeListTo, jeProperty)
		if err != nil {
			return err
		}
		entries, err := c.ListEntries(context.Background(), ledger.EntryFilter{
			Status:     ledger.EntryStatus(jeListStatus),
			SourceType: ledger.SourceType(jeListSource),
			AccountID:  jeListAccount,
			PropertyID: period.PropertyID,
			DateFrom:   period.DateFrom,
			DateTo:     period.DateTo,
			Limit:      jeListLimit,
		})
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No journal entries found.")
			return nil
		}

		fmt.Printf("%-36s %-10s %-9s %-12s %12s %s\n", "ID", "DATE", "STATUS", "SOURCE", "AMOUNT", "MEMO")
		fmt.Printf("%-36s %-10s %-9s %-12s %12s %s\n", "----", "----", "------", "------", "------", "----")
		for _, e := range entries {
			debit, _, _ := e.Totals()
			fmt.Printf("%-36s %-10s %-9s %-12s %12s %s\n",
				e.ID, e.EntryDate, e.Status, e.SourceType, formatAmount(debit), truncate(e.Memo, 40))
		}
		return nil
	},
}

// journal get
var journalGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get journal entry details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newClient().GetEntry(context.Background(), args[0])
		if err != nil {
			return err
		}
		printEntry(e)
		return nil
	},
}

func printEntry(e *ledger.JournalEntry) {
	fmt.Printf("ID:       %s\n", e.ID)
	fmt.Printf("Date:     %s\n", e.EntryDate)
	fmt.Printf("Memo:     %s\n", e.Memo)
	fmt.Printf("Source:   %s\n", e.SourceType)
	fmt.Printf("Status:   %s\n", e.Status)
	if e.PropertyID != "" {
		fmt.Printf("Property: %s\n", e.PropertyID)
	}
	if e.ReversalOf != "" {
		fmt.Printf("Reverses: %s\n", e.ReversalOf)
	}
	if e.ReversedBy != "" {
		fmt.Printf("Reversed: %s\n", e.ReversedBy)
	}
	fmt.Printf("Lines:\n")
	fmt.Printf("  %-4s %-36s %12s %s\n", "TYPE", "ACCOUNT", "AMOUNT", "DESCRIPTION")
	for _, l := range e.Lines {
		direction, amt := "DR", l.Debit
		if l.Credit > 0 {
			direction, amt = "CR", l.Credit
		}
		fmt.Printf("  %-4s %-36s %12s %s\n", direction, l.AccountID, formatAmount(amt), l.Description)
	}
}

func entryActionCmd(use, short string, action func(ctx context.Context, id string) (*ledger.JournalEntry, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := action(context.Background(), args[0])
			if err != nil {
				return err
			}
			printEntry(e)
			return nil
		},
	}
}

var journalReverseCmd = &cobra.Command{
	Use:   "reverse [id]",
	Short: "Reverse a posted entry with a contra-entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDate(jeDate)
		if err != nil {
			return err
		}
		e, err := newClient().ReverseEntry(context.Background(), args[0], date)
		if err != nil {
			return err
		}
		printEntry(e)
		return nil
	},
}

// journal income / expense / transfer
var (
	recAmount      string
	recFrom        string
	recTo          string
	recDescription string
)

func recordCmd(kind ledger.RecordKind, short, fromHelp, toHelp string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(recAmount)
			if err != nil {
				return err
			}
			date, err := parseDate(jeDate)
			if err != nil {
				return err
			}
			e, err := newClient().Record(context.Background(), kind, ledger.RecordParams{
				Amount:      amount,
				FromAccount: recFrom,
				ToAccount:   recTo,
				Date:        date,
				PropertyID:  jeProperty,
				Description: recDescription,
			})
			if err != nil {
				return err
			}
			printEntry(e)
			return nil
		},
	}
	cmd.Flags().StringVar(&recAmount, "amount", "", "Amount (e.g. 1200.00)")
	cmd.Flags().StringVar(&recFrom, "from", "", fromHelp)
	cmd.Flags().StringVar(&recTo, "to", "", toHelp)
	cmd.Flags().StringVar(&recDescription, "description", "", "Description")
	cmd.Flags().StringVar(&jeDate, "date", "", "Entry date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&jeProperty, "property", "", "Property ID")
	cmd.MarkFlagRequired("amount")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func init() {
	journalCreateCmd.Flags().StringVar(&jeMemo, "memo", "", "Entry memo")
	journalCreateCmd.Flags().StringVar(&jeDate, "date", "", "Entry date (YYYY-MM-DD, default today)")
	journalCreateCmd.Flags().StringVar(&jeProperty, "property", "", "Property ID")
	journalCreateCmd.Flags().StringArrayVar(&jeLines, "line", nil, "Line in format account_id:amount[:description] (can be repeated)")
	journalCreateCmd.Flags().BoolVar(&jePost, "post", false, "Post the entry immediately")
	journalCreateCmd.MarkFlagRequired("line")

	journalLinesCmd.Flags().StringArrayVar(&jeLines, "line", nil, "Line in format account_id:amount[:description] (can be repeated)")
	journalLinesCmd.MarkFlagRequired("line")

	journalListCmd.Flags().StringVar(&jeListStatus, "status", "", "Filter by status")
	journalListCmd.Flags().StringVar(&jeListSource, "source", "", "Filter by source type")
	journalListCmd.Flags().StringVar(&jeListAccount, "account", "", "Filter by account ID")
	journalListCmd.Flags().StringVar(&jeProperty, "property", "", "Filter by property ID")
	journalListCmd.Flags().StringVar(&jeListFrom, "from", "", "Start date (YYYY-MM-DD)")
	journalListCmd.Flags().StringVar(&jeListTo, "to", "", "End date (YYYY-MM-DD)")
	journalListCmd.Flags().IntVar(&jeListLimit, "limit", 0, "Maximum number of entries")

	journalReverseCmd.Flags().StringVar(&jeDate, "date", "", "Reversal date (YYYY-MM-DD, default today)")

	journalCmd.AddCommand(journalCreateCmd)
	journalCmd.AddCommand(journalLinesCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalGetCmd)
	journalCmd.AddCommand(entryActionCmd("post", "Post a draft entry", func(ctx context.Context, id string) (*ledger.JournalEntry, error) {
		return newClient().PostEntry(ctx, id)
	}))
	journalCmd.AddCommand(entryActionCmd("void", "Void a draft entry", func(ctx context.Context, id string) (*ledger.JournalEntry, error) {
		return newClient().VoidEntry(ctx, id)
	}))
	journalCmd.AddCommand(journalReverseCmd)
	journalCmd.AddCommand(recordCmd(ledger.RecordIncome, "Record income into a deposit account", "Revenue account ID", "Deposit account ID"))
	journalCmd.AddCommand(recordCmd(ledger.RecordExpense, "Record an expense paid from an account", "Paying account ID", "Expense account ID"))
	journalCmd.AddCommand(recordCmd(ledger.RecordTransfer, "Transfer between two accounts", "Source account ID", "Destination account ID"))

	rootCmd.AddCommand(journalCmd)
}
