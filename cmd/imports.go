package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/simonvc/propledger/internal/ledger"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import bank statements",
}

var (
	impAccount   string
	impDate      string
	impDesc      string
	impAmount    string
	impReference string
	impCategory  string
	impProperty  string
	impAll       bool
	impBatch     string
)

var importUploadCmd = &cobra.Command{
	Use:   "upload [file.csv]",
	Short: "Upload a CSV statement for an asset account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		b, err := newClient().UploadStatement(context.Background(), impAccount, filepath.Base(args[0]), content)
		if err != nil {
			return err
		}
		fmt.Printf("Batch created: %s\n", b.ID)
		fmt.Printf("Headers:   %v\n", b.Headers)
		m := b.SuggestedMapping
		fmt.Printf("Suggested: date=%q description=%q amount=%q reference=%q\n",
			m.DateColumn, m.DescriptionColumn, m.AmountColumn, m.ReferenceColumn)
		return nil
	},
}

var importMapCmd = &cobra.Command{
	Use:   "map [batch-id]",
	Short: "Confirm the column mapping and parse the rows",
	Long:  "Confirm the column mapping and parse the rows. Columns not given on the command line fall back to the suggested mapping.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		b, err := c.GetBatch(context.Background(), args[0])
		if err != nil {
			return err
		}
		m := b.SuggestedMapping
		flags := cmd.Flags()
		if flags.Changed("date") {
			m.DateColumn = impDate
		}
		if flags.Changed("description") {
			m.DescriptionColumn = impDesc
		}
		if flags.Changed("amount") {
			m.AmountColumn = impAmount
		}
		if flags.Changed("reference") {
			m.ReferenceColumn = impReference
		}

		b, err = c.ConfirmMapping(context.Background(), args[0], m)
		if err != nil {
			return err
		}
		printBatch(b)
		return nil
	},
}

var importShowCmd = &cobra.Command{
	Use:   "show [batch-id]",
	Short: "Show a batch and its rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newClient().GetBatch(context.Background(), args[0])
		if err != nil {
			return err
		}
		printBatch(b)
		return nil
	},
}

var importListCmd = &cobra.Command{
	Use:   "list",
	Short: "List import batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		batches, err := newClient().ListBatches(context.Background())
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			fmt.Println("No import batches found.")
			return nil
		}
		fmt.Printf("%-36s %-24s %-10s %s\n", "ID", "FILE", "STATUS", "CREATED")
		fmt.Printf("%-36s %-24s %-10s %s\n", "----", "----", "------", "-------")
		for _, b := range batches {
			fmt.Printf("%-36s %-24s %-10s %s\n", b.ID, truncate(b.FileName, 24), b.Status, b.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var importCategorizeCmd = &cobra.Command{
	Use:   "categorize [row-id]",
	Short: "Set a row's category or property",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch ledger.RowPatch
		if cmd.Flags().Changed("category") {
			patch.CategoryID = &impCategory
		}
		if cmd.Flags().Changed("property") {
			patch.PropertyID = &impProperty
		}
		r, err := newClient().UpdateRow(context.Background(), args[0], patch)
		if err != nil {
			return err
		}
		fmt.Printf("Row %d: %s -> %s\n", r.RowNo, truncate(r.Description, 40), r.CategoryID)
		return nil
	},
}

func rowStatusCmd(use, short string, status ledger.RowStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [row-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newClient().UpdateRow(context.Background(), args[0], ledger.RowPatch{Status: &status})
			if err != nil {
				return err
			}
			fmt.Printf("Row %d: %s\n", r.RowNo, r.Status)
			return nil
		},
	}
}

var importApproveCmd = &cobra.Command{
	Use:   "approve [row-id...]",
	Short: "Approve rows for booking",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ids := args
		if impAll {
			if impBatch == "" {
				return fmt.Errorf("--all needs --batch")
			}
			b, err := c.GetBatch(context.Background(), impBatch)
			if err != nil {
				return err
			}
			ids = nil
			for _, r := range b.Rows {
				if r.Status == ledger.RowPending && !r.IsDuplicate {
					ids = append(ids, r.ID)
				}
			}
		}
		if len(ids) == 0 {
			return fmt.Errorf("no rows to approve")
		}

		res, err := c.BulkApprove(context.Background(), ids, impCategory)
		if err != nil {
			return err
		}
		for _, f := range res.Failed {
			fmt.Printf("  FAILED row %d (%s): %s\n", f.RowNo, f.RowID, f.Error)
		}
		fmt.Printf("Approved %d rows, %d failed.\n", res.Approved, len(res.Failed))
		return nil
	},
}

var importBookCmd = &cobra.Command{
	Use:   "book [batch-id]",
	Short: "Post a journal entry for every approved row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().Book(context.Background(), args[0])
		if err != nil {
			return err
		}
		for _, f := range res.Failed {
			fmt.Printf("  FAILED row %d (%s): %s\n", f.RowNo, f.RowID, f.Error)
		}
		fmt.Printf("Booked %d rows, %d failed.\n", res.Booked, len(res.Failed))
		return nil
	},
}

func printBatch(b *ledger.ImportBatch) {
	fmt.Printf("Batch:   %s (%s)\n", b.ID, b.FileName)
	fmt.Printf("Account: %s\n", b.AccountID)
	fmt.Printf("Status:  %s\n", b.Status)
	if len(b.Rows) == 0 {
		return
	}
	fmt.Println()
	fmt.Printf("%4s %-36s %-10s %-30s %12s %-9s %s\n", "ROW", "ID", "DATE", "DESCRIPTION", "AMOUNT", "STATUS", "CATEGORY")
	fmt.Printf("%4s %-36s %-10s %-30s %12s %-9s %s\n", "---", "--", "----", "-----------", "------", "------", "--------")
	for _, r := range b.Rows {
		status := string(r.Status)
		if r.IsDuplicate {
			status += "*"
		}
		fmt.Printf("%4d %-36s %-10s %-30s %12s %-9s %s\n",
			r.RowNo, r.ID, r.Date, truncate(r.Description, 30), formatSigned(r.Amount), status, r.CategoryID)
	}
}

func init() {
	importUploadCmd.Flags().StringVar(&impAccount, "account", "", "Asset account the statement belongs to")
	importUploadCmd.MarkFlagRequired("account")

	importMapCmd.Flags().StringVar(&impDate, "date", "", "Date column")
	importMapCmd.Flags().StringVar(&impDesc, "description", "", "Description column")
	importMapCmd.Flags().StringVar(&impAmount, "amount", "", "Amount column")
	importMapCmd.Flags().StringVar(&impReference, "reference", "", "Reference column")

	importCategorizeCmd.Flags().StringVar(&impCategory, "category", "", "Category account ID")
	importCategorizeCmd.Flags().StringVar(&impProperty, "property", "", "Property ID")

	importApproveCmd.Flags().StringVar(&impCategory, "category", "", "Category for rows that have none")
	importApproveCmd.Flags().BoolVar(&impAll, "all", false, "Approve every pending, non-duplicate row of --batch")
	importApproveCmd.Flags().StringVar(&impBatch, "batch", "", "Batch ID for --all")

	importCmd.AddCommand(importUploadCmd)
	importCmd.AddCommand(importMapCmd)
	importCmd.AddCommand(importShowCmd)
	importCmd.AddCommand(importListCmd)
	importCmd.AddCommand(importCategorizeCmd)
	importCmd.AddCommand(rowStatusCmd("skip", "Skip a row", ledger.RowSkipped))
	importCmd.AddCommand(rowStatusCmd("reset", "Move a row back to pending", ledger.RowPending))
	importCmd.AddCommand(importApproveCmd)
	importCmd.AddCommand(importBookCmd)
	rootCmd.AddCommand(importCmd)
}
