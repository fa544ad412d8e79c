package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonvc/propledger/internal/ledger"
)

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Manage recurring transaction templates",
}

var (
	tmplName        string
	tmplDescription string
	tmplFrequency   string
	tmplAmount      string
	tmplDebit       string
	tmplCredit      string
	tmplProperty    string
	tmplStart       string
	tmplEnd         string
)

var recurringCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a recurring template",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(tmplAmount)
		if err != nil {
			return err
		}
		start, err := parseDate(tmplStart)
		if err != nil {
			return err
		}
		end, err := parseDate(tmplEnd)
		if err != nil {
			return err
		}

		t, err := newClient().CreateTemplate(context.Background(), &ledger.RecurringTemplate{
			Name:            tmplName,
			Description:     tmplDescription,
			Frequency:       ledger.Frequency(tmplFrequency),
			Amount:          amount,
			DebitAccountID:  tmplDebit,
			CreditAccountID: tmplCredit,
			PropertyID:      tmplProperty,
			StartDate:       start,
			EndDate:         end,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Template created: %s (%s %s, next run %s)\n", t.ID, t.Frequency, formatAmount(t.Amount), t.NextRunDate)
		return nil
	},
}

var recurringListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recurring templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		templates, err := newClient().ListTemplates(context.Background())
		if err != nil {
			return err
		}
		if len(templates) == 0 {
			fmt.Println("No recurring templates found.")
			return nil
		}

		fmt.Printf("%-36s %-24s %-10s %12s %-10s %s\n", "ID", "NAME", "FREQUENCY", "AMOUNT", "NEXT RUN", "STATE")
		fmt.Printf("%-36s %-24s %-10s %12s %-10s %s\n", "----", "----", "---------", "------", "--------", "-----")
		for _, t := range templates {
			state := "inactive"
			switch {
			case t.IsOverdue:
				state = "overdue"
			case t.IsDue:
				state = "due"
			case t.IsActive:
				state = "active"
			}
			fmt.Printf("%-36s %-24s %-10s %12s %-10s %s\n",
				t.ID, truncate(t.Name, 24), t.Frequency, formatAmount(t.Amount), t.NextRunDate, state)
		}
		return nil
	},
}

var recurringToggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Activate or deactivate a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := newClient().ToggleTemplate(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Template %s active: %v\n", t.ID, t.IsActive)
		return nil
	},
}

var recurringRunCmd = &cobra.Command{
	Use:   "run [id]",
	Short: "Post the next occurrence of a template now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newClient().RunTemplate(context.Background(), args[0])
		if err != nil {
			return err
		}
		printEntry(e)
		return nil
	},
}

var recurringRunDueCmd = &cobra.Command{
	Use:   "run-due",
	Short: "Post every due template",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := newClient().RunAllDue(context.Background())
		if err != nil {
			return err
		}
		for _, r := range summary.Results {
			if r.Error != "" {
				fmt.Printf("  FAILED %s: %s\n", r.TemplateID, r.Error)
				continue
			}
			fmt.Printf("  posted %s -> %s\n", r.TemplateID, r.EntryID)
		}
		fmt.Printf("Created %d entries, %d failed.\n", summary.Created, summary.Failed)
		return nil
	},
}

var recurringDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteTemplate(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Template deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	f := recurringCreateCmd.Flags()
	f.StringVar(&tmplName, "name", "", "Template name")
	f.StringVar(&tmplDescription, "description", "", "Memo for generated entries")
	f.StringVar(&tmplFrequency, "frequency", "monthly", "weekly, monthly, quarterly or annually")
	f.StringVar(&tmplAmount, "amount", "", "Amount (e.g. 95.00)")
	f.StringVar(&tmplDebit, "debit", "", "Debit account ID")
	f.StringVar(&tmplCredit, "credit", "", "Credit account ID")
	f.StringVar(&tmplProperty, "property", "", "Property ID")
	f.StringVar(&tmplStart, "start", "", "First run date (YYYY-MM-DD)")
	f.StringVar(&tmplEnd, "end", "", "Last possible run date (YYYY-MM-DD)")
	for _, name := range []string{"name", "amount", "debit", "credit", "start"} {
		recurringCreateCmd.MarkFlagRequired(name)
	}

	recurringCmd.AddCommand(recurringCreateCmd)
	recurringCmd.AddCommand(recurringListCmd)
	recurringCmd.AddCommand(recurringToggleCmd)
	recurringCmd.AddCommand(recurringRunCmd)
	recurringCmd.AddCommand(recurringRunDueCmd)
	recurringCmd.AddCommand(recurringDeleteCmd)
	rootCmd.AddCommand(recurringCmd)
}
