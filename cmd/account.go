package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonvc/propledger/internal/ledger"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the chart of accounts",
}

// account create
var (
	acctCreateCode        string
	acctCreateName        string
	acctCreateType        string
	acctCreateParent      string
	acctCreateHeader      bool
	acctCreateDescription string
)

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()

		acct := &ledger.Account{
			Code:        acctCreateCode,
			Name:        acctCreateName,
			Type:        ledger.AccountType(acctCreateType),
			ParentID:    acctCreateParent,
			IsHeader:    acctCreateHeader,
			Description: acctCreateDescription,
		}

		created, err := c.CreateAccount(context.Background(), acct)
		if err != nil {
			return err
		}

		fmt.Printf("Account created: %s %s (%s) %s\n", created.ID, created.Code, created.Name, created.Type)
		return nil
	},
}

// account list
var acctListAll bool

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()

		accounts, err := c.ListAccounts(context.Background(), acctListAll)
		if err != nil {
			return err
		}

		if len(accounts) == 0 {
			fmt.Println("No accounts found.")
			return nil
		}

		fmt.Printf("%-36s %-8s %-30s %-10s %s\n", "ID", "CODE", "NAME", "TYPE", "ACTIVE")
		fmt.Printf("%-36s %-8s %-30s %-10s %s\n", "----", "----", "----", "----", "------")
		for _, a := range accounts {
			fmt.Printf("%-36s %-8s %-30s %-10s %v\n", a.ID, a.Code, truncate(a.Name, 30), a.Type, a.IsActive)
		}
		return nil
	},
}

// account tree
var accountTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the chart of accounts as a tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()

		roots, err := c.AccountTree(context.Background(), acctListAll)
		if err != nil {
			return err
		}
		printTree(roots, 0)
		return nil
	},
}

func printTree(accounts []ledger.Account, depth int) {
	for _, a := range accounts {
		marker := ""
		if a.IsHeader {
			marker = " [header]"
		}
		if !a.IsActive {
			marker += " [inactive]"
		}
		fmt.Printf("%s%-6s %s%s\n", strings.Repeat("  ", depth), a.Code, a.Name, marker)
		printTree(a.Children, depth+1)
	}
}

// account get
var accountGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get account details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()

		acct, err := c.GetAccount(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:       %s\n", acct.ID)
		fmt.Printf("Code:     %s\n", acct.Code)
		fmt.Printf("Name:     %s\n", acct.Name)
		fmt.Printf("Type:     %s (normal %s)\n", acct.Type, acct.NormalBalance)
		fmt.Printf("Parent:   %s\n", acct.ParentID)
		fmt.Printf("Header:   %v\n", acct.IsHeader)
		fmt.Printf("Active:   %v\n", acct.IsActive)
		fmt.Printf("Created:  %s\n", acct.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

// account update
var accountUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Change an account's code, name, parent or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()

		var patch ledger.AccountPatch
		flags := cmd.Flags()
		if flags.Changed("code") {
			patch.Code = &acctCreateCode
		}
		if flags.Changed("name") {
			patch.Name = &acctCreateName
		}
		if flags.Changed("parent") {
			patch.ParentID = &acctCreateParent
		}
		if flags.Changed("description") {
			patch.Description = &acctCreateDescription
		}

		acct, err := c.UpdateAccount(context.Background(), args[0], patch)
		if err != nil {
			return err
		}
		fmt.Printf("Account updated: %s %s (%s)\n", acct.ID, acct.Code, acct.Name)
		return nil
	},
}

func activeCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := newClient().SetAccountActive(context.Background(), args[0], active)
			if err != nil {
				return err
			}
			fmt.Printf("Account %s active: %v\n", acct.ID, acct.IsActive)
			return nil
		},
	}
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an account with no children and no journal lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteAccount(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Account deleted: %s\n", args[0])
		return nil
	},
}

// account ledger
var (
	acctLedgerFrom     string
	acctLedgerTo       string
	acctLedgerProperty string
)

var accountLedgerCmd = &cobra.Command{
	Use:   "ledger [id]",
	Short: "Show posted lines with a running balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := parsePeriod(acctLedgerFrom, acctLedgerTo, acctLedgerProperty)
		if err != nil {
			return err
		}

		l, err := newClient().AccountLedger(context.Background(), args[0], f)
		if err != nil {
			return err
		}

		fmt.Printf("%-10s %-36s %12s %12s %14s\n", "DATE", "MEMO", "DEBIT", "CREDIT", "BALANCE")
		fmt.Printf("%-10s %-36s %12s %12s %14s\n", "----", "----", "-----", "------", "-------")
		for _, line := range l.Lines {
			fmt.Printf("%-10s %-36s %12s %12s %14s\n",
				line.EntryDate, truncate(line.Memo, 36),
				blankZero(line.Debit), blankZero(line.Credit), formatSigned(line.RunningBalance))
		}
		fmt.Printf("%-47s %12s %12s %14s\n", "TOTALS",
			formatAmount(l.TotalDebit), formatAmount(l.TotalCredit), formatSigned(l.EndingBalance))
		fmt.Printf("\nBalance (%s normal): %s\n", l.Account.NormalBalance, formatSigned(l.NormalBalance))
		return nil
	},
}

var accountSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the default property chart into an empty ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := newClient().SeedChart(context.Background())
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println("Ledger already has accounts; nothing seeded.")
			return nil
		}
		fmt.Printf("Seeded %d accounts.\n", n)
		return nil
	},
}

func blankZero(amount int64) string {
	if amount == 0 {
		return ""
	}
	return formatAmount(amount)
}

func init() {
	for _, c := range []*cobra.Command{accountCreateCmd, accountUpdateCmd} {
		c.Flags().StringVar(&acctCreateCode, "code", "", "Account code (e.g. 1010)")
		c.Flags().StringVar(&acctCreateName, "name", "", "Account name")
		c.Flags().StringVar(&acctCreateParent, "parent", "", "Parent account ID")
		c.Flags().StringVar(&acctCreateDescription, "description", "", "Description")
	}
	accountCreateCmd.Flags().StringVar(&acctCreateType, "type", "", "asset, liability, equity, revenue or expense")
	accountCreateCmd.Flags().BoolVar(&acctCreateHeader, "header", false, "Header (grouping) account")
	accountCreateCmd.MarkFlagRequired("name")
	accountCreateCmd.MarkFlagRequired("type")

	accountListCmd.Flags().BoolVar(&acctListAll, "all", false, "Include inactive accounts")
	accountTreeCmd.Flags().BoolVar(&acctListAll, "all", false, "Include inactive accounts")

	accountLedgerCmd.Flags().StringVar(&acctLedgerFrom, "from", "", "Start date (YYYY-MM-DD)")
	accountLedgerCmd.Flags().StringVar(&acctLedgerTo, "to", "", "End date (YYYY-MM-DD)")
	accountLedgerCmd.Flags().StringVar(&acctLedgerProperty, "property", "", "Property ID")

	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountTreeCmd)
	accountCmd.AddCommand(accountGetCmd)
	accountCmd.AddCommand(accountUpdateCmd)
	accountCmd.AddCommand(activeCmd("activate", "Reactivate an account", true))
	accountCmd.AddCommand(activeCmd("deactivate", "Deactivate an account", false))
	accountCmd.AddCommand(accountDeleteCmd)
	accountCmd.AddCommand(accountLedgerCmd)
	accountCmd.AddCommand(accountSeedCmd)

	rootCmd.AddCommand(accountCmd)
}
