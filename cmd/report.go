package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonvc/propledger/internal/ledger"
)

var (
	reportFrom     string
	reportTo       string
	reportAsOf     string
	reportProperty string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Financial reports",
}

var balanceSheetCmd = &cobra.Command{
	Use:     "balance",
	Aliases: []string{"balance-sheet"},
	Short:   "Show balance sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := parseDate(reportAsOf)
		if err != nil {
			return err
		}
		bs, err := newClient().BalanceSheet(context.Background(), asOf, reportProperty)
		if err != nil {
			return err
		}
		printBalanceSheet(bs)
		return nil
	},
}

var trialBalanceCmd = &cobra.Command{
	Use:   "trial",
	Short: "Show trial balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := parseDate(reportAsOf)
		if err != nil {
			return err
		}
		tb, err := newClient().TrialBalance(context.Background(), asOf)
		if err != nil {
			return err
		}
		printTrialBalance(tb)
		return nil
	},
}

var profitAndLossCmd = &cobra.Command{
	Use:     "pl",
	Aliases: []string{"profit-and-loss"},
	Short:   "Show profit and loss for a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := parsePeriod(reportFrom, reportTo, reportProperty)
		if err != nil {
			return err
		}
		pl, err := newClient().ProfitAndLoss(context.Background(), f)
		if err != nil {
			return err
		}
		printProfitAndLoss(pl)
		return nil
	},
}

var cashFlowCmd = &cobra.Command{
	Use:   "cash-flow",
	Short: "Show cash movement by source",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := parsePeriod(reportFrom, reportTo, reportProperty)
		if err != nil {
			return err
		}
		cf, err := newClient().CashFlow(context.Background(), f)
		if err != nil {
			return err
		}
		w := 70
		fmt.Println()
		fmt.Println(center("CASH FLOW", w))
		fmt.Println(center(periodLabel(cf.DateFrom, cf.DateTo), w))
		fmt.Println()
		fmt.Printf("  %-20s %15s %15s %15s\n", "SOURCE", "INFLOW", "OUTFLOW", "NET")
		fmt.Printf("  %s\n", strings.Repeat("─", w-4))
		for _, l := range cf.Lines {
			fmt.Printf("  %-20s %15s %15s %15s\n", l.SourceType, formatAmount(l.Inflow), formatAmount(l.Outflow), formatSigned(l.Net))
		}
		fmt.Printf("  %s\n", strings.Repeat("─", w-4))
		fmt.Printf("  %-20s %15s %15s %15s\n", "TOTAL", formatAmount(cf.TotalInflow), formatAmount(cf.TotalOutflow), formatSigned(cf.NetChange))
		return nil
	},
}

var generalLedgerCmd = &cobra.Command{
	Use:   "general-ledger",
	Short: "Show every account's ledger for a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := parsePeriod(reportFrom, reportTo, reportProperty)
		if err != nil {
			return err
		}
		gl, err := newClient().GeneralLedger(context.Background(), f)
		if err != nil {
			return err
		}
		for _, a := range gl.Accounts {
			fmt.Printf("\n%s %s\n", a.Account.Code, a.Account.Name)
			for _, l := range a.Lines {
				fmt.Printf("  %-10s %-36s %12s %12s %14s\n",
					l.EntryDate, truncate(l.Memo, 36), blankZero(l.Debit), blankZero(l.Credit), formatSigned(l.RunningBalance))
			}
			fmt.Printf("  %-47s %12s %12s %14s\n", "TOTALS",
				formatAmount(a.TotalDebit), formatAmount(a.TotalCredit), formatSigned(a.EndingBalance))
		}
		return nil
	},
}

var taxSummaryCmd = &cobra.Command{
	Use:   "tax",
	Short: "Show taxable income by account",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := parsePeriod(reportFrom, reportTo, reportProperty)
		if err != nil {
			return err
		}
		ts, err := newClient().TaxSummary(context.Background(), f)
		if err != nil {
			return err
		}
		w := 60
		fmt.Println()
		fmt.Println(center("TAX SUMMARY", w))
		fmt.Println(center(periodLabel(ts.DateFrom, ts.DateTo), w))
		fmt.Println()
		for _, l := range ts.Lines {
			fmt.Printf("  %-6s %-*s%15s\n", l.AccountCode, w-24, truncate(l.AccountName, w-24), formatSigned(l.Amount))
		}
		types := make([]string, 0, len(ts.ByType))
		for t := range ts.ByType {
			types = append(types, string(t))
		}
		sort.Strings(types)
		fmt.Printf("  %s\n", strings.Repeat("─", w-4))
		for _, t := range types {
			fmt.Printf("  %-*s%15s\n", w-17, "Total "+t, formatSigned(ts.ByType[ledger.AccountType(t)]))
		}
		fmt.Printf("  %-*s%15s\n", w-17, "Taxable income", formatSigned(ts.TaxableIncome))
		return nil
	},
}

var ownerStatementsCmd = &cobra.Command{
	Use:   "owners",
	Short: "Show income and expenses per property",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := parsePeriod(reportFrom, reportTo, "")
		if err != nil {
			return err
		}
		owners, err := newClient().OwnerStatements(context.Background(), f)
		if err != nil {
			return err
		}
		if len(owners.Statements) == 0 {
			fmt.Println("No property activity found.")
			return nil
		}
		fmt.Printf("%-36s %15s %15s %15s\n", "PROPERTY", "INCOME", "EXPENSES", "NET")
		fmt.Printf("%-36s %15s %15s %15s\n", "--------", "------", "--------", "---")
		for _, s := range owners.Statements {
			fmt.Printf("%-36s %15s %15s %15s\n", s.PropertyID, formatAmount(s.Income), formatAmount(s.Expenses), formatSigned(s.Net))
		}
		return nil
	},
}

func printProfitAndLoss(pl *ledger.ProfitAndLoss) {
	w := 60
	fmt.Println()
	fmt.Println(center("PROFIT AND LOSS", w))
	fmt.Println(center(periodLabel(pl.DateFrom, pl.DateTo), w))
	fmt.Println()

	printSection("REVENUE", pl.Revenue, w)
	fmt.Printf("%*s%s\n", w-15, "", "─────────────")
	fmt.Printf("%-*s%15s\n", w-15, "Total Revenue", formatSigned(pl.TotalRevenue))
	fmt.Println()

	printSection("EXPENSES", pl.Expenses, w)
	fmt.Printf("%*s%s\n", w-15, "", "─────────────")
	fmt.Printf("%-*s%15s\n", w-15, "Total Expenses", formatSigned(pl.TotalExpense))
	fmt.Println()

	fmt.Printf("%*s%s\n", w-15, "", "═════════════")
	fmt.Printf("%-*s%15s\n", w-15, "Net Income", formatSigned(pl.NetIncome))
}

func printBalanceSheet(bs *ledger.BalanceSheet) {
	w := 60
	fmt.Println()
	fmt.Println(center("BALANCE SHEET", w))
	fmt.Println(center("as of "+bs.AsOf.String(), w))
	fmt.Println()

	printSection("ASSETS", bs.Assets, w)
	fmt.Printf("%*s%s\n", w-15, "", "─────────────")
	fmt.Printf("%-*s%15s\n", w-15, "Total Assets", formatSigned(bs.TotalAssets))
	fmt.Println()

	printSection("LIABILITIES", bs.Liabilities, w)
	fmt.Printf("%*s%s\n", w-15, "", "─────────────")
	fmt.Printf("%-*s%15s\n", w-15, "Total Liabilities", formatSigned(bs.TotalLiabilities))
	fmt.Println()

	printSection("EQUITY", bs.Equity, w)
	fmt.Printf("  %-6s %-*s%15s\n", "", w-24, "Current Earnings", formatSigned(bs.CurrentEarnings))
	fmt.Printf("%*s%s\n", w-15, "", "─────────────")
	fmt.Printf("%-*s%15s\n", w-15, "Total Equity", formatSigned(bs.TotalEquity))
	fmt.Println()

	fmt.Printf("%*s%s\n", w-15, "", "═════════════")
	fmt.Printf("%-*s%15s\n", w-15, "Total L + E", formatSigned(bs.TotalLiabilities+bs.TotalEquity))

	if bs.Balanced {
		fmt.Println("\n  [BALANCED]")
	} else {
		fmt.Println("\n  [UNBALANCED!]")
	}
}

func printSection(title string, lines []ledger.AccountTotal, w int) {
	fmt.Printf("  %s\n", title)
	fmt.Printf("  %s\n", strings.Repeat("─", w-4))
	for _, l := range lines {
		fmt.Printf("  %-6s %-*s%15s\n", l.AccountCode, w-24, truncate(l.AccountName, w-24), formatSigned(l.Amount))
	}
}

func printTrialBalance(tb *ledger.TrialBalance) {
	w := 70
	fmt.Println()
	fmt.Println(center("TRIAL BALANCE", w))
	fmt.Println(center("as of "+tb.AsOf.String(), w))
	fmt.Println()

	fmt.Printf("  %-8s %-30s %15s %15s\n", "CODE", "NAME", "DEBIT", "CREDIT")
	fmt.Printf("  %-8s %-30s %15s %15s\n", "----", "----", "-----", "------")

	for _, l := range tb.Lines {
		fmt.Printf("  %-8s %-30s %15s %15s\n", l.AccountCode, truncate(l.AccountName, 30), blankZero(l.Debit), blankZero(l.Credit))
	}

	fmt.Printf("  %s\n", strings.Repeat("─", w-4))
	fmt.Printf("  %-39s %15s %15s\n", "TOTALS", formatAmount(tb.TotalDebit), formatAmount(tb.TotalCredit))

	if tb.Balanced {
		fmt.Println("\n  [BALANCED]")
	} else {
		fmt.Println("\n  [UNBALANCED!]")
	}
}

func periodLabel(from, to ledger.Date) string {
	switch {
	case from.IsZero() && to.IsZero():
		return "all dates"
	case from.IsZero():
		return "through " + to.String()
	case to.IsZero():
		return "from " + from.String()
	}
	return from.String() + " to " + to.String()
}

func center(s string, w int) string {
	if len(s) >= w {
		return s
	}
	pad := (w - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func formatSigned(amount int64) string {
	if amount < 0 {
		return "(" + formatAmount(-amount) + ")"
	}
	return formatAmount(amount)
}

func init() {
	for _, c := range []*cobra.Command{profitAndLossCmd, cashFlowCmd, generalLedgerCmd, taxSummaryCmd, ownerStatementsCmd} {
		c.Flags().StringVar(&reportFrom, "from", "", "Start date (YYYY-MM-DD)")
		c.Flags().StringVar(&reportTo, "to", "", "End date (YYYY-MM-DD)")
	}
	for _, c := range []*cobra.Command{balanceSheetCmd, trialBalanceCmd} {
		c.Flags().StringVar(&reportAsOf, "as-of", "", "Report date (YYYY-MM-DD, default today)")
	}
	for _, c := range []*cobra.Command{profitAndLossCmd, cashFlowCmd, generalLedgerCmd, taxSummaryCmd, balanceSheetCmd} {
		c.Flags().StringVar(&reportProperty, "property", "", "Property ID")
	}

	reportCmd.AddCommand(balanceSheetCmd)
	reportCmd.AddCommand(trialBalanceCmd)
	reportCmd.AddCommand(profitAndLossCmd)
	reportCmd.AddCommand(cashFlowCmd)
	reportCmd.AddCommand(generalLedgerCmd)
	reportCmd.AddCommand(taxSummaryCmd)
	reportCmd.AddCommand(ownerStatementsCmd)
	rootCmd.AddCommand(reportCmd)
}
