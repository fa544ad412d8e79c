package cmd

import (
	"github.com/spf13/cobra"

	"github.com/simonvc/propledger/internal/client"
	"github.com/simonvc/propledger/internal/config"
	"github.com/simonvc/propledger/internal/ledger"
)

var (
	flagConfig string
	flagServer string
	flagDB     string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "propledger",
	Short: "Double-entry ledger for property management",
	Long:  "A double-entry ledger backed by SQLite with recurring transactions, bank statement import and reconciliation.",

	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("server") {
			loaded.Server.URL = flagServer
		}
		if cmd.Flags().Changed("db") {
			loaded.Database.Path = flagDB
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8888", "Server address")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "propledger.db", "SQLite database path")
}

func Execute() error {
	return rootCmd.Execute()
}

func newClient() *client.Client {
	return client.New(cfg.Server.URL)
}

func parseAmount(s string) (int64, error) {
	return ledger.ToMinorUnits(s, cfg.Ledger.Currency)
}

func formatAmount(amount int64) string {
	return ledger.FormatAmount(amount, cfg.Ledger.Currency)
}

// parseDate accepts an empty string as "not set".
func parseDate(s string) (ledger.Date, error) {
	if s == "" {
		return ledger.Date{}, nil
	}
	return ledger.ParseDate(s)
}

func parsePeriod(from, to, property string) (ledger.ReportFilter, error) {
	f := ledger.ReportFilter{PropertyID: property}
	var err error
	if f.DateFrom, err = parseDate(from); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate(to); err != nil {
		return f, err
	}
	return f, nil
}

// truncate shortens s to n runes, marking the cut with "..".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-2]) + ".."
	}
	return s
}
