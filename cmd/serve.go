package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/simonvc/propledger/internal/server"
	"github.com/simonvc/propledger/internal/store"
)

var (
	serveAddr string
	serveSeed bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := cfg.Logger(os.Stderr)
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}

		st, err := store.Open(cfg.Database.Path,
			store.WithClock(cfg.Clock()),
			store.WithLogger(log),
			store.WithCurrency(cfg.Ledger.Currency),
		)
		if err != nil {
			return err
		}
		defer st.Close()

		if serveSeed {
			if _, err := st.SeedDefaultChart(cmd.Context()); err != nil {
				return err
			}
		}

		srv := server.New(st, cfg.Server.Addr, log)
		return srv.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8888", "Listen address")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "Seed the default chart of accounts into an empty database")
	rootCmd.AddCommand(serveCmd)
}
