package server

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/simonvc/propledger/internal/ledger"
	"github.com/simonvc/propledger/internal/store"
)

type Server struct {
	store  *store.Store
	router chi.Router
	addr   string
	log    *slog.Logger
}

func New(st *store.Store, addr string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	s := &Server{store: st, router: r, addr: addr, log: log}

	r.Route("/api/v1", func(r chi.Router) {
		// Chart of accounts
		r.Get("/accounts", s.listAccounts)
		r.Get("/accounts/tree", s.accountTree)
		r.Post("/accounts", s.createAccount)
		r.Get("/accounts/{id}", s.getAccount)
		r.Patch("/accounts/{id}", s.updateAccount)
		r.Delete("/accounts/{id}", s.deleteAccount)
		r.Post("/accounts/{id}/activate", s.setAccountActive(true))
		r.Post("/accounts/{id}/deactivate", s.setAccountActive(false))
		r.Get("/accounts/{id}/ledger", s.accountLedger)
		r.Get("/chart", s.getChart)
		r.Post("/chart/seed", s.seedChart)

		// Journal
		r.Get("/journal-entries", s.listEntries)
		r.Post("/journal-entries", s.createEntry)
		r.Post("/journal-entries/income", s.record(ledger.RecordIncome))
		r.Post("/journal-entries/expense", s.record(ledger.RecordExpense))
		r.Post("/journal-entries/transfer", s.record(ledger.RecordTransfer))
		r.Get("/journal-entries/{id}", s.getEntry)
		r.Put("/journal-entries/{id}/lines", s.updateLines)
		r.Post("/journal-entries/{id}/post", s.postEntry)
		r.Post("/journal-entries/{id}/reverse", s.reverseEntry)
		r.Post("/journal-entries/{id}/void", s.voidEntry)

		// Recurring templates
		r.Get("/recurring", s.listTemplates)
		r.Post("/recurring", s.createTemplate)
		r.Post("/recurring/run-due", s.runDue)
		r.Get("/recurring/{id}", s.getTemplate)
		r.Patch("/recurring/{id}", s.updateTemplate)
		r.Delete("/recurring/{id}", s.deleteTemplate)
		r.Post("/recurring/{id}/run", s.runTemplate)
		r.Post("/recurring/{id}/toggle", s.toggleTemplate)

		// Statement import
		r.Get("/imports", s.listBatches)
		r.Post("/imports", s.uploadBatch)
		r.Post("/imports/detect-mapping", s.detectMapping)
		r.Get("/imports/{id}", s.getBatch)
		r.Post("/imports/{id}/mapping", s.confirmMapping)
		r.Post("/imports/{id}/book", s.bookBatch)
		r.Patch("/import-rows/{id}", s.updateRow)
		r.Post("/import-rows/bulk-approve", s.bulkApprove)

		// Classification rules
		r.Get("/rules", s.listRules)
		r.Post("/rules", s.createRule)
		r.Post("/rules/classify", s.classify)
		r.Get("/rules/{id}", s.getRule)
		r.Patch("/rules/{id}", s.updateRule)
		r.Delete("/rules/{id}", s.deleteRule)

		// Reconciliation
		r.Get("/reconciliations", s.listReconciliations)
		r.Post("/reconciliations", s.startReconciliation)
		r.Get("/reconciliations/{id}", s.getReconciliation)
		r.Post("/reconciliations/{id}/matches", s.addMatch)
		r.Delete("/reconciliations/{id}/matches/{matchId}", s.removeMatch)
		r.Post("/reconciliations/{id}/exclusions", s.exclude)
		r.Post("/reconciliations/{id}/complete", s.completeReconciliation)

		// Reports
		r.Get("/reports/profit-and-loss", s.profitAndLoss)
		r.Get("/reports/balance-sheet", s.balanceSheet)
		r.Get("/reports/cash-flow", s.cashFlow)
		r.Get("/reports/trial-balance", s.trialBalance)
		r.Get("/reports/general-ledger", s.generalLedger)
		r.Get("/reports/tax-summary", s.taxSummary)
		r.Get("/reports/owner-statements", s.ownerStatements)
	})

	return s
}

func (s *Server) ListenAndServe() error {
	s.log.Info("propledger server listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.router)
}

func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("propledger server listening", "addr", ln.Addr().String())
	return http.Serve(ln, s.router)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
