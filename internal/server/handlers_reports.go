package server

import "net/http"

func (s *Server) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	f, err := queryPeriod(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pl, err := s.store.ProfitAndLoss(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bs, err := s.store.BalanceSheet(r.Context(), asOf, r.URL.Query().Get("property_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

func (s *Server) cashFlow(w http.ResponseWriter, r *http.Request) {
	f, err := queryPeriod(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cf, err := s.store.CashFlow(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cf)
}

func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tb, err := s.store.TrialBalance(r.Context(), asOf)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tb)
}

func (s *Server) generalLedger(w http.ResponseWriter, r *http.Request) {
	f, err := queryPeriod(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	gl, err := s.store.GeneralLedger(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gl)
}

func (s *Server) taxSummary(w http.ResponseWriter, r *http.Request) {
	f, err := queryPeriod(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ts, err := s.store.TaxSummary(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) ownerStatements(w http.ResponseWriter, r *http.Request) {
	f, err := queryPeriod(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	statements, err := s.store.OwnerStatements(r.Context(), f.DateFrom, f.DateTo)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statements)
}
