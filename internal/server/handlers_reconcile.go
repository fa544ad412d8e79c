package server

import (
	"net/http"

	"github.com/simonvc/propledger/internal/ledger"
)

type startReconciliationRequest struct {
	AccountID              string      `json:"account_id"`
	StartDate              ledger.Date `json:"start_date"`
	EndDate                ledger.Date `json:"end_date"`
	StatementEndingBalance int64       `json:"statement_ending_balance"`
}

type matchRequest struct {
	ImportedRowID string `json:"imported_transaction_id"`
	JournalLineID string `json:"journal_entry_line_id"`
}

func (s *Server) listReconciliations(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListReconciliations(r.Context(), r.URL.Query().Get("account_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) startReconciliation(w http.ResponseWriter, r *http.Request) {
	var req startReconciliationRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.store.StartReconciliation(r.Context(), req.AccountID, req.StartDate, req.EndDate, req.StatementEndingBalance)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getReconciliation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetReconciliation(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) addMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.store.AddMatch(r.Context(), pathID(r, "id"), req.ImportedRowID, req.JournalLineID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) removeMatch(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.RemoveMatch(r.Context(), pathID(r, "id"), pathID(r, "matchId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) exclude(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.store.Exclude(r.Context(), pathID(r, "id"), req.ImportedRowID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) completeReconciliation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.CompleteReconciliation(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
