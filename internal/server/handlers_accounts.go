package server

import (
	"net/http"

	"github.com/simonvc/propledger/internal/ledger"
)

type createAccountRequest struct {
	Code          string               `json:"code"`
	Name          string               `json:"name"`
	Type          ledger.AccountType   `json:"account_type"`
	NormalBalance ledger.NormalBalance `json:"normal_balance,omitempty"`
	ParentID      string               `json:"parent_id,omitempty"`
	IsHeader      bool                 `json:"is_header,omitempty"`
	Description   string               `json:"description,omitempty"`
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	acct, err := s.store.CreateAccount(r.Context(), &ledger.Account{
		Code:          req.Code,
		Name:          req.Name,
		Type:          req.Type,
		NormalBalance: req.NormalBalance,
		ParentID:      req.ParentID,
		IsHeader:      req.IsHeader,
		Description:   req.Description,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context(), queryBool(r, "include_inactive"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []ledger.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) accountTree(w http.ResponseWriter, r *http.Request) {
	roots, err := s.store.AccountTree(r.Context(), queryBool(r, "include_inactive"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if roots == nil {
		roots = []ledger.Account{}
	}
	writeJSON(w, http.StatusOK, roots)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.store.GetAccount(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	var patch ledger.AccountPatch
	if err := decode(r, &patch, false); err != nil {
		s.fail(w, r, err)
		return
	}
	acct, err := s.store.UpdateAccount(r.Context(), pathID(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) setAccountActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct, err := s.store.SetAccountActive(r.Context(), pathID(r, "id"), active)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, acct)
	}
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAccount(r.Context(), pathID(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) accountLedger(w http.ResponseWriter, r *http.Request) {
	f, err := queryPeriod(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	l, err := s.store.LedgerFor(r.Context(), pathID(r, "id"), ledger.LedgerFilter{
		DateFrom: f.DateFrom, DateTo: f.DateTo, PropertyID: f.PropertyID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) getChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ledger.DefaultChart)
}

func (s *Server) seedChart(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.SeedDefaultChart(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": n})
}
