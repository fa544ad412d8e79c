package server

import (
	"net/http"

	"github.com/simonvc/propledger/internal/ledger"
)

type createTemplateRequest struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Frequency       ledger.Frequency `json:"frequency"`
	Amount          int64            `json:"amount"`
	DebitAccountID  string           `json:"debit_account_id"`
	CreditAccountID string           `json:"credit_account_id"`
	PropertyID      string           `json:"property_id,omitempty"`
	StartDate       ledger.Date      `json:"start_date"`
	EndDate         ledger.Date      `json:"end_date"`
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.store.CreateTemplate(r.Context(), &ledger.RecurringTemplate{
		Name:            req.Name,
		Description:     req.Description,
		Frequency:       req.Frequency,
		Amount:          req.Amount,
		DebitAccountID:  req.DebitAccountID,
		CreditAccountID: req.CreditAccountID,
		PropertyID:      req.PropertyID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTemplate(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var patch ledger.TemplatePatch
	if err := decode(r, &patch, false); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.store.UpdateTemplate(r.Context(), pathID(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTemplate(r.Context(), pathID(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.ToggleTemplate(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) runTemplate(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.RunTemplate(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) runDue(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.RunAllDue(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
