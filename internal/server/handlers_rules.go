package server

import (
	"net/http"

	"github.com/simonvc/propledger/internal/ledger"
)

type createRuleRequest struct {
	Name       string            `json:"name"`
	MatchField ledger.MatchField `json:"match_field"`
	MatchType  ledger.MatchType  `json:"match_type"`
	MatchValue string            `json:"match_value"`
	CategoryID string            `json:"category_id"`
	PropertyID string            `json:"property_id,omitempty"`
	Priority   int               `json:"priority"`
	IsActive   *bool             `json:"is_active,omitempty"`
}

type classifyRequest struct {
	Description string `json:"description"`
	Reference   string `json:"reference"`
}

type classifyResponse struct {
	Rule *ledger.ClassificationRule `json:"rule"`
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.ListRules(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.MatchField == "" {
		req.MatchField = ledger.MatchFieldDescription
	}
	active := req.IsActive == nil || *req.IsActive
	rule, err := s.store.CreateRule(r.Context(), &ledger.ClassificationRule{
		Name:       req.Name,
		MatchField: req.MatchField,
		MatchType:  req.MatchType,
		MatchValue: req.MatchValue,
		CategoryID: req.CategoryID,
		PropertyID: req.PropertyID,
		Priority:   req.Priority,
		IsActive:   active,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.store.GetRule(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	var patch ledger.RulePatch
	if err := decode(r, &patch, false); err != nil {
		s.fail(w, r, err)
		return
	}
	rule, err := s.store.UpdateRule(r.Context(), pathID(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRule(r.Context(), pathID(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// classify reports which active rule would categorise a row, without
// touching any batch.
func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	rule, err := s.store.Classify(r.Context(), &ledger.ImportedRow{Description: req.Description, Reference: req.Reference})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, classifyResponse{Rule: rule})
}
