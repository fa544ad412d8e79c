package server

import (
	"net/http"

	"github.com/simonvc/propledger/internal/ledger"
)

type createEntryRequest struct {
	Memo       string               `json:"memo"`
	EntryDate  ledger.Date          `json:"entry_date"`
	SourceType ledger.SourceType    `json:"source_type,omitempty"`
	PropertyID string               `json:"property_id,omitempty"`
	Lines      []ledger.JournalLine `json:"lines"`
}

type linesRequest struct {
	Lines []ledger.JournalLine `json:"lines"`
}

type reverseRequest struct {
	Date ledger.Date `json:"date"`
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	period, err := queryPeriod(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	entries, err := s.store.ListEntries(r.Context(), ledger.EntryFilter{
		Status:     ledger.EntryStatus(q.Get("status")),
		SourceType: ledger.SourceType(q.Get("source_type")),
		PropertyID: period.PropertyID,
		AccountID:  q.Get("account_id"),
		DateFrom:   period.DateFrom,
		DateTo:     period.DateTo,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.EntryDate.IsZero() {
		req.EntryDate = s.store.Today()
	}
	e, err := s.store.CreateDraft(r.Context(), &ledger.JournalEntry{
		Memo:       req.Memo,
		EntryDate:  req.EntryDate,
		SourceType: req.SourceType,
		PropertyID: req.PropertyID,
		Lines:      req.Lines,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.GetEntry(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) updateLines(w http.ResponseWriter, r *http.Request) {
	var req linesRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	e, err := s.store.UpdateDraftLines(r.Context(), pathID(r, "id"), req.Lines)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) postEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.PostEntry(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) reverseEntry(w http.ResponseWriter, r *http.Request) {
	var req reverseRequest
	if err := decode(r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}
	e, err := s.store.ReverseEntry(r.Context(), pathID(r, "id"), req.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) voidEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.VoidEntry(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) record(kind ledger.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p ledger.RecordParams
		if err := decode(r, &p, false); err != nil {
			s.fail(w, r, err)
			return
		}
		e, err := s.store.Record(r.Context(), kind, p)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}
