package server

import (
	"io"
	"net/http"

	"github.com/simonvc/propledger/internal/ledger"
)

const maxUploadSize = 10 << 20

type detectMappingRequest struct {
	Headers []string `json:"headers"`
}

type bulkApproveRequest struct {
	RowIDs            []string `json:"row_ids"`
	DefaultCategoryID string   `json:"default_category_id,omitempty"`
}

func (s *Server) listBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.store.ListBatches(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

// uploadBatch takes a multipart form with the statement in "file" and the
// bank account in "account_id".
func (s *Server) uploadBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.fail(w, r, ledger.Validationf("invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, ledger.Validationf("file is required"))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, ledger.Validationf("reading upload: %v", err))
		return
	}

	b, err := s.store.CreateBatch(r.Context(), r.FormValue("account_id"), header.Filename, content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) detectMapping(w http.ResponseWriter, r *http.Request) {
	var req detectMappingRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger.DetectMapping(req.Headers))
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.GetBatch(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) confirmMapping(w http.ResponseWriter, r *http.Request) {
	var m ledger.ColumnMapping
	if err := decode(r, &m, false); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.store.ConfirmMapping(r.Context(), pathID(r, "id"), m)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) updateRow(w http.ResponseWriter, r *http.Request) {
	var patch ledger.RowPatch
	if err := decode(r, &patch, false); err != nil {
		s.fail(w, r, err)
		return
	}
	row, err := s.store.UpdateRow(r.Context(), pathID(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) bulkApprove(w http.ResponseWriter, r *http.Request) {
	var req bulkApproveRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.RowIDs) == 0 {
		s.fail(w, r, ledger.Validationf("row_ids is required"))
		return
	}
	res, err := s.store.BulkApprove(r.Context(), req.RowIDs, req.DefaultCategoryID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) bookBatch(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.Book(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
