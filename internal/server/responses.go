package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/simonvc/propledger/internal/ledger"
)

type errorResponse struct {
	Error string      `json:"error"`
	Kind  ledger.Kind `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error(), Kind: ledger.KindOf(err)}
	if status == http.StatusInternalServerError {
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

// fail maps err to a status and writes it. Unclassified errors are logged
// and hidden from the caller.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := mapError(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeError(w, status, err)
}

func mapError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrConflict), errors.Is(err, ledger.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrPrecondition):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func decode(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return ledger.Validationf("invalid JSON: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) string {
	id, _ := url.PathUnescape(chi.URLParam(r, name))
	return id
}

func queryDate(r *http.Request, name string) (ledger.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return ledger.Date{}, nil
	}
	d, err := ledger.ParseDate(v)
	if err != nil {
		return ledger.Date{}, ledger.Validationf("%s: %v", name, err)
	}
	return d, nil
}

func queryBool(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "true" || v == "1"
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, ledger.Validationf("%s must be a non-negative integer", name)
	}
	return n, nil
}

// queryPeriod reads date_from, date_to and property_id.
func queryPeriod(r *http.Request) (ledger.ReportFilter, error) {
	from, err := queryDate(r, "date_from")
	if err != nil {
		return ledger.ReportFilter{}, err
	}
	to, err := queryDate(r, "date_to")
	if err != nil {
		return ledger.ReportFilter{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return ledger.ReportFilter{}, ledger.Validationf("date_to %s is before date_from %s", to, from)
	}
	return ledger.ReportFilter{DateFrom: from, DateTo: to, PropertyID: r.URL.Query().Get("property_id")}, nil
}
