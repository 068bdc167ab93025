package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kakeibo/internal/core"
)

type itemRequest struct {
	Event  string `json:"event"`
	Amount int64  `json:"amount"`
	Kind   string `json:"kind"`
	Memo   string `json:"memo"`
	Date   string `json:"date"`
}

func (req itemRequest) toInput() (core.ItemInput, error) {
	in := core.ItemInput{
		Event:  strings.TrimSpace(req.Event),
		Amount: req.Amount,
		Kind:   core.Kind(req.Kind),
		Memo:   strings.TrimSpace(req.Memo),
	}
	if req.Date != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			return core.ItemInput{}, err
		}
		in.CreatedAt = d
	}
	return in, nil
}

// parseFilter reads kind, startDate, and endDate query values. Unparseable
// values are rejected rather than silently ignored.
func parseFilter(q url.Values) (core.Filter, error) {
	var f core.Filter

	kind, err := core.ParseKindFilter(q.Get("kind"))
	if err != nil {
		return core.Filter{}, err
	}
	f.Kind = kind

	if v := q.Get("startDate"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, err
		}
		f.StartDate = d
	}
	if v := q.Get("endDate"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, err
		}
		f.EndDate = d
	}

	return f, nil
}

// handleItems serves the collection: GET lists with optional filters,
// POST creates.
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalFromContext(r.Context())
	if !ok {
		writeError(r.Context(), w, core.ErrUnauthenticated)
		return
	}

	switch r.Method {
	case http.MethodGet:
		f, err := parseFilter(r.URL.Query())
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		items, err := s.ledger.ListItems(r.Context(), userID, f)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)

	case http.MethodPost:
		var req itemRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		item, err := s.ledger.CreateItem(r.Context(), userID, in)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// handleItemByID serves a single item addressed by path: GET, PUT, DELETE.
func (s *Server) handleItemByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalFromContext(r.Context())
	if !ok {
		writeError(r.Context(), w, core.ErrUnauthenticated)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/items/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(r.Context(), w, core.ErrNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, err := s.ledger.GetItem(r.Context(), userID, id)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)

	case http.MethodPut:
		var req itemRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		item, err := s.ledger.UpdateItem(r.Context(), userID, id, in)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)

	case http.MethodDelete:
		if err := s.ledger.DeleteItem(r.Context(), userID, id); err != nil {
			writeError(r.Context(), w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, "GET, PUT, DELETE")
	}
}

// handleSummary returns income, expense, and balance totals over an
// optional filter window.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	userID, ok := principalFromContext(r.Context())
	if !ok {
		writeError(r.Context(), w, core.ErrUnauthenticated)
		return
	}

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	summary, err := s.ledger.Summary(r.Context(), userID, f)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
