package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"reseller/internal/core"
	"reseller/internal/export"
	"reseller/internal/ledger"
	"reseller/internal/metrics"
	"reseller/internal/middleware/auth"
	"reseller/internal/middleware/trace"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready.Ping(r.Context()); err != nil {
			s.log.WarnContext(r.Context(), "Readiness check failed", "error", err)
			NewJSONResponse().
				Status(http.StatusServiceUnavailable).
				Body(map[string]string{"status": "unavailable"}).
				Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := core.Categories()
	out := make([]categoryResponse, len(cats))
	for i, c := range cats {
		out[i] = categoryResponse{Value: string(c), Label: c.Label()}
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	asOf, err := ParseAsOf(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.ledgerFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toLedgerResponse(l.View(asOf))).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	today := s.today()
	rec, err := req.toRecord(today)
	if err != nil {
		writeError(w, r, err)
		return
	}

	l, err := s.ledgerFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := l.Create(r.Context(), rec)
	if err != nil {
		metrics.IncLedgerError("create")
		writeError(w, r, err)
		return
	}

	s.log.InfoContext(r.Context(), "Expense created",
		"request_id", trace.GetRequestID(r.Context()),
		"owner_id", stored.OwnerID,
		"id", stored.ID)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+stored.ID).
		Body(toExpenseResponse(stored, today)).
		Write(w)
}

// handleGetExpense reads a record straight from the store. Records of other
// owners are reported as missing.
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	asOf, err := ParseAsOf(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, auth.ErrNoSession)
		return
	}

	rec, err := s.records.GetExpense(r.Context(), mux.Vars(r)["id"])
	if err == nil && rec.OwnerID != user.ID {
		err = ledger.ErrNotFound
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toExpenseResponse(rec, asOf)).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req patchExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	l, err := s.ledgerFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := l.Update(r.Context(), id, patch)
	if err != nil {
		metrics.IncLedgerError("update")
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toExpenseResponse(updated, s.today())).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	l, err := s.ledgerFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := l.Delete(r.Context(), id); err != nil {
		metrics.IncLedgerError("delete")
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleRefetch(w http.ResponseWriter, r *http.Request) {
	asOf, err := ParseAsOf(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.ledgerFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := l.Refetch(r.Context()); err != nil {
		metrics.IncLedgerError("refetch")
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toLedgerResponse(l.View(asOf))).Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	asOf, err := ParseAsOf(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.ledgerFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body := export.Expenses(l.Expenses(), asOf)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="expenses-%s.csv"`, asOf))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// handleProfit combines caller-supplied revenue figures with the ledger's
// expense total.
func (s *Server) handleProfit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	asOf, err := ParseAsOf(q, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.ledgerFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	revenue := core.ParseAmount(strings.TrimSpace(q.Get("revenue")))
	productCost := core.ParseAmount(strings.TrimSpace(q.Get("productCost")))
	report := core.Profit(revenue, productCost, l.Summary(asOf).Total)
	NewJSONResponse().Body(toProfitResponse(report, asOf)).Write(w)
}
