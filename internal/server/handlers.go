package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/apperr"
	"github.com/afadil/wealthfolio-sub004/internal/calendarutil"
	"github.com/afadil/wealthfolio-sub004/internal/events"
	"github.com/afadil/wealthfolio-sub004/internal/ledger"
)

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the engine is wired and able to serve reads.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		s.writeError(w, apperr.Internal("engine not initialized", nil))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleAccountHoldings serves GET /api/accounts/{accountID}/holdings.
func (s *Server) handleAccountHoldings(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	held, err := s.engine.GetHoldings(r.Context(), accountID)
	if err != nil {
		s.writeError(w, apperr.Internal("loading holdings", err))
		return
	}
	s.writeJSON(w, http.StatusOK, held)
}

// handleTotalHoldings serves GET /api/portfolio/total/holdings, an alias
// for GET /api/accounts/TOTAL/holdings.
func (s *Server) handleTotalHoldings(w http.ResponseWriter, r *http.Request) {
	held, err := s.engine.GetHoldings(r.Context(), "TOTAL")
	if err != nil {
		s.writeError(w, apperr.Internal("loading holdings", err))
		return
	}
	s.writeJSON(w, http.StatusOK, held)
}

// handleAccountValuations serves GET /api/accounts/{accountID}/valuations?start=&end=.
func (s *Server) handleAccountValuations(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	start, err := parseOptionalDate(r.URL.Query().Get("start"))
	if err != nil {
		s.writeError(w, apperr.InvalidInput(err.Error()))
		return
	}
	end, err := parseOptionalDate(r.URL.Query().Get("end"))
	if err != nil {
		s.writeError(w, apperr.InvalidInput(err.Error()))
		return
	}

	rows, err := s.engine.GetValuations(r.Context(), accountID, start, end)
	if err != nil {
		s.writeError(w, apperr.Internal("loading valuations", err))
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// handleAccountAllocations serves GET /api/accounts/{accountID}/allocations.
func (s *Server) handleAccountAllocations(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	allocations, err := s.engine.GetAllocations(r.Context(), accountID)
	if err != nil {
		s.writeError(w, apperr.Internal("loading allocations", err))
		return
	}
	s.writeJSON(w, http.StatusOK, allocations)
}

// handleQuoteSyncState serves GET /api/quotes/sync-state.
func (s *Server) handleQuoteSyncState(w http.ResponseWriter, r *http.Request) {
	states, err := s.engine.ListQuoteSyncStates(r.Context())
	if err != nil {
		s.writeError(w, apperr.Internal("loading quote sync state", err))
		return
	}
	s.writeJSON(w, http.StatusOK, states)
}

// activityRequest is the decimal-safe JSON body for POST /api/activities.
type activityRequest struct {
	AccountID string          `json:"account_id"`
	Type      string          `json:"type"`
	Date      string          `json:"date"`
	AssetID   string          `json:"asset_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	Currency  string          `json:"currency"`
}

// handleSaveActivity serves POST /api/activities, persisting one activity
// and emitting ActivitySaved so the event worker recomputes the account.
func (s *Server) handleSaveActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	if req.AccountID == "" {
		s.writeError(w, apperr.InvalidInput("account_id is required"))
		return
	}

	date, err := calendarutil.ParseDate(req.Date)
	if err != nil {
		s.writeError(w, apperr.InvalidInput(err.Error()))
		return
	}

	activity := ledger.Activity{
		AccountID: req.AccountID,
		Type:      ledger.ActivityType(req.Type),
		Date:      date,
		AssetID:   req.AssetID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Amount:    req.Amount,
		Fee:       req.Fee,
		Currency:  req.Currency,
	}

	saved, err := s.engine.RecordActivity(r.Context(), activity)
	if err != nil {
		s.writeError(w, apperr.Internal("saving activity", err))
		return
	}

	if s.sink != nil {
		s.sink.Emit(events.ActivitySaved{AccountID: saved.AccountID})
	}

	s.writeJSON(w, http.StatusCreated, saved)
}

// handleImportCSV serves POST /api/imports/csv?account_id=, importing a
// CsvImport keyframe snapshot and emitting ActivitiesImported.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		s.writeError(w, apperr.InvalidInput("account_id query parameter is required"))
		return
	}

	result, err := s.engine.ImportCSV(r.Context(), accountID, r.Body)
	if err != nil {
		s.writeError(w, apperr.InvalidInput(err.Error()))
		return
	}

	if s.sink != nil && len(result.Snapshots) > 0 {
		s.sink.Emit(events.ActivitiesImported{AccountIDs: []string{accountID}})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots_written": len(result.Snapshots),
		"row_errors":        result.Errors,
	})
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := calendarutil.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// writeError maps an apperr.Error's Kind to an HTTP status, per §7's
// validation->400, not-found->404, internal->500 policy.
func (s *Server) writeError(w http.ResponseWriter, err *apperr.Error) {
	s.writeJSON(w, apperr.HTTPStatus(err.Kind), map[string]string{"error": err.Error()})
}
