package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/buyawarranty/warranty-quote/internal/model"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
	"github.com/buyawarranty/warranty-quote/internal/store"
)

// quoteRequest is the plan-step form: flag maps as the funnel sends them.
// A nil Excess means the default excess.
type quoteRequest struct {
	Period           int                `json:"paymentPeriod"`
	Excess           *int               `json:"voluntaryExcess"`
	ClaimLimit       int                `json:"claimLimit"`
	SelectedAddOns   map[string]bool    `json:"selectedAddOns"`
	ProtectionAddOns map[string]bool    `json:"protectionAddOns"`
	Vehicle          *model.VehicleData `json:"vehicle"`
}

func (q quoteRequest) selection() (pricing.Selection, error) {
	period := pricing.Period(q.Period)
	if q.Period == 0 {
		period = pricing.DefaultPeriod
	}
	if !period.Valid() {
		return pricing.Selection{}, eris.Errorf("unsupported payment period %d", q.Period)
	}
	excess := pricing.DefaultExcess
	if q.Excess != nil {
		excess = *q.Excess
	}
	limit := q.ClaimLimit
	if limit == 0 {
		limit = pricing.DefaultClaimLimit
	}
	return pricing.NewSelection(period, excess, limit, q.SelectedAddOns, q.ProtectionAddOns), nil
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sel, err := req.selection()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.resolver.Resolve(sel, req.Vehicle))
}

// handleGrid prices every excess and claim limit for one period. The vehicle
// is described by query parameters.
func (s *server) handleGrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := quoteRequest{}
	if p := q.Get("period"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "period must be a number")
			return
		}
		req.Period = n
	}
	sel, err := req.selection()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, name := range splitList(q.Get("addons")) {
		if a, ok := pricing.ParseAddOn(name); ok {
			sel.AddOns = sel.AddOns.With(a)
		}
	}

	var v *model.VehicleData
	if q.Get("vehicle_type") != "" || q.Get("make") != "" || q.Get("fuel_type") != "" {
		v = &model.VehicleData{
			Make:     q.Get("make"),
			FuelType: q.Get("fuel_type"),
		}
		if vt := q.Get("vehicle_type"); vt != "" {
			v.VehicleType = model.ParseVehicleType(vt)
		}
	}
	writeJSON(w, http.StatusOK, s.resolver.Grid(sel, v))
}

type selectionRequest struct {
	Selection *pricing.Selection `json:"selection"`
	Events    []pricing.Event    `json:"events"`
	Vehicle   *model.VehicleData `json:"vehicle"`
}

type selectionResponse struct {
	Selection pricing.Selection `json:"selection"`
	Quote     pricing.Quote     `json:"quote"`
}

// handleSelection applies plan-step events to a selection and re-prices it.
func (s *server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sel := pricing.DefaultSelection()
	if req.Selection != nil {
		sel = req.Selection.Normalize()
	}
	for _, ev := range req.Events {
		if ev.Type == pricing.EventSetPeriod && !pricing.Period(ev.Value).Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported payment period %d", ev.Value))
			return
		}
	}
	if !sel.Period.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported payment period %d", int(sel.Period)))
		return
	}
	sel = pricing.ApplyAll(sel, req.Events...)
	writeJSON(w, http.StatusOK, selectionResponse{Selection: sel, Quote: s.resolver.Resolve(sel, req.Vehicle)})
}

type checkoutRequest struct {
	Handoff model.PlanHandoff `json:"handoff"`
	Vehicle model.VehicleData `json:"vehicle"`
}

func (s *server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Vehicle.RegNumber) == "" {
		writeError(w, http.StatusBadRequest, "vehicle.regNumber is required")
		return
	}
	fp, err := s.checkout.Finalize(r.Context(), req.Handoff, req.Vehicle)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fp)
}

func (s *server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AuditFilter{
		SyncStatus:   model.SyncStatus(q.Get("status")),
		Registration: model.VehicleData{RegNumber: q.Get("registration")}.NormalizedReg(),
	}
	if filter.SyncStatus != "" && !filter.SyncStatus.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(q.Get("status")))
		return
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a number")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be a number")
		return
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.CreatedAfter = t
	}

	recs, err := s.store.ListAudits(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if recs == nil {
		recs = []model.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetAudit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type syncRequest struct {
	Status model.SyncStatus `json:"status"`
	Error  string           `json:"error"`
}

// handleSyncAudit records the policy-admin outcome for an audit row.
func (s *server) handleSyncAudit(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")

	var err error
	switch req.Status {
	case model.SyncStatusSynced:
		err = s.checkout.MarkSynced(r.Context(), id)
	case model.SyncStatusFailed:
		var syncErr error
		if req.Error != "" {
			syncErr = errors.New(req.Error)
		}
		err = s.checkout.MarkFailed(r.Context(), id, syncErr)
	default:
		writeError(w, http.StatusBadRequest, "status must be synced or failed")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
