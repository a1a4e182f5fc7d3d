package recon

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"FlujoCorpSaas/api"
	"FlujoCorpSaas/api/recon/allocation"
	"FlujoCorpSaas/api/recon/fxrate"
	"FlujoCorpSaas/api/recon/kpi"
	"FlujoCorpSaas/api/recon/leadtime"
	"FlujoCorpSaas/api/recon/records"
	"FlujoCorpSaas/internal/config"
)

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// NormalizeAmount converts one amount into the reporting currency and
// returns the resolution outcome alongside it.
func NormalizeAmount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount        float64  `json:"amount"`
			Currency      string   `json:"currency"`
			RateReal      *float64 `json:"rate_real"`
			RateEstimated *float64 `json:"rate_estimated"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Currency == "" {
			api.RespondWithError(w, http.StatusBadRequest, "amount and currency are required")
			return
		}
		amount, res := fxrate.Normalize(req.Amount, req.Currency, req.RateReal, req.RateEstimated, config.DefaultFXRate)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":            true,
			"amount":             amount,
			"reporting_currency": config.ReportingCurrency,
			"rate":               res.Rate,
			"outcome":            res.Outcome,
		})
	}
}

// GetSupplierAverages recomputes lead-time averages from the full history.
func GetSupplierAverages(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := NewStore(pool)
		purchases, err := store.FetchPurchases(r.Context())
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}
		averages, summary := leadtime.SupplierAverages(purchases)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":  true,
			"averages": averages,
			"summary":  summary.String(),
			"flags":    summary.Flags,
		})
	}
}

// EstimateOrderDates projects ship/arrival/destination and due dates for a
// supplier order that has no real dates yet.
func EstimateOrderDates(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Supplier       string `json:"supplier"`
			OrderDate      string `json:"order_date"`
			CreditTermDays int    `json:"credit_term_days"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Supplier == "" || req.OrderDate == "" {
			api.RespondWithError(w, http.StatusBadRequest, "supplier and order_date are required")
			return
		}
		orderDate, err := parseDate(req.OrderDate)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "order_date must be YYYY-MM-DD")
			return
		}

		store := NewStore(pool)
		purchases, err := store.FetchPurchases(r.Context())
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}
		averages, _ := leadtime.SupplierAverages(purchases)
		avg, ok := averages[req.Supplier]
		if !ok {
			api.RespondWithError(w, http.StatusNotFound, "no lead-time history for supplier "+req.Supplier)
			return
		}
		est := leadtime.EstimateDates(orderDate, avg)
		due := leadtime.DueDate(nil, &est.Ship, req.CreditTermDays)

		resp := map[string]interface{}{
			"success":               true,
			"ship_estimated":        est.Ship.Format("2006-01-02"),
			"arrival_estimated":     est.Arrival.Format("2006-01-02"),
			"destination_estimated": est.Destination.Format("2006-01-02"),
			"averages":              avg,
		}
		if due != nil {
			resp["due_estimated"] = due.Format("2006-01-02")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// RunAllocation links collections, invoices and orders and returns per-order
// settlement detail plus the flag summary. The record sets are fetched whole
// and narrowed together: a collection must only look orphaned when no
// invoice carries its UUID at all, never because its invoice fell outside
// the requested period.
func RunAllocation(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Filter records.Filter `json:"filter"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		ctx := r.Context()
		store := NewStore(pool)
		orders, err := store.FetchOrders(ctx, records.Filter{})
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}
		invoices, err := store.FetchInvoices(ctx, records.Filter{})
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}
		collections, err := store.FetchCollections(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}
		cfdis, err := store.FetchCFDIRelations(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}

		orders, invoices, collections, cfdis = kpi.FilterRecords(req.Filter, orders, invoices, collections, cfdis)
		result := allocation.Allocate(collections, cfdis, invoices, orders)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":  true,
			"orders":   result.Orders,
			"invoices": result.Invoices,
			"summary":  result.Summary.String(),
			"flags":    result.Summary.Flags,
		})
	}
}

// GetKPISnapshot computes the full KPI snapshot for the requested period.
func GetKPISnapshot(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Month    int      `json:"month"`
			Year     int      `json:"year"`
			OrderIDs []string `json:"order_ids"`
			AsOf     string   `json:"as_of"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		asOf := time.Now().UTC().Truncate(24 * time.Hour)
		if req.AsOf != "" {
			parsed, err := parseDate(req.AsOf)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
				return
			}
			asOf = parsed
		}
		filter := records.Filter{OrderIDs: req.OrderIDs, Month: req.Month, Year: req.Year}

		ctx := r.Context()
		store := NewStore(pool)
		orders, err := store.FetchOrders(ctx, records.Filter{})
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}
		invoices, err := store.FetchInvoices(ctx, records.Filter{})
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}
		collections, err := store.FetchCollections(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}
		cfdis, err := store.FetchCFDIRelations(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}
		purchases, err := store.FetchPurchases(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}

		snap, err := kpi.Aggregate(filter, asOf, orders, invoices, collections, cfdis, purchases)
		if err != nil {
			// Structural failure: an explicit error beats zeroed KPIs.
			api.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		api.LogInfo("kpi snapshot computed: %s", snap.Summary.String())
		api.RespondWithPayload(w, true, "", snap)
	}
}
