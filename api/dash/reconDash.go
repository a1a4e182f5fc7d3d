package dash

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"FlujoCorpSaas/api"
	"FlujoCorpSaas/api/recon"
	"FlujoCorpSaas/api/recon/aging"
	"FlujoCorpSaas/api/recon/kpi"
	"FlujoCorpSaas/api/recon/records"
)

type periodRequest struct {
	Month    int      `json:"month"`
	Year     int      `json:"year"`
	OrderIDs []string `json:"order_ids"`
	AsOf     string   `json:"as_of"`
}

func (p periodRequest) filter() records.Filter {
	return records.Filter{OrderIDs: p.OrderIDs, Month: p.Month, Year: p.Year}
}

func (p periodRequest) asOf() (time.Time, error) {
	if p.AsOf == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	return time.Parse("2006-01-02", p.AsOf)
}

func decodePeriod(r *http.Request) (periodRequest, time.Time, error) {
	var req periodRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	asOf, err := req.asOf()
	return req, asOf, err
}

// computeSnapshot fetches the record set and aggregates it; every call
// recomputes from current rows, nothing is cached between requests.
func computeSnapshot(r *http.Request, pool *pgxpool.Pool, filter records.Filter, asOf time.Time) (*kpi.Snapshot, error) {
	ctx := r.Context()
	store := recon.NewStore(pool)
	orders, err := store.FetchOrders(ctx, records.Filter{})
	if err != nil {
		return nil, err
	}
	invoices, err := store.FetchInvoices(ctx, records.Filter{})
	if err != nil {
		return nil, err
	}
	collections, err := store.FetchCollections(ctx)
	if err != nil {
		return nil, err
	}
	cfdis, err := store.FetchCFDIRelations(ctx)
	if err != nil {
		return nil, err
	}
	purchases, err := store.FetchPurchases(ctx)
	if err != nil {
		return nil, err
	}
	return kpi.Aggregate(filter, asOf, orders, invoices, collections, cfdis, purchases)
}

// GetCollectionSummary returns expected vs actual collection for a period.
func GetCollectionSummary(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, asOf, err := decodePeriod(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		snap, err := computeSnapshot(r, pool, req.filter(), asOf)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":              true,
			"total_invoiced":       snap.TotalInvoiced,
			"total_collected":      snap.TotalCollected,
			"total_advances":       snap.TotalAdvances,
			"expected_uncollected": snap.ExpectedUncollected,
			"orders_settled":       snap.OrdersSettled,
			"orders_partial":       snap.OrdersPartial,
			"orders_unsettled":     snap.OrdersUnsettled,
			"summary":              snap.Summary.String(),
		})
	}
}

// GetAgingDashboard returns the overdue distribution plus undated exposure.
func GetAgingDashboard(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, asOf, err := decodePeriod(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		snap, err := computeSnapshot(r, pool, req.filter(), asOf)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// ordered rows for the frontend, one per bucket
		rows := make([]map[string]interface{}, 0, len(aging.Buckets)+1)
		for _, b := range aging.Buckets {
			rows = append(rows, map[string]interface{}{"bucket": b, "outstanding": snap.Aging.Buckets[b]})
		}
		rows = append(rows, map[string]interface{}{
			"bucket":      "undated",
			"outstanding": snap.Aging.Undated,
			"orders":      snap.Aging.UndatedOrders,
		})
		api.RespondWithPayload(w, true, "", rows)
	}
}

// GetWeeklyCashFlow returns outstanding amounts grouped by due-date ISO week.
func GetWeeklyCashFlow(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, asOf, err := decodePeriod(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		snap, err := computeSnapshot(r, pool, req.filter(), asOf)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", snap.WeeklyCashFlow)
	}
}

// GetSupplierLeadTimes returns the stored per-supplier averages, falling
// back to a live recompute when the table has not been populated yet.
func GetSupplierLeadTimes(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		store := recon.NewStore(pool)
		suppliers, err := store.FetchSuppliers(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if len(suppliers) > 0 {
			api.RespondWithPayload(w, true, "", suppliers)
			return
		}
		snapReq, asOf, err := decodePeriod(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		snap, err := computeSnapshot(r, pool, snapReq.filter(), asOf)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", snap.SupplierLeadTimes)
	}
}

// GetOrderSettlements returns the per-order settlement detail rows.
func GetOrderSettlements(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, asOf, err := decodePeriod(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		snap, err := computeSnapshot(r, pool, req.filter(), asOf)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := make([]map[string]interface{}, 0, len(snap.Allocations))
		for _, o := range snap.Allocations {
			row := map[string]interface{}{
				"order_id":         o.OrderID,
				"folio":            o.Folio,
				"net_amount":       o.NetAmount,
				"allocated":        o.Allocated,
				"outstanding":      o.Outstanding,
				"settlement_ratio": o.Ratio,
				"status":           o.Status,
			}
			if o.Approximate {
				row["approximate"] = true
			}
			if o.DueDate != nil {
				row["due_date"] = o.DueDate.Format("2006-01-02")
			} else {
				row["due_date"] = nil
			}
			out = append(out, row)
		}
		api.RespondWithPayload(w, true, "", out)
	}
}
