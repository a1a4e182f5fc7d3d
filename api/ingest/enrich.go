package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"FlujoCorpSaas/api/recon"
	"FlujoCorpSaas/api/recon/fxrate"
	"FlujoCorpSaas/api/recon/leadtime"
	"FlujoCorpSaas/api/recon/records"
	"FlujoCorpSaas/internal/config"
)

// EnrichPurchases runs the synchronous post-ingestion pass: project
// estimated dates for purchases lacking real ones, resolve due dates, and
// normalize material costs into the reporting currency. Resolution
// failures leave fields null and are flagged, never fatal.
func EnrichPurchases(ctx context.Context, pool *pgxpool.Pool) (records.BatchSummary, error) {
	store := recon.NewStore(pool)
	purchases, err := store.FetchPurchases(ctx)
	if err != nil {
		return records.BatchSummary{}, err
	}

	averages, summary := leadtime.SupplierAverages(purchases)

	batch := &pgx.Batch{}
	for _, p := range purchases {
		shipEst := p.ShipEstimated
		arrivalEst := p.ArrivalEst

		if p.ShipReal == nil || p.ArrivalReal == nil {
			avg, ok := averages[p.Supplier]
			if !ok {
				summary.Add(p.PurchaseID, records.FlagDateUnresolved,
					"no lead-time history for supplier %q", p.Supplier)
			} else {
				est := leadtime.EstimateDates(p.OrderDate, avg)
				if p.ShipReal == nil {
					shipEst = &est.Ship
				}
				if p.ArrivalReal == nil {
					arrivalEst = &est.Arrival
				}
			}
		}

		due := leadtime.DueDate(p.ShipReal, shipEst, p.CreditTermDays)
		if due == nil {
			summary.Add(p.PurchaseID, records.FlagDateUnresolved,
				"due date undefined: no ship date or credit term %d", p.CreditTermDays)
		}

		batch.Queue(`
			UPDATE compras
			SET ship_estimated = $2, arrival_estimated = $3, due_date = $4
			WHERE purchase_id = $1`,
			p.PurchaseID, shipEst, arrivalEst, due)

		for _, m := range p.Materials {
			unit, res := fxrate.Normalize(m.UnitCost, p.Currency, p.RateReal, p.RateEstimated, config.DefaultFXRate)
			total, _ := fxrate.Normalize(m.TotalCost, p.Currency, p.RateReal, p.RateEstimated, config.DefaultFXRate)
			if !res.Converted() {
				summary.Add(p.PurchaseID, records.FlagRateUnresolved,
					"no valid fx rate for %s material %s; cost left unconverted", p.Currency, m.MaterialID)
			}
			batch.Queue(`
				UPDATE compra_materiales
				SET unit_cost_reporting = $2, total_cost_reporting = $3, fx_outcome = $4
				WHERE material_id = $1`,
				m.MaterialID, unit, total, string(res.Outcome))
		}
	}

	br := pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return summary, fmt.Errorf("enrichment update %d failed: %w", i, err)
		}
	}
	return summary, nil
}
