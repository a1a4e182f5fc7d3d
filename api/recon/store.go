package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"FlujoCorpSaas/api/recon/leadtime"
	"FlujoCorpSaas/api/recon/records"
)

// Store is the typed persistence boundary: the engine never builds SQL or
// holds connection state, it only receives already-fetched record slices.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const filterClause = `
	AND ($1 = 0 OR EXTRACT(MONTH FROM %[1]s) = $1)
	AND ($2 = 0 OR EXTRACT(YEAR FROM %[1]s) = $2)`

// FetchOrders returns orders matching the filter's period (by order date)
// and order-id set.
func (s *Store) FetchOrders(ctx context.Context, f records.Filter) ([]records.Order, error) {
	query := `
		SELECT order_id, customer, folio, order_date, quantity_kg, unit_price,
		       net_amount, credit_term_days, due_date
		FROM pedidos
		WHERE (cardinality($3::text[]) = 0 OR order_id = ANY($3))` +
		fmt.Sprintf(filterClause, "order_date") + `
		ORDER BY order_date, order_id`
	rows, err := s.pool.Query(ctx, query, f.Month, f.Year, orEmpty(f.OrderIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	defer rows.Close()

	var out []records.Order
	for rows.Next() {
		var o records.Order
		if err := rows.Scan(&o.OrderID, &o.Customer, &o.Folio, &o.OrderDate,
			&o.QuantityKG, &o.UnitPrice, &o.NetAmount, &o.CreditTermDays, &o.DueDate); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// FetchInvoices returns invoices matching the filter's period by issue date.
func (s *Store) FetchInvoices(ctx context.Context, f records.Filter) ([]records.Invoice, error) {
	query := `
		SELECT invoice_id, folio, uuid, customer, issue_date, net_amount,
		       total_amount, balance
		FROM facturas
		WHERE true` + fmt.Sprintf(filterClause, "issue_date") + `
		ORDER BY issue_date, invoice_id`
	rows, err := s.pool.Query(ctx, query, f.Month, f.Year)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	defer rows.Close()

	var out []records.Invoice
	for rows.Next() {
		var inv records.Invoice
		if err := rows.Scan(&inv.InvoiceID, &inv.Folio, &inv.UUID, &inv.Customer,
			&inv.IssueDate, &inv.NetAmount, &inv.TotalAmount, &inv.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// FetchCollections returns all collections; settlement is invoice-centric,
// so period filtering happens against the invoices they reference.
func (s *Store) FetchCollections(ctx context.Context) ([]records.Collection, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT collection_id, uuid_factura_relacionada, amount_paid, payment_date
		FROM cobranzas
		ORDER BY payment_date, collection_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collections: %w", err)
	}
	defer rows.Close()

	var out []records.Collection
	for rows.Next() {
		var c records.Collection
		if err := rows.Scan(&c.CollectionID, &c.InvoiceUUID, &c.AmountPaid, &c.PaymentDate); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FetchCFDIRelations returns advance-payment credit notes.
func (s *Store) FetchCFDIRelations(ctx context.Context) ([]records.CFDIRelation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT relation_id, uuid_factura, amount
		FROM cfdi_relaciones
		ORDER BY relation_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cfdi relations: %w", err)
	}
	defer rows.Close()

	var out []records.CFDIRelation
	for rows.Next() {
		var rel records.CFDIRelation
		if err := rows.Scan(&rel.RelationID, &rel.InvoiceUUID, &rel.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan cfdi relation: %w", err)
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// FetchPurchases returns the full purchase history with material lines.
func (s *Store) FetchPurchases(ctx context.Context) ([]records.Purchase, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT purchase_id, supplier, order_date, currency, rate_real,
		       rate_estimated, credit_term_days, ship_real, ship_estimated,
		       arrival_real, arrival_estimated, due_date
		FROM compras
		ORDER BY order_date, purchase_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch purchases: %w", err)
	}
	defer rows.Close()

	var out []records.Purchase
	index := map[string]int{}
	for rows.Next() {
		var p records.Purchase
		if err := rows.Scan(&p.PurchaseID, &p.Supplier, &p.OrderDate, &p.Currency,
			&p.RateReal, &p.RateEstimated, &p.CreditTermDays, &p.ShipReal,
			&p.ShipEstimated, &p.ArrivalReal, &p.ArrivalEst, &p.DueDate); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		index[p.PurchaseID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	matRows, err := s.pool.Query(ctx, `
		SELECT material_id, purchase_id, material, quantity_kg, unit_cost,
		       total_cost, unit_cost_reporting, total_cost_reporting
		FROM compra_materiales
		ORDER BY purchase_id, material_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch purchase materials: %w", err)
	}
	defer matRows.Close()

	for matRows.Next() {
		var m records.PurchaseMaterial
		var purchaseID string
		if err := matRows.Scan(&m.MaterialID, &purchaseID, &m.Material, &m.QuantityKG,
			&m.UnitCost, &m.TotalCost, &m.UnitCostReporting, &m.TotalCostReporting); err != nil {
			return nil, fmt.Errorf("failed to scan purchase material: %w", err)
		}
		if i, ok := index[purchaseID]; ok {
			out[i].Materials = append(out[i].Materials, m)
		}
	}
	return out, matRows.Err()
}

// FetchSuppliers returns the stored rolling averages.
func (s *Store) FetchSuppliers(ctx context.Context) ([]records.Supplier, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, avg_production_days, avg_transport_days
		FROM proveedores
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch suppliers: %w", err)
	}
	defer rows.Close()

	var out []records.Supplier
	for rows.Next() {
		var sup records.Supplier
		if err := rows.Scan(&sup.Name, &sup.AvgProductionDays, &sup.AvgTransportDays); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

// SaveSupplierAverages upserts recomputed averages in one batch.
func (s *Store) SaveSupplierAverages(ctx context.Context, averages map[string]leadtime.Averages) error {
	batch := &pgx.Batch{}
	for name, avg := range averages {
		batch.Queue(`
			INSERT INTO proveedores (name, avg_production_days, avg_transport_days, recomputed_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE
			SET avg_production_days = EXCLUDED.avg_production_days,
			    avg_transport_days = EXCLUDED.avg_transport_days,
			    recomputed_at = EXCLUDED.recomputed_at`,
			name, avg.ProductionDays, avg.TransportDays, time.Now())
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert supplier averages: %w", err)
		}
	}
	return nil
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
