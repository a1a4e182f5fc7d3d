package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"FlujoCorpSaas/api"
)

// colSpec maps one canonical staging column to the spreadsheet headers that
// may carry it. Exports arrive with Spanish, English, or abbreviated
// headers depending on which system produced them.
type colSpec struct {
	name    string
	aliases []string
	isDate  bool
}

type recordSpec struct {
	stagingTable    string
	canonicalInsert string
	columns         []colSpec
}

var recordSpecs = map[string]recordSpec{
	"pedidos": {
		stagingTable: "staging_pedidos",
		canonicalInsert: `
			INSERT INTO pedidos (order_id, customer, folio, order_date, quantity_kg, unit_price, net_amount, credit_term_days)
			SELECT order_id, customer, folio, order_date::date, quantity_kg::numeric, unit_price::numeric, net_amount::numeric, COALESCE(credit_term_days::int, 0)
			FROM staging_pedidos WHERE upload_batch_id = $1
			RETURNING order_id`,
		columns: []colSpec{
			{name: "order_id", aliases: []string{"Pedido", "No Pedido", "Order ID"}},
			{name: "customer", aliases: []string{"Cliente", "Customer"}},
			{name: "folio", aliases: []string{"Folio", "Folio Factura", "Invoice Folio"}},
			{name: "order_date", aliases: []string{"Fecha Pedido", "Fecha", "Order Date"}, isDate: true},
			{name: "quantity_kg", aliases: []string{"Cantidad KG", "KG", "Quantity KG"}},
			{name: "unit_price", aliases: []string{"Precio Unitario", "Unit Price"}},
			{name: "net_amount", aliases: []string{"Importe Neto", "Neto", "Net Amount"}},
			{name: "credit_term_days", aliases: []string{"Dias Credito", "Días Crédito", "Credit Days"}},
		},
	},
	"facturas": {
		stagingTable: "staging_facturas",
		canonicalInsert: `
			INSERT INTO facturas (invoice_id, folio, uuid, customer, issue_date, net_amount, total_amount, balance)
			SELECT invoice_id, folio, uuid, customer, issue_date::date, net_amount::numeric, total_amount::numeric, total_amount::numeric
			FROM staging_facturas WHERE upload_batch_id = $1
			RETURNING invoice_id`,
		columns: []colSpec{
			{name: "invoice_id", aliases: []string{"Factura", "No Factura", "Invoice ID"}},
			{name: "folio", aliases: []string{"Folio", "Folio Factura"}},
			{name: "uuid", aliases: []string{"UUID", "UUID Fiscal", "Fiscal UUID"}},
			{name: "customer", aliases: []string{"Cliente", "Customer"}},
			{name: "issue_date", aliases: []string{"Fecha Emision", "Fecha Emisión", "Issue Date"}, isDate: true},
			{name: "net_amount", aliases: []string{"Subtotal", "Importe Neto", "Net Amount"}},
			{name: "total_amount", aliases: []string{"Total", "Importe Total", "Total Amount"}},
		},
	},
	"cobranzas": {
		stagingTable: "staging_cobranzas",
		canonicalInsert: `
			INSERT INTO cobranzas (collection_id, uuid_factura_relacionada, amount_paid, payment_date)
			SELECT collection_id, uuid_factura_relacionada, amount_paid::numeric, payment_date::date
			FROM staging_cobranzas WHERE upload_batch_id = $1
			RETURNING collection_id`,
		columns: []colSpec{
			{name: "collection_id", aliases: []string{"Cobranza", "No Cobranza", "Collection ID"}},
			{name: "uuid_factura_relacionada", aliases: []string{"UUID Factura Relacionada", "UUID Factura", "Related Invoice UUID"}},
			{name: "amount_paid", aliases: []string{"Importe Pagado", "Pago", "Amount Paid"}},
			{name: "payment_date", aliases: []string{"Fecha Pago", "Payment Date"}, isDate: true},
		},
	},
	"compras": {
		stagingTable: "staging_compras",
		canonicalInsert: `
			INSERT INTO compras (purchase_id, supplier, order_date, currency, rate_real, rate_estimated, credit_term_days, ship_real, arrival_real)
			SELECT purchase_id, supplier, order_date::date, currency, NULLIF(rate_real, '')::numeric, NULLIF(rate_estimated, '')::numeric,
			       COALESCE(credit_term_days::int, 0), NULLIF(ship_real, '')::date, NULLIF(arrival_real, '')::date
			FROM staging_compras WHERE upload_batch_id = $1
			RETURNING purchase_id`,
		columns: []colSpec{
			{name: "purchase_id", aliases: []string{"Compra", "No Compra", "Purchase ID"}},
			{name: "supplier", aliases: []string{"Proveedor", "Supplier"}},
			{name: "order_date", aliases: []string{"Fecha Pedido", "Fecha Orden", "Order Date"}, isDate: true},
			{name: "currency", aliases: []string{"Moneda", "Currency"}},
			{name: "rate_real", aliases: []string{"Tipo Cambio Real", "TC Real", "Real Rate"}},
			{name: "rate_estimated", aliases: []string{"Tipo Cambio Estimado", "TC Estimado", "Estimated Rate"}},
			{name: "credit_term_days", aliases: []string{"Dias Credito", "Días Crédito", "Credit Days"}},
			{name: "ship_real", aliases: []string{"Fecha Embarque", "Embarque Real", "Ship Date"}, isDate: true},
			{name: "arrival_real", aliases: []string{"Fecha Llegada", "Llegada Real", "Arrival Date"}, isDate: true},
		},
	},
	"compra_materiales": {
		stagingTable: "staging_compra_materiales",
		canonicalInsert: `
			INSERT INTO compra_materiales (material_id, purchase_id, material, quantity_kg, unit_cost, total_cost)
			SELECT material_id, purchase_id, material, quantity_kg::numeric, unit_cost::numeric, total_cost::numeric
			FROM staging_compra_materiales WHERE upload_batch_id = $1
			RETURNING material_id`,
		columns: []colSpec{
			{name: "material_id", aliases: []string{"Partida", "No Partida", "Line ID"}},
			{name: "purchase_id", aliases: []string{"Compra", "No Compra", "Purchase ID"}},
			{name: "material", aliases: []string{"Material", "Descripcion", "Descripción"}},
			{name: "quantity_kg", aliases: []string{"Cantidad KG", "KG", "Quantity KG"}},
			{name: "unit_cost", aliases: []string{"Costo Unitario", "Unit Cost"}},
			{name: "total_cost", aliases: []string{"Costo Total", "Total Cost"}},
		},
	},
}

// UploadRecords ingests one or more spreadsheet exports. Multipart form
// keys name the record type (pedidos/facturas/cobranzas/compras/compra_materiales);
// each file
// is staged via CopyFrom, moved to its canonical table, and purchases are
// enriched synchronously afterwards.
func UploadRecords(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		uploadedBy := r.FormValue("uploaded_by")
		if uploadedBy == "" {
			uploadedBy = "system"
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "Failed to parse multipart form")
			return
		}
		if len(r.MultipartForm.File) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, "No files uploaded")
			return
		}

		results := make([]map[string]interface{}, 0)
		purchasesTouched := false

		for recordType, files := range r.MultipartForm.File {
			recordType = strings.ToLower(recordType)
			spec, ok := recordSpecs[recordType]
			if !ok {
				api.RespondWithError(w, http.StatusBadRequest, "Unknown record type: "+recordType)
				return
			}
			for _, fileHeader := range files {
				file, err := fileHeader.Open()
				if err != nil {
					api.RespondWithError(w, http.StatusBadRequest, "Failed to open file: "+fileHeader.Filename)
					return
				}
				rows, err := parseUploadFile(file, getFileExt(fileHeader.Filename))
				file.Close()
				if err != nil || len(rows) < 2 {
					api.RespondWithError(w, http.StatusBadRequest, "Invalid or empty file: "+fileHeader.Filename)
					return
				}

				batchID := uuid.New().String()
				inserted, err := stageAndPromote(ctx, pool, spec, batchID, rows)
				if err != nil {
					api.RespondWithError(w, http.StatusInternalServerError, err.Error())
					return
				}
				if err := writeUploadAudit(ctx, pool, batchID, recordType, fileHeader.Filename, uploadedBy, inserted); err != nil {
					api.LogError("audit write failed for batch %s: %v", batchID, err)
				}
				if recordType == "compras" || recordType == "compra_materiales" {
					purchasesTouched = true
				}
				results = append(results, map[string]interface{}{
					"record_type": recordType,
					"file":        fileHeader.Filename,
					"batch_id":    batchID,
					"inserted":    inserted,
				})
			}
		}

		resp := map[string]interface{}{"success": true, "uploads": results}
		if purchasesTouched {
			summary, err := EnrichPurchases(ctx, pool)
			if err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, "Enrichment failed: "+err.Error())
				return
			}
			resp["enrichment"] = summary.String()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// stageAndPromote copies parsed rows into the staging table and moves them
// to the canonical table in one pass, returning the canonical insert count.
func stageAndPromote(ctx context.Context, pool *pgxpool.Pool, spec recordSpec, batchID string, rows [][]string) (int, error) {
	header := rows[0]
	dataRows := rows[1:]

	indices := make([]int, len(spec.columns))
	for i, col := range spec.columns {
		indices[i] = headerIndex(header, col.aliases)
	}

	copyRows := make([][]interface{}, 0, len(dataRows))
	for _, row := range dataRows {
		if len(row) == 0 {
			continue
		}
		vals := make([]interface{}, len(spec.columns)+1)
		vals[0] = batchID
		empty := true
		for i, col := range spec.columns {
			v := cell(row, indices[i])
			if col.isDate {
				v = normalizeDate(v)
			}
			if v != "" {
				empty = false
			}
			vals[i+1] = nullable(v)
		}
		if !empty {
			copyRows = append(copyRows, vals)
		}
	}
	if len(copyRows) == 0 {
		return 0, fmt.Errorf("no data rows recognized in upload for %s", spec.stagingTable)
	}

	columns := make([]string, 0, len(spec.columns)+1)
	columns = append(columns, "upload_batch_id")
	for _, col := range spec.columns {
		columns = append(columns, col.name)
	}
	if _, err := pool.CopyFrom(ctx, pgx.Identifier{spec.stagingTable}, columns, pgx.CopyFromRows(copyRows)); err != nil {
		return 0, fmt.Errorf("failed to stage data: %w", err)
	}

	rs, err := pool.Query(ctx, spec.canonicalInsert, batchID)
	if err != nil {
		return 0, fmt.Errorf("final insert error: %w", err)
	}
	defer rs.Close()
	inserted := 0
	for rs.Next() {
		var id string
		if err := rs.Scan(&id); err == nil {
			inserted++
		}
	}
	return inserted, rs.Err()
}

func writeUploadAudit(ctx context.Context, pool *pgxpool.Pool, batchID, recordType, filename, uploadedBy string, inserted int) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO audit_cargas (batch_id, record_type, file_name, uploaded_by, inserted_count, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		batchID, recordType, filename, uploadedBy, inserted)
	return err
}
