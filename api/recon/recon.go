package recon

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StartReconService runs the reconciliation engine's HTTP server.
func StartReconService(pool *pgxpool.Pool) {
	r := mux.NewRouter()

	r.HandleFunc("/recon/normalize", NormalizeAmount()).Methods("POST")
	r.HandleFunc("/recon/supplier-averages", GetSupplierAverages(pool)).Methods("POST")
	r.HandleFunc("/recon/estimate-dates", EstimateOrderDates(pool)).Methods("POST")
	r.HandleFunc("/recon/allocate", RunAllocation(pool)).Methods("POST")
	r.HandleFunc("/recon/kpi", GetKPISnapshot(pool)).Methods("POST")

	r.HandleFunc("/recon/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Recon Service is healthy"))
	}).Methods("GET")

	log.Println("Recon Service started on :3143")
	if err := http.ListenAndServe(":3143", r); err != nil {
		log.Fatalf("Recon Service failed: %v", err)
	}
}
