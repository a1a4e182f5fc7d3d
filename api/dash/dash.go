package dash

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
)

func StartDashService(pool *pgxpool.Pool) {
	router := mux.NewRouter()

	router.HandleFunc("/dash/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Dashboard Service OK"))
	}).Methods(http.MethodGet)

	// Collection Dashboard Endpoints
	router.Handle("/dash/collection-summary", GetCollectionSummary(pool)).Methods(http.MethodPost)
	router.Handle("/dash/aging", GetAgingDashboard(pool)).Methods(http.MethodPost)
	router.Handle("/dash/weekly-cashflow", GetWeeklyCashFlow(pool)).Methods(http.MethodPost)
	router.Handle("/dash/order-settlements", GetOrderSettlements(pool)).Methods(http.MethodPost)

	// Supplier Dashboard Endpoints
	router.Handle("/dash/supplier-leadtimes", GetSupplierLeadTimes(pool)).Methods(http.MethodPost)

	log.Println("Dashboard Service started on :4143")
	err := http.ListenAndServe(":4143", router)
	if err != nil {
		log.Fatalf("Dashboard Service failed: %v", err)
	}
}
