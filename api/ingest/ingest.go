package ingest

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StartIngestService runs the spreadsheet ingestion HTTP server.
func StartIngestService(pool *pgxpool.Pool) {
	r := mux.NewRouter()

	r.HandleFunc("/ingest/upload", UploadRecords(pool)).Methods("POST")

	r.HandleFunc("/ingest/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Ingest Service is healthy"))
	}).Methods("GET")

	log.Println("Ingest Service started on :6143")
	if err := http.ListenAndServe(":6143", r); err != nil {
		log.Fatalf("Ingest Service failed: %v", err)
	}
}
