package jobs

import (
	"context"
	"fmt"
	"math"
	"time"

	"FlujoCorpSaas/api/ingest"
	"FlujoCorpSaas/api/recon"
	"FlujoCorpSaas/api/recon/leadtime"
	"FlujoCorpSaas/internal/config"
	"FlujoCorpSaas/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

type RecomputeConfig struct {
	Schedule   string
	TimeZone   string
	MaxRetries int
	RetryDelay time.Duration
}

// NewDefaultRecomputeConfig creates a RecomputeConfig with default values
func NewDefaultRecomputeConfig() *RecomputeConfig {
	return &RecomputeConfig{
		Schedule:   config.DefaultRecomputeSchedule,
		TimeZone:   "America/Mexico_City",
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

// RetryWithBackoff executes a function with exponential backoff retry logic
func RetryWithBackoff(maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialDelay
			logger.GlobalLogger.LogAudit(fmt.Sprintf("Retrying after %v (attempt %d/%d)", delay, attempt, maxRetries))
			time.Sleep(delay)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		logger.GlobalLogger.LogAudit(fmt.Sprintf("Attempt %d failed: %v", attempt+1, lastErr))
	}

	return fmt.Errorf("failed after %d attempts: %v", maxRetries+1, lastErr)
}

// RunRecomputeScheduler schedules the nightly supplier lead-time refresh.
// Each run recomputes per-supplier production and transport averages from
// the full purchase history, persists them, and re-runs purchase
// enrichment so estimated dates pick up the fresh averages.
func RunRecomputeScheduler(cfg *RecomputeConfig, db *pgxpool.Pool) error {
	if cfg == nil {
		cfg = NewDefaultRecomputeConfig()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultRecomputeSchedule
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = "America/Mexico_City"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid timezone for recompute scheduler: %v", err)
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		logger.GlobalLogger.LogAudit(fmt.Sprintf("Running supplier lead-time recompute at %s", time.Now().In(loc)))

		runErr := RetryWithBackoff(cfg.MaxRetries, cfg.RetryDelay, func() error {
			return RecomputeSupplierAverages(context.Background(), db)
		})
		if runErr != nil {
			logger.GlobalLogger.LogAudit("Supplier lead-time recompute failed: " + runErr.Error())
			return
		}

		logger.GlobalLogger.LogAudit("Supplier lead-time recompute completed at " + time.Now().In(loc).String())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule recompute cron job: %v", err)
	}

	c.Start()
	logger.GlobalLogger.LogAudit("Supplier lead-time recompute scheduled for " + cfg.Schedule + " (" + cfg.TimeZone + ")")
	return nil
}

// RecomputeSupplierAverages refreshes stored averages and purchase estimates.
func RecomputeSupplierAverages(ctx context.Context, db *pgxpool.Pool) error {
	store := recon.NewStore(db)

	purchases, err := store.FetchPurchases(ctx)
	if err != nil {
		return fmt.Errorf("fetch purchases: %w", err)
	}

	averages, summary := leadtime.SupplierAverages(purchases)
	if err := store.SaveSupplierAverages(ctx, averages); err != nil {
		return fmt.Errorf("save supplier averages: %w", err)
	}
	logger.GlobalLogger.LogAudit(fmt.Sprintf("Recomputed averages for %d suppliers (%s)", len(averages), summary.String()))

	enrichSummary, err := ingest.EnrichPurchases(ctx, db)
	if err != nil {
		return fmt.Errorf("re-enrich purchases: %w", err)
	}
	logger.GlobalLogger.LogAudit("Purchase enrichment refreshed (" + enrichSummary.String() + ")")
	return nil
}
