package jobs

import (
	"fmt"
	"log"

	"FlujoCorpSaas/internal/logger"
	"FlujoCorpSaas/internal/serviceiface"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CronService struct {
	config map[string]interface{}
	db     *pgxpool.Pool
}

func NewCronService(cfg map[string]interface{}, db *pgxpool.Pool) serviceiface.Service {
	return &CronService{
		config: cfg,
		db:     db,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	log.Println("🚀 Starting cron service...")

	recomputeConfig := NewDefaultRecomputeConfig()

	// Override recompute config from services.yaml if provided
	if s.config != nil {
		if schedule, ok := s.config["recompute_schedule"].(string); ok && schedule != "" {
			recomputeConfig.Schedule = schedule
		}
		if tz, ok := s.config["timezone"].(string); ok && tz != "" {
			recomputeConfig.TimeZone = tz
		}
		if retries, ok := s.config["max_retries"].(int); ok && retries > 0 {
			recomputeConfig.MaxRetries = retries
		}
	}

	err := RunRecomputeScheduler(recomputeConfig, s.db)
	if err != nil {
		return fmt.Errorf("failed to start recompute scheduler: %v", err)
	}

	logger.GlobalLogger.LogAudit("Cron service started with supplier lead-time recompute")
	log.Println("Cron service started — Supplier Lead-Time Recompute scheduled")

	return nil
}

func (s *CronService) Stop() error {
	log.Println("Cron service stopped.")
	return nil
}
