package recon

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"FlujoCorpSaas/internal/serviceiface"
)

type ReconService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
}

func NewReconService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &ReconService{config: cfg, pool: pool}
}

func (s *ReconService) Name() string {
	return "recon"
}

func (s *ReconService) Start() error {
	go StartReconService(s.pool)
	return nil
}

func (s *ReconService) Stop() error {
	return nil
}
