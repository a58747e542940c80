package service

import (
	"go.uber.org/zap"

	"shiftdrop/backend/config"
	"shiftdrop/backend/internal/repository"
	"shiftdrop/backend/pkg/clock"
	"shiftdrop/backend/pkg/jwt"
	"shiftdrop/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth   AuthService
	Pool   PoolService
	Casual CasualService
	Shift  ShiftService
	Claim  ClaimService
	Export ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	clk clock.Clock,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:   NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Pool:   NewPoolService(repo, clk, logger),
		Casual: NewCasualService(cfg, repo, clk, logger),
		Shift:  NewShiftService(cfg, repo, clk, logger),
		Claim:  NewClaimService(cfg, repo, clk, logger),
		Export: NewExportService(repo, logger),
	}
}
