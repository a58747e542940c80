package handler

import "shiftdrop/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth   *AuthHandler
	Pool   *PoolHandler
	Casual *CasualHandler
	Shift  *ShiftHandler
	Claim  *ClaimHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:   NewAuthHandler(svc.Auth),
		Pool:   NewPoolHandler(svc.Pool),
		Casual: NewCasualHandler(svc.Casual),
		Shift:  NewShiftHandler(svc.Shift),
		Claim:  NewClaimHandler(svc.Claim),
		Export: NewExportHandler(svc.Export),
	}
}
