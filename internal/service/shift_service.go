package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftdrop/backend/config"
	"shiftdrop/backend/internal/dto"
	"shiftdrop/backend/internal/model"
	"shiftdrop/backend/internal/repository"
	"shiftdrop/backend/pkg/clock"
	pkgerrors "shiftdrop/backend/pkg/errors"
)

// ── 班次模块业务错误 ──

var (
	ErrShiftNotFound    = errors.New("班次不存在")
	ErrShiftTimeInvalid = errors.New("班次起止时间无效")
	// ErrShiftConflict 取消与并发认领撞上版本条件写，可重试
	ErrShiftConflict = errors.New("班次状态刚刚发生变化，请重试")
)

// ShiftService 班次业务接口
type ShiftService interface {
	// Post 发布班次并向符合条件的零工扇出认领通知
	Post(ctx context.Context, poolID string, req *dto.PostShiftRequest, callerID string) (*dto.ShiftResponse, *dto.NotifyResultResponse, error)
	Get(ctx context.Context, poolID, shiftID, callerID string) (*dto.ShiftResponse, error)
	List(ctx context.Context, poolID string, req *dto.ListShiftsRequest, callerID string) ([]dto.ShiftResponse, error)
	// Cancel 取消班次：置终态、批量撤销全部 pending 令牌、通知在班零工，单事务
	Cancel(ctx context.Context, poolID, shiftID, callerID string) (*dto.CancelShiftResponse, error)
	// ResendNotifications 重发认领通知；幂等，不产生重复有效令牌
	ResendNotifications(ctx context.Context, poolID, shiftID, callerID string) (*dto.NotifyResultResponse, error)
}

type shiftService struct {
	cfg    *config.Config
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(cfg *config.Config, repo *repository.Repository, clk clock.Clock, logger *zap.Logger) ShiftService {
	return &shiftService{cfg: cfg, repo: repo, clock: clk, logger: logger}
}

// ────────────────────── Post ──────────────────────

func (s *shiftService) Post(ctx context.Context, poolID string, req *dto.PostShiftRequest, callerID string) (*dto.ShiftResponse, *dto.NotifyResultResponse, error) {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return nil, nil, err
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, nil, ErrShiftTimeInvalid
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, nil, ErrShiftTimeInvalid
	}
	if !startsAt.Before(endsAt) {
		return nil, nil, ErrShiftTimeInvalid
	}

	shift := &model.Shift{
		PoolID:         poolID,
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		SpotsNeeded:    req.SpotsNeeded,
		SpotsRemaining: req.SpotsNeeded,
		Status:         model.ShiftOpen,
	}
	shift.CreatedBy = &callerID

	if err := s.repo.Shift.Create(ctx, shift); err != nil {
		s.logger.Error("创建班次失败", zap.Error(err))
		return nil, nil, err
	}

	notified, reused, err := notifyFanOut(ctx, s.repo, s.cfg, s.clock, shift, "")
	if err != nil {
		s.logger.Error("班次通知扇出失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		return nil, nil, err
	}

	s.logger.Info("班次已发布",
		zap.String("shift_id", shift.ShiftID),
		zap.Int("spots", shift.SpotsNeeded),
		zap.Int("notified", notified),
	)

	return s.toShiftResponse(shift), &dto.NotifyResultResponse{Notified: notified, Reused: reused}, nil
}

// ────────────────────── Get ──────────────────────

func (s *shiftService) Get(ctx context.Context, poolID, shiftID, callerID string) (*dto.ShiftResponse, error) {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return nil, err
	}
	shift, err := s.getPoolShift(ctx, poolID, shiftID)
	if err != nil {
		return nil, err
	}
	return s.toShiftResponse(shift), nil
}

// ────────────────────── List ──────────────────────

func (s *shiftService) List(ctx context.Context, poolID string, req *dto.ListShiftsRequest, callerID string) ([]dto.ShiftResponse, error) {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return nil, err
	}

	var from, to *time.Time
	if req.From != "" {
		t, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return nil, ErrShiftTimeInvalid
		}
		from = &t
	}
	if req.To != "" {
		t, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return nil, ErrShiftTimeInvalid
		}
		to = &t
	}

	shifts, err := s.repo.Shift.ListByPool(ctx, poolID, from, to)
	if err != nil {
		s.logger.Error("列出班次失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		result = append(result, *s.toShiftResponse(&shifts[i]))
	}
	return result, nil
}

// ────────────────────── Cancel ──────────────────────

func (s *shiftService) Cancel(ctx context.Context, poolID, shiftID, callerID string) (*dto.CancelShiftResponse, error) {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return nil, err
	}

	shift, err := s.getPoolShift(ctx, poolID, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.Status == model.ShiftCancelled {
		return nil, ErrShiftCancelled
	}

	now := s.clock.Now()
	var revoked int64

	// 状态置终态 + 全量撤销 pending 令牌 + 在班零工取消通知，全有或全无
	err = s.repo.WithTx(ctx, func(txRepo *repository.Repository) error {
		shift.Status = model.ShiftCancelled
		shift.UpdatedBy = &callerID
		if err := txRepo.Shift.Update(ctx, shift); err != nil {
			return err
		}

		n, err := txRepo.Notification.RevokeAllPending(ctx, shiftID, now)
		if err != nil {
			return err
		}
		revoked = n

		claims, err := txRepo.Claim.ListActiveByShift(ctx, shiftID)
		if err != nil {
			return err
		}
		messages := make([]model.OutboxMessage, 0, len(claims))
		for i := range claims {
			if claims[i].Casual == nil {
				continue
			}
			messages = append(messages, model.OutboxMessage{
				Channel:          model.OutboxChannelSMS,
				RecipientContact: claims[i].Casual.PhoneNumber,
				BodyText: fmt.Sprintf("你认领的班次已取消：%s 至 %s",
					shift.StartsAt.Format("01-02 15:04"), shift.EndsAt.Format("15:04")),
				Status: model.OutboxPending,
			})
		}
		return txRepo.Outbox.BatchEnqueue(ctx, messages)
	})
	if err != nil {
		// 取消与并发认领竞争同一版本号，未命中按冲突返回而非 500
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrShiftConflict
		}
		s.logger.Error("取消班次失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("班次已取消",
		zap.String("shift_id", shiftID),
		zap.Int64("tokens_revoked", revoked),
	)

	return &dto.CancelShiftResponse{
		Shift:         *s.toShiftResponse(shift),
		TokensRevoked: revoked,
	}, nil
}

// ────────────────────── ResendNotifications ──────────────────────

func (s *shiftService) ResendNotifications(ctx context.Context, poolID, shiftID, callerID string) (*dto.NotifyResultResponse, error) {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return nil, err
	}

	shift, err := s.getPoolShift(ctx, poolID, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.Status == model.ShiftCancelled {
		return nil, ErrShiftCancelled
	}
	if shift.Status == model.ShiftFilled || shift.SpotsRemaining == 0 {
		return nil, ErrShiftFilled
	}

	notified, reused, err := notifyFanOut(ctx, s.repo, s.cfg, s.clock, shift, "")
	if err != nil {
		s.logger.Error("班次通知扇出失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}

	return &dto.NotifyResultResponse{Notified: notified, Reused: reused}, nil
}

// ── 内部辅助方法 ──

func (s *shiftService) authorizePool(ctx context.Context, poolID, callerID string) (*model.Pool, error) {
	pool, err := s.repo.Pool.GetAuthorized(ctx, poolID, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		s.logger.Error("查询用工池失败", zap.String("pool_id", poolID), zap.Error(err))
		return nil, err
	}
	return pool, nil
}

func (s *shiftService) getPoolShift(ctx context.Context, poolID, shiftID string) (*model.Shift, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}
	// 跨池访问与不存在不可区分
	if shift.PoolID != poolID {
		return nil, ErrShiftNotFound
	}
	return shift, nil
}

func (s *shiftService) toShiftResponse(shift *model.Shift) *dto.ShiftResponse {
	resp := &dto.ShiftResponse{
		ID:             shift.ShiftID,
		PoolID:         shift.PoolID,
		StartsAt:       shift.StartsAt.Format(time.RFC3339),
		EndsAt:         shift.EndsAt.Format(time.RFC3339),
		SpotsNeeded:    shift.SpotsNeeded,
		SpotsRemaining: shift.SpotsRemaining,
		Status:         shift.Status,
		Version:        shift.Version,
	}
	for i := range shift.Claims {
		resp.Claims = append(resp.Claims, toClaimResponse(&shift.Claims[i]))
	}
	return resp
}

// toClaimResponse 认领记录转响应（班次/认领模块共用）
func toClaimResponse(claim *model.ShiftClaim) dto.ShiftClaimResponse {
	resp := dto.ShiftClaimResponse{
		ID:        claim.ShiftClaimID,
		ShiftID:   claim.ShiftID,
		CasualID:  claim.CasualID,
		Status:    claim.Status,
		ClaimedAt: claim.ClaimedAt.Format(time.RFC3339),
	}
	if claim.Casual != nil {
		resp.CasualName = claim.Casual.Name
	}
	return resp
}
