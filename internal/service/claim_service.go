package service

import (
	"context"
	"errors"
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

// ── 认领模块业务错误 ──
// 前置条件错误逐项区分，handler 按 errors.Is 映射为不同的用户提示

var (
	ErrShiftCancelled  = errors.New("班次已取消")
	ErrShiftFilled     = errors.New("班次名额已满")
	ErrAlreadyClaimed  = errors.New("已认领过该班次")
	ErrCasualNotActive = errors.New("当前不可认领：未接受邀请或已退订/已移除")
	ErrNoActiveClaim   = errors.New("未找到有效认领记录")

	// ErrClaimConflict 并发冲突：条件写未命中（名额被并发请求抢走）
	// 语义上可重试，与 4xx 前置条件错误严格区分
	ErrClaimConflict = errors.New("名额刚刚被抢走，去看看其他班次吧")

	// 令牌四种失效原因不得合并为一条笼统提示
	ErrTokenInvalid = errors.New("认领链接无效")
	ErrTokenUsed    = errors.New("认领链接已被使用")
	ErrTokenRevoked = errors.New("认领链接已失效：班次已取消")
	ErrTokenExpired = errors.New("认领链接已过期")
)

// ClaimService 认领业务接口（认领状态机核心）
type ClaimService interface {
	// Claim 经认证 Web 端认领：经理代池内零工锁定名额
	Claim(ctx context.Context, poolID, shiftID string, req *dto.WebClaimRequest, callerID string) (*dto.ClaimResultResponse, error)
	// PreviewToken 一键认领落地页：返回班次信息与当前可认领性
	PreviewToken(ctx context.Context, claimToken string) (*dto.TokenClaimPreviewResponse, error)
	// ClaimByToken 短信一键认领：令牌校验 + 认领 + 令牌核销，单事务
	ClaimByToken(ctx context.Context, claimToken string) (*dto.ClaimResultResponse, error)
	// Bail 零工主动释放：凭认领链接令牌 + 手机号双重确认
	Bail(ctx context.Context, claimToken string, req *dto.BailRequest) (*dto.ReleaseResultResponse, error)
	// ManagerRelease 经理释放指定零工的认领
	ManagerRelease(ctx context.Context, poolID, shiftID string, req *dto.ManagerReleaseRequest, callerID string) (*dto.ReleaseResultResponse, error)
}

type claimService struct {
	cfg    *config.Config
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewClaimService 创建 ClaimService 实例
func NewClaimService(cfg *config.Config, repo *repository.Repository, clk clock.Clock, logger *zap.Logger) ClaimService {
	return &claimService{cfg: cfg, repo: repo, clock: clk, logger: logger}
}

// ────────────────────── 状态机核心 ──────────────────────

// applyClaim 在内存中执行认领转移
// 前置条件按序校验（取消 → 满员 → 重复认领 → 零工失活），各自返回独立错误；
// 通过后扣减名额、必要时置 filled，并返回新认领记录。调用方负责事务提交
func applyClaim(shift *model.Shift, casual *model.Casual, now time.Time) (*model.ShiftClaim, error) {
	if shift.Status == model.ShiftCancelled {
		return nil, ErrShiftCancelled
	}
	// 以 spots_remaining 为准，status 字段过期也不放行
	if shift.Status == model.ShiftFilled || shift.SpotsRemaining == 0 {
		return nil, ErrShiftFilled
	}
	if shift.ActiveClaimBy(casual.CasualID) != nil {
		return nil, ErrAlreadyClaimed
	}
	if !casual.IsActive() {
		return nil, ErrCasualNotActive
	}

	shift.SpotsRemaining--
	if shift.SpotsRemaining == 0 {
		shift.Status = model.ShiftFilled
	}

	return &model.ShiftClaim{
		ShiftID:   shift.ShiftID,
		CasualID:  casual.CasualID,
		Status:    model.ClaimClaimed,
		ClaimedAt: now,
	}, nil
}

// applyRelease 在内存中执行释放转移（bail / 经理释放共用）
// newStatus 为 ClaimBailed 或 ClaimReleasedByManager
func applyRelease(shift *model.Shift, claim *model.ShiftClaim, newStatus string) error {
	if claim == nil || claim.Status != model.ClaimClaimed {
		return ErrNoActiveClaim
	}
	if shift.Status == model.ShiftCancelled {
		return ErrShiftCancelled
	}

	claim.Status = newStatus
	shift.SpotsRemaining++
	if shift.Status == model.ShiftFilled {
		shift.Status = model.ShiftOpen
	}
	return nil
}

// tokenError 令牌失效原因判定，有效时返回 nil
func tokenError(n *model.ShiftNotification, now time.Time) error {
	switch n.TokenStatus {
	case model.TokenUsed:
		return ErrTokenUsed
	case model.TokenRevoked:
		return ErrTokenRevoked
	}
	if n.IsExpired(now) {
		return ErrTokenExpired
	}
	return nil
}

// markUsed 核销令牌；非有效态时返回对应失效原因
func markUsed(n *model.ShiftNotification, now time.Time) error {
	if err := tokenError(n, now); err != nil {
		return err
	}
	n.TokenStatus = model.TokenUsed
	n.UsedAt = &now
	return nil
}

// ────────────────────── Claim ──────────────────────

func (s *claimService) Claim(ctx context.Context, poolID, shiftID string, req *dto.WebClaimRequest, callerID string) (*dto.ClaimResultResponse, error) {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return nil, err
	}

	shift, err := s.getPoolShift(ctx, poolID, shiftID)
	if err != nil {
		return nil, err
	}

	casual, err := s.repo.Casual.GetByID(ctx, req.CasualID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCasualNotFound
		}
		s.logger.Error("查询零工失败", zap.Error(err))
		return nil, err
	}
	if casual.PoolID != poolID {
		return nil, ErrCasualNotFound
	}

	claim, err := s.commitClaim(ctx, shift, casual, nil)
	if err != nil {
		return nil, err
	}

	return &dto.ClaimResultResponse{
		Shift: *toShiftResult(shift),
		Claim: toClaimResponse(claim),
	}, nil
}

// ────────────────────── PreviewToken ──────────────────────

func (s *claimService) PreviewToken(ctx context.Context, claimToken string) (*dto.TokenClaimPreviewResponse, error) {
	n, err := s.getNotification(ctx, claimToken)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	resp := &dto.TokenClaimPreviewResponse{
		ShiftID:    n.ShiftID,
		CasualName: n.Casual.Name,
		StartsAt:   n.Shift.StartsAt.Format(time.RFC3339),
		EndsAt:     n.Shift.EndsAt.Format(time.RFC3339),
		Claimable:  true,
	}

	// 落地页直接展示不可认领原因，避免用户点击后才失败
	reason := tokenError(n, now)
	if reason == nil {
		switch {
		case n.Shift.Status == model.ShiftCancelled:
			reason = ErrShiftCancelled
		case n.Shift.Status == model.ShiftFilled || n.Shift.SpotsRemaining == 0:
			reason = ErrShiftFilled
		case n.Shift.ActiveClaimBy(n.CasualID) != nil:
			reason = ErrAlreadyClaimed
		case !n.Casual.IsActive():
			reason = ErrCasualNotActive
		}
	}
	if reason != nil {
		resp.Claimable = false
		resp.Reason = reason.Error()
	}
	return resp, nil
}

// ────────────────────── ClaimByToken ──────────────────────

func (s *claimService) ClaimByToken(ctx context.Context, claimToken string) (*dto.ClaimResultResponse, error) {
	n, err := s.getNotification(ctx, claimToken)
	if err != nil {
		return nil, err
	}

	// 先按令牌态拒绝（used/revoked/expired 各自独立提示）
	if err := tokenError(n, s.clock.Now()); err != nil {
		return nil, err
	}

	shift, casual := n.Shift, n.Casual
	claim, err := s.commitClaim(ctx, shift, casual, n)
	if err != nil {
		return nil, err
	}

	s.logger.Info("令牌认领成功",
		zap.String("shift_id", shift.ShiftID),
		zap.String("casual_id", casual.CasualID),
		zap.Int("spots_remaining", shift.SpotsRemaining),
	)

	return &dto.ClaimResultResponse{
		Shift: *toShiftResult(shift),
		Claim: toClaimResponse(claim),
	}, nil
}

// ────────────────────── Bail ──────────────────────

func (s *claimService) Bail(ctx context.Context, claimToken string, req *dto.BailRequest) (*dto.ReleaseResultResponse, error) {
	n, err := s.getNotification(ctx, claimToken)
	if err != nil {
		return nil, err
	}
	// 手机号必须与令牌归属一致；不一致与无效链接不可区分
	if n.Casual == nil || n.Casual.PhoneNumber != req.PhoneNumber {
		return nil, ErrTokenInvalid
	}

	shift := n.Shift
	claim, err := s.getActiveClaim(ctx, shift.ShiftID, n.CasualID)
	if err != nil {
		return nil, err
	}

	if err := s.commitRelease(ctx, shift, claim, model.ClaimBailed); err != nil {
		return nil, err
	}

	// 空出名额：重新通知其余符合条件的零工（排除刚退出者）
	notified, _, err := notifyFanOut(ctx, s.repo, s.cfg, s.clock, shift, n.CasualID)
	if err != nil {
		s.logger.Error("释放后重新通知失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		return nil, err
	}

	return &dto.ReleaseResultResponse{
		Shift:    *toShiftResult(shift),
		Claim:    toClaimResponse(claim),
		Notified: notified,
	}, nil
}

// ────────────────────── ManagerRelease ──────────────────────

func (s *claimService) ManagerRelease(ctx context.Context, poolID, shiftID string, req *dto.ManagerReleaseRequest, callerID string) (*dto.ReleaseResultResponse, error) {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return nil, err
	}

	shift, err := s.getPoolShift(ctx, poolID, shiftID)
	if err != nil {
		return nil, err
	}

	claim, err := s.getActiveClaim(ctx, shiftID, req.CasualID)
	if err != nil {
		return nil, err
	}
	claim.UpdatedBy = &callerID

	if err := s.commitRelease(ctx, shift, claim, model.ClaimReleasedByManager); err != nil {
		return nil, err
	}

	notified, _, err := notifyFanOut(ctx, s.repo, s.cfg, s.clock, shift, req.CasualID)
	if err != nil {
		s.logger.Error("释放后重新通知失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}

	return &dto.ReleaseResultResponse{
		Shift:    *toShiftResult(shift),
		Claim:    toClaimResponse(claim),
		Notified: notified,
	}, nil
}

// ── 内部辅助方法 ──

// commitClaim 单事务提交认领：条件写班次容量 + 新建认领 +（令牌入口）核销令牌
// 乐观锁未命中映射为 ErrClaimConflict
func (s *claimService) commitClaim(ctx context.Context, shift *model.Shift, casual *model.Casual, n *model.ShiftNotification) (*model.ShiftClaim, error) {
	now := s.clock.Now()

	claim, err := applyClaim(shift, casual, now)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Shift.Update(ctx, shift); err != nil {
			return err
		}
		if err := txRepo.Claim.Create(ctx, claim); err != nil {
			return err
		}
		if n != nil {
			if err := markUsed(n, now); err != nil {
				return err
			}
			return txRepo.Notification.Update(ctx, n)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrClaimConflict
		}
		s.logger.Error("提交认领失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		return nil, err
	}

	shift.Claims = append(shift.Claims, *claim)
	return claim, nil
}

// commitRelease 单事务提交释放：条件写班次容量 + 更新认领状态
func (s *claimService) commitRelease(ctx context.Context, shift *model.Shift, claim *model.ShiftClaim, newStatus string) error {
	if err := applyRelease(shift, claim, newStatus); err != nil {
		return err
	}

	err := s.repo.WithTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Shift.Update(ctx, shift); err != nil {
			return err
		}
		return txRepo.Claim.Update(ctx, claim)
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return ErrClaimConflict
		}
		s.logger.Error("提交释放失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		return err
	}

	// 同步内存中的认领快照
	for i := range shift.Claims {
		if shift.Claims[i].ShiftClaimID == claim.ShiftClaimID {
			shift.Claims[i].Status = newStatus
		}
	}
	return nil
}

func (s *claimService) getNotification(ctx context.Context, claimToken string) (*model.ShiftNotification, error) {
	n, err := s.repo.Notification.GetByToken(ctx, claimToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		s.logger.Error("查询认领通知失败", zap.Error(err))
		return nil, err
	}
	if n.Shift == nil || n.Casual == nil {
		return nil, ErrTokenInvalid
	}
	return n, nil
}

func (s *claimService) getActiveClaim(ctx context.Context, shiftID, casualID string) (*model.ShiftClaim, error) {
	claim, err := s.repo.Claim.GetActive(ctx, shiftID, casualID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveClaim
		}
		s.logger.Error("查询认领记录失败", zap.Error(err))
		return nil, err
	}
	return claim, nil
}

func (s *claimService) authorizePool(ctx context.Context, poolID, callerID string) (*model.Pool, error) {
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

func (s *claimService) getPoolShift(ctx context.Context, poolID, shiftID string) (*model.Shift, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}
	if shift.PoolID != poolID {
		return nil, ErrShiftNotFound
	}
	return shift, nil
}

// toShiftResult 认领/释放结果中的班次视图（不含认领明细，避免响应膨胀）
func toShiftResult(shift *model.Shift) *dto.ShiftResponse {
	return &dto.ShiftResponse{
		ID:             shift.ShiftID,
		PoolID:         shift.PoolID,
		StartsAt:       shift.StartsAt.Format(time.RFC3339),
		EndsAt:         shift.EndsAt.Format(time.RFC3339),
		SpotsNeeded:    shift.SpotsNeeded,
		SpotsRemaining: shift.SpotsRemaining,
		Status:         shift.Status,
		Version:        shift.Version,
	}
}
