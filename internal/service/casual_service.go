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
	"shiftdrop/backend/pkg/token"
)

// ── 零工模块业务错误 ──

var (
	ErrCasualNotFound      = errors.New("零工不存在")
	ErrCasualPhoneTaken    = errors.New("该手机号已在池中")
	ErrCasualInviteInvalid = errors.New("邀请链接无效")
	ErrCasualAlreadyActive = errors.New("该零工已接受邀请")
	ErrCasualRemoved       = errors.New("该零工已被移除")
	ErrSlotRangeInvalid    = errors.New("可用时段起止时间无效")
)

// CasualService 零工业务接口
type CasualService interface {
	Invite(ctx context.Context, poolID string, req *dto.InviteCasualRequest, callerID string) (*dto.CasualResponse, error)
	ResendInvite(ctx context.Context, poolID, casualID, callerID string) (*dto.CasualResponse, error)
	// VerifyInvite 零工点击邀请链接后接受邀请（公开入口，凭令牌鉴权）
	VerifyInvite(ctx context.Context, inviteToken string) (*dto.CasualResponse, error)
	// OptOut 零工退订：不再接收任何班次通知（公开入口，凭令牌鉴权）
	OptOut(ctx context.Context, inviteToken string, req *dto.OptOutRequest) error
	Remove(ctx context.Context, poolID, casualID, callerID string) error
	UpdateAvailability(ctx context.Context, poolID, casualID string, req *dto.UpdateAvailabilityRequest, callerID string) (*dto.CasualResponse, error)
	List(ctx context.Context, poolID string, page *dto.PaginationRequest, callerID string) ([]dto.CasualResponse, int64, error)
}

type casualService struct {
	cfg    *config.Config
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewCasualService 创建 CasualService 实例
func NewCasualService(cfg *config.Config, repo *repository.Repository, clk clock.Clock, logger *zap.Logger) CasualService {
	return &casualService{cfg: cfg, repo: repo, clock: clk, logger: logger}
}

// ────────────────────── Invite ──────────────────────

func (s *casualService) Invite(ctx context.Context, poolID string, req *dto.InviteCasualRequest, callerID string) (*dto.CasualResponse, error) {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return nil, err
	}

	// 同池手机号查重
	if _, err := s.repo.Casual.GetByPhone(ctx, poolID, req.PhoneNumber); err == nil {
		return nil, ErrCasualPhoneTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询零工失败", zap.Error(err))
		return nil, err
	}

	inviteToken, err := token.New()
	if err != nil {
		s.logger.Error("生成邀请令牌失败", zap.Error(err))
		return nil, err
	}

	now := s.clock.Now()
	casual := &model.Casual{
		PoolID:       poolID,
		Name:         req.Name,
		PhoneNumber:  req.PhoneNumber,
		InviteStatus: model.CasualInvitePending,
		InviteToken:  inviteToken,
		InvitedAt:    now,
	}
	casual.CreatedBy = &callerID

	// 创建 + 邀请短信入队，同一事务
	err = s.repo.WithTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Casual.Create(ctx, casual); err != nil {
			return err
		}
		return txRepo.Outbox.Enqueue(ctx, s.inviteMessage(casual))
	})
	if err != nil {
		s.logger.Error("创建零工失败", zap.Error(err))
		return nil, err
	}

	return s.toCasualResponse(casual), nil
}

// ────────────────────── ResendInvite ──────────────────────

func (s *casualService) ResendInvite(ctx context.Context, poolID, casualID, callerID string) (*dto.CasualResponse, error) {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return nil, err
	}

	casual, err := s.getPoolCasual(ctx, poolID, casualID)
	if err != nil {
		return nil, err
	}
	if casual.RemovedAt != nil {
		return nil, ErrCasualRemoved
	}
	if casual.InviteStatus == model.CasualInviteAccepted {
		return nil, ErrCasualAlreadyActive
	}

	// 轮换令牌后重发，旧链接随之失效
	inviteToken, err := token.New()
	if err != nil {
		s.logger.Error("生成邀请令牌失败", zap.Error(err))
		return nil, err
	}
	casual.InviteToken = inviteToken
	casual.InvitedAt = s.clock.Now()
	casual.UpdatedBy = &callerID

	err = s.repo.WithTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Casual.Update(ctx, casual); err != nil {
			return err
		}
		return txRepo.Outbox.Enqueue(ctx, s.inviteMessage(casual))
	})
	if err != nil {
		s.logger.Error("重发邀请失败", zap.Error(err))
		return nil, err
	}

	return s.toCasualResponse(casual), nil
}

// ────────────────────── VerifyInvite ──────────────────────

func (s *casualService) VerifyInvite(ctx context.Context, inviteToken string) (*dto.CasualResponse, error) {
	casual, err := s.repo.Casual.GetByInviteToken(ctx, inviteToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCasualInviteInvalid
		}
		s.logger.Error("查询零工失败", zap.Error(err))
		return nil, err
	}

	if casual.InviteStatus == model.CasualInviteAccepted {
		return s.toCasualResponse(casual), nil // 幂等：重复点击直接返回当前状态
	}

	casual.InviteStatus = model.CasualInviteAccepted
	if err := s.repo.Casual.Update(ctx, casual); err != nil {
		s.logger.Error("接受邀请失败", zap.Error(err))
		return nil, err
	}

	return s.toCasualResponse(casual), nil
}

// ────────────────────── OptOut ──────────────────────

func (s *casualService) OptOut(ctx context.Context, inviteToken string, req *dto.OptOutRequest) error {
	casual, err := s.repo.Casual.GetByInviteToken(ctx, inviteToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCasualInviteInvalid
		}
		s.logger.Error("查询零工失败", zap.Error(err))
		return err
	}
	// 手机号必须与令牌归属一致；不一致与无效链接不可区分
	if casual.PhoneNumber != req.PhoneNumber {
		return ErrCasualInviteInvalid
	}

	if casual.OptedOutAt != nil {
		return nil // 幂等：重复退订不报错
	}

	now := s.clock.Now()
	casual.OptedOutAt = &now
	if err := s.repo.Casual.Update(ctx, casual); err != nil {
		s.logger.Error("退订失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Remove ──────────────────────

func (s *casualService) Remove(ctx context.Context, poolID, casualID, callerID string) error {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return err
	}

	casual, err := s.getPoolCasual(ctx, poolID, casualID)
	if err != nil {
		return err
	}
	if casual.RemovedAt != nil {
		return nil // 幂等：已移除
	}

	// 软删除墓碑：保留既有认领历史供审计
	now := s.clock.Now()
	casual.RemovedAt = &now
	casual.UpdatedBy = &callerID

	if err := s.repo.Casual.Update(ctx, casual); err != nil {
		s.logger.Error("移除零工失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── UpdateAvailability ──────────────────────

func (s *casualService) UpdateAvailability(ctx context.Context, poolID, casualID string, req *dto.UpdateAvailabilityRequest, callerID string) (*dto.CasualResponse, error) {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return nil, err
	}

	casual, err := s.getPoolCasual(ctx, poolID, casualID)
	if err != nil {
		return nil, err
	}
	if casual.RemovedAt != nil {
		return nil, ErrCasualRemoved
	}

	slots := make([]model.AvailabilitySlot, 0, len(req.Slots))
	for _, slot := range req.Slots {
		if slot.FromTime >= slot.ToTime {
			return nil, ErrSlotRangeInvalid
		}
		slots = append(slots, model.AvailabilitySlot{
			DayOfWeek: slot.DayOfWeek,
			FromTime:  slot.FromTime,
			ToTime:    slot.ToTime,
		})
	}

	if err := s.repo.Casual.ReplaceAvailability(ctx, casualID, slots); err != nil {
		s.logger.Error("更新可用时段失败", zap.Error(err))
		return nil, err
	}

	casual.Availability = slots
	return s.toCasualResponse(casual), nil
}

// ────────────────────── List ──────────────────────

func (s *casualService) List(ctx context.Context, poolID string, page *dto.PaginationRequest, callerID string) ([]dto.CasualResponse, int64, error) {
	if _, err := s.authorizePool(ctx, poolID, callerID); err != nil {
		return nil, 0, err
	}

	casuals, total, err := s.repo.Casual.ListByPool(ctx, poolID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("列出零工失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CasualResponse, 0, len(casuals))
	for i := range casuals {
		result = append(result, *s.toCasualResponse(&casuals[i]))
	}
	return result, total, nil
}

// ── 内部辅助方法 ──

func (s *casualService) authorizePool(ctx context.Context, poolID, callerID string) (*model.Pool, error) {
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

func (s *casualService) getPoolCasual(ctx context.Context, poolID, casualID string) (*model.Casual, error) {
	casual, err := s.repo.Casual.GetByID(ctx, casualID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCasualNotFound
		}
		s.logger.Error("查询零工失败", zap.Error(err))
		return nil, err
	}
	// 跨池访问与不存在不可区分
	if casual.PoolID != poolID {
		return nil, ErrCasualNotFound
	}
	return casual, nil
}

func (s *casualService) inviteMessage(casual *model.Casual) *model.OutboxMessage {
	return &model.OutboxMessage{
		Channel:          model.OutboxChannelSMS,
		RecipientContact: casual.PhoneNumber,
		BodyText:         fmt.Sprintf("你好 %s，你被邀请加入零工池，点击链接确认加入", casual.Name),
		ActionURL:        fmt.Sprintf("%s/v/%s", s.cfg.Server.BaseURL, casual.InviteToken),
		Status:           model.OutboxPending,
	}
}

func (s *casualService) toCasualResponse(casual *model.Casual) *dto.CasualResponse {
	resp := &dto.CasualResponse{
		ID:           casual.CasualID,
		PoolID:       casual.PoolID,
		Name:         casual.Name,
		PhoneNumber:  casual.PhoneNumber,
		InviteStatus: casual.InviteStatus,
		IsActive:     casual.IsActive(),
		InvitedAt:    casual.InvitedAt.Format(time.RFC3339),
		Availability: make([]dto.AvailabilitySlotResponse, 0, len(casual.Availability)),
	}
	if casual.OptedOutAt != nil {
		resp.OptedOutAt = casual.OptedOutAt.Format(time.RFC3339)
	}
	if casual.RemovedAt != nil {
		resp.RemovedAt = casual.RemovedAt.Format(time.RFC3339)
	}
	for _, slot := range casual.Availability {
		resp.Availability = append(resp.Availability, dto.AvailabilitySlotResponse{
			DayOfWeek: slot.DayOfWeek,
			FromTime:  slot.FromTime,
			ToTime:    slot.ToTime,
		})
	}
	return resp
}
