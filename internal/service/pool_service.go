package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftdrop/backend/internal/dto"
	"shiftdrop/backend/internal/model"
	"shiftdrop/backend/internal/repository"
	"shiftdrop/backend/pkg/clock"
	"shiftdrop/backend/pkg/token"
)

// ── 用工池模块业务错误 ──

var (
	// ErrPoolNotFound 池不存在或调用方无权访问（二者不可区分，避免存在性泄露）
	ErrPoolNotFound       = errors.New("用工池不存在")
	ErrAdminAlreadyInPool = errors.New("该经理已在池中")
	ErrInviteNotFound     = errors.New("邀请无效")
	ErrInviteAlreadyUsed  = errors.New("邀请已被接受")
)

// PoolService 用工池业务接口
type PoolService interface {
	Create(ctx context.Context, req *dto.CreatePoolRequest, callerID string) (*dto.PoolResponse, error)
	Get(ctx context.Context, poolID, callerID string) (*dto.PoolResponse, error)
	List(ctx context.Context, callerID string) ([]dto.PoolResponse, error)
	InviteAdmin(ctx context.Context, poolID string, req *dto.InviteAdminRequest, callerID string) (*dto.PoolAdminResponse, error)
	AcceptAdminInvite(ctx context.Context, inviteToken, callerID string) (*dto.PoolAdminResponse, error)
	ListAdmins(ctx context.Context, poolID, callerID string) ([]dto.PoolAdminResponse, error)
}

type poolService struct {
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewPoolService 创建 PoolService 实例
func NewPoolService(repo *repository.Repository, clk clock.Clock, logger *zap.Logger) PoolService {
	return &poolService{repo: repo, clock: clk, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *poolService) Create(ctx context.Context, req *dto.CreatePoolRequest, callerID string) (*dto.PoolResponse, error) {
	pool := &model.Pool{
		Name:    req.Name,
		OwnerID: callerID,
	}
	pool.CreatedBy = &callerID

	if err := s.repo.Pool.Create(ctx, pool); err != nil {
		s.logger.Error("创建用工池失败", zap.Error(err))
		return nil, err
	}

	return s.toPoolResponse(pool), nil
}

// ────────────────────── Get ──────────────────────

func (s *poolService) Get(ctx context.Context, poolID, callerID string) (*dto.PoolResponse, error) {
	pool, err := s.repo.Pool.GetAuthorized(ctx, poolID, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		s.logger.Error("查询用工池失败", zap.String("pool_id", poolID), zap.Error(err))
		return nil, err
	}
	return s.toPoolResponse(pool), nil
}

// ────────────────────── List ──────────────────────

func (s *poolService) List(ctx context.Context, callerID string) ([]dto.PoolResponse, error) {
	pools, err := s.repo.Pool.ListByManager(ctx, callerID)
	if err != nil {
		s.logger.Error("列出用工池失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.PoolResponse, 0, len(pools))
	for i := range pools {
		result = append(result, *s.toPoolResponse(&pools[i]))
	}
	return result, nil
}

// ────────────────────── InviteAdmin ──────────────────────

func (s *poolService) InviteAdmin(ctx context.Context, poolID string, req *dto.InviteAdminRequest, callerID string) (*dto.PoolAdminResponse, error) {
	// 1. 鉴权：仅池内经理可邀请
	pool, err := s.repo.Pool.GetAuthorized(ctx, poolID, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		s.logger.Error("查询用工池失败", zap.Error(err))
		return nil, err
	}

	// 2. 被邀请经理必须已注册
	invitee, err := s.repo.Manager.GetByEmail(ctx, req.ManagerEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrManagerNotFound
		}
		s.logger.Error("查询经理失败", zap.Error(err))
		return nil, err
	}
	if invitee.ManagerID == pool.OwnerID {
		return nil, ErrAdminAlreadyInPool
	}
	if _, err := s.repo.PoolAdmin.GetByPoolAndManager(ctx, poolID, invitee.ManagerID); err == nil {
		return nil, ErrAdminAlreadyInPool
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询协管员失败", zap.Error(err))
		return nil, err
	}

	// 3. 生成邀请令牌并落库
	inviteToken, err := token.New()
	if err != nil {
		s.logger.Error("生成邀请令牌失败", zap.Error(err))
		return nil, err
	}

	admin := &model.PoolAdmin{
		PoolID:      poolID,
		ManagerID:   invitee.ManagerID,
		InviteToken: inviteToken,
		Status:      model.PoolAdminPending,
	}
	admin.CreatedBy = &callerID

	if err := s.repo.PoolAdmin.Create(ctx, admin); err != nil {
		s.logger.Error("创建协管员邀请失败", zap.Error(err))
		return nil, err
	}

	return s.toPoolAdminResponse(admin), nil
}

// ────────────────────── AcceptAdminInvite ──────────────────────

func (s *poolService) AcceptAdminInvite(ctx context.Context, inviteToken, callerID string) (*dto.PoolAdminResponse, error) {
	admin, err := s.repo.PoolAdmin.GetByToken(ctx, inviteToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		s.logger.Error("查询协管员邀请失败", zap.Error(err))
		return nil, err
	}

	// 邀请只能由被邀请人本人接受；他人访问与无效邀请不可区分
	if admin.ManagerID != callerID {
		return nil, ErrInviteNotFound
	}
	if admin.Status != model.PoolAdminPending {
		return nil, ErrInviteAlreadyUsed
	}

	now := s.clock.Now()
	admin.Status = model.PoolAdminAccepted
	admin.AcceptedAt = &now
	admin.UpdatedBy = &callerID

	if err := s.repo.PoolAdmin.Update(ctx, admin); err != nil {
		s.logger.Error("接受协管员邀请失败", zap.Error(err))
		return nil, err
	}

	return s.toPoolAdminResponse(admin), nil
}

// ────────────────────── ListAdmins ──────────────────────

func (s *poolService) ListAdmins(ctx context.Context, poolID, callerID string) ([]dto.PoolAdminResponse, error) {
	if _, err := s.repo.Pool.GetAuthorized(ctx, poolID, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		s.logger.Error("查询用工池失败", zap.Error(err))
		return nil, err
	}

	admins, err := s.repo.PoolAdmin.ListByPool(ctx, poolID)
	if err != nil {
		s.logger.Error("列出协管员失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.PoolAdminResponse, 0, len(admins))
	for i := range admins {
		result = append(result, *s.toPoolAdminResponse(&admins[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *poolService) toPoolResponse(pool *model.Pool) *dto.PoolResponse {
	return &dto.PoolResponse{
		ID:        pool.PoolID,
		Name:      pool.Name,
		OwnerID:   pool.OwnerID,
		CreatedAt: pool.CreatedAt.Format(time.RFC3339),
	}
}

func (s *poolService) toPoolAdminResponse(admin *model.PoolAdmin) *dto.PoolAdminResponse {
	resp := &dto.PoolAdminResponse{
		ID:        admin.PoolAdminID,
		PoolID:    admin.PoolID,
		ManagerID: admin.ManagerID,
		Status:    admin.Status,
	}
	if admin.Manager != nil {
		resp.ManagerName = admin.Manager.Name
	}
	if admin.AcceptedAt != nil {
		resp.AcceptedAt = admin.AcceptedAt.Format(time.RFC3339)
	}
	return resp
}
