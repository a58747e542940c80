package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shiftdrop/backend/internal/dto"
	"shiftdrop/backend/internal/service"
	"shiftdrop/backend/pkg/response"
)

// PoolHandler 用工池模块 HTTP 处理器
type PoolHandler struct {
	poolSvc service.PoolService
}

// NewPoolHandler 创建 PoolHandler
func NewPoolHandler(poolSvc service.PoolService) *PoolHandler {
	return &PoolHandler{poolSvc: poolSvc}
}

// CreatePool 创建用工池
// POST /api/v1/pools
func (h *PoolHandler) CreatePool(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	var req dto.CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	pool, err := h.poolSvc.Create(c.Request.Context(), &req, managerID)
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	response.Created(c, pool)
}

// GetPool 用工池详情
// GET /api/v1/pools/:id
func (h *PoolHandler) GetPool(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	pool, err := h.poolSvc.Get(c.Request.Context(), c.Param("id"), managerID)
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	response.OK(c, pool)
}

// ListPools 当前经理可见的用工池列表（自有 + 协管）
// GET /api/v1/pools
func (h *PoolHandler) ListPools(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	pools, err := h.poolSvc.List(c.Request.Context(), managerID)
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	response.OK(c, pools)
}

// InviteAdmin 邀请协管员
// POST /api/v1/pools/:id/admins
func (h *PoolHandler) InviteAdmin(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	var req dto.InviteAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	admin, err := h.poolSvc.InviteAdmin(c.Request.Context(), c.Param("id"), &req, managerID)
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	response.Created(c, admin)
}

// AcceptAdminInvite 接受协管员邀请
// POST /api/v1/pools/admin-invites/:token/accept
func (h *PoolHandler) AcceptAdminInvite(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	admin, err := h.poolSvc.AcceptAdminInvite(c.Request.Context(), c.Param("token"), managerID)
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	response.OK(c, admin)
}

// ListAdmins 协管员列表
// GET /api/v1/pools/:id/admins
func (h *PoolHandler) ListAdmins(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	admins, err := h.poolSvc.ListAdmins(c.Request.Context(), c.Param("id"), managerID)
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	response.OK(c, admins)
}

func (h *PoolHandler) handlePoolError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPoolNotFound):
		response.NotFound(c, 12001, "用工池不存在")
	case errors.Is(err, service.ErrManagerNotFound):
		response.NotFound(c, 11004, "经理账号不存在")
	case errors.Is(err, service.ErrAdminAlreadyInPool):
		response.BadRequest(c, 12002, "该经理已在池中")
	case errors.Is(err, service.ErrInviteNotFound):
		response.NotFound(c, 12003, "邀请无效")
	case errors.Is(err, service.ErrInviteAlreadyUsed):
		response.BadRequest(c, 12004, "邀请已被接受")
	default:
		response.InternalError(c)
	}
}
