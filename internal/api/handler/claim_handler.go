package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shiftdrop/backend/internal/dto"
	"shiftdrop/backend/internal/service"
	"shiftdrop/backend/pkg/response"
)

// ClaimHandler 认领模块 HTTP 处理器
// /c/:token 系列是短信一键认领入口，公开访问（随机令牌即凭证）；
// 其余路由为经理侧，需要认证
type ClaimHandler struct {
	claimSvc service.ClaimService
}

// NewClaimHandler 创建 ClaimHandler
func NewClaimHandler(claimSvc service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimSvc: claimSvc}
}

// PreviewToken 一键认领落地页数据（公开）
// GET /c/:token
func (h *ClaimHandler) PreviewToken(c *gin.Context) {
	result, err := h.claimSvc.PreviewToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handleClaimError(c, err)
		return
	}

	response.OK(c, result)
}

// ClaimByToken 短信一键认领（公开）
// POST /c/:token
func (h *ClaimHandler) ClaimByToken(c *gin.Context) {
	result, err := h.claimSvc.ClaimByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handleClaimError(c, err)
		return
	}

	response.OK(c, result)
}

// Bail 零工释放已认领名额（公开，凭认领链接 + 手机号）
// POST /c/:token/bail
func (h *ClaimHandler) Bail(c *gin.Context) {
	var req dto.BailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.claimSvc.Bail(c.Request.Context(), c.Param("token"), &req)
	if err != nil {
		h.handleClaimError(c, err)
		return
	}

	response.OK(c, result)
}

// WebClaim 经理代零工认领（Web 端）
// POST /api/v1/pools/:id/shifts/:shift_id/claims
func (h *ClaimHandler) WebClaim(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	var req dto.WebClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.claimSvc.Claim(c.Request.Context(), c.Param("id"), c.Param("shift_id"), &req, managerID)
	if err != nil {
		h.handleClaimError(c, err)
		return
	}

	response.Created(c, result)
}

// ManagerRelease 经理释放指定零工的认领
// POST /api/v1/pools/:id/shifts/:shift_id/release
func (h *ClaimHandler) ManagerRelease(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	var req dto.ManagerReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.claimSvc.ManagerRelease(c.Request.Context(), c.Param("id"), c.Param("shift_id"), &req, managerID)
	if err != nil {
		h.handleClaimError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *ClaimHandler) handleClaimError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPoolNotFound):
		response.NotFound(c, 12001, "用工池不存在")
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 14001, "班次不存在")
	case errors.Is(err, service.ErrCasualNotFound):
		response.NotFound(c, 13001, "零工不存在")
	case errors.Is(err, service.ErrShiftCancelled):
		response.BadRequest(c, 14003, "班次已取消")
	case errors.Is(err, service.ErrShiftFilled):
		response.BadRequest(c, 14004, "班次名额已满")
	case errors.Is(err, service.ErrAlreadyClaimed):
		response.BadRequest(c, 15001, "已认领过该班次")
	case errors.Is(err, service.ErrCasualNotActive):
		response.BadRequest(c, 15002, "当前不可认领")
	case errors.Is(err, service.ErrNoActiveClaim):
		response.NotFound(c, 15003, "未找到有效认领记录")
	case errors.Is(err, service.ErrClaimConflict):
		// 可重试冲突，与前置条件失败区分
		response.Conflict(c, 15004, "名额刚刚被抢走，去看看其他班次吧")
	case errors.Is(err, service.ErrTokenInvalid):
		response.NotFound(c, 15101, "认领链接无效")
	case errors.Is(err, service.ErrTokenUsed):
		response.BadRequest(c, 15102, "认领链接已被使用")
	case errors.Is(err, service.ErrTokenRevoked):
		response.BadRequest(c, 15103, "认领链接已失效：班次已取消")
	case errors.Is(err, service.ErrTokenExpired):
		response.BadRequest(c, 15104, "认领链接已过期")
	default:
		response.InternalError(c)
	}
}
