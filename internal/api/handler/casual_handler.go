package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shiftdrop/backend/internal/dto"
	"shiftdrop/backend/internal/service"
	"shiftdrop/backend/pkg/response"
)

// CasualHandler 零工模块 HTTP 处理器
// 经理侧路由需要认证；VerifyInvite / OptOut 是短信链接入口，公开访问
type CasualHandler struct {
	casualSvc service.CasualService
}

// NewCasualHandler 创建 CasualHandler
func NewCasualHandler(casualSvc service.CasualService) *CasualHandler {
	return &CasualHandler{casualSvc: casualSvc}
}

// InviteCasual 邀请零工入池
// POST /api/v1/pools/:id/casuals
func (h *CasualHandler) InviteCasual(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	var req dto.InviteCasualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	casual, err := h.casualSvc.Invite(c.Request.Context(), c.Param("id"), &req, managerID)
	if err != nil {
		h.handleCasualError(c, err)
		return
	}

	response.Created(c, casual)
}

// ResendInvite 重发邀请短信（轮换邀请令牌）
// POST /api/v1/pools/:id/casuals/:casual_id/resend-invite
func (h *CasualHandler) ResendInvite(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	casual, err := h.casualSvc.ResendInvite(c.Request.Context(), c.Param("id"), c.Param("casual_id"), managerID)
	if err != nil {
		h.handleCasualError(c, err)
		return
	}

	response.OK(c, casual)
}

// ListCasuals 池内零工列表
// GET /api/v1/pools/:id/casuals
func (h *CasualHandler) ListCasuals(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	casuals, total, err := h.casualSvc.List(c.Request.Context(), c.Param("id"), &page, managerID)
	if err != nil {
		h.handleCasualError(c, err)
		return
	}

	response.OKPage(c, casuals, total, page.GetPage(), page.GetPageSize())
}

// RemoveCasual 移除零工（软删除，认领历史保留）
// DELETE /api/v1/pools/:id/casuals/:casual_id
func (h *CasualHandler) RemoveCasual(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	if err := h.casualSvc.Remove(c.Request.Context(), c.Param("id"), c.Param("casual_id"), managerID); err != nil {
		h.handleCasualError(c, err)
		return
	}

	response.OK(c, nil)
}

// UpdateAvailability 整体替换零工的每周可用时段
// PUT /api/v1/pools/:id/casuals/:casual_id/availability
func (h *CasualHandler) UpdateAvailability(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	var req dto.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	casual, err := h.casualSvc.UpdateAvailability(c.Request.Context(), c.Param("id"), c.Param("casual_id"), &req, managerID)
	if err != nil {
		h.handleCasualError(c, err)
		return
	}

	response.OK(c, casual)
}

// VerifyInvite 零工确认入池（短信邀请链接，公开）
// POST /v/:token
func (h *CasualHandler) VerifyInvite(c *gin.Context) {
	casual, err := h.casualSvc.VerifyInvite(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handleCasualError(c, err)
		return
	}

	response.OK(c, casual)
}

// OptOut 零工退订（短信邀请链接，公开）
// POST /v/:token/opt-out
func (h *CasualHandler) OptOut(c *gin.Context) {
	var req dto.OptOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.casualSvc.OptOut(c.Request.Context(), c.Param("token"), &req); err != nil {
		h.handleCasualError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *CasualHandler) handleCasualError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPoolNotFound):
		response.NotFound(c, 12001, "用工池不存在")
	case errors.Is(err, service.ErrCasualNotFound):
		response.NotFound(c, 13001, "零工不存在")
	case errors.Is(err, service.ErrCasualPhoneTaken):
		response.BadRequest(c, 13002, "该手机号已在池中")
	case errors.Is(err, service.ErrCasualInviteInvalid):
		response.NotFound(c, 13003, "邀请链接无效")
	case errors.Is(err, service.ErrCasualAlreadyActive):
		response.BadRequest(c, 13004, "该零工已接受邀请")
	case errors.Is(err, service.ErrCasualRemoved):
		response.BadRequest(c, 13005, "该零工已被移除")
	case errors.Is(err, service.ErrSlotRangeInvalid):
		response.BadRequest(c, 13006, "可用时段起止时间无效")
	default:
		response.InternalError(c)
	}
}
