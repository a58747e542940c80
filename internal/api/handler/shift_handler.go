package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shiftdrop/backend/internal/dto"
	"shiftdrop/backend/internal/service"
	"shiftdrop/backend/pkg/response"
)

// ShiftHandler 班次模块 HTTP 处理器
type ShiftHandler struct {
	shiftSvc service.ShiftService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc}
}

// PostShift 发布班次并向可用零工扇出认领通知
// POST /api/v1/pools/:id/shifts
func (h *ShiftHandler) PostShift(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	var req dto.PostShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	shift, notify, err := h.shiftSvc.Post(c.Request.Context(), c.Param("id"), &req, managerID)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.Created(c, gin.H{"shift": shift, "notify": notify})
}

// GetShift 班次详情（含认领记录）
// GET /api/v1/pools/:id/shifts/:shift_id
func (h *ShiftHandler) GetShift(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	shift, err := h.shiftSvc.Get(c.Request.Context(), c.Param("id"), c.Param("shift_id"), managerID)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, shift)
}

// ListShifts 池内班次列表
// GET /api/v1/pools/:id/shifts?from=&to=
func (h *ShiftHandler) ListShifts(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	var req dto.ListShiftsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	shifts, err := h.shiftSvc.List(c.Request.Context(), c.Param("id"), &req, managerID)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, shifts)
}

// CancelShift 取消班次：吊销所有未用令牌并短信通知有效认领者
// POST /api/v1/pools/:id/shifts/:shift_id/cancel
func (h *ShiftHandler) CancelShift(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	result, err := h.shiftSvc.Cancel(c.Request.Context(), c.Param("id"), c.Param("shift_id"), managerID)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, result)
}

// ResendNotifications 重发认领通知（有效 pending 令牌复用，不重复铸造）
// POST /api/v1/pools/:id/shifts/:shift_id/notify
func (h *ShiftHandler) ResendNotifications(c *gin.Context) {
	managerID, ok := MustGetManagerID(c)
	if !ok {
		return
	}

	result, err := h.shiftSvc.ResendNotifications(c.Request.Context(), c.Param("id"), c.Param("shift_id"), managerID)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *ShiftHandler) handleShiftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPoolNotFound):
		response.NotFound(c, 12001, "用工池不存在")
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 14001, "班次不存在")
	case errors.Is(err, service.ErrShiftTimeInvalid):
		response.BadRequest(c, 14002, "班次起止时间无效")
	case errors.Is(err, service.ErrShiftCancelled):
		response.BadRequest(c, 14003, "班次已取消")
	case errors.Is(err, service.ErrShiftFilled):
		response.BadRequest(c, 14004, "班次名额已满")
	case errors.Is(err, service.ErrShiftConflict):
		response.Conflict(c, 14005, "班次状态刚刚发生变化，请重试")
	default:
		response.InternalError(c)
	}
}
