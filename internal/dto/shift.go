package dto

// ── 班次模块 DTO ──

// PostShiftRequest 发布班次请求
type PostShiftRequest struct {
	StartsAt    string `json:"starts_at"    binding:"required"` // RFC3339
	EndsAt      string `json:"ends_at"      binding:"required"` // RFC3339
	SpotsNeeded int    `json:"spots_needed" binding:"required,min=1,max=100"`
}

// ListShiftsRequest 班次列表查询参数
type ListShiftsRequest struct {
	From string `form:"from"` // RFC3339，可选
	To   string `form:"to"`   // RFC3339，可选
}

// ShiftResponse 班次信息响应
type ShiftResponse struct {
	ID             string               `json:"id"`
	PoolID         string               `json:"pool_id"`
	StartsAt       string               `json:"starts_at"`
	EndsAt         string               `json:"ends_at"`
	SpotsNeeded    int                  `json:"spots_needed"`
	SpotsRemaining int                  `json:"spots_remaining"`
	Status         string               `json:"status"`
	Version        int                  `json:"version"`
	Claims         []ShiftClaimResponse `json:"claims,omitempty"`
}

// ShiftClaimResponse 认领记录响应
type ShiftClaimResponse struct {
	ID         string `json:"id"`
	ShiftID    string `json:"shift_id"`
	CasualID   string `json:"casual_id"`
	CasualName string `json:"casual_name,omitempty"`
	Status     string `json:"status"`
	ClaimedAt  string `json:"claimed_at"`
}

// CancelShiftResponse 取消班次响应
type CancelShiftResponse struct {
	Shift         ShiftResponse `json:"shift"`
	TokensRevoked int64         `json:"tokens_revoked"`
}

// NotifyResultResponse 通知扇出结果
type NotifyResultResponse struct {
	Notified int `json:"notified"` // 本次入队的消息数
	Reused   int `json:"reused"`   // 复用已有 pending 令牌的数量
}
