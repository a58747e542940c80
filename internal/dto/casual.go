package dto

// ── 零工模块 DTO ──

// InviteCasualRequest 邀请零工请求
type InviteCasualRequest struct {
	Name        string `json:"name"         binding:"required,min=2,max=100"`
	PhoneNumber string `json:"phone_number" binding:"required,e164"`
}

// AvailabilitySlotRequest 单个每周可用时段
type AvailabilitySlotRequest struct {
	DayOfWeek int    `json:"day_of_week" binding:"min=0,max=6"`
	FromTime  string `json:"from_time"   binding:"required"` // "09:00"
	ToTime    string `json:"to_time"     binding:"required"` // "17:00"
}

// UpdateAvailabilityRequest 更新可用时段请求（整体替换）
type UpdateAvailabilityRequest struct {
	Slots []AvailabilitySlotRequest `json:"slots" binding:"required,dive"`
}

// OptOutRequest 退订请求（令牌或手机号二选一）
type OptOutRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,e164"`
}

// CasualResponse 零工信息响应
type CasualResponse struct {
	ID           string                     `json:"id"`
	PoolID       string                     `json:"pool_id"`
	Name         string                     `json:"name"`
	PhoneNumber  string                     `json:"phone_number"`
	InviteStatus string                     `json:"invite_status"`
	IsActive     bool                       `json:"is_active"`
	InvitedAt    string                     `json:"invited_at"`
	OptedOutAt   string                     `json:"opted_out_at,omitempty"`
	RemovedAt    string                     `json:"removed_at,omitempty"`
	Availability []AvailabilitySlotResponse `json:"availability"`
}

// AvailabilitySlotResponse 可用时段响应
type AvailabilitySlotResponse struct {
	DayOfWeek int    `json:"day_of_week"`
	FromTime  string `json:"from_time"`
	ToTime    string `json:"to_time"`
}
