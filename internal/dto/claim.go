package dto

// ── 认领模块 DTO ──

// WebClaimRequest 经认证 Web 端认领请求（经理代零工录入场景）
type WebClaimRequest struct {
	CasualID string `json:"casual_id" binding:"required,uuid"`
}

// BailRequest 零工释放（bail）请求：凭手机号匹配池内身份
type BailRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,e164"`
}

// ManagerReleaseRequest 经理释放请求
type ManagerReleaseRequest struct {
	CasualID string `json:"casual_id" binding:"required,uuid"`
}

// ClaimResultResponse 认领成功响应
type ClaimResultResponse struct {
	Shift ShiftResponse      `json:"shift"`
	Claim ShiftClaimResponse `json:"claim"`
}

// ReleaseResultResponse 释放成功响应
type ReleaseResultResponse struct {
	Shift    ShiftResponse      `json:"shift"`
	Claim    ShiftClaimResponse `json:"claim"`
	Notified int                `json:"notified"` // 释放后重新通知的零工数
}

// TokenClaimPreviewResponse 一键认领链接落地页数据
type TokenClaimPreviewResponse struct {
	ShiftID    string `json:"shift_id"`
	StartsAt   string `json:"starts_at"`
	EndsAt     string `json:"ends_at"`
	CasualName string `json:"casual_name"`
	Claimable  bool   `json:"claimable"`
	Reason     string `json:"reason,omitempty"` // 不可认领时的具体原因
}
