package model

import "time"

// Shift 状态
const (
	ShiftOpen      = "open"
	ShiftFilled    = "filled"
	ShiftCancelled = "cancelled"
)

// Shift 班次表 — 对应 shifts
// 不变量：0 ≤ spots_remaining ≤ spots_needed；filled ⟺ spots_remaining == 0；
// cancelled 为终态。容量只经认领 −1 / 释放 +1 变化，且必须带 version 条件提交
type Shift struct {
	ShiftID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_id"`
	PoolID         string    `gorm:"type:uuid;not null"                             json:"pool_id"`
	StartsAt       time.Time `gorm:"not null"                                       json:"starts_at"`
	EndsAt         time.Time `gorm:"not null"                                       json:"ends_at"`
	SpotsNeeded    int       `gorm:"not null"                                       json:"spots_needed"`
	SpotsRemaining int       `gorm:"not null"                                       json:"spots_remaining"`
	Status         string    `gorm:"type:varchar(20);not null;default:'open'"       json:"status"` // open | filled | cancelled
	VersionedModel

	// 关联
	Pool   *Pool        `gorm:"foreignKey:PoolID;references:PoolID" json:"pool,omitempty"`
	Claims []ShiftClaim `gorm:"foreignKey:ShiftID"                  json:"claims,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }

// ActiveClaimBy 返回该零工在本班次上的有效认领，不存在时返回 nil
// 要求 Claims 已预加载
func (s *Shift) ActiveClaimBy(casualID string) *ShiftClaim {
	for i := range s.Claims {
		if s.Claims[i].CasualID == casualID && s.Claims[i].Status == ClaimClaimed {
			return &s.Claims[i]
		}
	}
	return nil
}
