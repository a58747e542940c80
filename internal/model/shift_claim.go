package model

import "time"

// ShiftClaim 状态
const (
	ClaimClaimed           = "claimed"
	ClaimBailed            = "bailed"
	ClaimReleasedByManager = "released_by_manager"
)

// ShiftClaim 认领记录表 — 对应 shift_claims
// 同一零工对同一班次最多一条 claimed 行（部分唯一索引保证）；
// bailed / released_by_manager 行作为审计历史保留
type ShiftClaim struct {
	ShiftClaimID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_claim_id"`
	ShiftID      string    `gorm:"type:uuid;not null"                             json:"shift_id"`
	CasualID     string    `gorm:"type:uuid;not null"                             json:"casual_id"`
	Status       string    `gorm:"type:varchar(20);not null;default:'claimed'"    json:"status"` // claimed | bailed | released_by_manager
	ClaimedAt    time.Time `gorm:"not null"                                       json:"claimed_at"`
	VersionedModel

	// 关联
	Shift  *Shift  `gorm:"foreignKey:ShiftID;references:ShiftID"    json:"shift,omitempty"`
	Casual *Casual `gorm:"foreignKey:CasualID;references:CasualID"  json:"casual,omitempty"`
}

// TableName 指定表名
func (ShiftClaim) TableName() string { return "shift_claims" }
