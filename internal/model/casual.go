package model

import "time"

// Casual 邀请状态
const (
	CasualInvitePending  = "pending"
	CasualInviteAccepted = "accepted"
)

// Casual 零工表 — 对应 casuals
// 软删除通过 removed_at 墓碑实现，认领历史在移除后仍保留用于审计
type Casual struct {
	CasualID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"casual_id"`
	PoolID       string     `gorm:"type:uuid;not null"                             json:"pool_id"`
	Name         string     `gorm:"type:varchar(100);not null"                     json:"name"`
	PhoneNumber  string     `gorm:"type:varchar(20);not null"                      json:"phone_number"`
	InviteStatus string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"invite_status"` // pending | accepted
	InviteToken  string     `gorm:"type:varchar(64);not null"                      json:"-"`
	InvitedAt    time.Time  `gorm:"not null"                                       json:"invited_at"`
	OptedOutAt   *time.Time `json:"opted_out_at,omitempty"`
	RemovedAt    *time.Time `json:"removed_at,omitempty"`
	VersionedModel

	// 关联
	Pool         *Pool              `gorm:"foreignKey:PoolID;references:PoolID" json:"pool,omitempty"`
	Availability []AvailabilitySlot `gorm:"foreignKey:CasualID"                 json:"availability,omitempty"`
}

// TableName 指定表名
func (Casual) TableName() string { return "casuals" }

// IsActive 是否可被通知/认领
// 已接受邀请、未退订且未被移除
func (c *Casual) IsActive() bool {
	return c.InviteStatus == CasualInviteAccepted && c.OptedOutAt == nil && c.RemovedAt == nil
}

// AvailabilitySlot 每周可用时段表 — 对应 availability_slots
type AvailabilitySlot struct {
	AvailabilitySlotID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"availability_slot_id"`
	CasualID           string    `gorm:"type:uuid;not null"                             json:"casual_id"`
	DayOfWeek          int       `gorm:"type:smallint;not null"                         json:"day_of_week"` // 0=周日 … 6=周六
	FromTime           string    `gorm:"type:time;not null"                             json:"from_time"`   // "HH:MM"
	ToTime             string    `gorm:"type:time;not null"                             json:"to_time"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AvailabilitySlot) TableName() string { return "availability_slots" }

// Covers 时段是否覆盖 [from, to)（同一自然日内的班次窗口）
func (s *AvailabilitySlot) Covers(dayOfWeek int, from, to string) bool {
	return s.DayOfWeek == dayOfWeek && s.FromTime <= from && to <= s.ToTime
}
