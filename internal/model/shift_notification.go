package model

import "time"

// ShiftNotification 令牌状态（expired 为计算态，不落库）
const (
	TokenPending = "pending"
	TokenUsed    = "used"
	TokenRevoked = "revoked"
)

// ClaimTokenValidity 认领令牌有效窗口
// 超过该时长的 pending 令牌视为 expired
const ClaimTokenValidity = 7 * 24 * time.Hour

// ShiftNotification 认领通知表 — 对应 shift_notifications
// 一次性能力令牌：绑定一个零工与一个班次，支撑短信一键认领
type ShiftNotification struct {
	ShiftNotificationID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_notification_id"`
	ShiftID             string     `gorm:"type:uuid;not null"                             json:"shift_id"`
	CasualID            string     `gorm:"type:uuid;not null"                             json:"casual_id"`
	ClaimToken          string     `gorm:"type:varchar(64);not null"                      json:"-"`
	TokenStatus         string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"token_status"` // pending | used | revoked
	CreatedAt           time.Time  `gorm:"not null"                                       json:"created_at"`
	UsedAt              *time.Time `json:"used_at,omitempty"`
	UpdatedAt           time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
	Version             int        `gorm:"not null;default:1"                             json:"version"`

	// 关联
	Shift  *Shift  `gorm:"foreignKey:ShiftID;references:ShiftID"   json:"shift,omitempty"`
	Casual *Casual `gorm:"foreignKey:CasualID;references:CasualID" json:"casual,omitempty"`
}

// TableName 指定表名
func (ShiftNotification) TableName() string { return "shift_notifications" }

// IsExpired 令牌是否超出有效窗口
func (n *ShiftNotification) IsExpired(now time.Time) bool {
	return now.Sub(n.CreatedAt) >= ClaimTokenValidity
}

// IsValid 令牌当前是否可用于认领：pending 且未过期
func (n *ShiftNotification) IsValid(now time.Time) bool {
	return n.TokenStatus == TokenPending && !n.IsExpired(now)
}
