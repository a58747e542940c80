package model

import "time"

// PoolAdmin 协管员状态
const (
	PoolAdminPending  = "pending"
	PoolAdminAccepted = "accepted"
)

// Pool 用工池表 — 对应 pools
// 租户边界：Casual 与 Shift 均归属且仅归属一个 Pool
type Pool struct {
	PoolID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"pool_id"`
	Name    string `gorm:"type:varchar(100);not null"                     json:"name"`
	OwnerID string `gorm:"type:uuid;not null"                             json:"owner_id"`
	VersionedModel

	// 关联
	Owner *Manager `gorm:"foreignKey:OwnerID;references:ManagerID" json:"owner,omitempty"`
}

// TableName 指定表名
func (Pool) TableName() string { return "pools" }

// PoolAdmin 协管员表 — 对应 pool_admins
// 经理通过邀请令牌加入，accepted 后才具备池内管理权限
type PoolAdmin struct {
	PoolAdminID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"pool_admin_id"`
	PoolID      string     `gorm:"type:uuid;not null"                             json:"pool_id"`
	ManagerID   string     `gorm:"type:uuid;not null"                             json:"manager_id"`
	InviteToken string     `gorm:"type:varchar(64);not null"                      json:"-"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | accepted
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	VersionedModel

	// 关联
	Pool    *Pool    `gorm:"foreignKey:PoolID;references:PoolID"       json:"pool,omitempty"`
	Manager *Manager `gorm:"foreignKey:ManagerID;references:ManagerID" json:"manager,omitempty"`
}

// TableName 指定表名
func (PoolAdmin) TableName() string { return "pool_admins" }
