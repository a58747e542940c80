package model

// Manager 经理账号表 — 对应 managers
type Manager struct {
	ManagerID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"manager_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	VersionedModel
}

// TableName 指定表名
func (Manager) TableName() string { return "managers" }
