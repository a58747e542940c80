package dto

// ── 用工池模块 DTO ──

// CreatePoolRequest 创建用工池请求
type CreatePoolRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

// InviteAdminRequest 邀请协管员请求
type InviteAdminRequest struct {
	ManagerEmail string `json:"manager_email" binding:"required,email"`
}

// PoolResponse 用工池信息响应
type PoolResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id"`
	CreatedAt string `json:"created_at"`
}

// PoolAdminResponse 协管员信息响应
type PoolAdminResponse struct {
	ID          string `json:"id"`
	PoolID      string `json:"pool_id"`
	ManagerID   string `json:"manager_id"`
	ManagerName string `json:"manager_name,omitempty"`
	Status      string `json:"status"`
	AcceptedAt  string `json:"accepted_at,omitempty"`
}
