package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Manager      ManagerRepository
	Pool         PoolRepository
	PoolAdmin    PoolAdminRepository
	Casual       CasualRepository
	Shift        ShiftRepository
	Claim        ShiftClaimRepository
	Notification ShiftNotificationRepository
	Outbox       OutboxRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Manager:      NewManagerRepo(db),
		Pool:         NewPoolRepo(db),
		PoolAdmin:    NewPoolAdminRepo(db),
		Casual:       NewCasualRepo(db),
		Shift:        NewShiftRepo(db),
		Claim:        NewShiftClaimRepo(db),
		Notification: NewShiftNotificationRepo(db),
		Outbox:       NewOutboxRepo(db),
	}
}

// WithTx 在单个数据库事务内执行 fn
// fn 收到的聚合绑定在事务连接上；fn 返回错误时整体回滚。
// 认领/释放/取消等跨表状态变更必须经由本方法提交，保证全有或全无
func (r *Repository) WithTx(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		// 测试场景下聚合由 mock 构成，无底层连接，直接执行
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
