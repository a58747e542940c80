package repository

import (
	"context"

	"gorm.io/gorm"

	"shiftdrop/backend/internal/model"
	pkgerrors "shiftdrop/backend/pkg/errors"
)

// PoolRepository 用工池数据访问接口
type PoolRepository interface {
	Create(ctx context.Context, pool *model.Pool) error
	GetByID(ctx context.Context, id string) (*model.Pool, error)
	// GetAuthorized 仅当 managerID 是 owner 或已接受的协管员时返回池，
	// 否则返回 gorm.ErrRecordNotFound（未授权与不存在不可区分）
	GetAuthorized(ctx context.Context, poolID, managerID string) (*model.Pool, error)
	ListByManager(ctx context.Context, managerID string) ([]model.Pool, error)
	Update(ctx context.Context, pool *model.Pool) error
	Delete(ctx context.Context, id string) error
}

// PoolAdminRepository 协管员数据访问接口
type PoolAdminRepository interface {
	Create(ctx context.Context, admin *model.PoolAdmin) error
	GetByToken(ctx context.Context, token string) (*model.PoolAdmin, error)
	GetByPoolAndManager(ctx context.Context, poolID, managerID string) (*model.PoolAdmin, error)
	ListByPool(ctx context.Context, poolID string) ([]model.PoolAdmin, error)
	Update(ctx context.Context, admin *model.PoolAdmin) error
}

// ── Pool Repository 实现 ──

type poolRepo struct {
	db *gorm.DB
}

// NewPoolRepo 创建 PoolRepository 实例
func NewPoolRepo(db *gorm.DB) PoolRepository {
	return &poolRepo{db: db}
}

func (r *poolRepo) Create(ctx context.Context, pool *model.Pool) error {
	return r.db.WithContext(ctx).Create(pool).Error
}

func (r *poolRepo) GetByID(ctx context.Context, id string) (*model.Pool, error) {
	var pool model.Pool
	err := r.db.WithContext(ctx).
		Where("pool_id = ?", id).
		First(&pool).Error
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

func (r *poolRepo) GetAuthorized(ctx context.Context, poolID, managerID string) (*model.Pool, error) {
	var pool model.Pool
	err := r.db.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Where("owner_id = ? OR pool_id IN (?)",
			managerID,
			r.db.Model(&model.PoolAdmin{}).
				Select("pool_id").
				Where("manager_id = ? AND status = ?", managerID, model.PoolAdminAccepted),
		).
		First(&pool).Error
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

func (r *poolRepo) ListByManager(ctx context.Context, managerID string) ([]model.Pool, error) {
	var pools []model.Pool
	err := r.db.WithContext(ctx).
		Where("owner_id = ? OR pool_id IN (?)",
			managerID,
			r.db.Model(&model.PoolAdmin{}).
				Select("pool_id").
				Where("manager_id = ? AND status = ?", managerID, model.PoolAdminAccepted),
		).
		Order("created_at ASC").
		Find(&pools).Error
	return pools, err
}

func (r *poolRepo) Update(ctx context.Context, pool *model.Pool) error {
	oldVersion := pool.Version
	result := r.db.WithContext(ctx).
		Model(pool).
		Where("pool_id = ? AND version = ?", pool.PoolID, oldVersion).
		Updates(map[string]interface{}{
			"name":       pool.Name,
			"owner_id":   pool.OwnerID,
			"updated_by": pool.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	pool.Version = oldVersion + 1
	return nil
}

func (r *poolRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("pool_id = ?", id).
		Delete(&model.Pool{}).Error
}

// ── PoolAdmin Repository 实现 ──

type poolAdminRepo struct {
	db *gorm.DB
}

// NewPoolAdminRepo 创建 PoolAdminRepository 实例
func NewPoolAdminRepo(db *gorm.DB) PoolAdminRepository {
	return &poolAdminRepo{db: db}
}

func (r *poolAdminRepo) Create(ctx context.Context, admin *model.PoolAdmin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

func (r *poolAdminRepo) GetByToken(ctx context.Context, token string) (*model.PoolAdmin, error) {
	var admin model.PoolAdmin
	err := r.db.WithContext(ctx).
		Preload("Pool").
		Where("invite_token = ?", token).
		First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *poolAdminRepo) GetByPoolAndManager(ctx context.Context, poolID, managerID string) (*model.PoolAdmin, error) {
	var admin model.PoolAdmin
	err := r.db.WithContext(ctx).
		Where("pool_id = ? AND manager_id = ?", poolID, managerID).
		First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *poolAdminRepo) ListByPool(ctx context.Context, poolID string) ([]model.PoolAdmin, error) {
	var admins []model.PoolAdmin
	err := r.db.WithContext(ctx).
		Preload("Manager").
		Where("pool_id = ?", poolID).
		Order("created_at ASC").
		Find(&admins).Error
	return admins, err
}

func (r *poolAdminRepo) Update(ctx context.Context, admin *model.PoolAdmin) error {
	oldVersion := admin.Version
	result := r.db.WithContext(ctx).
		Model(admin).
		Where("pool_admin_id = ? AND version = ?", admin.PoolAdminID, oldVersion).
		Updates(map[string]interface{}{
			"status":      admin.Status,
			"accepted_at": admin.AcceptedAt,
			"updated_by":  admin.UpdatedBy,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	admin.Version = oldVersion + 1
	return nil
}
