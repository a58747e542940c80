package repository

import (
	"context"

	"gorm.io/gorm"

	"shiftdrop/backend/internal/model"
	pkgerrors "shiftdrop/backend/pkg/errors"
)

// ManagerRepository 经理账号数据访问接口
type ManagerRepository interface {
	Create(ctx context.Context, manager *model.Manager) error
	GetByID(ctx context.Context, id string) (*model.Manager, error)
	GetByEmail(ctx context.Context, email string) (*model.Manager, error)
	Update(ctx context.Context, manager *model.Manager) error
}

type managerRepo struct {
	db *gorm.DB
}

// NewManagerRepo 创建 ManagerRepository 实例
func NewManagerRepo(db *gorm.DB) ManagerRepository {
	return &managerRepo{db: db}
}

func (r *managerRepo) Create(ctx context.Context, manager *model.Manager) error {
	return r.db.WithContext(ctx).Create(manager).Error
}

func (r *managerRepo) GetByID(ctx context.Context, id string) (*model.Manager, error) {
	var manager model.Manager
	err := r.db.WithContext(ctx).
		Where("manager_id = ?", id).
		First(&manager).Error
	if err != nil {
		return nil, err
	}
	return &manager, nil
}

func (r *managerRepo) GetByEmail(ctx context.Context, email string) (*model.Manager, error) {
	var manager model.Manager
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&manager).Error
	if err != nil {
		return nil, err
	}
	return &manager, nil
}

func (r *managerRepo) Update(ctx context.Context, manager *model.Manager) error {
	oldVersion := manager.Version
	result := r.db.WithContext(ctx).
		Model(manager).
		Where("manager_id = ? AND version = ?", manager.ManagerID, oldVersion).
		Updates(map[string]interface{}{
			"name":          manager.Name,
			"email":         manager.Email,
			"password_hash": manager.PasswordHash,
			"updated_by":    manager.UpdatedBy,
			"version":       oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	manager.Version = oldVersion + 1
	return nil
}
