package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shiftdrop/backend/internal/model"
	pkgerrors "shiftdrop/backend/pkg/errors"
)

// ShiftRepository 班次数据访问接口
type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	// GetByID 加载班次及其全部认领记录
	GetByID(ctx context.Context, id string) (*model.Shift, error)
	ListByPool(ctx context.Context, poolID string, from, to *time.Time) ([]model.Shift, error)
	// Update 带乐观锁提交容量与状态：
	// WHERE 条件包含读取时的 version，未命中任何行时返回 ErrOptimisticLock。
	// 这是认领并发仲裁的唯一提交路径
	Update(ctx context.Context, shift *model.Shift) error
}

type shiftRepo struct {
	db *gorm.DB
}

// NewShiftRepo 创建 ShiftRepository 实例
func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *shiftRepo) GetByID(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	err := r.db.WithContext(ctx).
		Preload("Claims").
		Where("shift_id = ?", id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) ListByPool(ctx context.Context, poolID string, from, to *time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	db := r.db.WithContext(ctx).
		Preload("Claims").
		Where("pool_id = ?", poolID)
	if from != nil {
		db = db.Where("starts_at >= ?", *from)
	}
	if to != nil {
		db = db.Where("starts_at < ?", *to)
	}
	err := db.Order("starts_at ASC").Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) Update(ctx context.Context, shift *model.Shift) error {
	oldVersion := shift.Version
	result := r.db.WithContext(ctx).
		Model(shift).
		Where("shift_id = ? AND version = ?", shift.ShiftID, oldVersion).
		Updates(map[string]interface{}{
			"starts_at":       shift.StartsAt,
			"ends_at":         shift.EndsAt,
			"spots_needed":    shift.SpotsNeeded,
			"spots_remaining": shift.SpotsRemaining,
			"status":          shift.Status,
			"updated_by":      shift.UpdatedBy,
			"version":         oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	shift.Version = oldVersion + 1
	return nil
}
