package repository

import (
	"context"

	"gorm.io/gorm"

	"shiftdrop/backend/internal/model"
	pkgerrors "shiftdrop/backend/pkg/errors"
)

// CasualRepository 零工数据访问接口
// 除 GetByID（审计场景）外，所有查询均过滤 removed_at 墓碑
type CasualRepository interface {
	Create(ctx context.Context, casual *model.Casual) error
	GetByID(ctx context.Context, id string) (*model.Casual, error)
	GetByInviteToken(ctx context.Context, token string) (*model.Casual, error)
	GetByPhone(ctx context.Context, poolID, phone string) (*model.Casual, error)
	// ListByPool 分页返回池内零工及总数；limit <= 0 时不分页
	ListByPool(ctx context.Context, poolID string, offset, limit int) ([]model.Casual, int64, error)
	// ListActiveByPool 返回池内可被通知的零工（已接受、未退订、未移除），含可用时段
	ListActiveByPool(ctx context.Context, poolID string) ([]model.Casual, error)
	Update(ctx context.Context, casual *model.Casual) error
	// ReplaceAvailability 以 slots 整体替换该零工的每周可用时段（单事务）
	ReplaceAvailability(ctx context.Context, casualID string, slots []model.AvailabilitySlot) error
}

type casualRepo struct {
	db *gorm.DB
}

// NewCasualRepo 创建 CasualRepository 实例
func NewCasualRepo(db *gorm.DB) CasualRepository {
	return &casualRepo{db: db}
}

func (r *casualRepo) Create(ctx context.Context, casual *model.Casual) error {
	return r.db.WithContext(ctx).Create(casual).Error
}

func (r *casualRepo) GetByID(ctx context.Context, id string) (*model.Casual, error) {
	var casual model.Casual
	err := r.db.WithContext(ctx).
		Preload("Availability").
		Where("casual_id = ?", id).
		First(&casual).Error
	if err != nil {
		return nil, err
	}
	return &casual, nil
}

func (r *casualRepo) GetByInviteToken(ctx context.Context, token string) (*model.Casual, error) {
	var casual model.Casual
	err := r.db.WithContext(ctx).
		Where("invite_token = ? AND removed_at IS NULL", token).
		First(&casual).Error
	if err != nil {
		return nil, err
	}
	return &casual, nil
}

func (r *casualRepo) GetByPhone(ctx context.Context, poolID, phone string) (*model.Casual, error) {
	var casual model.Casual
	err := r.db.WithContext(ctx).
		Where("pool_id = ? AND phone_number = ? AND removed_at IS NULL", poolID, phone).
		First(&casual).Error
	if err != nil {
		return nil, err
	}
	return &casual, nil
}

func (r *casualRepo) ListByPool(ctx context.Context, poolID string, offset, limit int) ([]model.Casual, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&model.Casual{}).
		Where("pool_id = ? AND removed_at IS NULL", poolID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Preload("Availability").Order("name ASC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}

	var casuals []model.Casual
	if err := query.Find(&casuals).Error; err != nil {
		return nil, 0, err
	}
	return casuals, total, nil
}

func (r *casualRepo) ListActiveByPool(ctx context.Context, poolID string) ([]model.Casual, error) {
	var casuals []model.Casual
	err := r.db.WithContext(ctx).
		Preload("Availability").
		Where("pool_id = ? AND invite_status = ? AND opted_out_at IS NULL AND removed_at IS NULL",
			poolID, model.CasualInviteAccepted).
		Find(&casuals).Error
	return casuals, err
}

func (r *casualRepo) Update(ctx context.Context, casual *model.Casual) error {
	oldVersion := casual.Version
	result := r.db.WithContext(ctx).
		Model(casual).
		Where("casual_id = ? AND version = ?", casual.CasualID, oldVersion).
		Updates(map[string]interface{}{
			"name":          casual.Name,
			"phone_number":  casual.PhoneNumber,
			"invite_status": casual.InviteStatus,
			"invite_token":  casual.InviteToken,
			"invited_at":    casual.InvitedAt,
			"opted_out_at":  casual.OptedOutAt,
			"removed_at":    casual.RemovedAt,
			"updated_by":    casual.UpdatedBy,
			"version":       oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	casual.Version = oldVersion + 1
	return nil
}

func (r *casualRepo) ReplaceAvailability(ctx context.Context, casualID string, slots []model.AvailabilitySlot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("casual_id = ?", casualID).
			Delete(&model.AvailabilitySlot{}).Error; err != nil {
			return err
		}
		if len(slots) == 0 {
			return nil
		}
		for i := range slots {
			slots[i].CasualID = casualID
		}
		return tx.Create(&slots).Error
	})
}
