package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shiftdrop/backend/internal/model"
	pkgerrors "shiftdrop/backend/pkg/errors"
)

// ShiftNotificationRepository 认领通知数据访问接口
type ShiftNotificationRepository interface {
	Create(ctx context.Context, notification *model.ShiftNotification) error
	GetByToken(ctx context.Context, token string) (*model.ShiftNotification, error)
	// GetPendingByShiftAndCasual 返回该零工在该班次上最新的 pending 令牌
	GetPendingByShiftAndCasual(ctx context.Context, shiftID, casualID string) (*model.ShiftNotification, error)
	ListByShift(ctx context.Context, shiftID string) ([]model.ShiftNotification, error)
	Update(ctx context.Context, notification *model.ShiftNotification) error
	// RevokeAllPending 单条语句撤销班次下全部 pending 令牌，返回受影响行数
	// 班次取消时调用，与班次状态变更同事务
	RevokeAllPending(ctx context.Context, shiftID string, now time.Time) (int64, error)
}

type shiftNotificationRepo struct {
	db *gorm.DB
}

// NewShiftNotificationRepo 创建 ShiftNotificationRepository 实例
func NewShiftNotificationRepo(db *gorm.DB) ShiftNotificationRepository {
	return &shiftNotificationRepo{db: db}
}

func (r *shiftNotificationRepo) Create(ctx context.Context, notification *model.ShiftNotification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *shiftNotificationRepo) GetByToken(ctx context.Context, token string) (*model.ShiftNotification, error) {
	var notification model.ShiftNotification
	err := r.db.WithContext(ctx).
		Preload("Shift").Preload("Shift.Claims").
		Preload("Casual").
		Where("claim_token = ?", token).
		First(&notification).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *shiftNotificationRepo) GetPendingByShiftAndCasual(ctx context.Context, shiftID, casualID string) (*model.ShiftNotification, error) {
	var notification model.ShiftNotification
	err := r.db.WithContext(ctx).
		Where("shift_id = ? AND casual_id = ? AND token_status = ?", shiftID, casualID, model.TokenPending).
		Order("created_at DESC").
		First(&notification).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *shiftNotificationRepo) ListByShift(ctx context.Context, shiftID string) ([]model.ShiftNotification, error) {
	var notifications []model.ShiftNotification
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("created_at ASC").
		Find(&notifications).Error
	return notifications, err
}

func (r *shiftNotificationRepo) Update(ctx context.Context, notification *model.ShiftNotification) error {
	oldVersion := notification.Version
	result := r.db.WithContext(ctx).
		Model(notification).
		Where("shift_notification_id = ? AND version = ?", notification.ShiftNotificationID, oldVersion).
		Updates(map[string]interface{}{
			"token_status": notification.TokenStatus,
			"used_at":      notification.UsedAt,
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	notification.Version = oldVersion + 1
	return nil
}

func (r *shiftNotificationRepo) RevokeAllPending(ctx context.Context, shiftID string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ShiftNotification{}).
		Where("shift_id = ? AND token_status = ?", shiftID, model.TokenPending).
		Updates(map[string]interface{}{
			"token_status": model.TokenRevoked,
			"updated_at":   now,
			"version":      gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}
