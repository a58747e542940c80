package repository

import (
	"context"

	"gorm.io/gorm"

	"shiftdrop/backend/internal/model"
	pkgerrors "shiftdrop/backend/pkg/errors"
)

// ShiftClaimRepository 认领记录数据访问接口
type ShiftClaimRepository interface {
	Create(ctx context.Context, claim *model.ShiftClaim) error
	// GetActive 返回该零工在该班次上的 claimed 记录
	GetActive(ctx context.Context, shiftID, casualID string) (*model.ShiftClaim, error)
	ListByShift(ctx context.Context, shiftID string) ([]model.ShiftClaim, error)
	ListActiveByShift(ctx context.Context, shiftID string) ([]model.ShiftClaim, error)
	ListByCasual(ctx context.Context, casualID string) ([]model.ShiftClaim, error)
	Update(ctx context.Context, claim *model.ShiftClaim) error
}

type shiftClaimRepo struct {
	db *gorm.DB
}

// NewShiftClaimRepo 创建 ShiftClaimRepository 实例
func NewShiftClaimRepo(db *gorm.DB) ShiftClaimRepository {
	return &shiftClaimRepo{db: db}
}

func (r *shiftClaimRepo) Create(ctx context.Context, claim *model.ShiftClaim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

func (r *shiftClaimRepo) GetActive(ctx context.Context, shiftID, casualID string) (*model.ShiftClaim, error) {
	var claim model.ShiftClaim
	err := r.db.WithContext(ctx).
		Where("shift_id = ? AND casual_id = ? AND status = ?", shiftID, casualID, model.ClaimClaimed).
		First(&claim).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *shiftClaimRepo) ListByShift(ctx context.Context, shiftID string) ([]model.ShiftClaim, error) {
	var claims []model.ShiftClaim
	err := r.db.WithContext(ctx).
		Preload("Casual").
		Where("shift_id = ?", shiftID).
		Order("claimed_at ASC").
		Find(&claims).Error
	return claims, err
}

func (r *shiftClaimRepo) ListActiveByShift(ctx context.Context, shiftID string) ([]model.ShiftClaim, error) {
	var claims []model.ShiftClaim
	err := r.db.WithContext(ctx).
		Preload("Casual").
		Where("shift_id = ? AND status = ?", shiftID, model.ClaimClaimed).
		Order("claimed_at ASC").
		Find(&claims).Error
	return claims, err
}

func (r *shiftClaimRepo) ListByCasual(ctx context.Context, casualID string) ([]model.ShiftClaim, error) {
	var claims []model.ShiftClaim
	err := r.db.WithContext(ctx).
		Preload("Shift").
		Where("casual_id = ?", casualID).
		Order("claimed_at DESC").
		Find(&claims).Error
	return claims, err
}

func (r *shiftClaimRepo) Update(ctx context.Context, claim *model.ShiftClaim) error {
	oldVersion := claim.Version
	result := r.db.WithContext(ctx).
		Model(claim).
		Where("shift_claim_id = ? AND version = ?", claim.ShiftClaimID, oldVersion).
		Updates(map[string]interface{}{
			"status":     claim.Status,
			"updated_by": claim.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	claim.Version = oldVersion + 1
	return nil
}
