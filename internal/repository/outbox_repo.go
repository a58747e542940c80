package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shiftdrop/backend/internal/model"
)

// OutboxRepository 出站消息数据访问接口
// 业务事务内只调用 Enqueue；List/Mark 系列供外部 drainer 使用
type OutboxRepository interface {
	Enqueue(ctx context.Context, message *model.OutboxMessage) error
	BatchEnqueue(ctx context.Context, messages []model.OutboxMessage) error
	ListPending(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string) error
}

type outboxRepo struct {
	db *gorm.DB
}

// NewOutboxRepo 创建 OutboxRepository 实例
func NewOutboxRepo(db *gorm.DB) OutboxRepository {
	return &outboxRepo{db: db}
}

func (r *outboxRepo) Enqueue(ctx context.Context, message *model.OutboxMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *outboxRepo) BatchEnqueue(ctx context.Context, messages []model.OutboxMessage) error {
	if len(messages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&messages).Error
}

func (r *outboxRepo) ListPending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	var messages []model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *outboxRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("outbox_message_id = ?", id).
		Updates(map[string]interface{}{
			"status":   model.OutboxSent,
			"sent_at":  sentAt,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("outbox_message_id = ?", id).
		Updates(map[string]interface{}{
			"status":   model.OutboxFailed,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}
