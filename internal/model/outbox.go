package model

import "time"

// Outbox 投递渠道与状态
const (
	OutboxChannelSMS  = "sms"
	OutboxChannelPush = "push"

	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// OutboxMessage 出站消息表 — 对应 outbox_messages
// 业务事务内只写入本表；实际投递由外部 drainer 异步完成
type OutboxMessage struct {
	OutboxMessageID  string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"outbox_message_id"`
	Channel          string     `gorm:"type:varchar(20);not null;default:'sms'"        json:"channel"` // sms | push
	RecipientContact string     `gorm:"type:varchar(255);not null"                     json:"recipient_contact"`
	BodyText         string     `gorm:"type:text;not null"                             json:"body_text"`
	ActionURL        string     `gorm:"type:varchar(500)"                              json:"action_url,omitempty"`
	Status           string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | sent | failed
	Attempts         int        `gorm:"not null;default:0"                             json:"attempts"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	CreatedAt        time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (OutboxMessage) TableName() string { return "outbox_messages" }
