// Package messaging 提供事务 outbox 事件发布与 Kafka 中继
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fideitec/tokenization/internal/tokenization/infrastructure/persistence/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxStatus outbox 消息投递状态
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusPublished OutboxStatus = "PUBLISHED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// OutboxMessage outbox 消息行
// 与业务变更写在同一事务，保证事件与状态不脱节
type OutboxMessage struct {
	gorm.Model
	// 消息 ID，兼作 Kafka 消息键
	MessageID string `gorm:"column:message_id;type:varchar(36);uniqueIndex;not null" json:"message_id"`
	// 事件类型
	EventType string `gorm:"column:event_type;type:varchar(64);index;not null" json:"event_type"`
	// 事件载荷 JSON
	Payload string `gorm:"column:payload;type:text;not null" json:"payload"`
	// 投递状态
	Status OutboxStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// 投递尝试次数
	Attempts int `gorm:"column:attempts;not null;default:0" json:"attempts"`
	// 投递成功时间
	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	// 最近一次失败原因
	LastError string `gorm:"column:last_error;type:varchar(255)" json:"last_error,omitempty"`
}

// TableName 表名
func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// OutboxPublisher 事务 outbox 发布器
// Publish 仅写 outbox 行，投递由 OutboxRelay 异步完成
type OutboxPublisher struct {
	db *gorm.DB
}

// NewOutboxPublisher 创建 outbox 发布器
func NewOutboxPublisher(db *gorm.DB) *OutboxPublisher {
	return &OutboxPublisher{db: db}
}

// Publish 序列化事件并写入 outbox，加入调用方所在事务
func (p *OutboxPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := &OutboxMessage{
		MessageID: uuid.NewString(),
		EventType: eventType,
		Payload:   string(body),
		Status:    OutboxStatusPending,
	}
	if err := mysql.DBFromContext(ctx, p.db).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to enqueue outbox message: %w", err)
	}
	return nil
}
