package messaging

import (
	"context"
	"time"

	"github.com/fideitec/tokenization/pkg/logger"
	"github.com/fideitec/tokenization/pkg/mq"
	"gorm.io/gorm"
)

// relayBatchSize 每轮中继最多处理的消息数
const relayBatchSize = 100

// relayMaxAttempts 超过后标记 FAILED，等待人工处理
const relayMaxAttempts = 10

// publishedRetention 已投递消息的保留时长，超期清理
const publishedRetention = 24 * time.Hour

// pruneInterval 清理轮次间隔
const pruneInterval = time.Hour

// OutboxRelay outbox 中继，轮询 PENDING 消息并投递到 Kafka
type OutboxRelay struct {
	db       *gorm.DB
	producer *mq.KafkaProducer
	topic    string
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewOutboxRelay 创建 outbox 中继
func NewOutboxRelay(db *gorm.DB, producer *mq.KafkaProducer, topic string, interval time.Duration) *OutboxRelay {
	return &OutboxRelay{
		db:       db,
		producer: producer,
		topic:    topic,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start 启动后台中继循环
func (r *OutboxRelay) Start() {
	go func() {
		defer close(r.doneCh)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		lastPrune := time.Now()
		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.relayOnce(context.Background())
				if time.Since(lastPrune) >= pruneInterval {
					r.pruneOnce(context.Background())
					lastPrune = time.Now()
				}
			}
		}
	}()
	logger.Info(context.Background(), "Outbox relay started", "topic", r.topic, "interval", r.interval)
}

// Stop 停止中继并等待当前轮次结束
func (r *OutboxRelay) Stop() {
	close(r.stopCh)
	<-r.doneCh
	logger.Info(context.Background(), "Outbox relay stopped")
}

// relayOnce 处理一批 PENDING 消息
func (r *OutboxRelay) relayOnce(ctx context.Context) {
	var messages []*OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", OutboxStatusPending).
		Order("id ASC").
		Limit(relayBatchSize).
		Find(&messages).Error
	if err != nil {
		logger.Error(ctx, "Failed to load pending outbox messages", "error", err)
		return
	}

	for _, msg := range messages {
		if err := r.producer.SendRaw(ctx, r.topic, msg.MessageID, []byte(msg.Payload)); err != nil {
			r.markFailure(ctx, msg, err)
			continue
		}
		now := time.Now()
		updateErr := r.db.WithContext(ctx).Model(msg).Updates(map[string]interface{}{
			"status":       OutboxStatusPublished,
			"attempts":     msg.Attempts + 1,
			"published_at": &now,
		}).Error
		if updateErr != nil {
			// 投递成功但落库失败，下一轮会重复投递；消费方按 message_id 去重
			logger.Error(ctx, "Failed to mark outbox message published", "message_id", msg.MessageID, "error", updateErr)
		}
	}
}

// pruneOnce 删除超出保留期的已投递消息
func (r *OutboxRelay) pruneOnce(ctx context.Context) {
	cutoff := time.Now().Add(-publishedRetention)
	result := r.db.WithContext(ctx).Unscoped().
		Where("status = ? AND published_at < ?", OutboxStatusPublished, cutoff).
		Delete(&OutboxMessage{})
	if result.Error != nil {
		logger.Error(ctx, "Failed to prune published outbox messages", "error", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		logger.Info(ctx, "Pruned published outbox messages", "count", result.RowsAffected)
	}
}

// markFailure 记录投递失败，超过最大尝试次数后转为 FAILED
func (r *OutboxRelay) markFailure(ctx context.Context, msg *OutboxMessage, cause error) {
	attempts := msg.Attempts + 1
	status := OutboxStatusPending
	if attempts >= relayMaxAttempts {
		status = OutboxStatusFailed
	}

	errText := cause.Error()
	if len(errText) > 250 {
		errText = errText[:250]
	}
	err := r.db.WithContext(ctx).Model(msg).Updates(map[string]interface{}{
		"status":     status,
		"attempts":   attempts,
		"last_error": errText,
	}).Error
	if err != nil {
		logger.Error(ctx, "Failed to record outbox delivery failure", "message_id", msg.MessageID, "error", err)
	}

	logger.Warn(ctx, "Outbox message delivery failed",
		"message_id", msg.MessageID,
		"event_type", msg.EventType,
		"attempts", attempts,
		"error", cause,
	)
}
