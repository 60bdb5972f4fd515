package messaging

import "context"

// NoopPublisher 空发布器，消息总线未启用时使用
type NoopPublisher struct{}

// NewNoopPublisher 创建空发布器
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

// Publish 丢弃事件
func (NoopPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	return nil
}
