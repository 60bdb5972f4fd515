package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// 领域事件类型，经 outbox 中继投递到消息总线
const (
	EventTypeAssetTokenized      = "tokenization.asset.tokenized"
	EventTypeAssetStatusChanged  = "tokenization.asset.status_changed"
	EventTypeLedgerChanged       = "tokenization.ledger.changed"
	EventTypeOrderCreated        = "tokenization.order.created"
	EventTypeOrderCompleted      = "tokenization.order.completed"
	EventTypeOrderCancelled      = "tokenization.order.cancelled"
	EventTypeOrderRefunded       = "tokenization.order.refunded"
	EventTypeCertificateIssued   = "tokenization.certificate.issued"
	EventTypeCertificateAnchored = "tokenization.certificate.anchored"
)

// AssetTokenizedEvent 资产通证化完成事件
type AssetTokenizedEvent struct {
	AssetID     string          `json:"asset_id"`
	TenantID    string          `json:"tenant_id"`
	SourceType  SourceType      `json:"source_type"`
	SourceID    string          `json:"source_id"`
	TokenSymbol string          `json:"token_symbol"`
	TotalSupply int64           `json:"total_supply"`
	TokenPrice  decimal.Decimal `json:"token_price"`
	Currency    string          `json:"currency"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// AssetStatusChangedEvent 资产状态变更事件
type AssetStatusChangedEvent struct {
	AssetID    string      `json:"asset_id"`
	TenantID   string      `json:"tenant_id"`
	FromStatus AssetStatus `json:"from_status"`
	ToStatus   AssetStatus `json:"to_status"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// LedgerChangedEvent 台账变更事件，对应一条流水
type LedgerChangedEvent struct {
	TransactionID string          `json:"transaction_id"`
	AssetID       string          `json:"asset_id"`
	TenantID      string          `json:"tenant_id"`
	Type          TransactionType `json:"type"`
	Amount        int64           `json:"amount"`
	OrderID       string          `json:"order_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// OrderEvent 订单生命周期事件
type OrderEvent struct {
	OrderNumber string          `json:"order_number"`
	TenantID    string          `json:"tenant_id"`
	Type        OrderType       `json:"type"`
	AssetID     string          `json:"asset_id"`
	ClientID    string          `json:"client_id"`
	TokenAmount int64           `json:"token_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	Status      OrderStatus     `json:"status"`
	Reason      string          `json:"reason,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// CertificateEvent 证书签发/锚定事件
type CertificateEvent struct {
	CertificateID     string    `json:"certificate_id"`
	CertificateNumber string    `json:"certificate_number"`
	TenantID          string    `json:"tenant_id"`
	OrderNumber       string    `json:"order_number"`
	AssetID           string    `json:"asset_id"`
	TokenAmount       int64     `json:"token_amount"`
	BlockchainTxHash  string    `json:"blockchain_tx_hash,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// EventPublisher 事件发布接口
// 实现采用事务 outbox：Publish 在业务事务内写 outbox 行，由后台中继投递
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}
