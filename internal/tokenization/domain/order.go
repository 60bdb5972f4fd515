package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusPaymentPending  OrderStatus = "PAYMENT_PENDING"
	OrderStatusPaymentReceived OrderStatus = "PAYMENT_RECEIVED"
	OrderStatusProcessing      OrderStatus = "PROCESSING"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRefunded        OrderStatus = "REFUNDED"
)

// orderTransitions 订单状态迁移表，未列出的迁移一律非法
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusPaymentPending, OrderStatusPaymentReceived, OrderStatusCancelled},
	OrderStatusPaymentPending:  {OrderStatusPaymentReceived, OrderStatusCancelled},
	OrderStatusPaymentReceived: {OrderStatusProcessing, OrderStatusCompleted, OrderStatusRefunded},
	OrderStatusProcessing:      {OrderStatusCompleted, OrderStatusRefunded},
	OrderStatusCompleted:       {},
	OrderStatusCancelled:       {},
	OrderStatusRefunded:        {},
}

// CanTransitionTo 判断是否允许迁移到目标状态
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal 是否为终态
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// OrderType 订单方向
type OrderType string

const (
	OrderTypeBuy  OrderType = "BUY"
	OrderTypeSell OrderType = "SELL"
)

// Order 买卖订单实体
// 创建时冻结单价与总额；完成时触发台账转移与证书签发
type Order struct {
	gorm.Model
	// 订单号 (业务主键)，全局唯一
	OrderNumber string `gorm:"column:order_number;type:varchar(32);uniqueIndex;not null" json:"order_number"`
	// 租户 ID
	TenantID string `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	// 订单方向
	Type OrderType `gorm:"column:type;type:varchar(10);not null" json:"type"`
	// 资产 ID
	AssetID string `gorm:"column:asset_id;type:varchar(32);index;not null" json:"asset_id"`
	// 客户 ID
	ClientID string `gorm:"column:client_id;type:varchar(32);index;not null" json:"client_id"`
	// 通证数量
	TokenAmount int64 `gorm:"column:token_amount;not null" json:"token_amount"`
	// 单价（创建时冻结）
	PricePerToken decimal.Decimal `gorm:"column:price_per_token;type:decimal(20,8);not null" json:"price_per_token"`
	// 总额 = 数量 × 单价（创建时冻结）
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(20,2);not null" json:"total_amount"`
	// 货币
	Currency string `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	// 状态
	Status OrderStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// 支付方式（买单）
	PaymentMethod string `gorm:"column:payment_method;type:varchar(50)" json:"payment_method,omitempty"`
	// 支付凭证号
	PaymentReference string `gorm:"column:payment_reference;type:varchar(100)" json:"payment_reference,omitempty"`
	// 出金银行信息（卖单）
	PayoutBankName    string `gorm:"column:payout_bank_name;type:varchar(100)" json:"payout_bank_name,omitempty"`
	PayoutBankAccount string `gorm:"column:payout_bank_account;type:varchar(64)" json:"payout_bank_account,omitempty"`
	// 取消/拒绝/退款原因
	Reason string `gorm:"column:reason;type:varchar(255)" json:"reason,omitempty"`
	// 关联证书（完成后写入）
	CertificateID string `gorm:"column:certificate_id;type:varchar(32);index" json:"certificate_id,omitempty"`
	// 各迁移时间戳
	PaymentConfirmedAt *time.Time `gorm:"column:payment_confirmed_at" json:"payment_confirmed_at,omitempty"`
	CompletedAt        *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	RefundedAt         *time.Time `gorm:"column:refunded_at" json:"refunded_at,omitempty"`
}

// TableName 表名
func (Order) TableName() string {
	return "orders"
}

// NewOrder 创建订单，总额按创建时单价冻结
func NewOrder(orderNumber, tenantID string, orderType OrderType, asset *TokenizedAsset, clientID string, tokenAmount int64) *Order {
	price := asset.TokenPrice
	return &Order{
		OrderNumber:   orderNumber,
		TenantID:      tenantID,
		Type:          orderType,
		AssetID:       asset.AssetID,
		ClientID:      clientID,
		TokenAmount:   tokenAmount,
		PricePerToken: price,
		TotalAmount:   price.Mul(decimal.NewFromInt(tokenAmount)),
		Currency:      asset.Currency,
		Status:        OrderStatusPending,
	}
}

// CanBeCancelled 是否可以取消（尚无台账效果的状态）
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusPaymentPending
}

// CanBeCompleted 是否可以结算
func (o *Order) CanBeCompleted() bool {
	return o.Status == OrderStatusPaymentReceived || o.Status == OrderStatusProcessing
}

// CanBeRefunded 是否可以退款（运营介入）
func (o *Order) CanBeRefunded() bool {
	return o.Status == OrderStatusPaymentReceived || o.Status == OrderStatusProcessing
}

// OrderFilter 订单查询条件
type OrderFilter struct {
	TenantID string
	AssetID  string
	ClientID string
	Status   OrderStatus
	Type     OrderType
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// Save 保存订单
	Save(ctx context.Context, order *Order) error
	// Get 根据订单号获取订单
	Get(ctx context.Context, orderNumber string) (*Order, error)
	// List 按条件获取订单分页列表
	List(ctx context.Context, filter OrderFilter, limit, offset int) ([]*Order, int64, error)
	// TransitionStatus 条件状态迁移（status ∈ from → to），返回是否命中
	// 完成结算的幂等保护依赖这一原子 check-and-set
	TransitionStatus(ctx context.Context, orderNumber string, from []OrderStatus, to OrderStatus) (bool, error)
	// Update 更新订单全量字段
	Update(ctx context.Context, order *Order) error
}
