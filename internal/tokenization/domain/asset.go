package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AssetStatus 通证化资产状态
type AssetStatus string

const (
	AssetStatusDraft  AssetStatus = "DRAFT"
	AssetStatusActive AssetStatus = "ACTIVE"
	AssetStatusPaused AssetStatus = "PAUSED"
	AssetStatusClosed AssetStatus = "CLOSED"
)

// assetTransitions 资产状态迁移表，未列出的迁移一律非法
var assetTransitions = map[AssetStatus][]AssetStatus{
	AssetStatusDraft:  {AssetStatusActive},
	AssetStatusActive: {AssetStatusPaused, AssetStatusClosed},
	AssetStatusPaused: {AssetStatusActive, AssetStatusClosed},
	AssetStatusClosed: {},
}

// CanTransitionTo 判断是否允许迁移到目标状态
func (s AssetStatus) CanTransitionTo(target AssetStatus) bool {
	for _, allowed := range assetTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// SourceType 通证化来源类型
type SourceType string

const (
	SourceTypeAsset     SourceType = "ASSET"
	SourceTypeAssetUnit SourceType = "ASSET_UNIT"
	SourceTypeTrust     SourceType = "TRUST"
)

// HolderType 持有人类型
type HolderType string

const (
	HolderTypePlatform HolderType = "PLATFORM"
	HolderTypeClient   HolderType = "CLIENT"
	HolderTypeSupplier HolderType = "SUPPLIER"
)

// TokenizedAsset 通证化资产实体
// 是单个资产/资产单元/信托的份额化表示，持有供应量账目
type TokenizedAsset struct {
	gorm.Model
	// 资产 ID (业务主键)，全局唯一
	AssetID string `gorm:"column:asset_id;type:varchar(32);uniqueIndex;not null" json:"asset_id"`
	// 租户 ID
	TenantID string `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	// 来源类型（ASSET / ASSET_UNIT / TRUST）
	SourceType SourceType `gorm:"column:source_type;type:varchar(20);not null" json:"source_type"`
	// 来源对象 ID
	SourceID string `gorm:"column:source_id;type:varchar(32);index;not null" json:"source_id"`
	// 通证名称
	TokenName string `gorm:"column:token_name;type:varchar(100);not null" json:"token_name"`
	// 通证符号
	TokenSymbol string `gorm:"column:token_symbol;type:varchar(20);not null" json:"token_symbol"`
	// 发行总量
	TotalSupply int64 `gorm:"column:total_supply;not null" json:"total_supply"`
	// 流通量（客户/供应商持有）
	CirculatingSupply int64 `gorm:"column:circulating_supply;not null;default:0" json:"circulating_supply"`
	// 平台持有量（未售出）
	PlatformBalance int64 `gorm:"column:fideitec_balance;not null;default:0" json:"fideitec_balance"`
	// 销毁量
	BurnedSupply int64 `gorm:"column:burned_supply;not null;default:0" json:"burned_supply"`
	// 单价
	TokenPrice decimal.Decimal `gorm:"column:token_price;type:decimal(20,8);not null" json:"token_price"`
	// 货币
	Currency string `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	// 状态
	Status AssetStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
}

// TableName 表名
func (TokenizedAsset) TableName() string {
	return "tokenized_assets"
}

// NewTokenizedAsset 创建通证化资产，全部供应量记入平台持有
func NewTokenizedAsset(assetID, tenantID string, sourceType SourceType, sourceID, name, symbol string, totalSupply int64, price decimal.Decimal, currency string) *TokenizedAsset {
	return &TokenizedAsset{
		AssetID:           assetID,
		TenantID:          tenantID,
		SourceType:        sourceType,
		SourceID:          sourceID,
		TokenName:         name,
		TokenSymbol:       symbol,
		TotalSupply:       totalSupply,
		CirculatingSupply: 0,
		PlatformBalance:   totalSupply,
		BurnedSupply:      0,
		TokenPrice:        price,
		Currency:          currency,
		Status:            AssetStatusDraft,
	}
}

// CheckSupplyInvariant 校验供应量守恒：total = circulating + platform + burned
// 作为每次台账变更事务提交前的后置条件
func (a *TokenizedAsset) CheckSupplyInvariant() error {
	if a.TotalSupply != a.CirculatingSupply+a.PlatformBalance+a.BurnedSupply {
		return ErrSupplyInvariantViolated
	}
	if a.CirculatingSupply < 0 || a.PlatformBalance < 0 || a.BurnedSupply < 0 {
		return ErrSupplyInvariantViolated
	}
	return nil
}

// IsSellable 是否可创建新订单（仅 ACTIVE）
func (a *TokenizedAsset) IsSellable() bool {
	return a.Status == AssetStatusActive
}

// IsMutable 是否允许台账变更（CLOSED 为终态，禁止一切变更）
func (a *TokenizedAsset) IsMutable() bool {
	return a.Status != AssetStatusClosed
}

// TokenHolder 持有人余额
// 每个 (资产, 持有人类型, 持有人) 唯一一行；平台余额记在资产行的 fideitec_balance 上
type TokenHolder struct {
	gorm.Model
	// 资产 ID
	AssetID string `gorm:"column:asset_id;type:varchar(32);uniqueIndex:idx_holder;not null" json:"asset_id"`
	// 持有人类型
	HolderType HolderType `gorm:"column:holder_type;type:varchar(20);uniqueIndex:idx_holder;not null" json:"holder_type"`
	// 持有人 ID
	HolderID string `gorm:"column:holder_id;type:varchar(32);uniqueIndex:idx_holder;not null" json:"holder_id"`
	// 余额，永不为负
	Balance int64 `gorm:"column:balance;not null;default:0" json:"balance"`
}

// TableName 表名
func (TokenHolder) TableName() string {
	return "token_holders"
}

// TransactionType 台账交易类型
type TransactionType string

const (
	TransactionTypeMint     TransactionType = "MINT"
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypeBurn     TransactionType = "BURN"
	TransactionTypeReturn   TransactionType = "RETURN"
)

// TokenTransaction 台账交易流水，append-only，重放可证明供应量守恒
type TokenTransaction struct {
	gorm.Model
	// 交易 ID (业务主键)
	TransactionID string `gorm:"column:transaction_id;type:varchar(32);uniqueIndex;not null" json:"transaction_id"`
	// 资产 ID
	AssetID string `gorm:"column:asset_id;type:varchar(32);index;not null" json:"asset_id"`
	// 租户 ID
	TenantID string `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	// 交易类型
	Type TransactionType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	// 数量
	Amount int64 `gorm:"column:amount;not null" json:"amount"`
	// 转出方（mint 时为空）
	FromHolderType HolderType `gorm:"column:from_holder_type;type:varchar(20)" json:"from_holder_type,omitempty"`
	FromHolderID   string     `gorm:"column:from_holder_id;type:varchar(32)" json:"from_holder_id,omitempty"`
	// 转入方（burn 时为空）
	ToHolderType HolderType `gorm:"column:to_holder_type;type:varchar(20)" json:"to_holder_type,omitempty"`
	ToHolderID   string     `gorm:"column:to_holder_id;type:varchar(32)" json:"to_holder_id,omitempty"`
	// 变更原因
	Reason string `gorm:"column:reason;type:varchar(255)" json:"reason"`
	// 关联订单（结算触发时）
	OrderID string `gorm:"column:order_id;type:varchar(32);index" json:"order_id,omitempty"`
	// 本条流水自身的链上哈希（仅当被单独锚定时）
	TxHash string `gorm:"column:tx_hash;type:varchar(128)" json:"tx_hash,omitempty"`
}

// TableName 表名
func (TokenTransaction) TableName() string {
	return "token_transactions"
}

// SupplyDelta 一次台账变更对资产供应量各分量的增量
// 仓储实现必须以条件更新应用，保证各分量不为负
type SupplyDelta struct {
	Total       int64
	Circulating int64
	Platform    int64
	Burned      int64
}

// TxManager 事务边界，fn 内的仓储调用共享同一事务
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AssetRepository 资产仓储接口
type AssetRepository interface {
	// Save 保存资产
	Save(ctx context.Context, asset *TokenizedAsset) error
	// Get 根据资产 ID 获取资产
	Get(ctx context.Context, assetID string) (*TokenizedAsset, error)
	// List 获取租户资产分页列表
	List(ctx context.Context, tenantID string, limit, offset int) ([]*TokenizedAsset, int64, error)
	// UpdateStatus 条件更新状态（from → to），返回是否命中
	UpdateStatus(ctx context.Context, assetID string, from, to AssetStatus) (bool, error)
	// ApplySupplyDelta 原子应用供应量增量；守护条件不满足时返回 false
	ApplySupplyDelta(ctx context.Context, assetID string, delta SupplyDelta) (bool, error)
	// UpdatePrice 更新单价（仅影响后续订单，已发证书不受影响）
	UpdatePrice(ctx context.Context, assetID string, price decimal.Decimal) error
}

// HolderRepository 持有人余额仓储接口
type HolderRepository interface {
	// Get 获取持有人余额
	Get(ctx context.Context, assetID string, holderType HolderType, holderID string) (*TokenHolder, error)
	// ListByAsset 获取资产全部持有人
	ListByAsset(ctx context.Context, assetID string) ([]*TokenHolder, error)
	// Credit 入账，持有人行不存在时惰性创建
	Credit(ctx context.Context, assetID string, holderType HolderType, holderID string, amount int64) error
	// Debit 出账，余额不足时返回 false（条件更新守护）
	Debit(ctx context.Context, assetID string, holderType HolderType, holderID string, amount int64) (bool, error)
}

// TransactionRepository 台账流水仓储接口，只允许追加
type TransactionRepository interface {
	// Append 追加一条流水
	Append(ctx context.Context, txn *TokenTransaction) error
	// ListByAsset 获取资产流水分页列表
	ListByAsset(ctx context.Context, assetID string, limit, offset int) ([]*TokenTransaction, int64, error)
}
