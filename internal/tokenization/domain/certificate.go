package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Certificate 持有证明实体
// 结算成功时签发，签发后不可变更，仅允许附加一次链上交易哈希
type Certificate struct {
	gorm.Model
	// 证书 ID (业务主键)
	CertificateID string `gorm:"column:certificate_id;type:varchar(32);uniqueIndex;not null" json:"certificate_id"`
	// 证书编号，租户内递增观感但不可推测
	CertificateNumber string `gorm:"column:certificate_number;type:varchar(40);uniqueIndex;not null" json:"certificate_number"`
	// 核验码，与证书编号无关的高熵随机值
	VerificationCode string `gorm:"column:verification_code;type:varchar(64);uniqueIndex;not null" json:"verification_code"`
	// 租户 ID
	TenantID string `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	// 关联订单（1:1，订单是权威方）
	OrderNumber string `gorm:"column:order_number;type:varchar(32);uniqueIndex;not null" json:"order_number"`
	// 资产 ID
	AssetID string `gorm:"column:asset_id;type:varchar(32);index;not null" json:"asset_id"`
	// 受益人快照
	BeneficiaryName     string `gorm:"column:beneficiary_name;type:varchar(100);not null" json:"beneficiary_name"`
	BeneficiaryDocument string `gorm:"column:beneficiary_document;type:varchar(50)" json:"beneficiary_document"`
	// 通证数量
	TokenAmount int64 `gorm:"column:token_amount;not null" json:"token_amount"`
	// 签发时点价值 = 数量 × 结算单价，永不重算
	TotalValueAtIssue decimal.Decimal `gorm:"column:total_value_at_issue;type:decimal(20,2);not null" json:"total_value_at_issue"`
	// 货币
	Currency string `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	// 是否已上链认证
	IsBlockchainCertified bool `gorm:"column:is_blockchain_certified;not null;default:false" json:"is_blockchain_certified"`
	// 链上交易哈希
	BlockchainTxHash string `gorm:"column:blockchain_tx_hash;type:varchar(128)" json:"blockchain_tx_hash,omitempty"`
	// 签发时间
	IssuedAt time.Time `gorm:"column:issued_at;not null" json:"issued_at"`
}

// TableName 表名
func (Certificate) TableName() string {
	return "certificates"
}

// Fingerprint 计算证书不可变字段的规范化指纹输入
// 锚定时对其做 SHA-256，字段顺序固定，任何改动都会改变指纹
func (c *Certificate) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%s|%s|%s",
		c.CertificateNumber,
		c.VerificationCode,
		c.OrderNumber,
		c.AssetID,
		c.TokenAmount,
		c.TotalValueAtIssue.String(),
		c.Currency,
		c.IssuedAt.UTC().Format(time.RFC3339),
	)
}

// CertificateRepository 证书仓储接口
type CertificateRepository interface {
	// Save 保存证书
	Save(ctx context.Context, cert *Certificate) error
	// Get 根据证书 ID 获取证书
	Get(ctx context.Context, certificateID string) (*Certificate, error)
	// GetByOrder 根据订单号获取证书
	GetByOrder(ctx context.Context, orderNumber string) (*Certificate, error)
	// GetByVerificationCode 根据核验码获取证书
	GetByVerificationCode(ctx context.Context, code string) (*Certificate, error)
	// List 获取租户证书分页列表
	List(ctx context.Context, tenantID string, limit, offset int) ([]*Certificate, int64, error)
	// AttachTxHash 附加链上哈希，仅允许从未认证迁移到已认证一次
	AttachTxHash(ctx context.Context, certificateID string, txHash string) (bool, error)
}

// DocumentRenderer 证书渲染外部协作方（模板/PDF 服务）
type DocumentRenderer interface {
	// Render 渲染证书为文档字节流
	Render(ctx context.Context, cert *Certificate) ([]byte, error)
}
