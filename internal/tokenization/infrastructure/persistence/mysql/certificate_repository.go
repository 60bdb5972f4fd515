package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"gorm.io/gorm"
)

// CertificateRepository 证书仓储 GORM 实现
type CertificateRepository struct {
	db *gorm.DB
}

// NewCertificateRepository 创建证书仓储
func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Save 保存证书
func (r *CertificateRepository) Save(ctx context.Context, cert *domain.Certificate) error {
	if err := dbFromCtx(ctx, r.db).Create(cert).Error; err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}
	return nil
}

// Get 根据证书 ID 获取证书
func (r *CertificateRepository) Get(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	return r.getBy(ctx, "certificate_id = ?", certificateID)
}

// GetByOrder 根据订单号获取证书
func (r *CertificateRepository) GetByOrder(ctx context.Context, orderNumber string) (*domain.Certificate, error) {
	return r.getBy(ctx, "order_number = ?", orderNumber)
}

// GetByVerificationCode 根据核验码获取证书
func (r *CertificateRepository) GetByVerificationCode(ctx context.Context, code string) (*domain.Certificate, error) {
	return r.getBy(ctx, "verification_code = ?", code)
}

func (r *CertificateRepository) getBy(ctx context.Context, query string, arg string) (*domain.Certificate, error) {
	var cert domain.Certificate
	err := dbFromCtx(ctx, r.db).Where(query, arg).First(&cert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return &cert, nil
}

// List 获取租户证书分页列表
func (r *CertificateRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Certificate, int64, error) {
	db := dbFromCtx(ctx, r.db).Model(&domain.Certificate{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count certificates: %w", err)
	}

	var certs []*domain.Certificate
	if err := db.Order("id DESC").Limit(limit).Offset(offset).Find(&certs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list certificates: %w", err)
	}
	return certs, total, nil
}

// AttachTxHash 附加链上哈希，仅允许从未认证迁移到已认证一次
func (r *CertificateRepository) AttachTxHash(ctx context.Context, certificateID string, txHash string) (bool, error) {
	result := dbFromCtx(ctx, r.db).Model(&domain.Certificate{}).
		Where("certificate_id = ? AND is_blockchain_certified = ?", certificateID, false).
		Updates(map[string]interface{}{
			"is_blockchain_certified": true,
			"blockchain_tx_hash":      txHash,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to attach blockchain tx hash: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
