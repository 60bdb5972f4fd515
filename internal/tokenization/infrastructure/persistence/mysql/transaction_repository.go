package mysql

import (
	"context"
	"fmt"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"gorm.io/gorm"
)

// TransactionRepository 台账流水仓储 GORM 实现，只允许追加
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository 创建台账流水仓储
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append 追加一条流水
func (r *TransactionRepository) Append(ctx context.Context, txn *domain.TokenTransaction) error {
	if err := dbFromCtx(ctx, r.db).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to append token transaction: %w", err)
	}
	return nil
}

// ListByAsset 获取资产流水分页列表，按时间倒序
func (r *TransactionRepository) ListByAsset(ctx context.Context, assetID string, limit, offset int) ([]*domain.TokenTransaction, int64, error) {
	db := dbFromCtx(ctx, r.db).Model(&domain.TokenTransaction{}).Where("asset_id = ?", assetID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count token transactions: %w", err)
	}

	var txns []*domain.TokenTransaction
	if err := db.Order("id DESC").Limit(limit).Offset(offset).Find(&txns).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list token transactions: %w", err)
	}
	return txns, total, nil
}
