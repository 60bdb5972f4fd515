package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HolderRepository 持有人余额仓储 GORM 实现
type HolderRepository struct {
	db *gorm.DB
}

// NewHolderRepository 创建持有人余额仓储
func NewHolderRepository(db *gorm.DB) *HolderRepository {
	return &HolderRepository{db: db}
}

// Get 获取持有人余额
func (r *HolderRepository) Get(ctx context.Context, assetID string, holderType domain.HolderType, holderID string) (*domain.TokenHolder, error) {
	var holder domain.TokenHolder
	err := dbFromCtx(ctx, r.db).
		Where("asset_id = ? AND holder_type = ? AND holder_id = ?", assetID, holderType, holderID).
		First(&holder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrHolderNotFound
		}
		return nil, fmt.Errorf("failed to get token holder: %w", err)
	}
	return &holder, nil
}

// ListByAsset 获取资产全部持有人
func (r *HolderRepository) ListByAsset(ctx context.Context, assetID string) ([]*domain.TokenHolder, error) {
	var holders []*domain.TokenHolder
	err := dbFromCtx(ctx, r.db).
		Where("asset_id = ?", assetID).
		Order("balance DESC").
		Find(&holders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list token holders: %w", err)
	}
	return holders, nil
}

// Credit 入账，持有人行不存在时惰性创建
func (r *HolderRepository) Credit(ctx context.Context, assetID string, holderType domain.HolderType, holderID string, amount int64) error {
	holder := &domain.TokenHolder{
		AssetID:    assetID,
		HolderType: holderType,
		HolderID:   holderID,
		Balance:    amount,
	}
	err := dbFromCtx(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset_id"}, {Name: "holder_type"}, {Name: "holder_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"balance": gorm.Expr("balance + ?", amount)}),
	}).Create(holder).Error
	if err != nil {
		return fmt.Errorf("failed to credit token holder: %w", err)
	}
	return nil
}

// Debit 出账，余额不足时守护条件不命中，返回 false
func (r *HolderRepository) Debit(ctx context.Context, assetID string, holderType domain.HolderType, holderID string, amount int64) (bool, error) {
	result := dbFromCtx(ctx, r.db).Model(&domain.TokenHolder{}).
		Where("asset_id = ? AND holder_type = ? AND holder_id = ? AND balance >= ?", assetID, holderType, holderID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return false, fmt.Errorf("failed to debit token holder: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
