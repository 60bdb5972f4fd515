package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AssetRepository 资产仓储 GORM 实现
type AssetRepository struct {
	db *gorm.DB
}

// NewAssetRepository 创建资产仓储
func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Save 保存资产
func (r *AssetRepository) Save(ctx context.Context, asset *domain.TokenizedAsset) error {
	if err := dbFromCtx(ctx, r.db).Create(asset).Error; err != nil {
		return fmt.Errorf("failed to save tokenized asset: %w", err)
	}
	return nil
}

// Get 根据资产 ID 获取资产
func (r *AssetRepository) Get(ctx context.Context, assetID string) (*domain.TokenizedAsset, error) {
	var asset domain.TokenizedAsset
	err := dbFromCtx(ctx, r.db).Where("asset_id = ?", assetID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get tokenized asset: %w", err)
	}
	return &asset, nil
}

// List 获取租户资产分页列表
func (r *AssetRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.TokenizedAsset, int64, error) {
	db := dbFromCtx(ctx, r.db).Model(&domain.TokenizedAsset{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tokenized assets: %w", err)
	}

	var assets []*domain.TokenizedAsset
	if err := db.Order("id DESC").Limit(limit).Offset(offset).Find(&assets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tokenized assets: %w", err)
	}
	return assets, total, nil
}

// UpdateStatus 条件更新状态（from → to），返回是否命中
func (r *AssetRepository) UpdateStatus(ctx context.Context, assetID string, from, to domain.AssetStatus) (bool, error) {
	result := dbFromCtx(ctx, r.db).Model(&domain.TokenizedAsset{}).
		Where("asset_id = ? AND status = ?", assetID, from).
		Update("status", to)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update asset status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ApplySupplyDelta 原子应用供应量增量
// 递减的分量带非负守护条件，守护不满足时 RowsAffected 为 0
func (r *AssetRepository) ApplySupplyDelta(ctx context.Context, assetID string, delta domain.SupplyDelta) (bool, error) {
	db := dbFromCtx(ctx, r.db)

	query := db.Model(&domain.TokenizedAsset{}).Where("asset_id = ?", assetID)
	if delta.Circulating < 0 {
		query = query.Where("circulating_supply >= ?", -delta.Circulating)
	}
	if delta.Platform < 0 {
		query = query.Where("fideitec_balance >= ?", -delta.Platform)
	}
	if delta.Burned < 0 {
		query = query.Where("burned_supply >= ?", -delta.Burned)
	}

	updates := map[string]interface{}{}
	if delta.Total != 0 {
		updates["total_supply"] = gorm.Expr("total_supply + ?", delta.Total)
	}
	if delta.Circulating != 0 {
		updates["circulating_supply"] = gorm.Expr("circulating_supply + ?", delta.Circulating)
	}
	if delta.Platform != 0 {
		updates["fideitec_balance"] = gorm.Expr("fideitec_balance + ?", delta.Platform)
	}
	if delta.Burned != 0 {
		updates["burned_supply"] = gorm.Expr("burned_supply + ?", delta.Burned)
	}
	if len(updates) == 0 {
		return true, nil
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to apply supply delta: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdatePrice 更新单价
func (r *AssetRepository) UpdatePrice(ctx context.Context, assetID string, price decimal.Decimal) error {
	result := dbFromCtx(ctx, r.db).Model(&domain.TokenizedAsset{}).
		Where("asset_id = ?", assetID).
		Update("token_price", price)
	if result.Error != nil {
		return fmt.Errorf("failed to update token price: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}
