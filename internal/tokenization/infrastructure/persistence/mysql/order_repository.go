package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"gorm.io/gorm"
)

// OrderRepository 订单仓储 GORM 实现
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Save 保存订单
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	if err := dbFromCtx(ctx, r.db).Create(order).Error; err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// Get 根据订单号获取订单
func (r *OrderRepository) Get(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var order domain.Order
	err := dbFromCtx(ctx, r.db).Where("order_number = ?", orderNumber).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// List 按条件获取订单分页列表
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter, limit, offset int) ([]*domain.Order, int64, error) {
	db := dbFromCtx(ctx, r.db).Model(&domain.Order{})
	if filter.TenantID != "" {
		db = db.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.AssetID != "" {
		db = db.Where("asset_id = ?", filter.AssetID)
	}
	if filter.ClientID != "" {
		db = db.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []*domain.Order
	if err := db.Order("id DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// TransitionStatus 条件状态迁移（status ∈ from → to），返回是否命中
func (r *OrderRepository) TransitionStatus(ctx context.Context, orderNumber string, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	result := dbFromCtx(ctx, r.db).Model(&domain.Order{}).
		Where("order_number = ? AND status IN ?", orderNumber, from).
		Update("status", to)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition order status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Update 更新订单全量字段
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if err := dbFromCtx(ctx, r.db).Save(order).Error; err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}
