package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"gorm.io/gorm"
)

// RateLimitRepository 限流记录仓储 GORM 实现
type RateLimitRepository struct {
	db *gorm.DB
}

// NewRateLimitRepository 创建限流记录仓储
func NewRateLimitRepository(db *gorm.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// CountInWindow 统计窗口内记录数
func (r *RateLimitRepository) CountInWindow(ctx context.Context, tenantID, userID, operation string, since time.Time) (int64, error) {
	var count int64
	err := dbFromCtx(ctx, r.db).Model(&domain.RateLimitRecord{}).
		Where("tenant_id = ? AND user_id = ? AND operation = ? AND created_at >= ?", tenantID, userID, operation, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count rate limit records: %w", err)
	}
	return count, nil
}

// OldestInWindow 获取窗口内最早记录的创建时间，无记录时返回零值
func (r *RateLimitRepository) OldestInWindow(ctx context.Context, tenantID, userID, operation string, since time.Time) (time.Time, error) {
	var record domain.RateLimitRecord
	err := dbFromCtx(ctx, r.db).
		Where("tenant_id = ? AND user_id = ? AND operation = ? AND created_at >= ?", tenantID, userID, operation, since).
		Order("created_at ASC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get oldest rate limit record: %w", err)
	}
	return record.CreatedAt, nil
}

// Append 追加一条记录
func (r *RateLimitRepository) Append(ctx context.Context, record *domain.RateLimitRecord) error {
	if err := dbFromCtx(ctx, r.db).Create(record).Error; err != nil {
		return fmt.Errorf("failed to append rate limit record: %w", err)
	}
	return nil
}

// DeleteOlderThan 清理过期记录，返回删除条数
func (r *RateLimitRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := dbFromCtx(ctx, r.db).Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&domain.RateLimitRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired rate limit records: %w", result.Error)
	}
	return result.RowsAffected, nil
}
