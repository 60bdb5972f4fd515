package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// RateLimitRecord 限流记录，每次被放行的敏感操作写入一条
// 以数据库记录而非内存计数实现滑动窗口，多实例部署天然共享
type RateLimitRecord struct {
	gorm.Model
	// 租户 ID
	TenantID string `gorm:"column:tenant_id;type:varchar(32);index:idx_rl_key;not null" json:"tenant_id"`
	// 用户 ID
	UserID string `gorm:"column:user_id;type:varchar(32);index:idx_rl_key;not null" json:"user_id"`
	// 操作类型
	Operation string `gorm:"column:operation;type:varchar(40);index:idx_rl_key;not null" json:"operation"`
	// 操作目标（订单号/资产 ID 等，仅用于排查）
	TargetID string `gorm:"column:target_id;type:varchar(32)" json:"target_id,omitempty"`
}

// TableName 表名
func (RateLimitRecord) TableName() string {
	return "rate_limit_records"
}

// RateLimitDecision 限流判定结果
type RateLimitDecision struct {
	// 是否放行
	Admitted bool
	// 窗口内已使用次数（本次请求之前）
	Used int
	// 窗口配额上限
	Max int
	// 本次放行后的剩余配额
	Remaining int
	// 最早一条记录滑出窗口还需多久（拒绝时提示客户端重试间隔）
	ResetIn time.Duration
}

// RateLimitRepository 限流记录仓储接口
type RateLimitRepository interface {
	// CountInWindow 统计窗口内记录数
	CountInWindow(ctx context.Context, tenantID, userID, operation string, since time.Time) (int64, error)
	// OldestInWindow 获取窗口内最早记录的创建时间，无记录时返回零值
	OldestInWindow(ctx context.Context, tenantID, userID, operation string, since time.Time) (time.Time, error)
	// Append 追加一条记录
	Append(ctx context.Context, record *RateLimitRecord) error
	// DeleteOlderThan 清理过期记录，返回删除条数
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
