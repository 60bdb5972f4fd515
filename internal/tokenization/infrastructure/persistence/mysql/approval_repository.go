package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"gorm.io/gorm"
)

// ApprovalRepository 审批仓储 GORM 实现
type ApprovalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository 创建审批仓储
func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Save 保存审批请求
func (r *ApprovalRepository) Save(ctx context.Context, req *domain.ApprovalRequest) error {
	if err := dbFromCtx(ctx, r.db).Create(req).Error; err != nil {
		return fmt.Errorf("failed to save approval request: %w", err)
	}
	return nil
}

// Get 根据审批 ID 获取请求
func (r *ApprovalRepository) Get(ctx context.Context, approvalID string) (*domain.ApprovalRequest, error) {
	var req domain.ApprovalRequest
	err := dbFromCtx(ctx, r.db).Where("approval_id = ?", approvalID).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrApprovalNotFound
		}
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}
	return &req, nil
}

// ListPending 获取租户待处理审批（非终态）
func (r *ApprovalRepository) ListPending(ctx context.Context, tenantID string, limit, offset int) ([]*domain.ApprovalRequest, int64, error) {
	db := dbFromCtx(ctx, r.db).Model(&domain.ApprovalRequest{}).
		Where("tenant_id = ? AND status IN ?", tenantID, []domain.ApprovalStatus{
			domain.ApprovalStatusRequested,
			domain.ApprovalStatusTenantApproved,
			domain.ApprovalStatusFullyApproved,
		})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count approval requests: %w", err)
	}

	var reqs []*domain.ApprovalRequest
	if err := db.Order("id ASC").Limit(limit).Offset(offset).Find(&reqs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list approval requests: %w", err)
	}
	return reqs, total, nil
}

// TransitionStatus 条件状态迁移（status = from → to），返回是否命中
func (r *ApprovalRepository) TransitionStatus(ctx context.Context, approvalID string, from, to domain.ApprovalStatus) (bool, error) {
	result := dbFromCtx(ctx, r.db).Model(&domain.ApprovalRequest{}).
		Where("approval_id = ? AND status = ?", approvalID, from).
		Update("status", to)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition approval status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Update 更新审批请求字段
func (r *ApprovalRepository) Update(ctx context.Context, req *domain.ApprovalRequest) error {
	if err := dbFromCtx(ctx, r.db).Save(req).Error; err != nil {
		return fmt.Errorf("failed to update approval request: %w", err)
	}
	return nil
}

// AppendAudit 追加审批轨迹
func (r *ApprovalRepository) AppendAudit(ctx context.Context, audit *domain.ApprovalAudit) error {
	if err := dbFromCtx(ctx, r.db).Create(audit).Error; err != nil {
		return fmt.Errorf("failed to append approval audit: %w", err)
	}
	return nil
}

// ListAudits 获取审批轨迹，按发生顺序
func (r *ApprovalRepository) ListAudits(ctx context.Context, approvalID string) ([]*domain.ApprovalAudit, error) {
	var audits []*domain.ApprovalAudit
	err := dbFromCtx(ctx, r.db).
		Where("approval_id = ?", approvalID).
		Order("id ASC").
		Find(&audits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list approval audits: %w", err)
	}
	return audits, nil
}
