package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ApprovalStatus 审批请求状态
type ApprovalStatus string

const (
	ApprovalStatusRequested      ApprovalStatus = "REQUESTED"
	ApprovalStatusTenantApproved ApprovalStatus = "TENANT_APPROVED"
	ApprovalStatusFullyApproved  ApprovalStatus = "FULLY_APPROVED"
	ApprovalStatusRejected       ApprovalStatus = "REJECTED"
	ApprovalStatusExecuted       ApprovalStatus = "EXECUTED"
)

// approvalTransitions 审批状态迁移表
var approvalTransitions = map[ApprovalStatus][]ApprovalStatus{
	ApprovalStatusRequested:      {ApprovalStatusTenantApproved, ApprovalStatusRejected},
	ApprovalStatusTenantApproved: {ApprovalStatusFullyApproved, ApprovalStatusRejected},
	ApprovalStatusFullyApproved:  {ApprovalStatusExecuted},
	ApprovalStatusRejected:       {},
	ApprovalStatusExecuted:       {},
}

// CanTransitionTo 判断是否允许迁移到目标状态
func (s ApprovalStatus) CanTransitionTo(target ApprovalStatus) bool {
	for _, allowed := range approvalTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// OperationType 敏感台账操作类型
type OperationType string

const (
	OperationTypeMint     OperationType = "MINT"
	OperationTypeBurn     OperationType = "BURN"
	OperationTypeTransfer OperationType = "TRANSFER"
)

// ApprovalRequest 双签审批请求
// 订单流之外的任何台账变更（手工增发/销毁/背书转让）必须先经租户与平台两级独立审批
type ApprovalRequest struct {
	gorm.Model
	// 审批 ID (业务主键)
	ApprovalID string `gorm:"column:approval_id;type:varchar(32);uniqueIndex;not null" json:"approval_id"`
	// 租户 ID
	TenantID string `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	// 发起人
	RequestedBy string `gorm:"column:requested_by;type:varchar(32);not null" json:"requested_by"`
	// 操作类型
	Operation OperationType `gorm:"column:operation;type:varchar(20);not null" json:"operation"`
	// 操作参数
	AssetID    string     `gorm:"column:asset_id;type:varchar(32);index;not null" json:"asset_id"`
	Amount     int64      `gorm:"column:amount;not null" json:"amount"`
	FromType   HolderType `gorm:"column:from_type;type:varchar(20)" json:"from_type,omitempty"`
	FromID     string     `gorm:"column:from_id;type:varchar(32)" json:"from_id,omitempty"`
	ToType     HolderType `gorm:"column:to_type;type:varchar(20)" json:"to_type,omitempty"`
	ToID       string     `gorm:"column:to_id;type:varchar(32)" json:"to_id,omitempty"`
	Reason     string     `gorm:"column:reason;type:varchar(255);not null" json:"reason"`
	// 状态
	Status ApprovalStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// 两级审批人与时间
	TenantApprovedBy   string     `gorm:"column:tenant_approved_by;type:varchar(32)" json:"tenant_approved_by,omitempty"`
	TenantApprovedAt   *time.Time `gorm:"column:tenant_approved_at" json:"tenant_approved_at,omitempty"`
	PlatformApprovedBy string     `gorm:"column:platform_approved_by;type:varchar(32)" json:"platform_approved_by,omitempty"`
	PlatformApprovedAt *time.Time `gorm:"column:platform_approved_at" json:"platform_approved_at,omitempty"`
	// 拒绝人与原因
	RejectedBy   string     `gorm:"column:rejected_by;type:varchar(32)" json:"rejected_by,omitempty"`
	RejectedAt   *time.Time `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	RejectReason string     `gorm:"column:reject_reason;type:varchar(255)" json:"reject_reason,omitempty"`
	// 执行时间与产生的台账流水
	ExecutedAt    *time.Time `gorm:"column:executed_at" json:"executed_at,omitempty"`
	TransactionID string     `gorm:"column:transaction_id;type:varchar(32)" json:"transaction_id,omitempty"`
}

// TableName 表名
func (ApprovalRequest) TableName() string {
	return "approval_requests"
}

// NewApprovalRequest 创建审批请求
func NewApprovalRequest(approvalID, tenantID, requestedBy string, op OperationType, assetID string, amount int64, reason string) *ApprovalRequest {
	return &ApprovalRequest{
		ApprovalID:  approvalID,
		TenantID:    tenantID,
		RequestedBy: requestedBy,
		Operation:   op,
		AssetID:     assetID,
		Amount:      amount,
		Reason:      reason,
		Status:      ApprovalStatusRequested,
	}
}

// IsExecutable 是否达到可执行状态
func (r *ApprovalRequest) IsExecutable() bool {
	return r.Status == ApprovalStatusFullyApproved
}

// ApprovalAudit 审批轨迹，append-only
type ApprovalAudit struct {
	gorm.Model
	// 审批 ID
	ApprovalID string `gorm:"column:approval_id;type:varchar(32);index;not null" json:"approval_id"`
	// 操作人
	ActorID string `gorm:"column:actor_id;type:varchar(32);not null" json:"actor_id"`
	// 迁移前后状态
	FromStatus ApprovalStatus `gorm:"column:from_status;type:varchar(20);not null" json:"from_status"`
	ToStatus   ApprovalStatus `gorm:"column:to_status;type:varchar(20);not null" json:"to_status"`
	// 备注
	Note string `gorm:"column:note;type:varchar(255)" json:"note,omitempty"`
	// 发生时间
	OccurredAt time.Time `gorm:"column:occurred_at;not null" json:"occurred_at"`
}

// TableName 表名
func (ApprovalAudit) TableName() string {
	return "approval_audits"
}

// ApprovalRepository 审批仓储接口
type ApprovalRepository interface {
	// Save 保存审批请求
	Save(ctx context.Context, req *ApprovalRequest) error
	// Get 根据审批 ID 获取请求
	Get(ctx context.Context, approvalID string) (*ApprovalRequest, error)
	// ListPending 获取租户待处理审批
	ListPending(ctx context.Context, tenantID string, limit, offset int) ([]*ApprovalRequest, int64, error)
	// TransitionStatus 条件状态迁移（status = from → to），返回是否命中
	TransitionStatus(ctx context.Context, approvalID string, from, to ApprovalStatus) (bool, error)
	// Update 更新审批请求字段
	Update(ctx context.Context, req *ApprovalRequest) error
	// AppendAudit 追加审批轨迹
	AppendAudit(ctx context.Context, audit *ApprovalAudit) error
	// ListAudits 获取审批轨迹
	ListAudits(ctx context.Context, approvalID string) ([]*ApprovalAudit, error)
}
