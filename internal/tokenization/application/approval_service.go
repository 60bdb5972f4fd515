package application

import (
	"context"
	"time"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/pkg/logger"
)

// RequestApprovalCommand 发起审批命令
type RequestApprovalCommand struct {
	TenantID    string
	RequestedBy string
	Operation   domain.OperationType
	AssetID     string
	Amount      int64
	FromType    domain.HolderType
	FromID      string
	ToType      domain.HolderType
	ToID        string
	Reason      string
}

// ApprovalService 双签审批应用服务
// 订单流之外的台账变更必须经租户与平台两级审批后方可执行
type ApprovalService struct {
	txManager    domain.TxManager
	approvalRepo domain.ApprovalRepository
	assetRepo    domain.AssetRepository
	ledger       *LedgerService
	ids          *IDGenerator
}

// NewApprovalService 创建审批应用服务
func NewApprovalService(
	txManager domain.TxManager,
	approvalRepo domain.ApprovalRepository,
	assetRepo domain.AssetRepository,
	ledger *LedgerService,
	ids *IDGenerator,
) *ApprovalService {
	return &ApprovalService{
		txManager:    txManager,
		approvalRepo: approvalRepo,
		assetRepo:    assetRepo,
		ledger:       ledger,
		ids:          ids,
	}
}

// Request 发起审批请求
func (s *ApprovalService) Request(ctx context.Context, cmd RequestApprovalCommand) (*domain.ApprovalRequest, error) {
	if cmd.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	asset, err := s.assetRepo.Get(ctx, cmd.AssetID)
	if err != nil {
		return nil, err
	}
	if !asset.IsMutable() {
		return nil, domain.ErrAssetClosed
	}

	req := domain.NewApprovalRequest(s.ids.ApprovalID(), cmd.TenantID, cmd.RequestedBy, cmd.Operation, cmd.AssetID, cmd.Amount, cmd.Reason)
	req.FromType = cmd.FromType
	req.FromID = cmd.FromID
	req.ToType = cmd.ToType
	req.ToID = cmd.ToID

	err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.approvalRepo.Save(txCtx, req); err != nil {
			return err
		}
		return s.approvalRepo.AppendAudit(txCtx, &domain.ApprovalAudit{
			ApprovalID: req.ApprovalID,
			ActorID:    cmd.RequestedBy,
			FromStatus: domain.ApprovalStatusRequested,
			ToStatus:   domain.ApprovalStatusRequested,
			Note:       "requested",
			OccurredAt: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Approval requested",
		"approval_id", req.ApprovalID,
		"operation", req.Operation,
		"asset_id", req.AssetID,
		"amount", req.Amount,
	)
	return req, nil
}

// ApproveTenant 租户级审批（第一签）
func (s *ApprovalService) ApproveTenant(ctx context.Context, approvalID, approverID string) (*domain.ApprovalRequest, error) {
	var req *domain.ApprovalRequest
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := s.approvalRepo.TransitionStatus(txCtx, approvalID,
			domain.ApprovalStatusRequested, domain.ApprovalStatusTenantApproved)
		if err != nil {
			return err
		}
		if !ok {
			return s.transitionConflict(txCtx, approvalID)
		}

		req, err = s.approvalRepo.Get(txCtx, approvalID)
		if err != nil {
			return err
		}
		now := time.Now()
		req.TenantApprovedBy = approverID
		req.TenantApprovedAt = &now
		if err := s.approvalRepo.Update(txCtx, req); err != nil {
			return err
		}
		return s.approvalRepo.AppendAudit(txCtx, &domain.ApprovalAudit{
			ApprovalID: approvalID,
			ActorID:    approverID,
			FromStatus: domain.ApprovalStatusRequested,
			ToStatus:   domain.ApprovalStatusTenantApproved,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ApprovePlatform 平台级审批（第二签），审批人必须与第一签不同
func (s *ApprovalService) ApprovePlatform(ctx context.Context, approvalID, approverID string) (*domain.ApprovalRequest, error) {
	var req *domain.ApprovalRequest
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.approvalRepo.Get(txCtx, approvalID)
		if err != nil {
			return err
		}
		if current.TenantApprovedBy == approverID {
			return domain.ErrSameApprover
		}

		ok, err := s.approvalRepo.TransitionStatus(txCtx, approvalID,
			domain.ApprovalStatusTenantApproved, domain.ApprovalStatusFullyApproved)
		if err != nil {
			return err
		}
		if !ok {
			return s.transitionConflict(txCtx, approvalID)
		}

		req, err = s.approvalRepo.Get(txCtx, approvalID)
		if err != nil {
			return err
		}
		now := time.Now()
		req.PlatformApprovedBy = approverID
		req.PlatformApprovedAt = &now
		if err := s.approvalRepo.Update(txCtx, req); err != nil {
			return err
		}
		return s.approvalRepo.AppendAudit(txCtx, &domain.ApprovalAudit{
			ApprovalID: approvalID,
			ActorID:    approverID,
			FromStatus: domain.ApprovalStatusTenantApproved,
			ToStatus:   domain.ApprovalStatusFullyApproved,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Reject 拒绝审批，任一未终态阶段均可，拒绝后不可恢复
func (s *ApprovalService) Reject(ctx context.Context, approvalID, actorID, reason string) (*domain.ApprovalRequest, error) {
	var req *domain.ApprovalRequest
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.approvalRepo.Get(txCtx, approvalID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(domain.ApprovalStatusRejected) {
			return domain.ErrInvalidStateTransition
		}

		ok, err := s.approvalRepo.TransitionStatus(txCtx, approvalID, current.Status, domain.ApprovalStatusRejected)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidStateTransition
		}

		req, err = s.approvalRepo.Get(txCtx, approvalID)
		if err != nil {
			return err
		}
		now := time.Now()
		req.RejectedBy = actorID
		req.RejectedAt = &now
		req.RejectReason = reason
		if err := s.approvalRepo.Update(txCtx, req); err != nil {
			return err
		}
		return s.approvalRepo.AppendAudit(txCtx, &domain.ApprovalAudit{
			ApprovalID: approvalID,
			ActorID:    actorID,
			FromStatus: current.Status,
			ToStatus:   domain.ApprovalStatusRejected,
			Note:       reason,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Approval rejected", "approval_id", approvalID, "reason", reason)
	return req, nil
}

// Execute 执行已获双签的审批：台账变更与状态迁移同一事务
// EXECUTED 迁移的 check-and-set 保证同一审批只执行一次
func (s *ApprovalService) Execute(ctx context.Context, approvalID, actorID string) (*domain.ApprovalRequest, error) {
	var req *domain.ApprovalRequest
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := s.approvalRepo.TransitionStatus(txCtx, approvalID,
			domain.ApprovalStatusFullyApproved, domain.ApprovalStatusExecuted)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := s.approvalRepo.Get(txCtx, approvalID); err != nil {
				return err
			}
			return domain.ErrApprovalNotExecutable
		}

		req, err = s.approvalRepo.Get(txCtx, approvalID)
		if err != nil {
			return err
		}

		var txn *domain.TokenTransaction
		switch req.Operation {
		case domain.OperationTypeMint:
			txn, err = s.ledger.Mint(txCtx, req.AssetID, req.Amount, req.Reason)
		case domain.OperationTypeBurn:
			txn, err = s.ledger.Burn(txCtx, req.AssetID, req.FromType, req.FromID, req.Amount, req.Reason)
		case domain.OperationTypeTransfer:
			txn, err = s.ledger.Transfer(txCtx, req.AssetID, req.FromType, req.FromID, req.ToType, req.ToID, req.Amount, req.Reason, "")
		default:
			return domain.ErrInvalidStateTransition
		}
		if err != nil {
			return err
		}

		now := time.Now()
		req.ExecutedAt = &now
		req.TransactionID = txn.TransactionID
		if err := s.approvalRepo.Update(txCtx, req); err != nil {
			return err
		}
		return s.approvalRepo.AppendAudit(txCtx, &domain.ApprovalAudit{
			ApprovalID: approvalID,
			ActorID:    actorID,
			FromStatus: domain.ApprovalStatusFullyApproved,
			ToStatus:   domain.ApprovalStatusExecuted,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Approval executed",
		"approval_id", approvalID,
		"operation", req.Operation,
		"transaction_id", req.TransactionID,
	)
	return req, nil
}

// Get 获取审批请求
func (s *ApprovalService) Get(ctx context.Context, approvalID string) (*domain.ApprovalRequest, error) {
	return s.approvalRepo.Get(ctx, approvalID)
}

// ListPending 获取租户待处理审批
func (s *ApprovalService) ListPending(ctx context.Context, tenantID string, limit, offset int) ([]*domain.ApprovalRequest, int64, error) {
	return s.approvalRepo.ListPending(ctx, tenantID, limit, offset)
}

// ListAudits 获取审批轨迹
func (s *ApprovalService) ListAudits(ctx context.Context, approvalID string) ([]*domain.ApprovalAudit, error) {
	return s.approvalRepo.ListAudits(ctx, approvalID)
}

// transitionConflict 条件迁移未命中时区分不存在与状态冲突
func (s *ApprovalService) transitionConflict(ctx context.Context, approvalID string) error {
	if _, err := s.approvalRepo.Get(ctx, approvalID); err != nil {
		return err
	}
	return domain.ErrInvalidStateTransition
}
