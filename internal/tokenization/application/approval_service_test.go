package application

import (
	"context"
	"testing"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) requestedMint(t *testing.T, assetID string, amount int64) *domain.ApprovalRequest {
	t.Helper()
	req, err := e.approvals.Request(context.Background(), RequestApprovalCommand{
		TenantID:    "tenant-1",
		RequestedBy: "requester",
		Operation:   domain.OperationTypeMint,
		AssetID:     assetID,
		Amount:      amount,
		Reason:      "capital increase",
	})
	require.NoError(t, err)
	return req
}

func TestApprovalDualSignatureFlow(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	req := env.requestedMint(t, asset.AssetID, 500)
	assert.Equal(t, domain.ApprovalStatusRequested, req.Status)

	req, err := env.approvals.ApproveTenant(ctx, req.ApprovalID, "tenant-admin")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusTenantApproved, req.Status)
	assert.Equal(t, "tenant-admin", req.TenantApprovedBy)

	req, err = env.approvals.ApprovePlatform(ctx, req.ApprovalID, "platform-admin")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusFullyApproved, req.Status)

	req, err = env.approvals.Execute(ctx, req.ApprovalID, "operator")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusExecuted, req.Status)
	require.NotEmpty(t, req.TransactionID)
	require.NotNil(t, req.ExecutedAt)

	// 台账已变更
	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), updated.TotalSupply)
	assert.Equal(t, int64(1500), updated.PlatformBalance)

	audits, err := env.approvals.ListAudits(ctx, req.ApprovalID)
	require.NoError(t, err)
	assert.Len(t, audits, 4)
}

func TestApprovalRequiresDistinctApprovers(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	req := env.requestedMint(t, asset.AssetID, 100)
	_, err := env.approvals.ApproveTenant(ctx, req.ApprovalID, "admin-1")
	require.NoError(t, err)

	_, err = env.approvals.ApprovePlatform(ctx, req.ApprovalID, "admin-1")
	assert.ErrorIs(t, err, domain.ErrSameApprover)

	_, err = env.approvals.ApprovePlatform(ctx, req.ApprovalID, "admin-2")
	require.NoError(t, err)
}

func TestApprovalExecuteRequiresFullApproval(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	req := env.requestedMint(t, asset.AssetID, 100)
	_, err := env.approvals.Execute(ctx, req.ApprovalID, "operator")
	assert.ErrorIs(t, err, domain.ErrApprovalNotExecutable)

	_, err = env.approvals.ApproveTenant(ctx, req.ApprovalID, "admin-1")
	require.NoError(t, err)
	_, err = env.approvals.Execute(ctx, req.ApprovalID, "operator")
	assert.ErrorIs(t, err, domain.ErrApprovalNotExecutable)

	// 单签不会触发任何台账变更
	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), updated.TotalSupply)
}

func TestApprovalExecuteOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	req := env.requestedMint(t, asset.AssetID, 500)
	_, err := env.approvals.ApproveTenant(ctx, req.ApprovalID, "admin-1")
	require.NoError(t, err)
	_, err = env.approvals.ApprovePlatform(ctx, req.ApprovalID, "admin-2")
	require.NoError(t, err)

	_, err = env.approvals.Execute(ctx, req.ApprovalID, "operator")
	require.NoError(t, err)

	_, err = env.approvals.Execute(ctx, req.ApprovalID, "operator")
	assert.ErrorIs(t, err, domain.ErrApprovalNotExecutable)

	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), updated.TotalSupply)
}

func TestApprovalRejectIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	req := env.requestedMint(t, asset.AssetID, 100)
	rejected, err := env.approvals.Reject(ctx, req.ApprovalID, "admin-1", "amount too large")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusRejected, rejected.Status)
	assert.Equal(t, "amount too large", rejected.RejectReason)

	_, err = env.approvals.ApproveTenant(ctx, req.ApprovalID, "admin-1")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	_, err = env.approvals.Execute(ctx, req.ApprovalID, "operator")
	assert.ErrorIs(t, err, domain.ErrApprovalNotExecutable)
}

func TestApprovalExecuteFailureKeepsApprovalExecutable(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	// 审批一个超出客户持仓的销毁
	req, err := env.approvals.Request(ctx, RequestApprovalCommand{
		TenantID:    "tenant-1",
		RequestedBy: "requester",
		Operation:   domain.OperationTypeBurn,
		AssetID:     asset.AssetID,
		Amount:      50,
		FromType:    domain.HolderTypeClient,
		FromID:      "client-1",
		Reason:      "redemption",
	})
	require.NoError(t, err)

	_, err = env.approvals.ApproveTenant(ctx, req.ApprovalID, "admin-1")
	require.NoError(t, err)
	_, err = env.approvals.ApprovePlatform(ctx, req.ApprovalID, "admin-2")
	require.NoError(t, err)

	_, err = env.approvals.Execute(ctx, req.ApprovalID, "operator")
	require.Error(t, err)
	assert.True(t, domain.IsInsufficientBalance(err))

	// 执行失败整体回滚，审批停留在可执行状态
	reloaded, err := env.approvals.Get(ctx, req.ApprovalID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusFullyApproved, reloaded.Status)
}
