// Package domain 包含通证化资产台账与订单结算的领域模型
package domain

import (
	"errors"
	"fmt"
)

// 领域错误哨兵，应用层与 HTTP 层据此映射错误码
var (
	// ErrAssetNotFound 资产不存在
	ErrAssetNotFound = errors.New("tokenized asset not found")
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrCertificateNotFound 证书不存在
	ErrCertificateNotFound = errors.New("certificate not found")
	// ErrApprovalNotFound 审批请求不存在
	ErrApprovalNotFound = errors.New("approval request not found")
	// ErrHolderNotFound 持有人余额不存在
	ErrHolderNotFound = errors.New("token holder not found")
	// ErrInvalidAmount 数量非法（必须为正整数）
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidStateTransition 非法状态迁移
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrAssetNotActive 资产未激活，不可交易
	ErrAssetNotActive = errors.New("tokenized asset is not active")
	// ErrAssetClosed 资产已关闭，禁止一切变更
	ErrAssetClosed = errors.New("tokenized asset is closed")
	// ErrSupplyInvariantViolated 供应量守恒被破坏，事务必须回滚
	ErrSupplyInvariantViolated = errors.New("supply invariant violated")
	// ErrRateLimitExceeded 超过限流窗口配额
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrApprovalNotExecutable 审批未达到可执行状态
	ErrApprovalNotExecutable = errors.New("approval request is not executable")
	// ErrSameApprover 平台审批人不能与租户审批人相同
	ErrSameApprover = errors.New("second approval requires a different approver")
	// ErrCertificateAlreadyAnchored 证书已上链，无需重复提交
	ErrCertificateAlreadyAnchored = errors.New("certificate already anchored")
	// ErrAnchoringDisabled 链上锚定未启用
	ErrAnchoringDisabled = errors.New("blockchain anchoring is disabled")
	// ErrAnchorNotConfirmed 锚定交易未在链上确认（回滚或超时），证书保持未认证
	ErrAnchorNotConfirmed = errors.New("anchor transaction was not confirmed on chain")
	// ErrRendererUnavailable 证书渲染服务未配置
	ErrRendererUnavailable = errors.New("certificate renderer is not configured")
)

// InsufficientBalanceError 余额不足错误，携带当前余额供运营侧排查
type InsufficientBalanceError struct {
	AssetID   string
	Holder    string
	Requested int64
	Available int64
}

// Error 实现 error 接口
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s on asset %s: requested %d, available %d",
		e.Holder, e.AssetID, e.Requested, e.Available)
}

// IsInsufficientBalance 判断是否为余额不足错误
func IsInsufficientBalance(err error) bool {
	var target *InsufficientBalanceError
	return errors.As(err, &target)
}
