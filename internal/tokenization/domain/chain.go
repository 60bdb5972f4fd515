package domain

import (
	"context"
	"math/big"
)

// AnchorResult 链上锚定提交结果
type AnchorResult struct {
	// 链上交易哈希
	TxHash string
	// 区块浏览器链接
	ExplorerLink string
}

// ChainClient 区块链锚定客户端
// 锚定是尽力而为的旁路，任何失败都不得影响已提交的业务事务
type ChainClient interface {
	// SubmitAnchor 将指纹摘要提交上链，返回交易哈希
	SubmitAnchor(ctx context.Context, fingerprint []byte) (*AnchorResult, error)
	// ConfirmTransaction 轮询等待交易落块，返回是否成功执行
	ConfirmTransaction(ctx context.Context, txHash string) (bool, error)
	// SignerBalance 查询签名账户余额（wei），用于燃料告警
	SignerBalance(ctx context.Context) (*big.Int, error)
}
