// Package chain 提供基于以太坊兼容链的证书指纹锚定客户端
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/pkg/logger"
)

// anchorGasLimit 携带数据的普通转账燃料上限
const anchorGasLimit = uint64(100000)

// receiptPollInterval 回执轮询间隔
const receiptPollInterval = 3 * time.Second

// Config 锚定客户端配置
type Config struct {
	RPCURL        string
	SignerKey     string
	AnchorAddress string
	ExplorerURL   string
}

// EthereumClient 以太坊锚定客户端
// 向固定锚定地址发送零值交易，指纹摘要写入 data 字段
type EthereumClient struct {
	client      *ethclient.Client
	privateKey  *ecdsa.PrivateKey
	signerAddr  common.Address
	anchorAddr  common.Address
	chainID     *big.Int
	explorerURL string
}

// NewEthereumClient 创建锚定客户端，启动时即校验 RPC 连通性与私钥
func NewEthereumClient(ctx context.Context, cfg Config) (*EthereumClient, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain rpc: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(cfg.SignerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signer key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	signerAddr := crypto.PubkeyToAddress(privateKey.PublicKey)
	logger.Info(ctx, "Chain anchor client initialized",
		"chain_id", chainID.String(),
		"signer", signerAddr.Hex(),
	)

	return &EthereumClient{
		client:      client,
		privateKey:  privateKey,
		signerAddr:  signerAddr,
		anchorAddr:  common.HexToAddress(cfg.AnchorAddress),
		chainID:     chainID,
		explorerURL: cfg.ExplorerURL,
	}, nil
}

// SubmitAnchor 将指纹摘要提交上链
func (c *EthereumClient) SubmitAnchor(ctx context.Context, fingerprint []byte) (*domain.AnchorResult, error) {
	nonce, err := c.client.PendingNonceAt(ctx, c.signerAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, c.anchorAddr, big.NewInt(0), anchorGasLimit, gasPrice, fingerprint)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign anchor transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send anchor transaction: %w", err)
	}

	txHash := signedTx.Hash().Hex()
	logger.Info(ctx, "Anchor transaction submitted", "tx_hash", txHash, "nonce", nonce)

	return &domain.AnchorResult{
		TxHash:       txHash,
		ExplorerLink: c.explorerURL + txHash,
	}, nil
}

// ConfirmTransaction 轮询等待交易落块，返回是否成功执行
func (c *EthereumClient) ConfirmTransaction(ctx context.Context, txHash string) (bool, error) {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt.Status == types.ReceiptStatusSuccessful, nil
		}

		select {
		case <-ctx.Done():
			return false, fmt.Errorf("confirmation timed out for %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// SignerBalance 查询签名账户余额（wei）
func (c *EthereumClient) SignerBalance(ctx context.Context) (*big.Int, error) {
	balance, err := c.client.BalanceAt(ctx, c.signerAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get signer balance: %w", err)
	}
	return balance, nil
}

// Close 关闭 RPC 连接
func (c *EthereumClient) Close() {
	c.client.Close()
}
