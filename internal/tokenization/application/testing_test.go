package application

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/internal/tokenization/infrastructure/persistence/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv 组装整套服务栈，仓储走内存 sqlite
type testEnv struct {
	db        *gorm.DB
	ledger    *LedgerService
	orders    *OrderService
	certs     *CertificateService
	approvals *ApprovalService
	limiter   *RateLimitService
	certRepo  domain.CertificateRepository
	holders   domain.HolderRepository
	chain     *fakeChainClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库：多连接会各自拿到独立数据库
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.TokenizedAsset{},
		&domain.TokenHolder{},
		&domain.TokenTransaction{},
		&domain.Order{},
		&domain.Certificate{},
		&domain.ApprovalRequest{},
		&domain.ApprovalAudit{},
		&domain.RateLimitRecord{},
	))

	txManager := mysql.NewGormTxManager(db)
	assetRepo := mysql.NewAssetRepository(db)
	holderRepo := mysql.NewHolderRepository(db)
	txnRepo := mysql.NewTransactionRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	certRepo := mysql.NewCertificateRepository(db)
	approvalRepo := mysql.NewApprovalRepository(db)
	rateLimitRepo := mysql.NewRateLimitRepository(db)

	ids := NewIDGenerator(1)
	publisher := noopPublisher{}

	ledger := NewLedgerService(txManager, assetRepo, holderRepo, txnRepo, publisher, ids)
	certs := NewCertificateService(certRepo, nil, publisher, ids)
	orders := NewOrderService(txManager, orderRepo, assetRepo, ledger, certs, publisher, ids)
	approvals := NewApprovalService(txManager, approvalRepo, assetRepo, ledger, ids)
	limiter := NewRateLimitService(rateLimitRepo, true, 3, time.Hour, 2*time.Hour, 10*time.Minute)

	return &testEnv{
		db:        db,
		ledger:    ledger,
		orders:    orders,
		certs:     certs,
		approvals: approvals,
		limiter:   limiter,
		certRepo:  certRepo,
		holders:   holderRepo,
		chain:     &fakeChainClient{},
	}
}

// activeAsset 创建并激活一个 1000 供应量、单价 100 的资产
func (e *testEnv) activeAsset(t *testing.T) *domain.TokenizedAsset {
	t.Helper()
	ctx := context.Background()

	asset, err := e.ledger.Tokenize(ctx, TokenizeCommand{
		TenantID:    "tenant-1",
		SourceType:  domain.SourceTypeTrust,
		SourceID:    "trust-1",
		TokenName:   "Fideicomiso Alfa",
		TokenSymbol: "FDA",
		TotalSupply: 1000,
		TokenPrice:  decimal.NewFromInt(100),
		Currency:    "USD",
	})
	require.NoError(t, err)

	asset, err = e.ledger.Activate(ctx, asset.AssetID)
	require.NoError(t, err)
	return asset
}

// paidBuyOrder 创建并确认收款一张买单
func (e *testEnv) paidBuyOrder(t *testing.T, assetID, clientID string, amount int64) *domain.Order {
	t.Helper()
	ctx := context.Background()

	order, err := e.orders.CreateOrder(ctx, CreateOrderCommand{
		TenantID:      "tenant-1",
		Type:          domain.OrderTypeBuy,
		AssetID:       assetID,
		ClientID:      clientID,
		TokenAmount:   amount,
		PaymentMethod: "wire",
	})
	require.NoError(t, err)

	order, err = e.orders.ConfirmPayment(ctx, order.OrderNumber, "PAY-REF-1")
	require.NoError(t, err)
	return order
}

// noopPublisher 测试用空事件发布器
type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	return nil
}

// fakeChainClient 可控的链客户端替身
type fakeChainClient struct {
	submitCalls  int
	confirmCalls int
	failSubmit   bool
	failConfirm  bool
}

func (f *fakeChainClient) SubmitAnchor(ctx context.Context, fingerprint []byte) (*domain.AnchorResult, error) {
	f.submitCalls++
	if f.failSubmit {
		return nil, errors.New("rpc unavailable")
	}
	return &domain.AnchorResult{TxHash: "0xabc123", ExplorerLink: "https://etherscan.io/tx/0xabc123"}, nil
}

func (f *fakeChainClient) ConfirmTransaction(ctx context.Context, txHash string) (bool, error) {
	f.confirmCalls++
	if f.failConfirm {
		return false, nil
	}
	return true, nil
}

func (f *fakeChainClient) SignerBalance(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}
