package application

import (
	"context"
	"sync"
	"testing"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuyOrderFullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	order := env.paidBuyOrder(t, asset.AssetID, "client-1", 10)
	assert.Equal(t, domain.OrderStatusPaymentReceived, order.Status)
	require.NotNil(t, order.PaymentConfirmedAt)

	completed, err := env.orders.Complete(ctx, CompleteOrderCommand{
		OrderNumber:     order.OrderNumber,
		BeneficiaryName: "Juan Perez",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.NotEmpty(t, completed.CertificateID)

	// 台账：990 平台 / 10 流通
	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(990), updated.PlatformBalance)
	assert.Equal(t, int64(10), updated.CirculatingSupply)
	require.NoError(t, updated.CheckSupplyInvariant())

	holder, err := env.holders.Get(ctx, asset.AssetID, domain.HolderTypeClient, "client-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), holder.Balance)

	// 证书：价值按结算时单价冻结 10 × 100 = 1000
	cert, err := env.certs.Get(ctx, completed.CertificateID)
	require.NoError(t, err)
	assert.True(t, cert.TotalValueAtIssue.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "Juan Perez", cert.BeneficiaryName)
	assert.Equal(t, order.OrderNumber, cert.OrderNumber)
	assert.NotEmpty(t, cert.VerificationCode)
	assert.False(t, cert.IsBlockchainCertified)
}

func TestCompleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	order := env.paidBuyOrder(t, asset.AssetID, "client-1", 10)

	first, err := env.orders.Complete(ctx, CompleteOrderCommand{OrderNumber: order.OrderNumber})
	require.NoError(t, err)

	second, err := env.orders.Complete(ctx, CompleteOrderCommand{OrderNumber: order.OrderNumber})
	require.NoError(t, err)
	assert.Equal(t, first.CertificateID, second.CertificateID)

	// 重复结算不得重复转移通证
	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(990), updated.PlatformBalance)
	assert.Equal(t, int64(10), updated.CirculatingSupply)

	// 也不得重复签发证书
	_, total, err := env.certs.List(ctx, "tenant-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestCompleteUnpaidOrderFails(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	order, err := env.orders.CreateOrder(ctx, CreateOrderCommand{
		TenantID: "tenant-1", Type: domain.OrderTypeBuy, AssetID: asset.AssetID,
		ClientID: "client-1", TokenAmount: 10,
	})
	require.NoError(t, err)

	_, err = env.orders.Complete(ctx, CompleteOrderCommand{OrderNumber: order.OrderNumber})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestCompleteRollsBackWhenSupplyInsufficient(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	// 付款在前，结算时平台余额已被掏空
	order := env.paidBuyOrder(t, asset.AssetID, "client-1", 600)
	_, err := env.ledger.Transfer(ctx, asset.AssetID,
		domain.HolderTypePlatform, "", domain.HolderTypeClient, "whale", 900, "bulk sale", "")
	require.NoError(t, err)

	_, err = env.orders.Complete(ctx, CompleteOrderCommand{OrderNumber: order.OrderNumber})
	require.Error(t, err)
	assert.True(t, domain.IsInsufficientBalance(err))

	// 整个结算回滚：订单保持已付款，无证书
	reloaded, err := env.orders.Get(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentReceived, reloaded.Status)
	assert.Empty(t, reloaded.CertificateID)

	_, total, err := env.certs.List(ctx, "tenant-1", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestConcurrentCompletionsOnlyOneSettles(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	// 600 + 500 对 1000 可售量，并发结算恰有一单成交
	first := env.paidBuyOrder(t, asset.AssetID, "client-1", 600)
	second := env.paidBuyOrder(t, asset.AssetID, "client-2", 500)
	numbers := []string{first.OrderNumber, second.OrderNumber}
	amounts := []int64{600, 500}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, number := range numbers {
		wg.Add(1)
		go func(i int, number string) {
			defer wg.Done()
			_, errs[i] = env.orders.Complete(ctx, CompleteOrderCommand{OrderNumber: number})
		}(i, number)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "only one completion may settle")
			winner = i
		} else {
			assert.True(t, domain.IsInsufficientBalance(err))
		}
	}
	require.NotEqual(t, -1, winner)

	final, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	require.NoError(t, final.CheckSupplyInvariant())
	assert.Equal(t, amounts[winner], final.CirculatingSupply)
	assert.Equal(t, 1000-amounts[winner], final.PlatformBalance)

	// 失败的一单整体回滚，保持已付款可退款
	loser, err := env.orders.Get(ctx, numbers[1-winner])
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentReceived, loser.Status)
	assert.Empty(t, loser.CertificateID)

	_, total, err := env.certs.List(ctx, "tenant-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestSellOrderReturnsTokensToPlatform(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	// 客户先持有 100
	buy := env.paidBuyOrder(t, asset.AssetID, "client-1", 100)
	_, err := env.orders.Complete(ctx, CompleteOrderCommand{OrderNumber: buy.OrderNumber})
	require.NoError(t, err)

	sell, err := env.orders.CreateOrder(ctx, CreateOrderCommand{
		TenantID: "tenant-1", Type: domain.OrderTypeSell, AssetID: asset.AssetID,
		ClientID: "client-1", TokenAmount: 40,
		PayoutBankName: "Banco Sur", PayoutBankAccount: "001-234",
	})
	require.NoError(t, err)

	_, err = env.orders.ConfirmPayment(ctx, sell.OrderNumber, "PAYOUT-1")
	require.NoError(t, err)
	completed, err := env.orders.Complete(ctx, CompleteOrderCommand{OrderNumber: sell.OrderNumber})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, completed.Status)
	// 卖单不签发证书
	assert.Empty(t, completed.CertificateID)

	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(60), updated.CirculatingSupply)
	assert.Equal(t, int64(940), updated.PlatformBalance)
	require.NoError(t, updated.CheckSupplyInvariant())

	holder, err := env.holders.Get(ctx, asset.AssetID, domain.HolderTypeClient, "client-1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), holder.Balance)
}

func TestCancelOnlyBeforePayment(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	order, err := env.orders.CreateOrder(ctx, CreateOrderCommand{
		TenantID: "tenant-1", Type: domain.OrderTypeBuy, AssetID: asset.AssetID,
		ClientID: "client-1", TokenAmount: 10,
	})
	require.NoError(t, err)

	cancelled, err := env.orders.Cancel(ctx, order.OrderNumber, "client changed mind")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	// 已付款订单不可取消
	paid := env.paidBuyOrder(t, asset.AssetID, "client-2", 10)
	_, err = env.orders.Cancel(ctx, paid.OrderNumber, "too late")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestRefundNeverTouchesLedger(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	order := env.paidBuyOrder(t, asset.AssetID, "client-1", 10)
	refunded, err := env.orders.Refund(ctx, order.OrderNumber, "duplicate payment")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundedAt)

	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), updated.PlatformBalance)
	assert.Zero(t, updated.CirculatingSupply)

	// 终态，不可再结算
	_, err = env.orders.Complete(ctx, CompleteOrderCommand{OrderNumber: order.OrderNumber})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestInstantBuySettlesInOneStep(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	order, err := env.orders.InstantBuy(ctx, InstantBuyCommand{
		TenantID:         "tenant-1",
		AssetID:          asset.AssetID,
		ClientID:         "client-1",
		TokenAmount:      25,
		PaymentMethod:    "card",
		PaymentReference: "CARD-789",
		BeneficiaryName:  "Maria Gomez",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	require.NotEmpty(t, order.CertificateID)

	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(975), updated.PlatformBalance)
	assert.Equal(t, int64(25), updated.CirculatingSupply)

	cert, err := env.certs.Get(ctx, order.CertificateID)
	require.NoError(t, err)
	assert.Equal(t, "Maria Gomez", cert.BeneficiaryName)
	assert.True(t, cert.TotalValueAtIssue.Equal(decimal.NewFromInt(2500)))
}

func TestOrdersRejectedOnInactiveAsset(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	_, err := env.ledger.Pause(ctx, asset.AssetID)
	require.NoError(t, err)

	_, err = env.orders.CreateOrder(ctx, CreateOrderCommand{
		TenantID: "tenant-1", Type: domain.OrderTypeBuy, AssetID: asset.AssetID,
		ClientID: "client-1", TokenAmount: 10,
	})
	assert.ErrorIs(t, err, domain.ErrAssetNotActive)

	_, err = env.orders.InstantBuy(ctx, InstantBuyCommand{
		TenantID: "tenant-1", AssetID: asset.AssetID, ClientID: "client-1",
		TokenAmount: 10, PaymentMethod: "card", PaymentReference: "X",
	})
	assert.ErrorIs(t, err, domain.ErrAssetNotActive)
}

func TestPausedAssetStillSettlesPaidOrders(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	order := env.paidBuyOrder(t, asset.AssetID, "client-1", 10)
	_, err := env.ledger.Pause(ctx, asset.AssetID)
	require.NoError(t, err)

	// 暂停只挡新订单，已付款订单照常结算
	completed, err := env.orders.Complete(ctx, CompleteOrderCommand{OrderNumber: order.OrderNumber})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, completed.Status)
}

func TestVerifyCertificateByCode(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	order := env.paidBuyOrder(t, asset.AssetID, "client-1", 10)
	completed, err := env.orders.Complete(ctx, CompleteOrderCommand{OrderNumber: order.OrderNumber})
	require.NoError(t, err)

	cert, err := env.certs.Get(ctx, completed.CertificateID)
	require.NoError(t, err)

	found, err := env.certs.Verify(ctx, cert.VerificationCode)
	require.NoError(t, err)
	assert.Equal(t, cert.CertificateID, found.CertificateID)

	_, err = env.certs.Verify(ctx, "no-such-code")
	assert.ErrorIs(t, err, domain.ErrCertificateNotFound)
}
