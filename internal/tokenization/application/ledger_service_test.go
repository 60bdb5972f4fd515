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

func TestTokenizeAllocatesFullSupplyToPlatform(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)

	assert.Equal(t, int64(1000), asset.TotalSupply)
	assert.Equal(t, int64(1000), asset.PlatformBalance)
	assert.Zero(t, asset.CirculatingSupply)

	txns, total, err := env.ledger.ListTransactions(context.Background(), asset.AssetID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, domain.TransactionTypeMint, txns[0].Type)
	assert.Equal(t, int64(1000), txns[0].Amount)
}

func TestTokenizeRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ledger.Tokenize(ctx, TokenizeCommand{
		TenantID: "tenant-1", SourceType: domain.SourceTypeAsset, SourceID: "a-1",
		TokenName: "X", TokenSymbol: "X", TotalSupply: 0, TokenPrice: decimal.NewFromInt(1), Currency: "USD",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = env.ledger.Tokenize(ctx, TokenizeCommand{
		TenantID: "tenant-1", SourceType: domain.SourceTypeAsset, SourceID: "a-1",
		TokenName: "X", TokenSymbol: "X", TotalSupply: 100, TokenPrice: decimal.Zero, Currency: "USD",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestTransferPlatformToClient(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	txn, err := env.ledger.Transfer(ctx, asset.AssetID,
		domain.HolderTypePlatform, "",
		domain.HolderTypeClient, "client-1",
		10, "manual allocation", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeTransfer, txn.Type)

	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(990), updated.PlatformBalance)
	assert.Equal(t, int64(10), updated.CirculatingSupply)
	assert.Equal(t, int64(1000), updated.TotalSupply)

	holder, err := env.holders.Get(ctx, asset.AssetID, domain.HolderTypeClient, "client-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), holder.Balance)
}

func TestTransferInsufficientPlatformBalance(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	// 1000 可售：600 成功，500 余额不足
	_, err := env.ledger.Transfer(ctx, asset.AssetID,
		domain.HolderTypePlatform, "", domain.HolderTypeClient, "client-a", 600, "bulk sale", "")
	require.NoError(t, err)

	_, err = env.ledger.Transfer(ctx, asset.AssetID,
		domain.HolderTypePlatform, "", domain.HolderTypeClient, "client-b", 500, "bulk sale", "")
	require.Error(t, err)
	assert.True(t, domain.IsInsufficientBalance(err))

	// 失败的转移不得留下任何痕迹
	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), updated.PlatformBalance)
	assert.Equal(t, int64(600), updated.CirculatingSupply)
	require.NoError(t, updated.CheckSupplyInvariant())

	_, err = env.holders.Get(ctx, asset.AssetID, domain.HolderTypeClient, "client-b")
	assert.ErrorIs(t, err, domain.ErrHolderNotFound)
}

func TestClientToClientTransferKeepsSupplyDistribution(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	_, err := env.ledger.Transfer(ctx, asset.AssetID,
		domain.HolderTypePlatform, "", domain.HolderTypeClient, "client-a", 100, "sale", "")
	require.NoError(t, err)

	_, err = env.ledger.Transfer(ctx, asset.AssetID,
		domain.HolderTypeClient, "client-a", domain.HolderTypeClient, "client-b", 40, "endorsement", "")
	require.NoError(t, err)

	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), updated.CirculatingSupply)
	assert.Equal(t, int64(900), updated.PlatformBalance)

	a, err := env.holders.Get(ctx, asset.AssetID, domain.HolderTypeClient, "client-a")
	require.NoError(t, err)
	b, err := env.holders.Get(ctx, asset.AssetID, domain.HolderTypeClient, "client-b")
	require.NoError(t, err)
	assert.Equal(t, int64(60), a.Balance)
	assert.Equal(t, int64(40), b.Balance)
}

func TestMintIncreasesTotalAndPlatform(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	txn, err := env.ledger.Mint(ctx, asset.AssetID, 500, "capital increase")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeMint, txn.Type)

	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), updated.TotalSupply)
	assert.Equal(t, int64(1500), updated.PlatformBalance)
	require.NoError(t, updated.CheckSupplyInvariant())
}

func TestBurnKeepsTotalSupply(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	_, err := env.ledger.Transfer(ctx, asset.AssetID,
		domain.HolderTypePlatform, "", domain.HolderTypeClient, "client-1", 200, "sale", "")
	require.NoError(t, err)

	// 持有 200，先烧 150
	_, err = env.ledger.Burn(ctx, asset.AssetID, domain.HolderTypeClient, "client-1", 150, "redemption")
	require.NoError(t, err)

	// 再烧 150 只剩 50，必须失败且不动余额
	_, err = env.ledger.Burn(ctx, asset.AssetID, domain.HolderTypeClient, "client-1", 150, "redemption")
	require.Error(t, err)
	assert.True(t, domain.IsInsufficientBalance(err))

	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), updated.TotalSupply)
	assert.Equal(t, int64(50), updated.CirculatingSupply)
	assert.Equal(t, int64(800), updated.PlatformBalance)
	assert.Equal(t, int64(150), updated.BurnedSupply)
	require.NoError(t, updated.CheckSupplyInvariant())

	holder, err := env.holders.Get(ctx, asset.AssetID, domain.HolderTypeClient, "client-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), holder.Balance)
}

func TestConcurrentBurnsOnlyOneSucceeds(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	_, err := env.ledger.Transfer(ctx, asset.AssetID,
		domain.HolderTypePlatform, "", domain.HolderTypeClient, "client-1", 200, "sale", "")
	require.NoError(t, err)

	// 持有 200，两个并发销毁各 150，恰有一个成功
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.ledger.Burn(ctx, asset.AssetID, domain.HolderTypeClient, "client-1", 150, "redemption")
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.True(t, domain.IsInsufficientBalance(err))
			failures++
		}
	}
	require.Equal(t, 1, failures)

	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), updated.TotalSupply)
	assert.Equal(t, int64(50), updated.CirculatingSupply)
	assert.Equal(t, int64(150), updated.BurnedSupply)
	require.NoError(t, updated.CheckSupplyInvariant())

	holder, err := env.holders.Get(ctx, asset.AssetID, domain.HolderTypeClient, "client-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), holder.Balance)
}

func TestBurnFromPlatform(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	_, err := env.ledger.Burn(ctx, asset.AssetID, domain.HolderTypePlatform, "", 300, "supply reduction")
	require.NoError(t, err)

	updated, err := env.ledger.GetAsset(ctx, asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), updated.TotalSupply)
	assert.Equal(t, int64(700), updated.PlatformBalance)
	assert.Equal(t, int64(300), updated.BurnedSupply)
	require.NoError(t, updated.CheckSupplyInvariant())
}

func TestLedgerMutationsBlockedOnClosedAsset(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	_, err := env.ledger.Close(ctx, asset.AssetID)
	require.NoError(t, err)

	_, err = env.ledger.Mint(ctx, asset.AssetID, 100, "late mint")
	assert.ErrorIs(t, err, domain.ErrAssetClosed)

	_, err = env.ledger.Burn(ctx, asset.AssetID, domain.HolderTypePlatform, "", 100, "late burn")
	assert.ErrorIs(t, err, domain.ErrAssetClosed)

	_, err = env.ledger.Transfer(ctx, asset.AssetID,
		domain.HolderTypePlatform, "", domain.HolderTypeClient, "client-1", 10, "late sale", "")
	assert.ErrorIs(t, err, domain.ErrAssetClosed)
}

func TestAssetStatusTransitionGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	asset, err := env.ledger.Tokenize(ctx, TokenizeCommand{
		TenantID: "tenant-1", SourceType: domain.SourceTypeAsset, SourceID: "a-1",
		TokenName: "Edificio", TokenSymbol: "EDF", TotalSupply: 100,
		TokenPrice: decimal.NewFromInt(5), Currency: "USD",
	})
	require.NoError(t, err)

	// DRAFT 不能直接暂停或关闭
	_, err = env.ledger.Pause(ctx, asset.AssetID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	_, err = env.ledger.Close(ctx, asset.AssetID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	_, err = env.ledger.Activate(ctx, asset.AssetID)
	require.NoError(t, err)
	_, err = env.ledger.Pause(ctx, asset.AssetID)
	require.NoError(t, err)
	_, err = env.ledger.Resume(ctx, asset.AssetID)
	require.NoError(t, err)
	_, err = env.ledger.Close(ctx, asset.AssetID)
	require.NoError(t, err)

	// CLOSED 为终态
	_, err = env.ledger.Activate(ctx, asset.AssetID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestUpdatePriceOnlyAffectsNewOrders(t *testing.T) {
	env := newTestEnv(t)
	asset := env.activeAsset(t)
	ctx := context.Background()

	before := env.paidBuyOrder(t, asset.AssetID, "client-1", 10)
	require.NoError(t, env.ledger.UpdatePrice(ctx, asset.AssetID, decimal.NewFromInt(200)))
	after := env.paidBuyOrder(t, asset.AssetID, "client-2", 10)

	assert.True(t, before.TotalAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, after.TotalAmount.Equal(decimal.NewFromInt(2000)))
}
