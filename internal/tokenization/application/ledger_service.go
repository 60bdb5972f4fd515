package application

import (
	"context"
	"time"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/pkg/logger"
	"github.com/shopspring/decimal"
)

// TokenizeCommand 资产通证化命令
type TokenizeCommand struct {
	TenantID    string
	SourceType  domain.SourceType
	SourceID    string
	TokenName   string
	TokenSymbol string
	TotalSupply int64
	TokenPrice  decimal.Decimal
	Currency    string
}

// LedgerService 台账应用服务
// 所有供应量变更在事务内完成，提交前重读资产校验供应量守恒
type LedgerService struct {
	txManager  domain.TxManager
	assetRepo  domain.AssetRepository
	holderRepo domain.HolderRepository
	txnRepo    domain.TransactionRepository
	publisher  domain.EventPublisher
	ids        *IDGenerator
}

// NewLedgerService 创建台账应用服务
func NewLedgerService(
	txManager domain.TxManager,
	assetRepo domain.AssetRepository,
	holderRepo domain.HolderRepository,
	txnRepo domain.TransactionRepository,
	publisher domain.EventPublisher,
	ids *IDGenerator,
) *LedgerService {
	return &LedgerService{
		txManager:  txManager,
		assetRepo:  assetRepo,
		holderRepo: holderRepo,
		txnRepo:    txnRepo,
		publisher:  publisher,
		ids:        ids,
	}
}

// Tokenize 将来源对象通证化，全部供应量记入平台持有，初始为 DRAFT
func (s *LedgerService) Tokenize(ctx context.Context, cmd TokenizeCommand) (*domain.TokenizedAsset, error) {
	if cmd.TotalSupply <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if cmd.TokenPrice.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	asset := domain.NewTokenizedAsset(
		s.ids.AssetID(), cmd.TenantID, cmd.SourceType, cmd.SourceID,
		cmd.TokenName, cmd.TokenSymbol, cmd.TotalSupply, cmd.TokenPrice, cmd.Currency,
	)

	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.assetRepo.Save(txCtx, asset); err != nil {
			return err
		}
		txn := &domain.TokenTransaction{
			TransactionID: s.ids.TransactionID(),
			AssetID:       asset.AssetID,
			TenantID:      asset.TenantID,
			Type:          domain.TransactionTypeMint,
			Amount:        cmd.TotalSupply,
			ToHolderType:  domain.HolderTypePlatform,
			Reason:        "initial issuance",
		}
		if err := s.txnRepo.Append(txCtx, txn); err != nil {
			return err
		}
		return s.publisher.Publish(txCtx, domain.EventTypeAssetTokenized, domain.AssetTokenizedEvent{
			AssetID:     asset.AssetID,
			TenantID:    asset.TenantID,
			SourceType:  asset.SourceType,
			SourceID:    asset.SourceID,
			TokenSymbol: asset.TokenSymbol,
			TotalSupply: asset.TotalSupply,
			TokenPrice:  asset.TokenPrice,
			Currency:    asset.Currency,
			OccurredAt:  time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Asset tokenized",
		"asset_id", asset.AssetID,
		"tenant_id", asset.TenantID,
		"total_supply", asset.TotalSupply,
	)
	return asset, nil
}

// ChangeAssetStatus 迁移资产状态
func (s *LedgerService) ChangeAssetStatus(ctx context.Context, assetID string, target domain.AssetStatus) (*domain.TokenizedAsset, error) {
	var updated *domain.TokenizedAsset
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		asset, err := s.assetRepo.Get(txCtx, assetID)
		if err != nil {
			return err
		}
		if !asset.Status.CanTransitionTo(target) {
			return domain.ErrInvalidStateTransition
		}
		ok, err := s.assetRepo.UpdateStatus(txCtx, assetID, asset.Status, target)
		if err != nil {
			return err
		}
		if !ok {
			// 并发迁移先到一步
			return domain.ErrInvalidStateTransition
		}
		if err := s.publisher.Publish(txCtx, domain.EventTypeAssetStatusChanged, domain.AssetStatusChangedEvent{
			AssetID:    assetID,
			TenantID:   asset.TenantID,
			FromStatus: asset.Status,
			ToStatus:   target,
			OccurredAt: time.Now(),
		}); err != nil {
			return err
		}
		asset.Status = target
		updated = asset
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Asset status changed", "asset_id", assetID, "status", target)
	return updated, nil
}

// Activate 激活资产（DRAFT → ACTIVE）
func (s *LedgerService) Activate(ctx context.Context, assetID string) (*domain.TokenizedAsset, error) {
	return s.ChangeAssetStatus(ctx, assetID, domain.AssetStatusActive)
}

// Pause 暂停资产交易
func (s *LedgerService) Pause(ctx context.Context, assetID string) (*domain.TokenizedAsset, error) {
	return s.ChangeAssetStatus(ctx, assetID, domain.AssetStatusPaused)
}

// Resume 恢复资产交易
func (s *LedgerService) Resume(ctx context.Context, assetID string) (*domain.TokenizedAsset, error) {
	return s.ChangeAssetStatus(ctx, assetID, domain.AssetStatusActive)
}

// Close 关闭资产，终态
func (s *LedgerService) Close(ctx context.Context, assetID string) (*domain.TokenizedAsset, error) {
	return s.ChangeAssetStatus(ctx, assetID, domain.AssetStatusClosed)
}

// UpdatePrice 更新资产单价，仅影响后续订单
func (s *LedgerService) UpdatePrice(ctx context.Context, assetID string, price decimal.Decimal) error {
	if price.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}
	asset, err := s.assetRepo.Get(ctx, assetID)
	if err != nil {
		return err
	}
	if !asset.IsMutable() {
		return domain.ErrAssetClosed
	}
	return s.assetRepo.UpdatePrice(ctx, assetID, price)
}

// GetAsset 获取资产
func (s *LedgerService) GetAsset(ctx context.Context, assetID string) (*domain.TokenizedAsset, error) {
	return s.assetRepo.Get(ctx, assetID)
}

// ListAssets 获取租户资产分页列表
func (s *LedgerService) ListAssets(ctx context.Context, tenantID string, limit, offset int) ([]*domain.TokenizedAsset, int64, error) {
	return s.assetRepo.List(ctx, tenantID, limit, offset)
}

// ListHolders 获取资产持有人列表
func (s *LedgerService) ListHolders(ctx context.Context, assetID string) ([]*domain.TokenHolder, error) {
	if _, err := s.assetRepo.Get(ctx, assetID); err != nil {
		return nil, err
	}
	return s.holderRepo.ListByAsset(ctx, assetID)
}

// ListTransactions 获取资产流水分页列表
func (s *LedgerService) ListTransactions(ctx context.Context, assetID string, limit, offset int) ([]*domain.TokenTransaction, int64, error) {
	return s.txnRepo.ListByAsset(ctx, assetID, limit, offset)
}

// Mint 增发，新增供应量记入平台持有
func (s *LedgerService) Mint(ctx context.Context, assetID string, amount int64, reason string) (*domain.TokenTransaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var txn *domain.TokenTransaction
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		asset, err := s.assetRepo.Get(txCtx, assetID)
		if err != nil {
			return err
		}
		if !asset.IsMutable() {
			return domain.ErrAssetClosed
		}

		ok, err := s.assetRepo.ApplySupplyDelta(txCtx, assetID, domain.SupplyDelta{Total: amount, Platform: amount})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAssetNotFound
		}

		txn = &domain.TokenTransaction{
			TransactionID: s.ids.TransactionID(),
			AssetID:       assetID,
			TenantID:      asset.TenantID,
			Type:          domain.TransactionTypeMint,
			Amount:        amount,
			ToHolderType:  domain.HolderTypePlatform,
			Reason:        reason,
		}
		if err := s.txnRepo.Append(txCtx, txn); err != nil {
			return err
		}
		if err := s.verifyInvariant(txCtx, assetID); err != nil {
			return err
		}
		return s.publishLedgerChanged(txCtx, txn)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Tokens minted", "asset_id", assetID, "amount", amount)
	return txn, nil
}

// Burn 销毁，从持有人（或平台）余额移入销毁量，发行总量不变
func (s *LedgerService) Burn(ctx context.Context, assetID string, holderType domain.HolderType, holderID string, amount int64, reason string) (*domain.TokenTransaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var txn *domain.TokenTransaction
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		asset, err := s.assetRepo.Get(txCtx, assetID)
		if err != nil {
			return err
		}
		if !asset.IsMutable() {
			return domain.ErrAssetClosed
		}

		if holderType == domain.HolderTypePlatform {
			ok, err := s.assetRepo.ApplySupplyDelta(txCtx, assetID, domain.SupplyDelta{Platform: -amount, Burned: amount})
			if err != nil {
				return err
			}
			if !ok {
				return &domain.InsufficientBalanceError{
					AssetID:   assetID,
					Holder:    string(domain.HolderTypePlatform),
					Requested: amount,
					Available: asset.PlatformBalance,
				}
			}
		} else {
			ok, err := s.holderRepo.Debit(txCtx, assetID, holderType, holderID, amount)
			if err != nil {
				return err
			}
			if !ok {
				return s.insufficientBalance(txCtx, assetID, holderType, holderID, amount)
			}
			ok, err = s.assetRepo.ApplySupplyDelta(txCtx, assetID, domain.SupplyDelta{Circulating: -amount, Burned: amount})
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrSupplyInvariantViolated
			}
		}

		txn = &domain.TokenTransaction{
			TransactionID:  s.ids.TransactionID(),
			AssetID:        assetID,
			TenantID:       asset.TenantID,
			Type:           domain.TransactionTypeBurn,
			Amount:         amount,
			FromHolderType: holderType,
			FromHolderID:   holderID,
			Reason:         reason,
		}
		if err := s.txnRepo.Append(txCtx, txn); err != nil {
			return err
		}
		if err := s.verifyInvariant(txCtx, assetID); err != nil {
			return err
		}
		return s.publishLedgerChanged(txCtx, txn)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Tokens burned", "asset_id", assetID, "holder", holderID, "amount", amount)
	return txn, nil
}

// Transfer 在持有人之间转移通证，涉及平台侧时同步更新流通量
func (s *LedgerService) Transfer(ctx context.Context, assetID string,
	fromType domain.HolderType, fromID string,
	toType domain.HolderType, toID string,
	amount int64, reason, orderID string,
) (*domain.TokenTransaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var txn *domain.TokenTransaction
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		asset, err := s.assetRepo.Get(txCtx, assetID)
		if err != nil {
			return err
		}
		if !asset.IsMutable() {
			return domain.ErrAssetClosed
		}

		txnType := domain.TransactionTypeTransfer

		switch {
		case fromType == domain.HolderTypePlatform && toType == domain.HolderTypePlatform:
			return domain.ErrInvalidStateTransition
		case fromType == domain.HolderTypePlatform:
			// 平台售出：平台余额减少，流通量增加
			ok, err := s.assetRepo.ApplySupplyDelta(txCtx, assetID, domain.SupplyDelta{Circulating: amount, Platform: -amount})
			if err != nil {
				return err
			}
			if !ok {
				return &domain.InsufficientBalanceError{
					AssetID:   assetID,
					Holder:    string(domain.HolderTypePlatform),
					Requested: amount,
					Available: asset.PlatformBalance,
				}
			}
			if err := s.holderRepo.Credit(txCtx, assetID, toType, toID, amount); err != nil {
				return err
			}
		case toType == domain.HolderTypePlatform:
			// 客户回售：流通量减少，平台余额增加
			txnType = domain.TransactionTypeReturn
			ok, err := s.holderRepo.Debit(txCtx, assetID, fromType, fromID, amount)
			if err != nil {
				return err
			}
			if !ok {
				return s.insufficientBalance(txCtx, assetID, fromType, fromID, amount)
			}
			ok, err = s.assetRepo.ApplySupplyDelta(txCtx, assetID, domain.SupplyDelta{Circulating: -amount, Platform: amount})
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrSupplyInvariantViolated
			}
		default:
			// 客户间背书转让，供应量分布不变
			ok, err := s.holderRepo.Debit(txCtx, assetID, fromType, fromID, amount)
			if err != nil {
				return err
			}
			if !ok {
				return s.insufficientBalance(txCtx, assetID, fromType, fromID, amount)
			}
			if err := s.holderRepo.Credit(txCtx, assetID, toType, toID, amount); err != nil {
				return err
			}
		}

		txn = &domain.TokenTransaction{
			TransactionID:  s.ids.TransactionID(),
			AssetID:        assetID,
			TenantID:       asset.TenantID,
			Type:           txnType,
			Amount:         amount,
			FromHolderType: fromType,
			FromHolderID:   fromID,
			ToHolderType:   toType,
			ToHolderID:     toID,
			Reason:         reason,
			OrderID:        orderID,
		}
		if err := s.txnRepo.Append(txCtx, txn); err != nil {
			return err
		}
		if err := s.verifyInvariant(txCtx, assetID); err != nil {
			return err
		}
		return s.publishLedgerChanged(txCtx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// verifyInvariant 事务提交前的供应量守恒后置校验，失败则整个事务回滚
func (s *LedgerService) verifyInvariant(ctx context.Context, assetID string) error {
	asset, err := s.assetRepo.Get(ctx, assetID)
	if err != nil {
		return err
	}
	if err := asset.CheckSupplyInvariant(); err != nil {
		logger.Error(ctx, "Supply invariant violated, rolling back",
			"asset_id", assetID,
			"total", asset.TotalSupply,
			"circulating", asset.CirculatingSupply,
			"platform", asset.PlatformBalance,
			"burned", asset.BurnedSupply,
		)
		return err
	}
	return nil
}

// insufficientBalance 构造余额不足错误，读取当前余额供排查
func (s *LedgerService) insufficientBalance(ctx context.Context, assetID string, holderType domain.HolderType, holderID string, requested int64) error {
	available := int64(0)
	if holder, err := s.holderRepo.Get(ctx, assetID, holderType, holderID); err == nil {
		available = holder.Balance
	}
	return &domain.InsufficientBalanceError{
		AssetID:   assetID,
		Holder:    holderID,
		Requested: requested,
		Available: available,
	}
}

// publishLedgerChanged 发布台账变更事件
func (s *LedgerService) publishLedgerChanged(ctx context.Context, txn *domain.TokenTransaction) error {
	return s.publisher.Publish(ctx, domain.EventTypeLedgerChanged, domain.LedgerChangedEvent{
		TransactionID: txn.TransactionID,
		AssetID:       txn.AssetID,
		TenantID:      txn.TenantID,
		Type:          txn.Type,
		Amount:        txn.Amount,
		OrderID:       txn.OrderID,
		OccurredAt:    time.Now(),
	})
}
