package application

import (
	"context"
	"time"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/pkg/logger"
)

// CreateOrderCommand 创建订单命令
type CreateOrderCommand struct {
	TenantID          string
	Type              domain.OrderType
	AssetID           string
	ClientID          string
	TokenAmount       int64
	PaymentMethod     string
	PayoutBankName    string
	PayoutBankAccount string
}

// CompleteOrderCommand 结算订单命令
type CompleteOrderCommand struct {
	OrderNumber         string
	BeneficiaryName     string
	BeneficiaryDocument string
}

// InstantBuyCommand 即时购买命令，创建+确认+结算一步完成
type InstantBuyCommand struct {
	TenantID            string
	AssetID             string
	ClientID            string
	TokenAmount         int64
	PaymentMethod       string
	PaymentReference    string
	BeneficiaryName     string
	BeneficiaryDocument string
}

// OrderService 订单结算应用服务
// 结算的幂等性依赖订单状态的原子 check-and-set：只有赢得迁移的调用方
// 才执行台账转移与证书签发，其余调用方拿到已完成订单
type OrderService struct {
	txManager domain.TxManager
	orderRepo domain.OrderRepository
	assetRepo domain.AssetRepository
	ledger    *LedgerService
	certs     *CertificateService
	publisher domain.EventPublisher
	ids       *IDGenerator
}

// NewOrderService 创建订单结算应用服务
func NewOrderService(
	txManager domain.TxManager,
	orderRepo domain.OrderRepository,
	assetRepo domain.AssetRepository,
	ledger *LedgerService,
	certs *CertificateService,
	publisher domain.EventPublisher,
	ids *IDGenerator,
) *OrderService {
	return &OrderService{
		txManager: txManager,
		orderRepo: orderRepo,
		assetRepo: assetRepo,
		ledger:    ledger,
		certs:     certs,
		publisher: publisher,
		ids:       ids,
	}
}

// CreateOrder 创建订单，单价与总额按当前资产价格冻结
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	if cmd.TokenAmount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	asset, err := s.assetRepo.Get(ctx, cmd.AssetID)
	if err != nil {
		return nil, err
	}
	if !asset.IsSellable() {
		return nil, domain.ErrAssetNotActive
	}

	order := domain.NewOrder(s.ids.OrderNumber(), cmd.TenantID, cmd.Type, asset, cmd.ClientID, cmd.TokenAmount)
	order.PaymentMethod = cmd.PaymentMethod
	order.PayoutBankName = cmd.PayoutBankName
	order.PayoutBankAccount = cmd.PayoutBankAccount

	err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return err
		}
		return s.publishOrderEvent(txCtx, domain.EventTypeOrderCreated, order)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Order created",
		"order_number", order.OrderNumber,
		"type", order.Type,
		"asset_id", order.AssetID,
		"token_amount", order.TokenAmount,
	)
	return order, nil
}

// StartPayment 进入待支付状态（PENDING → PAYMENT_PENDING）
func (s *OrderService) StartPayment(ctx context.Context, orderNumber string) (*domain.Order, error) {
	ok, err := s.orderRepo.TransitionStatus(ctx, orderNumber,
		[]domain.OrderStatus{domain.OrderStatusPending}, domain.OrderStatusPaymentPending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionConflict(ctx, orderNumber)
	}
	return s.orderRepo.Get(ctx, orderNumber)
}

// ConfirmPayment 确认收款（PENDING/PAYMENT_PENDING → PAYMENT_RECEIVED）
func (s *OrderService) ConfirmPayment(ctx context.Context, orderNumber, paymentReference string) (*domain.Order, error) {
	var order *domain.Order
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := s.orderRepo.TransitionStatus(txCtx, orderNumber,
			[]domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusPaymentPending},
			domain.OrderStatusPaymentReceived)
		if err != nil {
			return err
		}
		if !ok {
			return s.transitionConflict(txCtx, orderNumber)
		}

		order, err = s.orderRepo.Get(txCtx, orderNumber)
		if err != nil {
			return err
		}
		now := time.Now()
		order.PaymentConfirmedAt = &now
		order.PaymentReference = paymentReference
		return s.orderRepo.Update(txCtx, order)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Payment confirmed", "order_number", orderNumber, "reference", paymentReference)
	return order, nil
}

// StartProcessing 进入处理中状态（PAYMENT_RECEIVED → PROCESSING）
func (s *OrderService) StartProcessing(ctx context.Context, orderNumber string) (*domain.Order, error) {
	ok, err := s.orderRepo.TransitionStatus(ctx, orderNumber,
		[]domain.OrderStatus{domain.OrderStatusPaymentReceived}, domain.OrderStatusProcessing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionConflict(ctx, orderNumber)
	}
	return s.orderRepo.Get(ctx, orderNumber)
}

// Complete 结算订单：转移通证、签发证书，整体原子且幂等
// 对已完成订单重复调用返回原订单，不产生任何副作用
func (s *OrderService) Complete(ctx context.Context, cmd CompleteOrderCommand) (*domain.Order, error) {
	var order *domain.Order
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := s.orderRepo.TransitionStatus(txCtx, cmd.OrderNumber,
			[]domain.OrderStatus{domain.OrderStatusPaymentReceived, domain.OrderStatusProcessing},
			domain.OrderStatusCompleted)
		if err != nil {
			return err
		}
		if !ok {
			existing, err := s.orderRepo.Get(txCtx, cmd.OrderNumber)
			if err != nil {
				return err
			}
			if existing.Status == domain.OrderStatusCompleted {
				// 幂等：结算已由先到的调用方完成
				order = existing
				return nil
			}
			return domain.ErrInvalidStateTransition
		}

		order, err = s.orderRepo.Get(txCtx, cmd.OrderNumber)
		if err != nil {
			return err
		}
		return s.settle(txCtx, order, cmd.BeneficiaryName, cmd.BeneficiaryDocument)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// settle 执行结算副作用：台账转移 + 证书签发 + 事件，必须在事务内调用
// 调用方已赢得 COMPLETED 迁移
func (s *OrderService) settle(ctx context.Context, order *domain.Order, beneficiaryName, beneficiaryDocument string) error {
	var err error
	switch order.Type {
	case domain.OrderTypeBuy:
		_, err = s.ledger.Transfer(ctx, order.AssetID,
			domain.HolderTypePlatform, "",
			domain.HolderTypeClient, order.ClientID,
			order.TokenAmount, "order settlement", order.OrderNumber)
	case domain.OrderTypeSell:
		_, err = s.ledger.Transfer(ctx, order.AssetID,
			domain.HolderTypeClient, order.ClientID,
			domain.HolderTypePlatform, "",
			order.TokenAmount, "order settlement", order.OrderNumber)
	default:
		return domain.ErrInvalidStateTransition
	}
	if err != nil {
		return err
	}

	if order.Type == domain.OrderTypeBuy {
		cert, err := s.certs.IssueForOrder(ctx, order, beneficiaryName, beneficiaryDocument)
		if err != nil {
			return err
		}
		order.CertificateID = cert.CertificateID
	}

	now := time.Now()
	order.CompletedAt = &now
	order.Status = domain.OrderStatusCompleted
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return err
	}

	if err := s.publishOrderEvent(ctx, domain.EventTypeOrderCompleted, order); err != nil {
		return err
	}

	logger.Info(ctx, "Order settled",
		"order_number", order.OrderNumber,
		"type", order.Type,
		"certificate_id", order.CertificateID,
	)
	return nil
}

// InstantBuy 即时购买：创建、确认支付、结算在同一事务内完成
func (s *OrderService) InstantBuy(ctx context.Context, cmd InstantBuyCommand) (*domain.Order, error) {
	if cmd.TokenAmount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var order *domain.Order
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		asset, err := s.assetRepo.Get(txCtx, cmd.AssetID)
		if err != nil {
			return err
		}
		if !asset.IsSellable() {
			return domain.ErrAssetNotActive
		}

		order = domain.NewOrder(s.ids.OrderNumber(), cmd.TenantID, domain.OrderTypeBuy, asset, cmd.ClientID, cmd.TokenAmount)
		order.PaymentMethod = cmd.PaymentMethod
		order.PaymentReference = cmd.PaymentReference
		now := time.Now()
		order.Status = domain.OrderStatusPaymentReceived
		order.PaymentConfirmedAt = &now
		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return err
		}
		if err := s.publishOrderEvent(txCtx, domain.EventTypeOrderCreated, order); err != nil {
			return err
		}
		return s.settle(txCtx, order, cmd.BeneficiaryName, cmd.BeneficiaryDocument)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel 取消订单，仅限尚无台账效果的状态
func (s *OrderService) Cancel(ctx context.Context, orderNumber, reason string) (*domain.Order, error) {
	var order *domain.Order
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := s.orderRepo.TransitionStatus(txCtx, orderNumber,
			[]domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusPaymentPending},
			domain.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return s.transitionConflict(txCtx, orderNumber)
		}

		order, err = s.orderRepo.Get(txCtx, orderNumber)
		if err != nil {
			return err
		}
		now := time.Now()
		order.CancelledAt = &now
		order.Reason = reason
		if err := s.orderRepo.Update(txCtx, order); err != nil {
			return err
		}
		return s.publishOrderEvent(txCtx, domain.EventTypeOrderCancelled, order)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Order cancelled", "order_number", orderNumber, "reason", reason)
	return order, nil
}

// Refund 退款，运营介入动作，只改订单状态，不回滚台账
func (s *OrderService) Refund(ctx context.Context, orderNumber, reason string) (*domain.Order, error) {
	var order *domain.Order
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := s.orderRepo.TransitionStatus(txCtx, orderNumber,
			[]domain.OrderStatus{domain.OrderStatusPaymentReceived, domain.OrderStatusProcessing},
			domain.OrderStatusRefunded)
		if err != nil {
			return err
		}
		if !ok {
			return s.transitionConflict(txCtx, orderNumber)
		}

		order, err = s.orderRepo.Get(txCtx, orderNumber)
		if err != nil {
			return err
		}
		now := time.Now()
		order.RefundedAt = &now
		order.Reason = reason
		if err := s.orderRepo.Update(txCtx, order); err != nil {
			return err
		}
		return s.publishOrderEvent(txCtx, domain.EventTypeOrderRefunded, order)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Order refunded", "order_number", orderNumber, "reason", reason)
	return order, nil
}

// Get 获取订单
func (s *OrderService) Get(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.orderRepo.Get(ctx, orderNumber)
}

// List 按条件获取订单分页列表
func (s *OrderService) List(ctx context.Context, filter domain.OrderFilter, limit, offset int) ([]*domain.Order, int64, error) {
	return s.orderRepo.List(ctx, filter, limit, offset)
}

// transitionConflict 条件迁移未命中时区分订单不存在与状态冲突
func (s *OrderService) transitionConflict(ctx context.Context, orderNumber string) error {
	if _, err := s.orderRepo.Get(ctx, orderNumber); err != nil {
		return err
	}
	return domain.ErrInvalidStateTransition
}

// publishOrderEvent 发布订单生命周期事件
func (s *OrderService) publishOrderEvent(ctx context.Context, eventType string, order *domain.Order) error {
	return s.publisher.Publish(ctx, eventType, domain.OrderEvent{
		OrderNumber: order.OrderNumber,
		TenantID:    order.TenantID,
		Type:        order.Type,
		AssetID:     order.AssetID,
		ClientID:    order.ClientID,
		TokenAmount: order.TokenAmount,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		Status:      order.Status,
		Reason:      order.Reason,
		OccurredAt:  time.Now(),
	})
}
