package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"pending to payment pending", OrderStatusPending, OrderStatusPaymentPending, true},
		{"pending to payment received", OrderStatusPending, OrderStatusPaymentReceived, true},
		{"pending to cancelled", OrderStatusPending, OrderStatusCancelled, true},
		{"pending to completed", OrderStatusPending, OrderStatusCompleted, false},
		{"pending to refunded", OrderStatusPending, OrderStatusRefunded, false},
		{"payment pending to cancelled", OrderStatusPaymentPending, OrderStatusCancelled, true},
		{"payment received to processing", OrderStatusPaymentReceived, OrderStatusProcessing, true},
		{"payment received to completed", OrderStatusPaymentReceived, OrderStatusCompleted, true},
		{"payment received to refunded", OrderStatusPaymentReceived, OrderStatusRefunded, true},
		{"payment received to cancelled", OrderStatusPaymentReceived, OrderStatusCancelled, false},
		{"processing to completed", OrderStatusProcessing, OrderStatusCompleted, true},
		{"processing to refunded", OrderStatusProcessing, OrderStatusRefunded, true},
		{"completed is terminal", OrderStatusCompleted, OrderStatusRefunded, false},
		{"cancelled is terminal", OrderStatusCancelled, OrderStatusPending, false},
		{"refunded is terminal", OrderStatusRefunded, OrderStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderTerminalStates(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusRefunded.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusProcessing.IsTerminal())
}

func TestNewOrderFreezesPrice(t *testing.T) {
	asset := NewTokenizedAsset("TKN-1", "tenant-1", SourceTypeAsset, "asset-1", "Edificio Sur", "EDS", 1000, decimal.RequireFromString("12.50"), "USD")
	asset.Status = AssetStatusActive

	order := NewOrder("ORD-1", "tenant-1", OrderTypeBuy, asset, "client-1", 10)

	assert.Equal(t, OrderStatusPending, order.Status)
	assert.True(t, order.PricePerToken.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("125.00")))
	assert.Equal(t, "USD", order.Currency)

	// 后续改价不影响已创建订单
	asset.TokenPrice = decimal.NewFromInt(99)
	assert.True(t, order.PricePerToken.Equal(decimal.RequireFromString("12.50")))
}

func TestOrderStagePredicates(t *testing.T) {
	order := &Order{Status: OrderStatusPending}
	assert.True(t, order.CanBeCancelled())
	assert.False(t, order.CanBeCompleted())
	assert.False(t, order.CanBeRefunded())

	order.Status = OrderStatusPaymentReceived
	assert.False(t, order.CanBeCancelled())
	assert.True(t, order.CanBeCompleted())
	assert.True(t, order.CanBeRefunded())

	order.Status = OrderStatusCompleted
	assert.False(t, order.CanBeCancelled())
	assert.False(t, order.CanBeCompleted())
	assert.False(t, order.CanBeRefunded())
}
