package http

import (
	"context"
	"net/http"

	"github.com/fideitec/tokenization/internal/tokenization/application"
	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/pkg/response"
	"github.com/gin-gonic/gin"
)

type createOrderRequest struct {
	Type              string `json:"type" binding:"required,oneof=BUY SELL"`
	AssetID           string `json:"asset_id" binding:"required"`
	ClientID          string `json:"client_id" binding:"required"`
	TokenAmount       int64  `json:"token_amount" binding:"required,gt=0"`
	PaymentMethod     string `json:"payment_method"`
	PayoutBankName    string `json:"payout_bank_name"`
	PayoutBankAccount string `json:"payout_bank_account"`
}

// CreateOrder 创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), codeInvalidRequest)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), application.CreateOrderCommand{
		TenantID:          c.GetHeader(headerTenantID),
		Type:              domain.OrderType(req.Type),
		AssetID:           req.AssetID,
		ClientID:          req.ClientID,
		TokenAmount:       req.TokenAmount,
		PaymentMethod:     req.PaymentMethod,
		PayoutBankName:    req.PayoutBankName,
		PayoutBankAccount: req.PayoutBankAccount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, order)
}

// ListOrders 按条件获取订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	p := pagination(c)
	filter := domain.OrderFilter{
		TenantID: c.GetHeader(headerTenantID),
		AssetID:  c.Query("asset_id"),
		ClientID: c.Query("client_id"),
		Status:   domain.OrderStatus(c.Query("status")),
		Type:     domain.OrderType(c.Query("type")),
	}
	orders, total, err := h.orders.List(c.Request.Context(), filter, p.Limit(), p.Offset())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, paged(orders, p, total))
}

// GetOrder 获取订单
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

// StartPayment 进入待支付状态
func (h *Handler) StartPayment(c *gin.Context) {
	order, err := h.orders.StartPayment(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

type confirmPaymentRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

// ConfirmPayment 确认收款
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), codeInvalidRequest)
		return
	}
	order, err := h.orders.ConfirmPayment(c.Request.Context(), c.Param("number"), req.PaymentReference)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

// StartProcessing 进入处理中状态
func (h *Handler) StartProcessing(c *gin.Context) {
	order, err := h.orders.StartProcessing(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

type completeOrderRequest struct {
	BeneficiaryName     string `json:"beneficiary_name"`
	BeneficiaryDocument string `json:"beneficiary_document"`
}

// CompleteOrder 结算订单，幂等
func (h *Handler) CompleteOrder(c *gin.Context) {
	var req completeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), codeInvalidRequest)
		return
	}

	order, err := h.orders.Complete(c.Request.Context(), application.CompleteOrderCommand{
		OrderNumber:         c.Param("number"),
		BeneficiaryName:     req.BeneficiaryName,
		BeneficiaryDocument: req.BeneficiaryDocument,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	// 结算已提交，自动锚定为旁路
	if h.autoAnchor && h.anchor.Enabled() && order.CertificateID != "" {
		go h.anchor.TryAnchor(context.Background(), order.CertificateID)
	}
	response.Success(c, order)
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelOrder 取消订单
func (h *Handler) CancelOrder(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), codeInvalidRequest)
		return
	}
	order, err := h.orders.Cancel(c.Request.Context(), c.Param("number"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

// RefundOrder 退款订单
func (h *Handler) RefundOrder(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), codeInvalidRequest)
		return
	}
	order, err := h.orders.Refund(c.Request.Context(), c.Param("number"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

type instantBuyRequest struct {
	AssetID             string `json:"asset_id" binding:"required"`
	ClientID            string `json:"client_id" binding:"required"`
	TokenAmount         int64  `json:"token_amount" binding:"required,gt=0"`
	PaymentMethod       string `json:"payment_method" binding:"required"`
	PaymentReference    string `json:"payment_reference" binding:"required"`
	BeneficiaryName     string `json:"beneficiary_name"`
	BeneficiaryDocument string `json:"beneficiary_document"`
}

// InstantBuy 即时购买：创建、确认支付、结算一步完成
func (h *Handler) InstantBuy(c *gin.Context) {
	var req instantBuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), codeInvalidRequest)
		return
	}

	order, err := h.orders.InstantBuy(c.Request.Context(), application.InstantBuyCommand{
		TenantID:            c.GetHeader(headerTenantID),
		AssetID:             req.AssetID,
		ClientID:            req.ClientID,
		TokenAmount:         req.TokenAmount,
		PaymentMethod:       req.PaymentMethod,
		PaymentReference:    req.PaymentReference,
		BeneficiaryName:     req.BeneficiaryName,
		BeneficiaryDocument: req.BeneficiaryDocument,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if h.autoAnchor && h.anchor.Enabled() && order.CertificateID != "" {
		go h.anchor.TryAnchor(context.Background(), order.CertificateID)
	}
	response.Created(c, order)
}
